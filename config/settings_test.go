/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.yaml")
	s := NewStore(path)
	cur, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, Settings{ReferenceServer: "pool.ntp.org", SyncInterval: 60}, cur)

	// defaults were persisted
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "ntpServer: pool.ntp.org")
	require.Contains(t, string(data), "syncInterval: 60")
}

func TestStoreLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ntpServer: time.google.com\nsyncInterval: 5\n"), 0o644))

	s := NewStore(path)
	cur, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, Settings{ReferenceServer: "time.google.com", SyncInterval: 10}, cur)
	require.Equal(t, cur, s.Get())
}

func TestStoreLoadBroken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ntpServer: [oops\n"), 0o644))

	s := NewStore(path)
	cur, err := s.Load()
	require.Error(t, err)
	require.Equal(t, DefaultSettings(), cur)
}

func TestStoreSetAndNotify(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.yaml"))
	_, err := s.Load()
	require.NoError(t, err)

	changes := []Settings{}
	s.OnChange(func(_, cur Settings) {
		changes = append(changes, cur)
	})

	require.NoError(t, s.SetReferenceServer(" time.cloudflare.com "))
	require.NoError(t, s.SetSyncInterval(3))
	// same value again, no notification
	require.NoError(t, s.SetSyncInterval(10))

	require.Equal(t, []Settings{
		{ReferenceServer: "time.cloudflare.com", SyncInterval: 60},
		{ReferenceServer: "time.cloudflare.com", SyncInterval: 10},
	}, changes)

	reloaded, err := NewStore(s.Path()).Load()
	require.NoError(t, err)
	require.Equal(t, s.Get(), reloaded)
}

func TestStoreRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	a := NewStore(path)
	_, err := a.Load()
	require.NoError(t, err)

	var got *Settings
	a.OnChange(func(_, cur Settings) {
		got = &cur
	})
	require.NoError(t, a.Refresh())
	require.Nil(t, got)

	// another surface writes the file
	b := NewStore(path)
	require.NoError(t, b.SetSyncInterval(120))
	// make sure mtime differs even on coarse filesystems
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	require.NoError(t, a.Refresh())
	require.NotNil(t, got)
	require.Equal(t, 120, got.SyncInterval)
	require.Equal(t, 120, a.Get().SyncInterval)
}

func TestParseSyncInterval(t *testing.T) {
	require.Equal(t, 60, ParseSyncInterval(""))
	require.Equal(t, 60, ParseSyncInterval("abc"))
	require.Equal(t, 60, ParseSyncInterval("0"))
	require.Equal(t, 10, ParseSyncInterval("3"))
	require.Equal(t, 10, ParseSyncInterval("-5"))
	require.Equal(t, 10, ParseSyncInterval("-120"))
	require.Equal(t, 45, ParseSyncInterval(" 45 "))
}
