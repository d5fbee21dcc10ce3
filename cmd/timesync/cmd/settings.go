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

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/timesync/timesync/config"
)

func init() {
	RootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetServerCmd)
	settingsCmd.AddCommand(settingsSetIntervalCmd)
}

func openStore() *config.Store {
	cfg, err := prepareConfig()
	if err != nil {
		log.Fatal(err)
	}
	store := config.NewStore(cfg.SettingsPath)
	if _, err := store.Load(); err != nil {
		log.Fatal(err)
	}
	return store
}

func settingsShow(out io.Writer, store *config.Store) error {
	data, err := yaml.Marshal(store.Get())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "# %s\n%s", store.Path(), data)
	return err
}

func settingsSetServer(store *config.Store, server string) error {
	server = strings.TrimSpace(server)
	if server == "" {
		return fmt.Errorf("reference server must not be empty")
	}
	return store.SetReferenceServer(server)
}

func settingsSetInterval(store *config.Store, in string) (int, error) {
	interval := config.ParseSyncInterval(in)
	if err := store.SetSyncInterval(interval); err != nil {
		return 0, err
	}
	return interval, nil
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change settings shared by running widgets",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print current settings",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := settingsShow(os.Stdout, openStore()); err != nil {
			log.Fatal(err)
		}
	},
}

var settingsSetServerCmd = &cobra.Command{
	Use:   "set-server <server>",
	Short: "Set reference server label. Running widgets sync right after it changes",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		if err := settingsSetServer(openStore(), args[0]); err != nil {
			log.Fatal(err)
		}
	},
}

var settingsSetIntervalCmd = &cobra.Command{
	Use:   "set-interval <seconds>",
	Short: fmt.Sprintf("Set auto sync interval in seconds, at least %d", config.MinSyncInterval),
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		interval, err := settingsSetInterval(openStore(), args[0])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("auto sync interval is %ds\n", interval)
	},
}
