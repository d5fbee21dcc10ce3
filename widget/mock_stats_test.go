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

package widget

import (
	"github.com/stretchr/testify/mock"
)

// MockStatsServer mock implementation of a stats server
type MockStatsServer struct {
	mock.Mock
}

// Reset mock
func (m *MockStatsServer) Reset() {
	m.Called()
}

// SetCounter mock
func (m *MockStatsServer) SetCounter(key string, val int64) {
	m.Called(key, val)
}

// UpdateCounterBy mock
func (m *MockStatsServer) UpdateCounterBy(key string, count int64) {
	m.Called(key, count)
}

func newMockStats() *MockStatsServer {
	m := &MockStatsServer{}
	m.On("SetCounter", mock.Anything, mock.Anything).Return()
	m.On("UpdateCounterBy", mock.Anything, mock.Anything).Return()
	m.On("Reset").Return()
	return m
}
