/*
Copyright 2024 Blnk Finance Authors.

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

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/blnkfinance/jukebox/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Ledger methods

func (m *MockDataSource) InsertEntry(ctx context.Context, entry model.TransactionEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockDataSource) GetEntry(ctx context.Context, reference string) (model.TransactionEntry, error) {
	args := m.Called(ctx, reference)
	return args.Get(0).(model.TransactionEntry), args.Error(1)
}

func (m *MockDataSource) CompareAndSetStatus(ctx context.Context, reference string, from, to model.PaymentStatus, providerStatus string) (model.TransactionEntry, bool, error) {
	args := m.Called(ctx, reference, from, to, providerStatus)
	return args.Get(0).(model.TransactionEntry), args.Bool(1), args.Error(2)
}

func (m *MockDataSource) ConsumeEntry(ctx context.Context, reference string, at time.Time) (model.TransactionEntry, error) {
	args := m.Called(ctx, reference, at)
	return args.Get(0).(model.TransactionEntry), args.Error(1)
}

func (m *MockDataSource) ReleaseEntry(ctx context.Context, reference string) error {
	args := m.Called(ctx, reference)
	return args.Error(0)
}

func (m *MockDataSource) CountEntries(ctx context.Context) (map[model.PaymentStatus]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[model.PaymentStatus]int), args.Error(1)
}

// Request store methods

func (m *MockDataSource) AppendRequest(ctx context.Context, request model.SongRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockDataSource) GetRequest(ctx context.Context, id string) (model.SongRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.SongRequest), args.Error(1)
}

func (m *MockDataSource) ListRequests(ctx context.Context) ([]model.SongRequest, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.SongRequest), args.Error(1)
}

func (m *MockDataSource) MarkPlayed(ctx context.Context, id string, at time.Time) (model.SongRequest, bool, error) {
	args := m.Called(ctx, id, at)
	return args.Get(0).(model.SongRequest), args.Bool(1), args.Error(2)
}
