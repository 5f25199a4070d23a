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

package database

import (
	"context"
	"time"

	"github.com/blnkfinance/jukebox/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	transactionLedger // Interface for payment attempt tracking
	requestStore      // Interface for submitted song requests
}

// transactionLedger tracks payment attempts by reference.
type transactionLedger interface {
	// InsertEntry adds a new Pending entry.
	InsertEntry(ctx context.Context, entry model.TransactionEntry) error
	// GetEntry returns a snapshot of an entry.
	GetEntry(ctx context.Context, reference string) (model.TransactionEntry, error)
	// CompareAndSetStatus moves the status only if it still equals from.
	CompareAndSetStatus(ctx context.Context, reference string, from, to model.PaymentStatus, providerStatus string) (model.TransactionEntry, bool, error)
	// ConsumeEntry flags a Paid entry as used, exactly once.
	ConsumeEntry(ctx context.Context, reference string, at time.Time) (model.TransactionEntry, error)
	// ReleaseEntry undoes ConsumeEntry when the request could not be stored.
	ReleaseEntry(ctx context.Context, reference string) error
	CountEntries(ctx context.Context) (map[model.PaymentStatus]int, error)
}

// requestStore holds submitted song requests in submission order.
type requestStore interface {
	AppendRequest(ctx context.Context, request model.SongRequest) error
	GetRequest(ctx context.Context, id string) (model.SongRequest, error)
	ListRequests(ctx context.Context) ([]model.SongRequest, error)
	// MarkPlayed sets played and reports whether anything changed.
	MarkPlayed(ctx context.Context, id string, at time.Time) (model.SongRequest, bool, error)
}
