/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package recordstore provides backing stores of user records.
// Stores may be slow; callers are expected to access them with bounded concurrency.
package recordstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when there is no record with the requested id.
var ErrNotFound = errors.New("record not found")

// DefaultLatency is the default simulated latency of every store call.
const DefaultLatency = 200 * time.Millisecond

// Record is a user record.
type Record struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Store is a backing store of records.
type Store interface {
	// FetchByID returns the record with the given id or ErrNotFound.
	FetchByID(ctx context.Context, id int64) (Record, error)

	// Create inserts a new record and returns it with the assigned id.
	Create(ctx context.Context, name, email string) (Record, error)

	// List returns all records ordered by id.
	List(ctx context.Context) ([]Record, error)
}

var seedRecords = []Record{
	{ID: 1, Name: "John Doe", Email: "john@example.com"},
	{ID: 2, Name: "Jane Smith", Email: "jane@example.com"},
	{ID: 3, Name: "Alice Johnson", Email: "alice@example.com"},
}

// SeedRecords returns a copy of the records every store starts with.
func SeedRecords() []Record {
	return append([]Record(nil), seedRecords...)
}

func simulateLatency(ctx context.Context, latency time.Duration) error {
	if latency <= 0 {
		return nil
	}
	t := time.NewTimer(latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
