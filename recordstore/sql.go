/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/acronis/go-recordcache/log"
	"github.com/acronis/go-recordcache/retry"
)

// DefaultSQLiteDSN keeps the database in memory, shared by all connections of the process.
const DefaultSQLiteDSN = "file:records?mode=memory&cache=shared"

// SQLStoreOpts represents options for SQLStore.
type SQLStoreOpts struct {
	// Latency is the simulated latency of FetchByID.
	Latency time.Duration

	// ConnectPolicy defines how opening the database is retried. retry.DefaultPolicy is used if zero.
	ConnectPolicy retry.Policy

	Logger log.FieldLogger
}

// SQLStore keeps records in an SQLite database.
type SQLStore struct {
	db      *sql.DB
	latency time.Duration
}

// OpenSQLStore opens the SQLite database, creates the schema and inserts seed records if the table is empty.
func OpenSQLStore(ctx context.Context, dsn string, opts SQLStoreOpts) (*SQLStore, error) {
	if dsn == "" {
		dsn = DefaultSQLiteDSN
	}
	if opts.ConnectPolicy == (retry.Policy{}) {
		opts.ConnectPolicy = retry.DefaultPolicy
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// In-memory shared-cache databases lock tables between connections.
	db.SetMaxOpenConns(1)

	notify := func(err error, d time.Duration) {
		opts.Logger.Warn("sqlite database is not reachable, retrying",
			log.Error(err), log.Duration("delay", d))
	}
	if err = retry.Do(ctx, opts.ConnectPolicy, nil, notify, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	s := &SQLStore{db: db, latency: opts.Latency}
	if err = s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, rec := range seedRecords {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO records (id, name, email) VALUES (?, ?, ?)", rec.ID, rec.Name, rec.Email); err != nil {
			return fmt.Errorf("insert seed record %d: %w", rec.ID, err)
		}
	}
	return nil
}

// FetchByID returns the record with the given id after the simulated latency.
func (s *SQLStore) FetchByID(ctx context.Context, id int64) (Record, error) {
	if err := simulateLatency(ctx, s.latency); err != nil {
		return Record{}, err
	}
	var rec Record
	err := s.db.QueryRowContext(ctx, "SELECT id, name, email FROM records WHERE id = ?", id).
		Scan(&rec.ID, &rec.Name, &rec.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("select record %d: %w", id, err)
	}
	return rec, nil
}

// Create inserts a new record.
func (s *SQLStore) Create(ctx context.Context, name, email string) (Record, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO records (name, email) VALUES (?, ?)", name, email)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("get inserted record id: %w", err)
	}
	return Record{ID: id, Name: name, Email: email}, nil
}

// List returns all records ordered by id.
func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email FROM records ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err = rows.Scan(&rec.ID, &rec.Name, &rec.Email); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
