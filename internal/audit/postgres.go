// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

const insertEntrySQL = `
	INSERT INTO bind_audit_log (
		id, guild_id, member_id, bind_subtype, outcome,
		roles_added, roles_revoked, missing_roles, detail,
		duration_us, recorded_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// DB is the subset of pgxpool.Pool the writer needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresWriter implements Writer on top of a pgx pool. Async entries are
// batched and flushed on a timer.
type PostgresWriter struct {
	db          DB
	asyncChan   chan Entry
	stopChan    chan struct{}
	wg          sync.WaitGroup
	batchSize   int
	flushPeriod time.Duration
}

// NewPostgresWriter builds a writer and starts its batch consumer.
func NewPostgresWriter(db DB) (*PostgresWriter, error) {
	if db == nil {
		return nil, oops.Errorf("database is required")
	}
	w := &PostgresWriter{
		db:          db,
		asyncChan:   make(chan Entry, 1000),
		stopChan:    make(chan struct{}),
		batchSize:   100,
		flushPeriod: time.Second,
	}
	w.wg.Add(1)
	go w.batchConsumer()
	return w, nil
}

// WriteSync inserts one entry immediately.
func (w *PostgresWriter) WriteSync(ctx context.Context, entry Entry) error {
	_, err := w.db.Exec(ctx, insertEntrySQL,
		entry.ID,
		entry.GuildID,
		entry.MemberID,
		entry.BindSubtype,
		entry.Outcome,
		entry.RolesAdded,
		entry.RolesRevoked,
		entry.MissingRoles,
		entry.Detail,
		entry.DurationUS,
		entry.Timestamp,
	)
	if err != nil {
		builder := oops.With("guild_id", entry.GuildID).
			With("member_id", entry.MemberID)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
			builder = builder.Hint("bind_audit_log is missing; run migrations")
		}
		return builder.Wrap(err)
	}
	return nil
}

// WriteAsync queues an entry for batched insertion.
func (w *PostgresWriter) WriteAsync(entry Entry) error {
	select {
	case w.asyncChan <- entry:
		return nil
	default:
		channelFullCounter.Inc()
		return oops.Errorf("async audit channel full")
	}
}

func (w *PostgresWriter) batchConsumer() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.flushPeriod)
	defer ticker.Stop()

	var batch []Entry

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		w.writeBatch(ctx, batch)
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-w.asyncChan:
			batch = append(batch, entry)
			if len(batch) >= w.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.stopChan:
			for {
				select {
				case entry := <-w.asyncChan:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

// writeBatch inserts entries one by one, continuing past individual
// failures so a poison entry cannot wedge the batch.
func (w *PostgresWriter) writeBatch(ctx context.Context, entries []Entry) {
	for i := range entries {
		if err := w.WriteSync(ctx, entries[i]); err != nil {
			slog.Error("failed to insert audit entry",
				"error", err,
				"guild_id", entries[i].GuildID,
			)
			failuresCounter.WithLabelValues("batch_write_failed").Inc()
		}
	}
}

// Close drains pending entries and stops the consumer.
func (w *PostgresWriter) Close() error {
	close(w.stopChan)
	w.wg.Wait()
	return nil
}
