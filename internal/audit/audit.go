// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

// Package audit records bind evaluation outcomes to a durable trail, so
// admins can answer "why did this member get that role".
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/oops"
)

// Mode controls which evaluation outcomes are recorded.
type Mode string

// Audit modes.
const (
	ModeOff    Mode = "off"    // nothing
	ModeErrors Mode = "errors" // evaluation failures only
	ModeAll    Mode = "all"    // everything; failures sync, the rest async
)

// Evaluation outcomes.
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeError     = "error"
)

// Entry is one recorded evaluation.
type Entry struct {
	ID           string    `json:"id"`
	GuildID      string    `json:"guild_id"`
	MemberID     string    `json:"member_id"`
	BindSubtype  string    `json:"bind_subtype"`
	Outcome      string    `json:"outcome"`
	RolesAdded   []string  `json:"roles_added,omitempty"`
	RolesRevoked []string  `json:"roles_revoked,omitempty"`
	MissingRoles []string  `json:"missing_roles,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	DurationUS   int64     `json:"duration_us"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewEntry stamps an entry with a ulid and the current time.
func NewEntry(guildID, memberID, subtype, outcome string) Entry {
	return Entry{
		ID:          ulid.Make().String(),
		GuildID:     guildID,
		MemberID:    memberID,
		BindSubtype: subtype,
		Outcome:     outcome,
		Timestamp:   time.Now().UTC(),
	}
}

// Writer persists audit entries to a backend.
type Writer interface {
	WriteSync(ctx context.Context, entry Entry) error
	WriteAsync(entry Entry) error
	Close() error
}

var (
	channelFullCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bind_audit_channel_full_total",
		Help: "Total number of times the async audit channel was full",
	})

	failuresCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bind_audit_failures_total",
		Help: "Total number of audit logging failures",
	}, []string{"reason"})
)

// Logger routes entries to the writer based on mode and outcome. Error
// outcomes are written synchronously so they cannot be lost to a full
// channel; the rest go through a buffered async path.
type Logger struct {
	mode      Mode
	writer    Writer
	asyncChan chan Entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger builds a Logger and starts its async consumer.
func NewLogger(mode Mode, writer Writer) (*Logger, error) {
	if writer == nil {
		return nil, oops.Errorf("writer is required")
	}
	l := &Logger{
		mode:      mode,
		writer:    writer,
		asyncChan: make(chan Entry, 1000),
		stopChan:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.asyncConsumer()
	return l, nil
}

// Log records one entry according to the configured mode. A full async
// channel drops the entry and counts it rather than blocking evaluation.
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	shouldLog, useSync := l.route(entry.Outcome)
	if !shouldLog {
		return nil
	}

	if useSync {
		if err := l.writer.WriteSync(ctx, entry); err != nil {
			slog.Error("audit write failed",
				"error", err,
				"guild_id", entry.GuildID,
				"member_id", entry.MemberID,
				"outcome", entry.Outcome,
			)
			failuresCounter.WithLabelValues("sync_write_failed").Inc()
		}
		return nil
	}

	select {
	case l.asyncChan <- entry:
	default:
		channelFullCounter.Inc()
	}
	return nil
}

func (l *Logger) route(outcome string) (shouldLog, useSync bool) {
	switch l.mode {
	case ModeErrors:
		return outcome == OutcomeError, true
	case ModeAll:
		if outcome == OutcomeError {
			return true, true
		}
		return true, false
	}
	return false, false
}

func (l *Logger) asyncConsumer() {
	defer l.wg.Done()
	for {
		select {
		case entry := <-l.asyncChan:
			l.writeAsync(entry)
		case <-l.stopChan:
			for {
				select {
				case entry := <-l.asyncChan:
					l.writeAsync(entry)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) writeAsync(entry Entry) {
	if err := l.writer.WriteAsync(entry); err != nil {
		slog.Error("async audit write failed",
			"error", err,
			"guild_id", entry.GuildID,
		)
		failuresCounter.WithLabelValues("async_write_failed").Inc()
	}
}

// Close drains the async channel and shuts down the writer.
func (l *Logger) Close() error {
	close(l.stopChan)
	l.wg.Wait()
	if err := l.writer.Close(); err != nil {
		return oops.Wrap(err)
	}
	return nil
}
