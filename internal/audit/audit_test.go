// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// mockWriter records all writes for verification
type mockWriter struct {
	mu          sync.Mutex
	syncWrites  []Entry
	asyncWrites []Entry
	failSync    bool
	closed      bool
}

func (m *mockWriter) WriteSync(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSync {
		return assert.AnError
	}
	m.syncWrites = append(m.syncWrites, entry)
	return nil
}

func (m *mockWriter) WriteAsync(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asyncWrites = append(m.asyncWrites, entry)
	return nil
}

func (m *mockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockWriter) getSyncWrites() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry{}, m.syncWrites...)
}

func (m *mockWriter) getAsyncWrites() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry{}, m.asyncWrites...)
}

func (m *mockWriter) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func TestNewLogger_RequiresWriter(t *testing.T) {
	_, err := NewLogger(ModeAll, nil)
	require.Error(t, err)
}

func TestLogger_ModeOff_NothingLogged(t *testing.T) {
	writer := &mockWriter{}
	logger, err := NewLogger(ModeOff, writer)
	require.NoError(t, err)

	require.NoError(t, logger.Log(context.Background(), NewEntry("g1", "m1", "role_bind", OutcomeMatched)))
	require.NoError(t, logger.Log(context.Background(), NewEntry("g1", "m1", "role_bind", OutcomeError)))
	require.NoError(t, logger.Close())

	assert.Empty(t, writer.getSyncWrites())
	assert.Empty(t, writer.getAsyncWrites())
}

func TestLogger_ModeErrors_OnlyErrorsLogged(t *testing.T) {
	writer := &mockWriter{}
	logger, err := NewLogger(ModeErrors, writer)
	require.NoError(t, err)

	require.NoError(t, logger.Log(context.Background(), NewEntry("g1", "m1", "role_bind", OutcomeMatched)))
	require.NoError(t, logger.Log(context.Background(), NewEntry("g1", "m1", "role_bind", OutcomeUnmatched)))
	require.NoError(t, logger.Log(context.Background(), NewEntry("g1", "m1", "full_group", OutcomeError)))
	require.NoError(t, logger.Close())

	syncWrites := writer.getSyncWrites()
	require.Len(t, syncWrites, 1)
	assert.Equal(t, OutcomeError, syncWrites[0].Outcome)
	assert.Empty(t, writer.getAsyncWrites())
}

func TestLogger_ModeAll_ErrorsSyncRestAsync(t *testing.T) {
	writer := &mockWriter{}
	logger, err := NewLogger(ModeAll, writer)
	require.NoError(t, err)

	require.NoError(t, logger.Log(context.Background(), NewEntry("g1", "m1", "role_bind", OutcomeMatched)))
	require.NoError(t, logger.Log(context.Background(), NewEntry("g1", "m2", "role_bind", OutcomeUnmatched)))
	require.NoError(t, logger.Log(context.Background(), NewEntry("g1", "m3", "full_group", OutcomeError)))
	require.NoError(t, logger.Close())

	syncWrites := writer.getSyncWrites()
	require.Len(t, syncWrites, 1)
	assert.Equal(t, OutcomeError, syncWrites[0].Outcome)

	async := writer.getAsyncWrites()
	require.Len(t, async, 2)
	assert.Equal(t, "m1", async[0].MemberID)
	assert.Equal(t, "m2", async[1].MemberID)
}

func TestLogger_SyncWriteFailure_DoesNotPropagate(t *testing.T) {
	writer := &mockWriter{failSync: true}
	logger, err := NewLogger(ModeErrors, writer)
	require.NoError(t, err)

	assert.NoError(t, logger.Log(context.Background(), NewEntry("g1", "m1", "role_bind", OutcomeError)))
	require.NoError(t, logger.Close())
}

func TestLogger_CloseDrainsAndClosesWriter(t *testing.T) {
	defer goleak.VerifyNone(t)

	writer := &mockWriter{}
	logger, err := NewLogger(ModeAll, writer)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, logger.Log(context.Background(), NewEntry("g1", "m1", "role_bind", OutcomeMatched)))
	}
	require.NoError(t, logger.Close())

	assert.Len(t, writer.getAsyncWrites(), 50)
	assert.True(t, writer.isClosed())
}

func TestNewEntry_StampsIdentityAndTime(t *testing.T) {
	before := time.Now().UTC()
	entry := NewEntry("guild", "member", "role_bind", OutcomeMatched)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "guild", entry.GuildID)
	assert.Equal(t, "member", entry.MemberID)
	assert.Equal(t, "role_bind", entry.BindSubtype)
	assert.Equal(t, OutcomeMatched, entry.Outcome)
	assert.False(t, entry.Timestamp.Before(before))
}
