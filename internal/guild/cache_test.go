// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package guild_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bindery/bindery/internal/bind"
	"github.com/bindery/bindery/internal/guild"
)

// countingStore counts fetches so tests can observe cache hits.
type countingStore struct {
	mu      sync.Mutex
	inner   guild.Store
	fetches int
}

func (s *countingStore) Fetch(ctx context.Context, guildID string, fields ...string) (*guild.Data, error) {
	s.mu.Lock()
	s.fetches++
	s.mu.Unlock()
	return s.inner.Fetch(ctx, guildID, fields...)
}

func (s *countingStore) Update(ctx context.Context, guildID string, set map[string]any, unset []string) error {
	return s.inner.Update(ctx, guildID, set, unset)
}

func TestCachedStore_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	counting := &countingStore{inner: newFakeStore(&guild.Data{ID: "1", VerifiedRole: "9"})}
	cached := guild.NewCachedStore(counting, time.Minute)

	first, err := cached.Fetch(ctx, "1", "binds")
	require.NoError(t, err)
	second, err := cached.Fetch(ctx, "1", "binds")
	require.NoError(t, err)

	assert.NotSame(t, first, second, "each fetch gets its own copy")
	assert.Equal(t, first.VerifiedRole, second.VerifiedRole)
	assert.Equal(t, 1, counting.fetches)
}

func TestCachedStore_FetchReturnsPrivateCopies(t *testing.T) {
	ctx := context.Background()
	criteria, err := bind.NewGroupCriteria(100, bind.GroupConditions{Everyone: true})
	require.NoError(t, err)
	doc := &guild.Data{ID: "1", Binds: []*bind.GuildBind{{Criteria: criteria, Roles: []string{"1"}}}}
	cached := guild.NewCachedStore(newFakeStore(doc), time.Minute)

	first, err := cached.Fetch(ctx, "1", "binds")
	require.NoError(t, err)
	second, err := cached.Fetch(ctx, "1", "binds")
	require.NoError(t, err)

	require.NotSame(t, first, second)
	require.NotSame(t, first.Binds[0], second.Binds[0])

	// Mutating one caller's copy must not reach the other.
	first.Binds[0].Roles[0] = "mutated"
	assert.Equal(t, []string{"1"}, second.Binds[0].Roles)
}

func TestCachedStore_KeysByProjection(t *testing.T) {
	ctx := context.Background()
	counting := &countingStore{inner: newFakeStore(&guild.Data{ID: "1"})}
	cached := guild.NewCachedStore(counting, time.Minute)

	_, err := cached.Fetch(ctx, "1", "binds")
	require.NoError(t, err)
	_, err = cached.Fetch(ctx, "1", "nicknameTemplate")
	require.NoError(t, err)
	assert.Equal(t, 2, counting.fetches, "different projections fetch separately")

	// Field order does not change the key.
	_, err = cached.Fetch(ctx, "1", "b", "a")
	require.NoError(t, err)
	_, err = cached.Fetch(ctx, "1", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 3, counting.fetches)
}

func TestCachedStore_UpdateInvalidates(t *testing.T) {
	ctx := context.Background()
	counting := &countingStore{inner: newFakeStore(&guild.Data{ID: "1"}, &guild.Data{ID: "2"})}
	cached := guild.NewCachedStore(counting, time.Minute)

	_, err := cached.Fetch(ctx, "1", "binds")
	require.NoError(t, err)
	_, err = cached.Fetch(ctx, "2", "binds")
	require.NoError(t, err)
	require.Equal(t, 2, counting.fetches)

	require.NoError(t, cached.Update(ctx, "1", map[string]any{"converted_binds": true}, nil))

	_, err = cached.Fetch(ctx, "1", "binds")
	require.NoError(t, err)
	assert.Equal(t, 3, counting.fetches, "updated guild refetches")

	_, err = cached.Fetch(ctx, "2", "binds")
	require.NoError(t, err)
	assert.Equal(t, 3, counting.fetches, "other guilds stay cached")
}

func TestCachedStore_ClampsTTL(t *testing.T) {
	// Zero and oversized TTLs both clamp to the maximum; this only checks
	// construction does not panic and fetches still work.
	ctx := context.Background()
	for _, ttl := range []time.Duration{0, -time.Minute, 48 * time.Hour} {
		cached := guild.NewCachedStore(newFakeStore(&guild.Data{ID: "1"}), ttl)
		_, err := cached.Fetch(ctx, "1", "binds")
		require.NoError(t, err)
	}
}
