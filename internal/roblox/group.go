// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package roblox

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/samber/oops"
)

// Roleset is one membership tier within a group. Rank is the user-assigned
// ordering value (0-255); ID is the upstream-assigned roleset identifier.
type Roleset struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Rank        int    `json:"rank"`
	MemberCount int    `json:"memberCount,omitempty"`
}

// GroupInfo is the upstream group metadata shape.
type GroupInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MemberCount int    `json:"memberCount"`
}

// Group is the group entity variant. Sync hydrates metadata and the roleset
// table; SyncFor additionally resolves one user's roleset within the group.
type Group struct {
	api API
	id  int64

	name        string
	description string
	memberCount int
	rolesets    map[int]Roleset // keyed by rank
	userRoleset *Roleset
	synced      bool
}

var _ Entity = (*Group)(nil)

// NewGroup creates an unsynced group entity.
func NewGroup(api API, id int64) *Group {
	return &Group{api: api, id: id}
}

// Kind returns KindGroup.
func (g *Group) Kind() EntityKind { return KindGroup }

// ID returns the group id.
func (g *Group) ID() int64 { return g.id }

// Name returns the synced group name, or "" before sync.
func (g *Group) Name() string { return g.name }

// Description returns the synced group description.
func (g *Group) Description() string { return g.description }

// MemberCount returns the synced member count.
func (g *Group) MemberCount() int { return g.memberCount }

// Synced reports whether Sync has completed.
func (g *Group) Synced() bool { return g.synced }

// URL returns the public page for the group.
func (g *Group) URL() string {
	return fmt.Sprintf("https://www.roblox.com/groups/%d", g.id)
}

// Rolesets returns the group's rolesets keyed by rank. Nil before sync.
func (g *Group) Rolesets() map[int]Roleset { return g.rolesets }

// UserRoleset returns the roleset resolved by SyncFor, or nil when the user
// is not a member (or SyncFor has not run).
func (g *Group) UserRoleset() *Roleset { return g.userRoleset }

// Sync hydrates the group's metadata and roleset table. Idempotent.
func (g *Group) Sync(ctx context.Context) error {
	if g.synced {
		return nil
	}

	if g.rolesets == nil {
		rolesets, err := g.api.GroupRolesets(ctx, g.id)
		if err != nil {
			return oops.With("group_id", g.id).Wrap(err)
		}
		g.rolesets = make(map[int]Roleset, len(rolesets))
		for _, rs := range rolesets {
			g.rolesets[rs.Rank] = rs
		}
	}

	info, err := g.api.GroupInfo(ctx, g.id)
	if err != nil {
		return oops.With("group_id", g.id).Wrap(err)
	}
	g.name = info.Name
	g.description = info.Description
	g.memberCount = info.MemberCount

	g.synced = true
	return nil
}

// SyncFor syncs the group and resolves the given user's roleset within it.
// The result is memoized per entity instance; evaluations must not share
// group instances across users.
func (g *Group) SyncFor(ctx context.Context, user UserInfo) error {
	if err := g.Sync(ctx); err != nil {
		return err
	}

	if g.userRoleset == nil {
		groups, err := user.Groups(ctx)
		if err != nil {
			return err
		}
		if membership, ok := groups[g.id]; ok {
			role := membership.Role
			g.userRoleset = &role
		}
	}
	return nil
}

// RolesetLabel renders a roleset name for admin-facing text, falling back to
// the bare rank when the roleset table has no entry.
func (g *Group) RolesetLabel(rank int, includeID bool) string {
	rs, ok := g.rolesets[rank]
	if !ok {
		return strconv.Itoa(rank)
	}
	if includeID {
		return fmt.Sprintf("%s (%d)", rs.Name, rank)
	}
	return rs.Name
}

var groupURLPattern = regexp.MustCompile(`roblox\.com/groups/(\d+)`)

// LookupGroup resolves a raw id or a group page URL to a synced Group.
// Upstream not-found errors are returned as CodeNotFound.
func LookupGroup(ctx context.Context, api API, idOrURL string) (*Group, error) {
	raw := idOrURL
	if m := groupURLPattern.FindStringSubmatch(idOrURL); m != nil {
		raw = m[1]
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, oops.Code(CodeNotFound).With("input", idOrURL).Errorf("not a group id or url")
	}

	group := NewGroup(api, id)
	if err := group.Sync(ctx); err != nil {
		return nil, err
	}
	return group, nil
}
