// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package roblox

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// UserGroup is one group membership of a user: the group's metadata plus the
// user's roleset within it.
type UserGroup struct {
	Group GroupInfo `json:"group"`
	Role  Roleset   `json:"role"`
}

// UserDetails is the profile metadata shape from the users API.
type UserDetails struct {
	ID          int64
	Username    string
	DisplayName string
	Description string
	Banned      bool
	Created     time.Time
}

// UserInfo is the identity surface the evaluator and the nickname resolver
// consume. *User is the production implementation; tests substitute fakes.
type UserInfo interface {
	ID() int64
	Username() string
	DisplayName() string
	AgeDays() int

	// Groups returns the user's group memberships keyed by group id,
	// fetching them on first use.
	Groups(ctx context.Context) (map[int64]UserGroup, error)

	// OwnsAsset checks the user's inventory for the given asset.
	OwnsAsset(ctx context.Context, asset Asset) (bool, error)
}

// User is a verified external identity. Like entities, it hydrates lazily
// and memoizes fetched state per instance.
type User struct {
	api API
	id  int64

	username    string
	displayName string
	ageDays     int
	banned      bool
	groups      map[int64]UserGroup
	synced      bool
}

var _ UserInfo = (*User)(nil)

// NewUser creates an unsynced user identity for the given Roblox user id.
func NewUser(api API, id int64) *User {
	return &User{api: api, id: id}
}

// ID returns the Roblox user id.
func (u *User) ID() int64 { return u.id }

// Username returns the synced account name, or "" before sync.
func (u *User) Username() string { return u.username }

// DisplayName returns the synced display name, falling back to the username.
func (u *User) DisplayName() string {
	if u.displayName == "" {
		return u.username
	}
	return u.displayName
}

// AgeDays returns the account age in whole days at sync time.
func (u *User) AgeDays() int { return u.ageDays }

// Banned reports whether the account is banned upstream.
func (u *User) Banned() bool { return u.banned }

// Sync hydrates profile metadata. Idempotent.
func (u *User) Sync(ctx context.Context) error {
	if u.synced {
		return nil
	}

	details, err := u.api.UserInfo(ctx, u.id)
	if err != nil {
		return oops.With("user_id", u.id).Wrap(err)
	}
	u.username = details.Username
	u.displayName = details.DisplayName
	u.banned = details.Banned
	if !details.Created.IsZero() {
		u.ageDays = int(time.Since(details.Created).Hours() / 24)
	}

	u.synced = true
	return nil
}

// Groups returns the user's group memberships, fetching them on first use.
func (u *User) Groups(ctx context.Context) (map[int64]UserGroup, error) {
	if u.groups == nil {
		groups, err := u.api.UserGroups(ctx, u.id)
		if err != nil {
			return nil, oops.With("user_id", u.id).Wrap(err)
		}
		u.groups = groups
	}
	return u.groups, nil
}

// OwnsAsset checks the user's inventory for the given asset.
func (u *User) OwnsAsset(ctx context.Context, asset Asset) (bool, error) {
	owned, err := u.api.OwnsItem(ctx, u.id, asset.ItemType(), asset.ID())
	if err != nil {
		return false, oops.With("user_id", u.id).With("asset_id", asset.ID()).Wrap(err)
	}
	return owned, nil
}
