// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

// Package robloxtest provides hand-rolled fakes for the roblox package's
// interfaces, shared by evaluator, nickname, and guild tests.
package robloxtest

import (
	"context"
	"fmt"

	"github.com/bindery/bindery/internal/roblox"
)

// FakeUser implements roblox.UserInfo from fixed data.
type FakeUser struct {
	UserID  int64
	Name    string
	Display string
	Age     int

	// Memberships is keyed by group id.
	Memberships map[int64]roblox.UserGroup
	// Owned is keyed by asset id.
	Owned map[int64]bool

	// GroupsErr and OwnsErr force failures.
	GroupsErr error
	OwnsErr   error
}

func (u *FakeUser) ID() int64        { return u.UserID }
func (u *FakeUser) Username() string { return u.Name }
func (u *FakeUser) DisplayName() string {
	if u.Display != "" {
		return u.Display
	}
	return u.Name
}
func (u *FakeUser) AgeDays() int { return u.Age }

func (u *FakeUser) Groups(_ context.Context) (map[int64]roblox.UserGroup, error) {
	if u.GroupsErr != nil {
		return nil, u.GroupsErr
	}
	return u.Memberships, nil
}

func (u *FakeUser) OwnsAsset(_ context.Context, asset roblox.Asset) (bool, error) {
	if u.OwnsErr != nil {
		return false, u.OwnsErr
	}
	return u.Owned[asset.ID()], nil
}

// FakeAPI implements roblox.API from fixed data. Zero-value maps mean
// "not found".
type FakeAPI struct {
	Groups   map[int64]roblox.GroupInfo
	Rolesets map[int64][]roblox.Roleset
	Users    map[int64]roblox.UserDetails
	// MemberGroups is keyed by user id, then group id.
	MemberGroups map[int64]map[int64]roblox.UserGroup
	Assets       map[int64]roblox.AssetInfo
	// Ownership is keyed by "userID/itemType/itemID".
	Ownership map[string]bool

	Err error
}

func (a *FakeAPI) GroupInfo(_ context.Context, groupID int64) (*roblox.GroupInfo, error) {
	if a.Err != nil {
		return nil, a.Err
	}
	info, ok := a.Groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %d not found", groupID)
	}
	return &info, nil
}

func (a *FakeAPI) GroupRolesets(_ context.Context, groupID int64) ([]roblox.Roleset, error) {
	if a.Err != nil {
		return nil, a.Err
	}
	return a.Rolesets[groupID], nil
}

func (a *FakeAPI) AssetDetails(_ context.Context, _ roblox.EntityKind, assetID int64) (*roblox.AssetInfo, error) {
	if a.Err != nil {
		return nil, a.Err
	}
	info, ok := a.Assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %d not found", assetID)
	}
	return &info, nil
}

func (a *FakeAPI) UserInfo(_ context.Context, userID int64) (*roblox.UserDetails, error) {
	if a.Err != nil {
		return nil, a.Err
	}
	details, ok := a.Users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d not found", userID)
	}
	return &details, nil
}

func (a *FakeAPI) UserGroups(_ context.Context, userID int64) (map[int64]roblox.UserGroup, error) {
	if a.Err != nil {
		return nil, a.Err
	}
	return a.MemberGroups[userID], nil
}

func (a *FakeAPI) OwnsItem(_ context.Context, userID int64, itemType int, itemID int64) (bool, error) {
	if a.Err != nil {
		return false, a.Err
	}
	return a.Ownership[fmt.Sprintf("%d/%d/%d", userID, itemType, itemID)], nil
}
