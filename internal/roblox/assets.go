// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package roblox

import (
	"context"

	"github.com/samber/oops"
)

// AssetInfo is the normalized metadata shape shared by the asset API families.
type AssetInfo struct {
	Name        string
	Description string
}

// Inventory item type numbers used by the is-owned endpoint.
const (
	itemTypeAsset    = 0
	itemTypeGamepass = 1
	itemTypeBadge    = 2
)

// InventoryAsset is the entity variant for badges, gamepasses, and catalog
// assets. The three share one shape; the kind selects the API family.
type InventoryAsset struct {
	api  API
	kind EntityKind
	id   int64

	name        string
	description string
	synced      bool
}

var _ Asset = (*InventoryAsset)(nil)

// NewInventoryAsset creates an unsynced inventory asset of the given kind.
func NewInventoryAsset(api API, kind EntityKind, id int64) *InventoryAsset {
	return &InventoryAsset{api: api, kind: kind, id: id}
}

// Kind returns the asset's kind.
func (a *InventoryAsset) Kind() EntityKind { return a.kind }

// ID returns the asset id.
func (a *InventoryAsset) ID() int64 { return a.id }

// Name returns the synced asset name, or "" before sync.
func (a *InventoryAsset) Name() string { return a.name }

// Description returns the synced asset description.
func (a *InventoryAsset) Description() string { return a.description }

// Synced reports whether Sync has completed.
func (a *InventoryAsset) Synced() bool { return a.synced }

// ItemType returns the inventory item type for the is-owned endpoint.
func (a *InventoryAsset) ItemType() int {
	switch a.kind {
	case KindGamepass:
		return itemTypeGamepass
	case KindBadge:
		return itemTypeBadge
	default:
		return itemTypeAsset
	}
}

// Sync hydrates the asset's metadata. Idempotent.
func (a *InventoryAsset) Sync(ctx context.Context) error {
	if a.synced {
		return nil
	}

	info, err := a.api.AssetDetails(ctx, a.kind, a.id)
	if err != nil {
		return oops.With("asset_id", a.id).With("kind", string(a.kind)).Wrap(err)
	}
	a.name = info.Name
	a.description = info.Description

	a.synced = true
	return nil
}
