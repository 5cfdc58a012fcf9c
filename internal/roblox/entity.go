// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

// Package roblox models external Roblox entities (groups, badges, gamepasses,
// catalog assets) and the users that own them. Entities are created unsynced
// and hydrate themselves lazily over the outbound fetch client; each instance
// memoizes its first successful sync so repeat calls within one evaluation
// are free.
package roblox

import (
	"context"
	"fmt"
)

// EntityKind is the closed set of entity categories a bind can reference.
type EntityKind string

// EntityKind constants. The verified/unverified kinds have no upstream
// entity; they exist so every bind category maps to exactly one variant.
const (
	KindGroup        EntityKind = "group"
	KindBadge        EntityKind = "badge"
	KindGamepass     EntityKind = "gamepass"
	KindCatalogAsset EntityKind = "catalogAsset"
	KindVerified     EntityKind = "verified"
	KindUnverified   EntityKind = "unverified"
)

// Valid reports whether k is a member of the closed kind set.
func (k EntityKind) Valid() bool {
	switch k {
	case KindGroup, KindBadge, KindGamepass, KindCatalogAsset, KindVerified, KindUnverified:
		return true
	}
	return false
}

// Ownable reports whether the kind is an inventory item whose ownership can
// be checked against the upstream inventory API.
func (k EntityKind) Ownable() bool {
	switch k {
	case KindBadge, KindGamepass, KindCatalogAsset:
		return true
	}
	return false
}

// Entity is the capability every Roblox entity variant provides. An entity
// owns an identifier and, once synced, a name and description.
type Entity interface {
	Kind() EntityKind
	ID() int64
	Name() string
	Description() string
	Synced() bool

	// Sync hydrates the entity from the upstream API. It is idempotent:
	// after the first successful call it returns immediately.
	Sync(ctx context.Context) error
}

// Asset is an Entity that lives in user inventories (badge, gamepass,
// catalog asset).
type Asset interface {
	Entity

	// ItemType returns the numeric inventory item type used by the
	// is-owned endpoint.
	ItemType() int
}

// Factory constructs unsynced entities bound to an API client. Binds use it
// to turn persisted (kind, id) pairs into live entity handles.
type Factory func(kind EntityKind, id int64) Entity

// NewFactory returns a Factory backed by the given API client. The kind set
// is closed: unknown kinds yield a nil Entity, which callers treat as a
// programming error.
func NewFactory(api API) Factory {
	return func(kind EntityKind, id int64) Entity {
		switch kind {
		case KindGroup:
			return NewGroup(api, id)
		case KindBadge, KindGamepass, KindCatalogAsset:
			return NewInventoryAsset(api, kind, id)
		case KindVerified, KindUnverified:
			return Marker(kind)
		}
		return nil
	}
}

// Marker is the entity variant for the verified/unverified bind kinds. It has
// no upstream counterpart; Sync is a no-op.
type Marker EntityKind

// Kind returns the marker's kind.
func (m Marker) Kind() EntityKind { return EntityKind(m) }

// ID returns 0; markers have no upstream identifier.
func (m Marker) ID() int64 { return 0 }

// Name returns the human label for the marker.
func (m Marker) Name() string { return string(m) }

// Description returns an empty string.
func (m Marker) Description() string { return "" }

// Synced always reports true.
func (m Marker) Synced() bool { return true }

// Sync is a no-op for markers.
func (m Marker) Sync(_ context.Context) error { return nil }

// Label renders an entity the way admin tooling displays it: the synced name
// with the id in parentheses, or a placeholder when unsynced.
func Label(e Entity) string {
	if e == nil {
		return "(unknown entity)"
	}
	if e.Name() == "" {
		return fmt.Sprintf("(unknown %s) (%d)", e.Kind(), e.ID())
	}
	return fmt.Sprintf("%s (%d)", e.Name(), e.ID())
}
