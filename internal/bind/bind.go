// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

// Package bind defines guild role binds, their evaluation against Roblox
// identities, and migration of legacy bind documents to the current shape.
package bind

import (
	"slices"

	"github.com/samber/oops"

	"github.com/bindery/bindery/internal/discord"
	"github.com/bindery/bindery/internal/roblox"
)

// Error codes attached via oops for classification at call sites.
const (
	CodeInvalidBind = "INVALID_BIND"
	CodeEvaluation  = "EVALUATION_FAILED"
	CodeMigration   = "MIGRATION_FAILED"
)

// BindData carries optional presentation fields attached to a bind.
type BindData struct {
	DisplayName string `json:"displayName,omitempty" bson:"displayName,omitempty"`
}

// GuildBind is one policy record: when Criteria holds for a user, the bind's
// roles are given and its remove roles are taken away, and Nickname, if set,
// overrides the guild's default nickname template.
type GuildBind struct {
	Nickname    string    `json:"nickname,omitempty" bson:"nickname,omitempty"`
	Roles       []string  `json:"roles" bson:"roles"`
	RemoveRoles []string  `json:"removeRoles,omitempty" bson:"removeRoles,omitempty"`
	Criteria    Criteria  `json:"criteria" bson:"criteria"`
	Data        *BindData `json:"data,omitempty" bson:"data,omitempty"`

	// entity and highestRole are derived and never serialized.
	entity      roblox.Entity
	highestRole *discord.RoleSnapshot
}

// Hydrate resolves the bind's criteria to an entity handle via the factory.
// It must be called before Evaluate or any entity-touching accessor.
func (b *GuildBind) Hydrate(factory roblox.Factory) error {
	entity := factory(b.Criteria.Type, b.Criteria.ID)
	if entity == nil {
		return oops.Code(CodeInvalidBind).
			With("kind", string(b.Criteria.Type)).
			With("id", b.Criteria.ID).
			Errorf("no entity for kind %q", b.Criteria.Type)
	}
	b.entity = entity
	return nil
}

// Entity returns the hydrated entity handle, or nil before Hydrate.
func (b *GuildBind) Entity() roblox.Entity { return b.entity }

// Clone returns a deep copy of the bind's persisted fields. Derived state
// (entity handle, highest-role memo) is not carried over; the copy must be
// hydrated before evaluation.
func (b *GuildBind) Clone() *GuildBind {
	c := &GuildBind{
		Nickname:    b.Nickname,
		Roles:       slices.Clone(b.Roles),
		RemoveRoles: slices.Clone(b.RemoveRoles),
		Criteria:    b.Criteria.Clone(),
	}
	if b.Data != nil {
		d := *b.Data
		c.Data = &d
	}
	return c
}

// Validate checks the bind's criteria and role lists.
func (b *GuildBind) Validate() error {
	if err := b.Criteria.Validate(); err != nil {
		return err
	}
	// Full-group binds resolve roles dynamically and carry none.
	if len(b.Roles) == 0 && len(b.RemoveRoles) == 0 && b.Subtype() != SubtypeFullGroup {
		return oops.Code(CodeInvalidBind).
			Errorf("bind assigns no roles and removes none")
	}
	for _, id := range b.Roles {
		if id == "" {
			return oops.Code(CodeInvalidBind).Errorf("bind role id is empty")
		}
	}
	for _, id := range b.RemoveRoles {
		if id == "" {
			return oops.Code(CodeInvalidBind).Errorf("bind remove role id is empty")
		}
	}
	return nil
}

// Subtype names the bind's criteria shape.
func (b *GuildBind) Subtype() string { return b.Criteria.Subtype() }

// CalculateHighestRole resolves the highest-positioned guild role among the
// bind's assigned roles and caches it for nickname prioritization. Only
// binds that carry a nickname template participate; roles absent from the
// guild snapshot are ignored.
func (b *GuildBind) CalculateHighestRole(guild discord.GuildSnapshot) *discord.RoleSnapshot {
	b.highestRole = nil
	if b.Nickname == "" || len(b.Roles) == 0 {
		return nil
	}
	for _, id := range b.Roles {
		role, ok := guild.Roles[id]
		if !ok {
			continue
		}
		if b.highestRole == nil || role.Position > b.highestRole.Position {
			r := role
			b.highestRole = &r
		}
	}
	return b.highestRole
}

// HighestRole returns the cached result of CalculateHighestRole.
func (b *GuildBind) HighestRole() *discord.RoleSnapshot { return b.highestRole }

// Equal reports whether two binds are the same policy: same criteria, same
// nickname, and the same role sets regardless of order.
func (b *GuildBind) Equal(other *GuildBind) bool {
	if other == nil {
		return false
	}
	return b.Criteria.Equal(other.Criteria) &&
		b.Nickname == other.Nickname &&
		sameRoleSet(b.Roles, other.Roles) &&
		sameRoleSet(b.RemoveRoles, other.RemoveRoles)
}

func sameRoleSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := slices.Clone(a)
	bs := slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}

// SortByPriority orders binds by the position of their highest assigned
// guild role, highest first. Binds with no resolvable role sort last.
// CalculateHighestRole must have run on each bind.
func SortByPriority(binds []*GuildBind) {
	slices.SortStableFunc(binds, func(a, b *GuildBind) int {
		ar, br := a.highestRole, b.highestRole
		switch {
		case ar == nil && br == nil:
			return 0
		case ar == nil:
			return 1
		case br == nil:
			return -1
		default:
			return br.Position - ar.Position
		}
	})
}
