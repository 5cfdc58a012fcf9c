// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package bind

import (
	"github.com/samber/oops"

	"github.com/bindery/bindery/internal/roblox"
)

// GroupConditions narrows a group criteria to a subset of the group's
// members via one rank rule (Everyone, Guest, Roleset, or the Min/Max
// range). DynamicRoles is orthogonal: it asks the evaluator to bind the
// Discord role named after the member's current roleset, and may stand alone
// or combine with a rank rule.
type GroupConditions struct {
	// Everyone matches any member of the group regardless of rank.
	Everyone bool `json:"everyone,omitempty" bson:"everyone,omitempty"`
	// Guest matches users who are not members of the group.
	Guest bool `json:"guest,omitempty" bson:"guest,omitempty"`
	// Roleset matches the exact rank. A negative value -N matches any
	// rank greater than or equal to N.
	Roleset *int `json:"roleset,omitempty" bson:"roleset,omitempty"`
	// Min and Max match ranks within the inclusive range.
	Min *int `json:"min,omitempty" bson:"min,omitempty"`
	Max *int `json:"max,omitempty" bson:"max,omitempty"`
	// DynamicRoles grants one role per roleset name, resolved at
	// evaluation time against the server's current roles.
	DynamicRoles bool `json:"dynamicRoles,omitempty" bson:"dynamicRoles,omitempty"`
}

// Validate enforces the mutual-exclusion rules between condition shapes.
func (gc *GroupConditions) Validate() error {
	if gc.Everyone && (gc.Guest || gc.Roleset != nil || gc.Min != nil || gc.Max != nil) {
		return oops.Code(CodeInvalidBind).
			Errorf("everyone excludes any other rank condition")
	}
	if gc.Roleset != nil && (gc.Min != nil || gc.Max != nil) {
		return oops.Code(CodeInvalidBind).
			Errorf("roleset and rank range are mutually exclusive")
	}
	if (gc.Min == nil) != (gc.Max == nil) {
		return oops.Code(CodeInvalidBind).
			Errorf("rank range requires both min and max")
	}
	return nil
}

// Criteria identifies the Roblox condition a bind is gated on. Type and ID
// locate the entity; Group is present only for group binds.
type Criteria struct {
	Type  roblox.EntityKind `json:"type" bson:"type"`
	ID    int64             `json:"id,omitempty" bson:"id,omitempty"`
	Group *GroupConditions  `json:"group,omitempty" bson:"group,omitempty"`
}

// NewGroupCriteria builds a group criteria with the given conditions.
func NewGroupCriteria(groupID int64, conditions GroupConditions) (Criteria, error) {
	if groupID <= 0 {
		return Criteria{}, oops.Code(CodeInvalidBind).
			With("group_id", groupID).
			Errorf("group criteria requires a positive group id")
	}
	if err := conditions.Validate(); err != nil {
		return Criteria{}, err
	}
	return Criteria{Type: roblox.KindGroup, ID: groupID, Group: &conditions}, nil
}

// NewOwnershipCriteria builds a criteria gated on owning a badge, gamepass,
// or catalog asset.
func NewOwnershipCriteria(kind roblox.EntityKind, id int64) (Criteria, error) {
	if !kind.Ownable() {
		return Criteria{}, oops.Code(CodeInvalidBind).
			With("kind", string(kind)).
			Errorf("entity kind %q is not ownable", kind)
	}
	if id <= 0 {
		return Criteria{}, oops.Code(CodeInvalidBind).
			With("id", id).
			Errorf("ownership criteria requires a positive entity id")
	}
	return Criteria{Type: kind, ID: id}, nil
}

// VerifiedCriteria matches any user with a linked Roblox account.
func VerifiedCriteria() Criteria {
	return Criteria{Type: roblox.KindVerified}
}

// UnverifiedCriteria matches any user without a linked Roblox account.
func UnverifiedCriteria() Criteria {
	return Criteria{Type: roblox.KindUnverified}
}

// Validate checks the criteria for structural soundness independent of any
// remote state.
func (c Criteria) Validate() error {
	if !c.Type.Valid() {
		return oops.Code(CodeInvalidBind).
			With("kind", string(c.Type)).
			Errorf("unknown entity kind %q", c.Type)
	}
	switch c.Type {
	case roblox.KindVerified, roblox.KindUnverified:
		if c.ID != 0 || c.Group != nil {
			return oops.Code(CodeInvalidBind).
				Errorf("%s criteria carries no entity id or group conditions", c.Type)
		}
	case roblox.KindGroup:
		if c.ID <= 0 {
			return oops.Code(CodeInvalidBind).
				With("group_id", c.ID).
				Errorf("group criteria requires a positive group id")
		}
		if c.Group == nil {
			return oops.Code(CodeInvalidBind).
				Errorf("group criteria requires group conditions")
		}
		return c.Group.Validate()
	default:
		if c.ID <= 0 {
			return oops.Code(CodeInvalidBind).
				With("id", c.ID).
				Errorf("%s criteria requires a positive entity id", c.Type)
		}
		if c.Group != nil {
			return oops.Code(CodeInvalidBind).
				Errorf("%s criteria carries no group conditions", c.Type)
		}
	}
	return nil
}

// Bind classification. FullGroup binds grant one role per roleset name
// rather than a fixed role list; everything else is a plain role bind.
const (
	SubtypeRoleBind  = "role_bind"
	SubtypeFullGroup = "full_group"
)

// Subtype classifies the criteria as a full-group bind or a role bind.
func (c Criteria) Subtype() string {
	if c.Type == roblox.KindGroup && c.Group != nil && c.Group.DynamicRoles {
		return SubtypeFullGroup
	}
	return SubtypeRoleBind
}

// Clone returns a copy with its own GroupConditions instance.
func (c Criteria) Clone() Criteria {
	out := c
	if c.Group != nil {
		gc := *c.Group
		gc.Roleset = clonePtr(c.Group.Roleset)
		gc.Min = clonePtr(c.Group.Min)
		gc.Max = clonePtr(c.Group.Max)
		out.Group = &gc
	}
	return out
}

// Equal reports whether two criteria describe the same condition.
func (c Criteria) Equal(other Criteria) bool {
	if c.Type != other.Type || c.ID != other.ID {
		return false
	}
	if (c.Group == nil) != (other.Group == nil) {
		return false
	}
	if c.Group == nil {
		return true
	}
	return c.Group.Everyone == other.Group.Everyone &&
		c.Group.Guest == other.Group.Guest &&
		intPtrEqual(c.Group.Roleset, other.Group.Roleset) &&
		intPtrEqual(c.Group.Min, other.Group.Min) &&
		intPtrEqual(c.Group.Max, other.Group.Max) &&
		c.Group.DynamicRoles == other.Group.DynamicRoles
}

func intPtrEqual(a, b *int) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
