// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

// Package guild loads guild settings and bind lists, runs the one-shot
// legacy migration, and prepares binds for evaluation and nickname
// resolution.
package guild

import (
	"maps"

	"github.com/bindery/bindery/internal/bind"
)

// Defaults applied when a guild document leaves a field unset.
const (
	DefaultNicknameTemplate   = "{smart-name}"
	DefaultVerifiedRoleName   = "Verified"
	DefaultUnverifiedRoleName = "Unverified"
)

// Fields the service fetches from the store. Kept explicit so the mongo
// store can project exactly what bind loading needs.
var bindFields = []string{
	"binds",
	"verifiedRole",
	"unverifiedRole",
	"verifiedRoleEnabled",
	"verifiedRoleName",
	"unverifiedRoleEnabled",
	"unverifiedRoleName",
	"nicknameTemplate",
	"converted_binds",
	"groupIDs",
	"roleBinds",
}

// Data is a guild's stored configuration. Boolean toggles and names use
// pointers so an absent field can fall back to its default instead of the
// zero value.
type Data struct {
	ID    string            `json:"id" bson:"_id"`
	Binds []*bind.GuildBind `json:"binds,omitempty" bson:"binds,omitempty"`

	VerifiedRoleEnabled *bool   `json:"verifiedRoleEnabled,omitempty" bson:"verifiedRoleEnabled,omitempty"`
	VerifiedRoleName    *string `json:"verifiedRoleName,omitempty" bson:"verifiedRoleName,omitempty"`
	VerifiedRole        string  `json:"verifiedRole,omitempty" bson:"verifiedRole,omitempty"`

	UnverifiedRoleEnabled *bool   `json:"unverifiedRoleEnabled,omitempty" bson:"unverifiedRoleEnabled,omitempty"`
	UnverifiedRoleName    *string `json:"unverifiedRoleName,omitempty" bson:"unverifiedRoleName,omitempty"`
	UnverifiedRole        string  `json:"unverifiedRole,omitempty" bson:"unverifiedRole,omitempty"`

	NicknameTemplate *string `json:"nicknameTemplate,omitempty" bson:"nicknameTemplate,omitempty"`

	// ConvertedBinds marks that the legacy migration already ran.
	ConvertedBinds bool `json:"converted_binds,omitempty" bson:"converted_binds,omitempty"`

	// Legacy bind fields, consumed by the migrator and then cleared.
	bind.LegacyDocument `bson:",inline"`
}

// Clone returns a deep copy of the document, with its own bind record
// instances. Legacy map entries are copied by reference; nothing mutates
// them after decode.
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	c := *d
	if d.Binds != nil {
		c.Binds = make([]*bind.GuildBind, len(d.Binds))
		for i, b := range d.Binds {
			c.Binds[i] = b.Clone()
		}
	}
	c.VerifiedRoleEnabled = clonePtr(d.VerifiedRoleEnabled)
	c.VerifiedRoleName = clonePtr(d.VerifiedRoleName)
	c.UnverifiedRoleEnabled = clonePtr(d.UnverifiedRoleEnabled)
	c.UnverifiedRoleName = clonePtr(d.UnverifiedRoleName)
	c.NicknameTemplate = clonePtr(d.NicknameTemplate)
	c.GroupIDs = maps.Clone(d.GroupIDs)
	if d.RoleBinds != nil {
		rb := *d.RoleBinds
		c.RoleBinds = &rb
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Template returns the guild's nickname template, defaulted.
func (d *Data) Template() string {
	if d.NicknameTemplate == nil || *d.NicknameTemplate == "" {
		return DefaultNicknameTemplate
	}
	return *d.NicknameTemplate
}

// VerifiedEnabled reports whether the legacy verified role is on; unset
// means on.
func (d *Data) VerifiedEnabled() bool {
	return d.VerifiedRoleEnabled == nil || *d.VerifiedRoleEnabled
}

// UnverifiedEnabled reports whether the legacy unverified role is on; unset
// means on.
func (d *Data) UnverifiedEnabled() bool {
	return d.UnverifiedRoleEnabled == nil || *d.UnverifiedRoleEnabled
}

// VerifiedName returns the legacy verified role name, defaulted.
func (d *Data) VerifiedName() string {
	if d.VerifiedRoleName == nil {
		return DefaultVerifiedRoleName
	}
	return *d.VerifiedRoleName
}

// UnverifiedName returns the legacy unverified role name, defaulted.
func (d *Data) UnverifiedName() string {
	if d.UnverifiedRoleName == nil {
		return DefaultUnverifiedRoleName
	}
	return *d.UnverifiedRoleName
}
