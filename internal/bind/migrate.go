// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package bind

import (
	"slices"
	"strconv"
	"strings"

	"github.com/samber/oops"

	"github.com/bindery/bindery/internal/roblox"
)

// Legacy bind document shapes. Older guild documents stored binds in two
// nested maps, `groupIDs` for whole-group binds and `roleBinds` for
// everything else, keyed by entity id strings.

// LegacyGroupBind is one entry of the legacy whole-group map.
type LegacyGroupBind struct {
	Nickname    string   `json:"nickname,omitempty" bson:"nickname,omitempty"`
	GroupName   string   `json:"groupName,omitempty" bson:"groupName,omitempty"`
	RemoveRoles []string `json:"removeRoles,omitempty" bson:"removeRoles,omitempty"`
}

// LegacyEntityBind is one entry of the legacy per-type maps, also used for
// the rank-keyed entries under a legacy group role bind.
type LegacyEntityBind struct {
	Nickname    string   `json:"nickname,omitempty" bson:"nickname,omitempty"`
	Roles       []string `json:"roles,omitempty" bson:"roles,omitempty"`
	RemoveRoles []string `json:"removeRoles,omitempty" bson:"removeRoles,omitempty"`
	DisplayName string   `json:"displayName,omitempty" bson:"displayName,omitempty"`
}

// LegacyRange is one rank-range entry under a legacy group role bind.
type LegacyRange struct {
	Low         *int     `json:"low,omitempty" bson:"low,omitempty"`
	High        *int     `json:"high,omitempty" bson:"high,omitempty"`
	Nickname    string   `json:"nickname,omitempty" bson:"nickname,omitempty"`
	Roles       []string `json:"roles,omitempty" bson:"roles,omitempty"`
	RemoveRoles []string `json:"removeRoles,omitempty" bson:"removeRoles,omitempty"`
}

// LegacyGroupRoleBinds holds the rank-conditioned binds of one group.
type LegacyGroupRoleBinds struct {
	Binds  map[string]LegacyEntityBind `json:"binds,omitempty" bson:"binds,omitempty"`
	Ranges []LegacyRange               `json:"ranges,omitempty" bson:"ranges,omitempty"`
}

// LegacyRoleBinds is the legacy per-type bind map.
type LegacyRoleBinds struct {
	Assets     map[string]LegacyEntityBind     `json:"assets,omitempty" bson:"assets,omitempty"`
	Badges     map[string]LegacyEntityBind     `json:"badges,omitempty" bson:"badges,omitempty"`
	GamePasses map[string]LegacyEntityBind     `json:"gamePasses,omitempty" bson:"gamePasses,omitempty"`
	Groups     map[string]LegacyGroupRoleBinds `json:"groups,omitempty" bson:"groups,omitempty"`
}

// LegacyDocument is the legacy portion of a guild document.
type LegacyDocument struct {
	GroupIDs  map[string]LegacyGroupBind `json:"groupIDs,omitempty" bson:"groupIDs,omitempty"`
	RoleBinds *LegacyRoleBinds           `json:"roleBinds,omitempty" bson:"roleBinds,omitempty"`
}

// Empty reports whether the document carries no legacy binds at all.
func (d *LegacyDocument) Empty() bool {
	if d == nil {
		return true
	}
	if len(d.GroupIDs) > 0 {
		return false
	}
	rb := d.RoleBinds
	if rb == nil {
		return true
	}
	return len(rb.Assets) == 0 && len(rb.Badges) == 0 &&
		len(rb.GamePasses) == 0 && len(rb.Groups) == 0
}

// FromLegacy converts a legacy document into current-shape binds. The
// conversion is pure and deterministic: whole-group binds come first, then
// assets, badges, gamepasses, and groups, each ordered by id. Entries keyed
// by an unparseable id fail the whole conversion.
func FromLegacy(doc *LegacyDocument) ([]*GuildBind, error) {
	if doc.Empty() {
		return nil, nil
	}
	var out []*GuildBind

	for _, key := range sortedLegacyKeys(doc.GroupIDs) {
		entry := doc.GroupIDs[key]
		groupID, err := parseLegacyID(key)
		if err != nil {
			return nil, err
		}
		out = append(out, &GuildBind{
			Nickname:    entry.Nickname,
			RemoveRoles: slices.Clone(entry.RemoveRoles),
			Criteria: Criteria{
				Type:  roblox.KindGroup,
				ID:    groupID,
				Group: &GroupConditions{DynamicRoles: true},
			},
			Data: displayData(entry.GroupName),
		})
		legacyMigrations.WithLabelValues("wholeGroup").Inc()
	}

	if rb := doc.RoleBinds; rb != nil {
		for _, pt := range []struct {
			kind    roblox.EntityKind
			entries map[string]LegacyEntityBind
		}{
			{roblox.KindCatalogAsset, rb.Assets},
			{roblox.KindBadge, rb.Badges},
			{roblox.KindGamepass, rb.GamePasses},
		} {
			for _, key := range sortedLegacyKeys(pt.entries) {
				entry := pt.entries[key]
				id, err := parseLegacyID(key)
				if err != nil {
					return nil, err
				}
				out = append(out, &GuildBind{
					Nickname:    entry.Nickname,
					Roles:       slices.Clone(entry.Roles),
					RemoveRoles: slices.Clone(entry.RemoveRoles),
					Criteria:    Criteria{Type: pt.kind, ID: id},
					Data:        displayData(entry.DisplayName),
				})
				legacyMigrations.WithLabelValues(string(pt.kind)).Inc()
			}
		}

		for _, key := range sortedLegacyKeys(rb.Groups) {
			group := rb.Groups[key]
			groupID, err := parseLegacyID(key)
			if err != nil {
				return nil, err
			}
			for _, rankKey := range sortedLegacyKeys(group.Binds) {
				entry := group.Binds[rankKey]
				conditions, err := legacyRankConditions(rankKey)
				if err != nil {
					return nil, err
				}
				out = append(out, &GuildBind{
					Nickname:    entry.Nickname,
					Roles:       slices.Clone(entry.Roles),
					RemoveRoles: slices.Clone(entry.RemoveRoles),
					Criteria: Criteria{
						Type:  roblox.KindGroup,
						ID:    groupID,
						Group: conditions,
					},
				})
				legacyMigrations.WithLabelValues("groupRoleset").Inc()
			}
			for _, rng := range group.Ranges {
				out = append(out, &GuildBind{
					Nickname:    rng.Nickname,
					Roles:       slices.Clone(rng.Roles),
					RemoveRoles: slices.Clone(rng.RemoveRoles),
					Criteria: Criteria{
						Type:  roblox.KindGroup,
						ID:    groupID,
						Group: &GroupConditions{Min: rng.Low, Max: rng.High},
					},
				})
				legacyMigrations.WithLabelValues("groupRange").Inc()
			}
		}
	}

	return out, nil
}

// MergeBinds appends migrated binds to the existing list, skipping any bind
// already present by policy equality. Migrating twice never double-inserts.
func MergeBinds(existing, migrated []*GuildBind) []*GuildBind {
	out := existing
	for _, m := range migrated {
		duplicate := false
		for _, e := range out {
			if m.Equal(e) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, m)
		}
	}
	return out
}

// legacyRankConditions maps a legacy rank key to group conditions:
// "all" means every member, "0" means non-members, anything else is an
// exact roleset rank. The guest sentinel applies only here, never in the
// current criteria model.
func legacyRankConditions(rankKey string) (*GroupConditions, error) {
	switch rankKey {
	case "all":
		return &GroupConditions{Everyone: true}, nil
	case "0":
		return &GroupConditions{Guest: true}, nil
	}
	rank, err := strconv.Atoi(strings.TrimSpace(rankKey))
	if err != nil {
		return nil, oops.Code(CodeMigration).
			With("rank_key", rankKey).
			Wrapf(err, "parsing legacy rank key")
	}
	return &GroupConditions{Roleset: &rank}, nil
}

func parseLegacyID(key string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
	if err != nil {
		return 0, oops.Code(CodeMigration).
			With("id", key).
			Wrapf(err, "parsing legacy entity id")
	}
	return id, nil
}

func displayData(name string) *BindData {
	if name == "" {
		return nil
	}
	return &BindData{DisplayName: name}
}

// sortedLegacyKeys orders map keys numerically where possible so conversion
// output is stable across runs.
func sortedLegacyKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		ai, aerr := strconv.ParseInt(a, 10, 64)
		bi, berr := strconv.ParseInt(b, 10, 64)
		switch {
		case aerr == nil && berr == nil:
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			}
			return 0
		case aerr == nil:
			return -1
		case berr == nil:
			return 1
		}
		return strings.Compare(a, b)
	})
	return keys
}
