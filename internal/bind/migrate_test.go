// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package bind_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bindery/bindery/internal/bind"
	"github.com/bindery/bindery/internal/roblox"
	"github.com/bindery/bindery/pkg/errutil"
)

func TestFromLegacy_WholeGroup(t *testing.T) {
	doc := &bind.LegacyDocument{
		GroupIDs: map[string]bind.LegacyGroupBind{
			"100": {Nickname: "{roblox-name}", GroupName: "G"},
		},
	}

	binds, err := bind.FromLegacy(doc)
	require.NoError(t, err)
	require.Len(t, binds, 1)

	b := binds[0]
	assert.Equal(t, roblox.KindGroup, b.Criteria.Type)
	assert.Equal(t, int64(100), b.Criteria.ID)
	require.NotNil(t, b.Criteria.Group)
	assert.True(t, b.Criteria.Group.DynamicRoles)
	assert.Equal(t, "{roblox-name}", b.Nickname)
	assert.Empty(t, b.Roles, "whole-group binds resolve roles dynamically")
	require.NotNil(t, b.Data)
	assert.Equal(t, "G", b.Data.DisplayName)
}

func TestFromLegacy_PerType(t *testing.T) {
	doc := &bind.LegacyDocument{
		RoleBinds: &bind.LegacyRoleBinds{
			Assets: map[string]bind.LegacyEntityBind{
				"300": {Roles: []string{"10"}, DisplayName: "Hat"},
			},
			Badges: map[string]bind.LegacyEntityBind{
				"400": {Roles: []string{"11"}},
			},
			GamePasses: map[string]bind.LegacyEntityBind{
				"500": {Roles: []string{"12"}, RemoveRoles: []string{"13"}},
			},
		},
	}

	binds, err := bind.FromLegacy(doc)
	require.NoError(t, err)
	require.Len(t, binds, 3)

	assert.Equal(t, roblox.KindCatalogAsset, binds[0].Criteria.Type)
	assert.Equal(t, int64(300), binds[0].Criteria.ID)
	require.NotNil(t, binds[0].Data)
	assert.Equal(t, "Hat", binds[0].Data.DisplayName)

	assert.Equal(t, roblox.KindBadge, binds[1].Criteria.Type)
	assert.Equal(t, roblox.KindGamepass, binds[2].Criteria.Type)
	assert.Equal(t, []string{"13"}, binds[2].RemoveRoles)
}

func TestFromLegacy_GroupRankKeys(t *testing.T) {
	doc := &bind.LegacyDocument{
		RoleBinds: &bind.LegacyRoleBinds{
			Groups: map[string]bind.LegacyGroupRoleBinds{
				"100": {
					Binds: map[string]bind.LegacyEntityBind{
						"all": {Roles: []string{"20"}},
						"0":   {Roles: []string{"21"}},
						"255": {Roles: []string{"22"}},
					},
					Ranges: []bind.LegacyRange{
						{Low: intPtr(5), High: intPtr(200), Roles: []string{"23"}},
					},
				},
			},
		},
	}

	binds, err := bind.FromLegacy(doc)
	require.NoError(t, err)
	require.Len(t, binds, 4)

	// Numeric rank keys sort before the "all" sentinel.
	guest := binds[0]
	require.NotNil(t, guest.Criteria.Group)
	assert.True(t, guest.Criteria.Group.Guest)

	ranked := binds[1]
	require.NotNil(t, ranked.Criteria.Group.Roleset)
	assert.Equal(t, 255, *ranked.Criteria.Group.Roleset)

	everyone := binds[2]
	assert.True(t, everyone.Criteria.Group.Everyone)

	ranged := binds[3]
	require.NotNil(t, ranged.Criteria.Group.Min)
	assert.Equal(t, 5, *ranged.Criteria.Group.Min)
	assert.Equal(t, 200, *ranged.Criteria.Group.Max)
}

func TestFromLegacy_Deterministic(t *testing.T) {
	doc := &bind.LegacyDocument{
		GroupIDs: map[string]bind.LegacyGroupBind{
			"300": {GroupName: "C"},
			"100": {GroupName: "A"},
			"200": {GroupName: "B"},
		},
	}

	first, err := bind.FromLegacy(doc)
	require.NoError(t, err)
	for range 5 {
		again, err := bind.FromLegacy(doc)
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for i := range first {
			assert.True(t, first[i].Equal(again[i]))
			assert.Equal(t, first[i].Criteria.ID, again[i].Criteria.ID)
		}
	}
	assert.Equal(t, int64(100), first[0].Criteria.ID)
	assert.Equal(t, int64(300), first[2].Criteria.ID)
}

func TestFromLegacy_BadIDs(t *testing.T) {
	_, err := bind.FromLegacy(&bind.LegacyDocument{
		GroupIDs: map[string]bind.LegacyGroupBind{"not-a-number": {}},
	})
	errutil.AssertErrorCode(t, err, bind.CodeMigration)

	_, err = bind.FromLegacy(&bind.LegacyDocument{
		RoleBinds: &bind.LegacyRoleBinds{
			Groups: map[string]bind.LegacyGroupRoleBinds{
				"100": {Binds: map[string]bind.LegacyEntityBind{"sometimes": {}}},
			},
		},
	})
	errutil.AssertErrorCode(t, err, bind.CodeMigration)
}

func TestFromLegacy_Empty(t *testing.T) {
	binds, err := bind.FromLegacy(&bind.LegacyDocument{})
	require.NoError(t, err)
	assert.Empty(t, binds)

	var nilDoc *bind.LegacyDocument
	assert.True(t, nilDoc.Empty())
}

func TestMergeBinds_Deduplicates(t *testing.T) {
	doc := &bind.LegacyDocument{
		GroupIDs: map[string]bind.LegacyGroupBind{
			"100": {Nickname: "{roblox-name}", GroupName: "G"},
		},
	}

	migrated, err := bind.FromLegacy(doc)
	require.NoError(t, err)

	live := bind.MergeBinds(nil, migrated)
	require.Len(t, live, 1)

	// Migrating twice must not double-insert.
	again, err := bind.FromLegacy(doc)
	require.NoError(t, err)
	live = bind.MergeBinds(live, again)
	assert.Len(t, live, 1)

	other, err := bind.FromLegacy(&bind.LegacyDocument{
		GroupIDs: map[string]bind.LegacyGroupBind{
			"200": {GroupName: "H"},
		},
	})
	require.NoError(t, err)
	live = bind.MergeBinds(live, other)
	assert.Len(t, live, 2)
}
