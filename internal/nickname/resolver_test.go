// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package nickname_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bindery/bindery/internal/bind"
	"github.com/bindery/bindery/internal/discord"
	"github.com/bindery/bindery/internal/nickname"
	"github.com/bindery/bindery/internal/roblox"
	"github.com/bindery/bindery/internal/roblox/robloxtest"
)

type staticTemplates string

func (s staticTemplates) DefaultTemplate(_ context.Context, _ string) (string, error) {
	return string(s), nil
}

func identity() *robloxtest.FakeUser {
	return &robloxtest.FakeUser{
		UserID:  123,
		Name:    "john",
		Display: "Johnny",
		Age:     400,
		Memberships: map[int64]roblox.UserGroup{
			100: {
				Group: roblox.GroupInfo{ID: 100, Name: "G"},
				Role:  roblox.Roleset{Name: "Developers", Rank: 200},
			},
		},
	}
}

func member() discord.MemberSnapshot {
	return discord.MemberSnapshot{
		ID:       "555",
		Username: "discordjohn",
		Nickname: "JJ",
		Mention:  "<@555>",
	}
}

func groupBind(t *testing.T, nick string) *bind.GuildBind {
	t.Helper()
	criteria, err := bind.NewGroupCriteria(100, bind.GroupConditions{Everyone: true})
	require.NoError(t, err)
	b := &bind.GuildBind{Nickname: nick, Roles: []string{"1"}, Criteria: criteria}

	api := &robloxtest.FakeAPI{
		Groups: map[int64]roblox.GroupInfo{
			100: {ID: 100, Name: "G"},
		},
		Rolesets: map[int64][]roblox.Roleset{
			100: {{ID: 1, Name: "Developers", Rank: 200}},
		},
	}
	require.NoError(t, b.Hydrate(roblox.NewFactory(api)))
	return b
}

func resolve(t *testing.T, req nickname.Request) (string, bool) {
	t.Helper()
	r := nickname.NewResolver(staticTemplates("{smart-name}"))
	out, ok, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	return out, ok
}

func TestResolve_IdentityPlaceholders(t *testing.T) {
	cases := []struct {
		template string
		want     string
	}{
		{"{roblox-name}", "john"},
		{"{display-name}", "Johnny"},
		{"{smart-name}", "Johnny (@john)"},
		{"{roblox-id}", "123"},
		{"{roblox-age}", "400"},
		{"{allC:roblox-name}", "JOHN"},
		{"{allL:display-name}", "johnny"},
	}
	for _, tc := range cases {
		t.Run(tc.template, func(t *testing.T) {
			out, ok := resolve(t, nickname.Request{
				GuildID:  "1",
				Member:   member(),
				Template: tc.template,
				Identity: identity(),
			})
			assert.True(t, ok)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestResolve_ContextPlaceholders(t *testing.T) {
	cases := []struct {
		template string
		want     string
	}{
		{"{discord-name}", "discordjohn"},
		{"{discord-nick}", "JJ"},
		{"{discord-mention}", "<@555>"},
		{"{discord-id}", "555"},
		{"{server-name}", "My Server"},
		{"{prefix}", "/"},
		{"{verify-url}", "https://blox.link/verify"},
	}
	for _, tc := range cases {
		t.Run(tc.template, func(t *testing.T) {
			out, ok := resolve(t, nickname.Request{
				GuildID:        "1",
				GuildName:      "My Server",
				Member:         member(),
				Template:       tc.template,
				SkipTruncation: true,
			})
			assert.True(t, ok)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestResolve_GroupRank(t *testing.T) {
	t.Run("resolves the rank from the group bind", func(t *testing.T) {
		out, ok := resolve(t, nickname.Request{
			GuildID:  "1",
			Member:   member(),
			Template: "[{group-rank}] {roblox-name}",
			Binds:    []*bind.GuildBind{groupBind(t, "")},
			Identity: identity(),
		})
		assert.True(t, ok)
		assert.Equal(t, "[Developers] john", out)
	})

	t.Run("defaults to Guest without a group bind", func(t *testing.T) {
		out, ok := resolve(t, nickname.Request{
			GuildID:  "1",
			Member:   member(),
			Template: "[{group-rank}] {roblox-name}",
			Identity: identity(),
		})
		assert.True(t, ok)
		assert.Equal(t, "[Guest] john", out)
	})

	t.Run("arbitrary group id placeholder", func(t *testing.T) {
		out, ok := resolve(t, nickname.Request{
			GuildID:  "1",
			Member:   member(),
			Template: "{group-rank-100}|{group-rank-999}",
			Identity: identity(),
		})
		assert.True(t, ok)
		assert.Equal(t, "Developers|Guest", out)
	})
}

func TestResolve_GroupMetadata(t *testing.T) {
	out, ok := resolve(t, nickname.Request{
		GuildID:        "1",
		Member:         member(),
		Template:       "{group-name} {group-url}",
		Binds:          []*bind.GuildBind{groupBind(t, "")},
		Identity:       identity(),
		SkipTruncation: true,
	})
	assert.True(t, ok)
	assert.Equal(t, "G https://www.roblox.com/groups/100", out)
}

func TestResolve_WithoutIdentity(t *testing.T) {
	t.Run("identity placeholders degrade to literal text", func(t *testing.T) {
		out, ok := resolve(t, nickname.Request{
			GuildID:  "1",
			Member:   member(),
			Template: "{roblox-name}",
		})
		assert.True(t, ok)
		assert.Equal(t, "roblox-name", out)
	})

	t.Run("smart-name resolves to empty", func(t *testing.T) {
		out, ok := resolve(t, nickname.Request{
			GuildID:  "1",
			Member:   member(),
			Template: "{smart-name}x",
		})
		assert.True(t, ok)
		assert.Equal(t, "x", out)
	})
}

func TestResolve_DisableSentinel(t *testing.T) {
	for _, id := range []roblox.UserInfo{nil, identity()} {
		out, ok := resolve(t, nickname.Request{
			GuildID:  "1",
			Member:   member(),
			Template: "{disable-nicknaming}",
			Identity: id,
		})
		assert.False(t, ok)
		assert.Empty(t, out)
	}
}

func TestResolve_UnknownModifierQuirk(t *testing.T) {
	out, ok := resolve(t, nickname.Request{
		GuildID:  "1",
		Member:   member(),
		Template: "{weird:roblox-name}",
		Identity: identity(),
	})
	assert.True(t, ok)
	assert.Equal(t, "weird:roblox-name", out, "braces stripped, inner text kept")
}

func TestResolve_Truncation(t *testing.T) {
	long := &robloxtest.FakeUser{
		UserID: 1,
		Name:   strings.Repeat("a", 40),
	}

	out, ok := resolve(t, nickname.Request{
		GuildID:  "1",
		Member:   member(),
		Template: "{roblox-name}",
		Identity: long,
	})
	assert.True(t, ok)
	assert.Len(t, out, nickname.MaxLength)

	out, ok = resolve(t, nickname.Request{
		GuildID:        "1",
		Member:         member(),
		Template:       "{roblox-name}",
		Identity:       long,
		SkipTruncation: true,
	})
	assert.True(t, ok)
	assert.Len(t, out, 40)
}

func TestResolve_SmartNameFallsBackWhenTooLong(t *testing.T) {
	user := &robloxtest.FakeUser{
		UserID:  1,
		Name:    "shortuser",
		Display: strings.Repeat("d", 30),
	}

	out, ok := resolve(t, nickname.Request{
		GuildID:  "1",
		Member:   member(),
		Template: "{smart-name}",
		Identity: user,
	})
	assert.True(t, ok)
	assert.Equal(t, "shortuser", out, "smart name over 32 chars falls back to the username")
}

func TestResolve_TemplateSelection(t *testing.T) {
	ctx := context.Background()
	guild := discord.GuildSnapshot{
		ID: "1",
		Roles: map[string]discord.RoleSnapshot{
			"1": {ID: "1", Name: "Low", Position: 1},
			"2": {ID: "2", Name: "High", Position: 5},
		},
	}

	low := groupBind(t, "{roblox-name}")
	high := groupBind(t, "{display-name}")
	high.Roles = []string{"2"}
	for _, b := range []*bind.GuildBind{low, high} {
		b.CalculateHighestRole(guild)
	}

	t.Run("highest positioned bind wins", func(t *testing.T) {
		winner := nickname.SelectPriorityBind([]*bind.GuildBind{low, high})
		require.NotNil(t, winner)
		assert.Equal(t, "{display-name}", winner.Nickname)
	})

	t.Run("binds without a nickname are skipped", func(t *testing.T) {
		bare := groupBind(t, "")
		bare.Roles = []string{"2"}
		bare.CalculateHighestRole(guild)

		winner := nickname.SelectPriorityBind([]*bind.GuildBind{bare, low})
		require.NotNil(t, winner)
		assert.Equal(t, "{roblox-name}", winner.Nickname)
	})

	t.Run("falls back to the stored default", func(t *testing.T) {
		r := nickname.NewResolver(staticTemplates("{discord-name}"))
		out, ok, err := r.Resolve(ctx, nickname.Request{
			GuildID: "1",
			Member:  member(),
		})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "discordjohn", out)
	})

	t.Run("winning bind template is used", func(t *testing.T) {
		r := nickname.NewResolver(staticTemplates("{discord-name}"))
		out, ok, err := r.Resolve(ctx, nickname.Request{
			GuildID:  "1",
			Member:   member(),
			Binds:    []*bind.GuildBind{low, high},
			Identity: identity(),
		})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Johnny", out)
	})

	t.Run("errors without template and source", func(t *testing.T) {
		r := nickname.NewResolver(nil)
		_, _, err := r.Resolve(ctx, nickname.Request{GuildID: "1", Member: member()})
		assert.Error(t, err)
	})
}
