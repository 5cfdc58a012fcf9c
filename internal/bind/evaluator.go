// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package bind

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/bindery/bindery/internal/discord"
	"github.com/bindery/bindery/internal/roblox"
)

// Evaluation is the verdict for one bind against one member. RolesToAdd and
// RolesToRevoke hold server role ids; MissingRoleNames holds roleset names a
// dynamic-roles bind wanted but the server has no role for. A missing role
// is a normal outcome, not an error: the caller decides whether to create it.
type Evaluation struct {
	Matched          bool
	RolesToAdd       *CoerciveSet[string]
	MissingRoleNames *CoerciveSet[string]
	RolesToRevoke    *CoerciveSet[string]
}

func newEvaluation() Evaluation {
	return Evaluation{
		RolesToAdd:       NewSnowflakeSet(),
		MissingRoleNames: NewStringSet(),
		RolesToRevoke:    NewSnowflakeSet(),
	}
}

// Evaluate decides whether the member satisfies this bind. A nil identity
// means the member has no linked Roblox account. Group binds resolve the
// member's roleset on first use per entity instance; ownership binds ask the
// inventory API. Both are the only operations that can fail.
func (b *GuildBind) Evaluate(ctx context.Context, serverRoles map[string]discord.RoleSnapshot, member discord.MemberSnapshot, identity roblox.UserInfo) (Evaluation, error) {
	start := time.Now()
	ev, err := b.evaluate(ctx, serverRoles, member, identity)
	observeEvaluation(b.Subtype(), ev.Matched, err, time.Since(start))
	return ev, err
}

func (b *GuildBind) evaluate(ctx context.Context, serverRoles map[string]discord.RoleSnapshot, member discord.MemberSnapshot, identity roblox.UserInfo) (Evaluation, error) {
	ev := newEvaluation()

	if identity == nil {
		switch b.Criteria.Type {
		case roblox.KindUnverified:
			ev.Matched = true
		case roblox.KindVerified:
			// The member must lose roles granted for being verified.
			for _, id := range b.Roles {
				if member.HasRole(id) {
					ev.RolesToRevoke.Add(id)
				}
			}
		}
		return ev, nil
	}

	switch b.Criteria.Type {
	case roblox.KindVerified:
		ev.Matched = true
		return ev, nil
	case roblox.KindGroup:
		return b.evaluateGroup(ctx, ev, serverRoles, member, identity)
	case roblox.KindBadge, roblox.KindGamepass, roblox.KindCatalogAsset:
		asset, ok := b.entity.(roblox.Asset)
		if !ok {
			return ev, oops.Code(CodeEvaluation).
				With("kind", string(b.Criteria.Type)).
				Errorf("bind is not hydrated with an ownable entity")
		}
		owns, err := identity.OwnsAsset(ctx, asset)
		if err != nil {
			return ev, oops.Code(CodeEvaluation).
				With("kind", string(b.Criteria.Type)).
				With("id", b.Criteria.ID).
				Wrapf(err, "checking ownership")
		}
		ev.Matched = owns
		return ev, nil
	}
	return ev, nil
}

func (b *GuildBind) evaluateGroup(ctx context.Context, ev Evaluation, serverRoles map[string]discord.RoleSnapshot, member discord.MemberSnapshot, identity roblox.UserInfo) (Evaluation, error) {
	group, ok := b.entity.(*roblox.Group)
	if !ok {
		return ev, oops.Code(CodeEvaluation).
			With("group_id", b.Criteria.ID).
			Errorf("bind is not hydrated with a group entity")
	}
	if err := group.SyncFor(ctx, identity); err != nil {
		return ev, oops.Code(CodeEvaluation).
			With("group_id", b.Criteria.ID).
			Wrapf(err, "syncing group for member")
	}

	gc := b.Criteria.Group
	if gc == nil {
		gc = &GroupConditions{}
	}

	roleset := group.UserRoleset()

	if gc.DynamicRoles {
		// Revoke roles named after rolesets the member does not hold, so
		// stale rank roles do not linger after a promotion. For a member
		// who left the group every roleset name counts as stale.
		stale := make(map[string]struct{})
		for _, rs := range group.Rolesets() {
			if roleset == nil || rs.Rank != roleset.Rank {
				stale[rs.Name] = struct{}{}
			}
		}
		for _, id := range member.RoleIDs {
			role, held := serverRoles[id]
			if !held {
				continue
			}
			if _, isStale := stale[role.Name]; isStale {
				ev.RolesToRevoke.Add(id)
			}
		}

		if roleset != nil {
			// Bind the server role named after the current roleset, or
			// report it missing.
			found := false
			for id, role := range serverRoles {
				if role.Name == roleset.Name {
					ev.RolesToAdd.Add(id)
					found = true
					break
				}
			}
			if !found {
				ev.MissingRoleNames.Add(roleset.Name)
			}
		}
	}

	if roleset == nil {
		// Not in the group: only guest binds match.
		ev.Matched = gc.Guest
		return ev, nil
	}

	switch {
	case gc.Everyone:
		ev.Matched = true
	case gc.Guest:
		ev.Matched = false
	case gc.Min != nil && gc.Max != nil:
		ev.Matched = *gc.Min <= roleset.Rank && roleset.Rank <= *gc.Max
	case gc.Roleset != nil:
		rs := *gc.Roleset
		ev.Matched = roleset.Rank == rs || (rs < 0 && roleset.Rank >= -rs)
	default:
		// A pure dynamic-roles bind with no rank rule matches any member.
		ev.Matched = true
	}
	return ev, nil
}
