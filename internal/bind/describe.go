// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package bind

import (
	"fmt"
	"strings"

	"github.com/bindery/bindery/internal/roblox"
)

// Human-readable bind descriptions, built from a prefix (who the bind
// targets), optional content (the rank or entity it names), and the bind's
// role lists. Entities should be synced first so names resolve; unsynced
// entities fall back to ids.

// DescriptionPrefix describes who the bind targets.
func (b *GuildBind) DescriptionPrefix() string {
	switch b.Criteria.Type {
	case roblox.KindGroup:
		gc := b.Criteria.Group
		if gc == nil {
			return "People who are in **this group**"
		}
		switch {
		case gc.Min != nil && gc.Max != nil:
			return "People with a rank between"
		case gc.Roleset != nil && *gc.Roleset < 0:
			return "People with a rank greater than or equal to"
		case gc.Roleset != nil:
			return "People with the rank"
		case gc.Guest:
			return "People who are NOT in **this group**"
		default:
			return "People who are in **this group**"
		}
	case roblox.KindVerified:
		return "People who have verified their Roblox account"
	case roblox.KindUnverified:
		return "People who have not verified their Roblox account"
	}
	return fmt.Sprintf("People who own the %s", b.Criteria.Type)
}

// DescriptionContent names the ranks or entity the bind is gated on, or ""
// when the prefix already says everything.
func (b *GuildBind) DescriptionContent() string {
	switch b.Criteria.Type {
	case roblox.KindVerified, roblox.KindUnverified:
		return ""
	case roblox.KindGroup:
		gc := b.Criteria.Group
		if gc == nil {
			return ""
		}
		group, ok := b.entity.(*roblox.Group)
		if !ok {
			return ""
		}
		switch {
		case gc.Min != nil && gc.Max != nil:
			return fmt.Sprintf("%s to %s",
				group.RolesetLabel(*gc.Min, true),
				group.RolesetLabel(*gc.Max, true))
		case gc.Roleset != nil:
			rank := *gc.Roleset
			if rank < 0 {
				rank = -rank
			}
			return group.RolesetLabel(rank, true)
		}
		return ""
	}
	return roblox.Label(b.entity)
}

// ShortDescription is the one-line form without role lists.
func (b *GuildBind) ShortDescription() string {
	if b.Subtype() == SubtypeFullGroup {
		return "All users receive a role matching their group rank name"
	}
	content := b.DescriptionContent()
	if content == "" {
		return b.DescriptionPrefix()
	}
	return fmt.Sprintf("%s **%s**", b.DescriptionPrefix(), content)
}

// String builds the full sentence form with role mentions, e.g.
// "- _People with the rank Developers (200) receive the role <@&1>_".
func (b *GuildBind) String() string {
	if b.Subtype() == SubtypeFullGroup {
		return "- _All users in **this** group receive the role matching their group rank name_"
	}

	mentions := make([]string, len(b.Roles))
	for i, id := range b.Roles {
		mentions[i] = fmt.Sprintf("<@&%s>", id)
	}
	plural := ""
	if len(b.Roles) > 1 {
		plural = "s"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "- _%s receive the role%s %s", b.ShortDescription(), plural, strings.Join(mentions, ", "))
	if len(b.RemoveRoles) > 0 {
		removals := make([]string, len(b.RemoveRoles))
		for i, id := range b.RemoveRoles {
			removals[i] = fmt.Sprintf("<@&%s>", id)
		}
		fmt.Fprintf(&sb, ", and have these roles removed: %s", strings.Join(removals, ", "))
	}
	sb.WriteString("_")
	return sb.String()
}
