// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package nickname

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/oops"

	"github.com/bindery/bindery/internal/bind"
	"github.com/bindery/bindery/internal/discord"
	"github.com/bindery/bindery/internal/roblox"
)

const (
	// DisableSentinel is the literal template that opts a guild out of
	// nicknaming. It short-circuits to "do not rename", not an error.
	DisableSentinel = "{disable-nicknaming}"

	// MaxLength is the platform display-name limit. Truncation happens
	// after all substitutions.
	MaxLength = 32

	defaultPrefix    = "/"
	defaultVerifyURL = "https://blox.link/verify"
)

// arbitraryGroupPattern matches the dynamic {group-rank-<id>} placeholder
// name after parsing.
var arbitraryGroupPattern = regexp.MustCompile(`^group-rank-(\d+)$`)

// TemplateSource supplies a guild's stored default template.
type TemplateSource interface {
	DefaultTemplate(ctx context.Context, guildID string) (string, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPrefix sets the value of the {prefix} placeholder.
func WithPrefix(prefix string) Option {
	return func(r *Resolver) { r.prefix = prefix }
}

// WithVerifyURL sets the value of the {verify-url} placeholder.
func WithVerifyURL(url string) Option {
	return func(r *Resolver) { r.verifyURL = url }
}

// Resolver substitutes template placeholders for one member at a time.
type Resolver struct {
	templates TemplateSource
	prefix    string
	verifyURL string
}

// NewResolver builds a Resolver. The template source may be nil when every
// Resolve call supplies an explicit template.
func NewResolver(templates TemplateSource, opts ...Option) *Resolver {
	r := &Resolver{
		templates: templates,
		prefix:    defaultPrefix,
		verifyURL: defaultVerifyURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SelectPriorityBind orders candidates by highest-role position descending,
// binds without a resolvable role last, and returns the first carrying a
// nickname template. Returns nil when no candidate has one.
func SelectPriorityBind(candidates []*bind.GuildBind) *bind.GuildBind {
	sorted := make([]*bind.GuildBind, len(candidates))
	copy(sorted, candidates)
	bind.SortByPriority(sorted)
	for _, b := range sorted {
		if b.Nickname != "" {
			return b
		}
	}
	return nil
}

// Request carries everything one resolution needs. Template is optional:
// when empty it is computed from the candidate binds and the guild's stored
// default. Identity is nil for unverified members; identity-sourced
// placeholders then degrade to their literal name text.
type Request struct {
	GuildID   string
	GuildName string
	Member    discord.MemberSnapshot
	Template  string
	Binds     []*bind.GuildBind
	Identity  roblox.UserInfo

	// SkipTruncation disables the final clip to MaxLength.
	SkipTruncation bool
}

// Resolve substitutes the template. The second return is false when the
// guild opted out of nicknaming; the caller must not rename.
func (r *Resolver) Resolve(ctx context.Context, req Request) (string, bool, error) {
	template := req.Template
	var winner *bind.GuildBind
	if template == "" {
		winner = SelectPriorityBind(req.Binds)
		if winner != nil {
			template = winner.Nickname
		} else {
			if r.templates == nil {
				return "", false, oops.Errorf("no template given and no template source configured")
			}
			stored, err := r.templates.DefaultTemplate(ctx, req.GuildID)
			if err != nil {
				return "", false, err
			}
			template = stored
		}
	}

	if template == DisableSentinel {
		return "", false, nil
	}

	// Group placeholders need the group's metadata.
	groupBind := selectGroupBind(winner, req.Binds)
	if strings.Contains(template, "group-") && groupBind != nil {
		if err := groupBind.Entity().Sync(ctx); err != nil {
			return "", false, oops.With("group_id", groupBind.Criteria.ID).
				Wrapf(err, "syncing group for template")
		}
	}

	state, err := newSubstitutionState(ctx, r, req, groupBind, template)
	if err != nil {
		return "", false, err
	}

	parsed, err := Parse(template)
	if err != nil {
		return "", false, err
	}

	var sb strings.Builder
	for _, part := range parsed.Parts {
		if part.Placeholder == nil {
			sb.WriteString(part.Text)
			continue
		}
		sb.WriteString(state.substitute(part.Placeholder))
	}

	resolved := sb.String()
	if !req.SkipTruncation {
		runes := []rune(resolved)
		if len(runes) > MaxLength {
			resolved = string(runes[:MaxLength])
		}
	}
	return resolved, true, nil
}

// selectGroupBind prefers the winning bind when it is a group bind, else
// the first group bind among the candidates.
func selectGroupBind(winner *bind.GuildBind, candidates []*bind.GuildBind) *bind.GuildBind {
	if winner != nil && winner.Criteria.Type == roblox.KindGroup {
		return winner
	}
	for _, b := range candidates {
		if b.Criteria.Type == roblox.KindGroup {
			return b
		}
	}
	return nil
}

// substitutionState holds the per-resolution values placeholders draw from.
type substitutionState struct {
	resolver  *Resolver
	req       Request
	groupBind *bind.GuildBind

	smartName string
	groupRank string
	groups    map[int64]roblox.UserGroup
	hasGroups bool
}

func newSubstitutionState(ctx context.Context, r *Resolver, req Request, groupBind *bind.GuildBind, template string) (*substitutionState, error) {
	state := &substitutionState{resolver: r, req: req, groupBind: groupBind}

	if req.Identity == nil {
		return state, nil
	}

	display := req.Identity.DisplayName()
	username := req.Identity.Username()
	if display != username {
		state.smartName = display + " (@" + username + ")"
		if len([]rune(state.smartName)) > MaxLength {
			state.smartName = username
		}
	} else {
		state.smartName = username
	}

	if strings.Contains(template, "group-rank") {
		groups, err := req.Identity.Groups(ctx)
		if err != nil {
			return nil, oops.Wrapf(err, "fetching group memberships for template")
		}
		state.groups = groups
		state.hasGroups = true

		state.groupRank = "Guest"
		if groupBind != nil {
			if membership, ok := groups[groupBind.Criteria.ID]; ok {
				state.groupRank = membership.Role.Name
			}
		}
	}

	return state, nil
}

// substitute resolves one placeholder. Unknown names degrade to their
// literal text; unknown modifiers strip the braces but leave the inner text.
func (s *substitutionState) substitute(p *Placeholder) string {
	name := p.Name()
	value := name

	if s.req.Identity != nil {
		switch name {
		case "roblox-name":
			value = s.req.Identity.Username()
		case "display-name":
			value = s.req.Identity.DisplayName()
		case "smart-name":
			value = s.smartName
		case "roblox-id":
			value = strconv.FormatInt(s.req.Identity.ID(), 10)
		case "roblox-age":
			value = strconv.Itoa(s.req.Identity.AgeDays())
		case "group-rank":
			value = s.groupRank
		default:
			if p.Modifier() == "" {
				if m := arbitraryGroupPattern.FindStringSubmatch(name); m != nil {
					value = s.arbitraryGroupRank(m[1])
				}
			}
		}
	}

	switch value {
	case "discord-name":
		value = s.req.Member.Username
	case "discord-nick":
		value = s.req.Member.DisplayedName()
	case "discord-global-name":
		if s.req.Member.GlobalName != "" {
			value = s.req.Member.GlobalName
		} else {
			value = s.req.Member.Username
		}
	case "discord-mention":
		value = s.req.Member.Mention
	case "discord-id":
		value = s.req.Member.ID
	case "server-name":
		value = s.req.GuildName
	case "prefix":
		value = s.resolver.prefix
	case "group-url":
		value = s.groupURL()
	case "group-name":
		value = s.groupName()
	case "smart-name":
		value = s.smartName
	case "verify-url":
		value = s.resolver.verifyURL
	}

	switch p.Modifier() {
	case "":
		return value
	case "allC":
		return strings.ToUpper(value)
	case "allL":
		return strings.ToLower(value)
	}
	// Unrecognized modifier: braces stripped, inner text kept.
	return p.Inner()
}

func (s *substitutionState) arbitraryGroupRank(rawID string) string {
	if !s.hasGroups {
		return "Guest"
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "Guest"
	}
	if membership, ok := s.groups[id]; ok {
		return membership.Role.Name
	}
	return "Guest"
}

func (s *substitutionState) groupURL() string {
	if s.groupBind == nil {
		return ""
	}
	if group, ok := s.groupBind.Entity().(*roblox.Group); ok {
		return group.URL()
	}
	return ""
}

func (s *substitutionState) groupName() string {
	if s.groupBind == nil {
		return ""
	}
	if entity := s.groupBind.Entity(); entity != nil {
		return entity.Name()
	}
	return ""
}
