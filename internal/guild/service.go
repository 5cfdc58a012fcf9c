// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package guild

import (
	"context"
	"log/slog"
	"slices"

	"github.com/samber/oops"

	"github.com/bindery/bindery/internal/bind"
	"github.com/bindery/bindery/internal/discord"
	"github.com/bindery/bindery/internal/roblox"
)

// Error codes attached via oops.
const (
	CodeGuildLoad  = "GUILD_LOAD_FAILED"
	CodeGuildStore = "GUILD_STORE_FAILED"
)

// Store persists guild documents. Fetch projects only the named fields;
// Update applies sets and unsets in one write, inserting the document when
// absent.
type Store interface {
	Fetch(ctx context.Context, guildID string, fields ...string) (*Data, error)
	Update(ctx context.Context, guildID string, set map[string]any, unset []string) error
}

// MigrationConfig controls what the one-shot legacy migration writes back.
// The zero value migrates in memory only, leaving the stored document
// untouched.
type MigrationConfig struct {
	// SaveConverted persists the merged bind list and the conversion
	// marker after migrating.
	SaveConverted bool
	// PopLegacyFields clears the legacy bind fields from documents that
	// already carry the conversion marker.
	PopLegacyFields bool
}

// Query narrows a bind load. Zero values pass everything; Category and
// EntityID AND together. ServerRoles, when supplied, enables synthesis of
// verified/unverified binds from legacy role names and highest-role
// computation for nickname priority.
type Query struct {
	Category    roblox.EntityKind
	EntityID    int64
	ServerRoles map[string]discord.RoleSnapshot
}

// Service loads guild bind lists, migrating legacy documents on first
// touch.
type Service struct {
	store     Store
	factory   roblox.Factory
	migration MigrationConfig
	logger    *slog.Logger
}

// NewService validates dependencies and builds a Service.
func NewService(store Store, factory roblox.Factory, migration MigrationConfig, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, oops.Errorf("store is required")
	}
	if factory == nil {
		return nil, oops.Errorf("entity factory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		factory:   factory,
		migration: migration,
		logger:    logger,
	}, nil
}

// Binds returns the guild's binds, hydrated and filtered by the query.
// Legacy documents are migrated first; implicit verified/unverified binds
// derived from single-role settings are merged in memory.
func (s *Service) Binds(ctx context.Context, guildID string, q Query) ([]*bind.GuildBind, error) {
	data, err := s.store.Fetch(ctx, guildID, bindFields...)
	if err != nil {
		return nil, oops.Code(CodeGuildLoad).With("guild_id", guildID).Wrap(err)
	}

	if err := s.migrateLegacy(ctx, guildID, data); err != nil {
		return nil, err
	}

	binds := slices.Clone(data.Binds)
	binds = appendImplicitBinds(binds, data)

	if len(q.ServerRoles) > 0 {
		binds, err = s.synthesizeFromRoleNames(ctx, guildID, data, binds, q.ServerRoles)
		if err != nil {
			return nil, err
		}
	}

	for _, b := range binds {
		if err := b.Hydrate(s.factory); err != nil {
			return nil, oops.Code(CodeGuildLoad).With("guild_id", guildID).Wrap(err)
		}
	}

	if len(q.ServerRoles) > 0 {
		snapshot := discord.GuildSnapshot{ID: guildID, Roles: q.ServerRoles}
		for _, b := range binds {
			b.CalculateHighestRole(snapshot)
		}
	}

	return filterBinds(binds, q), nil
}

// Count returns how many binds match the query.
func (s *Service) Count(ctx context.Context, guildID string, q Query) (int, error) {
	binds, err := s.Binds(ctx, guildID, q)
	if err != nil {
		return 0, err
	}
	return len(binds), nil
}

// DefaultTemplate returns the guild's stored nickname template, defaulted.
func (s *Service) DefaultTemplate(ctx context.Context, guildID string) (string, error) {
	data, err := s.store.Fetch(ctx, guildID, "nicknameTemplate")
	if err != nil {
		return "", oops.Code(CodeGuildLoad).With("guild_id", guildID).Wrap(err)
	}
	return data.Template(), nil
}

// migrateLegacy runs the one-shot conversion of legacy bind fields. The
// conversion marker makes it idempotent; documents already converted can
// have their legacy fields cleared.
func (s *Service) migrateLegacy(ctx context.Context, guildID string, data *Data) error {
	if data.ConvertedBinds {
		if s.migration.PopLegacyFields && !data.LegacyDocument.Empty() {
			err := s.store.Update(ctx, guildID, nil,
				[]string{"groupIDs", "roleBinds", "converted_binds"})
			if err != nil {
				return oops.Code(CodeGuildStore).With("guild_id", guildID).
					Wrapf(err, "clearing legacy bind fields")
			}
			s.logger.InfoContext(ctx, "cleared legacy bind fields",
				slog.String("guild_id", guildID))
		}
		return nil
	}

	if data.LegacyDocument.Empty() {
		return nil
	}

	migrated, err := bind.FromLegacy(&data.LegacyDocument)
	if err != nil {
		return oops.Code(CodeGuildLoad).With("guild_id", guildID).
			Wrapf(err, "converting legacy binds")
	}

	data.Binds = bind.MergeBinds(data.Binds, migrated)
	data.ConvertedBinds = true

	if s.migration.SaveConverted {
		set := map[string]any{
			"binds":           data.Binds,
			"converted_binds": true,
		}
		if err := s.store.Update(ctx, guildID, set, nil); err != nil {
			return oops.Code(CodeGuildStore).With("guild_id", guildID).
				Wrapf(err, "saving converted binds")
		}
	}

	s.logger.InfoContext(ctx, "migrated legacy binds",
		slog.String("guild_id", guildID),
		slog.Int("migrated", len(migrated)),
		slog.Bool("saved", s.migration.SaveConverted))
	return nil
}

// synthesizeFromRoleNames derives verified/unverified binds from the legacy
// single-role name settings when the guild has no explicit verified bind,
// matching server roles by name. Synthesized binds are persisted alongside
// the explicit list.
func (s *Service) synthesizeFromRoleNames(ctx context.Context, guildID string, data *Data, binds []*bind.GuildBind, serverRoles map[string]discord.RoleSnapshot) ([]*bind.GuildBind, error) {
	if !data.VerifiedEnabled() && !data.UnverifiedEnabled() {
		return binds, nil
	}
	if hasKind(binds, roblox.KindVerified) {
		return binds, nil
	}
	verifiedName := data.VerifiedName()
	unverifiedName := data.UnverifiedName()
	if verifiedName == "" && unverifiedName == "" {
		return binds, nil
	}

	roleIDs := make([]string, 0, len(serverRoles))
	for id := range serverRoles {
		roleIDs = append(roleIDs, id)
	}
	slices.Sort(roleIDs)

	var added []*bind.GuildBind
	for _, id := range roleIDs {
		role := serverRoles[id]
		switch {
		case data.VerifiedEnabled() && role.Name == verifiedName:
			added = append(added, &bind.GuildBind{
				Criteria: bind.VerifiedCriteria(),
				Roles:    []string{role.ID},
			})
		case data.UnverifiedEnabled() && role.Name == unverifiedName:
			added = append(added, &bind.GuildBind{
				Criteria: bind.UnverifiedCriteria(),
				Roles:    []string{role.ID},
			})
		}
	}
	if len(added) == 0 {
		return binds, nil
	}

	data.Binds = bind.MergeBinds(data.Binds, added)
	set := map[string]any{"binds": data.Binds}
	if err := s.store.Update(ctx, guildID, set, nil); err != nil {
		return nil, oops.Code(CodeGuildStore).With("guild_id", guildID).
			Wrapf(err, "saving synthesized binds")
	}
	s.logger.InfoContext(ctx, "synthesized verification binds from role names",
		slog.String("guild_id", guildID),
		slog.Int("added", len(added)))

	return bind.MergeBinds(binds, added), nil
}

// appendImplicitBinds merges in-memory binds derived from the current
// verifiedRole/unverifiedRole id settings. These are never persisted.
func appendImplicitBinds(binds []*bind.GuildBind, data *Data) []*bind.GuildBind {
	var implicit []*bind.GuildBind
	if data.VerifiedRole != "" {
		implicit = append(implicit, &bind.GuildBind{
			Criteria: bind.VerifiedCriteria(),
			Roles:    []string{data.VerifiedRole},
		})
	}
	if data.UnverifiedRole != "" {
		implicit = append(implicit, &bind.GuildBind{
			Criteria: bind.UnverifiedCriteria(),
			Roles:    []string{data.UnverifiedRole},
		})
	}
	return bind.MergeBinds(binds, implicit)
}

func hasKind(binds []*bind.GuildBind, kind roblox.EntityKind) bool {
	return slices.ContainsFunc(binds, func(b *bind.GuildBind) bool {
		return b.Criteria.Type == kind
	})
}

func filterBinds(binds []*bind.GuildBind, q Query) []*bind.GuildBind {
	if q.Category == "" && q.EntityID == 0 {
		return binds
	}
	out := make([]*bind.GuildBind, 0, len(binds))
	for _, b := range binds {
		if q.Category != "" && b.Criteria.Type != q.Category {
			continue
		}
		if q.EntityID != 0 && b.Criteria.ID != q.EntityID {
			continue
		}
		out = append(out, b)
	}
	return out
}
