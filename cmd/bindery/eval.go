// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/bindery/bindery/internal/audit"
	"github.com/bindery/bindery/internal/bind"
	"github.com/bindery/bindery/internal/config"
	"github.com/bindery/bindery/internal/discord"
	"github.com/bindery/bindery/internal/guild"
	"github.com/bindery/bindery/internal/logging"
	"github.com/bindery/bindery/internal/nickname"
	"github.com/bindery/bindery/internal/roblox"
	"github.com/bindery/bindery/pkg/errutil"
)

// evalInput is the snapshot file handed to the eval command. The bot
// process produces the same shape when it calls the engine directly.
type evalInput struct {
	Guild  discord.GuildSnapshot  `json:"guild"`
	Member discord.MemberSnapshot `json:"member"`
}

// NewEvalCmd creates the eval subcommand.
func NewEvalCmd() *cobra.Command {
	var robloxUserID int64

	cmd := &cobra.Command{
		Use:   "eval <snapshot.json>",
		Short: "Evaluate a guild's binds against one member",
		Long: `Evaluate a guild's bind configuration against a member snapshot and
print the roles to grant, the roles to revoke, and the resolved nickname.
The snapshot file holds the guild roles and the member being checked;
the Roblox identity is fetched live. Omit --roblox-user to evaluate the
member as unverified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args[0], robloxUserID)
		},
	}
	cmd.Flags().Int64Var(&robloxUserID, "roblox-user", 0, "linked Roblox user id (0 = unverified)")
	return cmd
}

func runEval(cmd *cobra.Command, snapshotPath string, robloxUserID int64) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(snapshotPath) //nolint:gosec // operator-supplied path
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("path", snapshotPath).Wrapf(err, "read snapshot")
	}
	var input evalInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return oops.Code("CONFIG_INVALID").With("path", snapshotPath).Wrapf(err, "parse snapshot")
	}
	if input.Guild.ID == "" {
		return oops.Code("CONFIG_INVALID").Errorf("snapshot guild id is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = logging.ContextWithGuild(ctx, input.Guild.ID)

	svc, api, cleanup, err := newGuildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	auditor, auditCleanup, err := newAuditor(ctx, cfg)
	if err != nil {
		return err
	}
	defer auditCleanup()

	var identity roblox.UserInfo
	if robloxUserID > 0 {
		user := roblox.NewUser(api, robloxUserID)
		if err := user.Sync(ctx); err != nil {
			return oops.Code("EVALUATION_FAILED").With("roblox_user", robloxUserID).Wrapf(err, "fetch roblox user")
		}
		identity = user
	}

	binds, err := svc.Binds(ctx, input.Guild.ID, guild.Query{ServerRoles: input.Guild.Roles})
	if err != nil {
		return err
	}

	rolesToAdd := bind.NewSnowflakeSet()
	rolesToRevoke := bind.NewSnowflakeSet()
	missingRoles := bind.NewStringSet()
	var matched []*bind.GuildBind

	for _, b := range binds {
		ev, evalErr := b.Evaluate(ctx, input.Guild.Roles, input.Member, identity)
		recordAudit(ctx, auditor, input.Guild.ID, input.Member.ID, b, ev, evalErr)
		if evalErr != nil {
			return evalErr
		}
		rolesToAdd = rolesToAdd.Union(ev.RolesToAdd)
		rolesToRevoke = rolesToRevoke.Union(ev.RolesToRevoke)
		missingRoles = missingRoles.Union(ev.MissingRoleNames)
		if ev.Matched {
			matched = append(matched, b)
			for _, id := range b.Roles {
				rolesToAdd.Add(id)
			}
			for _, id := range b.RemoveRoles {
				rolesToRevoke.Add(id)
			}
		}
	}

	resolver := nickname.NewResolver(svc,
		nickname.WithPrefix(cfg.Nickname.Prefix),
		nickname.WithVerifyURL(cfg.Nickname.VerifyURL),
	)
	nick, ok, err := resolver.Resolve(ctx, nickname.Request{
		GuildID:   input.Guild.ID,
		GuildName: input.Guild.Name,
		Member:    input.Member,
		Binds:     matched,
		Identity:  identity,
	})
	if err != nil {
		return err
	}

	cmd.Printf("Matched binds: %d of %d\n", len(matched), len(binds))
	for _, b := range matched {
		cmd.Printf("  - %s\n", b.ShortDescription())
	}
	if rolesToAdd.Len() > 0 {
		cmd.Printf("Roles to add: %s\n", rolesToAdd)
	}
	if rolesToRevoke.Len() > 0 {
		cmd.Printf("Roles to revoke: %s\n", rolesToRevoke)
	}
	if missingRoles.Len() > 0 {
		cmd.Printf("Missing server roles: %s\n", missingRoles)
	}
	if ok {
		cmd.Printf("Nickname: %s\n", nick)
	} else {
		cmd.Println("Nickname: (nicknaming disabled)")
	}
	return nil
}

// newAuditor builds the audit pipeline, or a no-op closure when auditing
// is off.
func newAuditor(ctx context.Context, cfg config.Config) (*audit.Logger, func(), error) {
	if cfg.Audit.Mode == string(audit.ModeOff) {
		return nil, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Audit.DatabaseURL)
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").Wrapf(err, "connect to audit database")
	}
	writer, err := audit.NewPostgresWriter(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger, err := audit.NewLogger(audit.Mode(cfg.Audit.Mode), writer)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := logger.Close(); err != nil {
			errutil.LogError(slog.Default(), "audit shutdown failed", err)
		}
		pool.Close()
	}
	return logger, cleanup, nil
}

func recordAudit(ctx context.Context, auditor *audit.Logger, guildID, memberID string, b *bind.GuildBind, ev bind.Evaluation, evalErr error) {
	if auditor == nil {
		return
	}
	outcome := audit.OutcomeUnmatched
	switch {
	case evalErr != nil:
		outcome = audit.OutcomeError
	case ev.Matched:
		outcome = audit.OutcomeMatched
	}

	entry := audit.NewEntry(guildID, memberID, b.Subtype(), outcome)
	if evalErr != nil {
		entry.Detail = evalErr.Error()
	} else {
		entry.RolesAdded = ev.RolesToAdd.Items()
		entry.RolesRevoked = ev.RolesToRevoke.Items()
		entry.MissingRoles = ev.MissingRoleNames.Items()
	}
	_ = auditor.Log(ctx, entry) //nolint:errcheck // logging must not block evaluation
}
