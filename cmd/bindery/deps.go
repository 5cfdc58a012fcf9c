// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/bindery/bindery/internal/config"
	"github.com/bindery/bindery/internal/guild"
	"github.com/bindery/bindery/internal/guild/mongostore"
	"github.com/bindery/bindery/internal/roblox"
)

// connectMongo opens the guild settings database. The returned cleanup
// disconnects the client.
func connectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, func(), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("uri", cfg.URI).Wrapf(err, "connect to mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background()) //nolint:errcheck
		return nil, nil, oops.Code("DB_CONNECT_FAILED").Wrapf(err, "ping mongodb")
	}
	cleanup := func() {
		_ = client.Disconnect(context.Background()) //nolint:errcheck
	}
	return client.Database(cfg.Database), cleanup, nil
}

// newGuildService wires the bind service: Roblox API client, entity
// factory, cached Mongo store.
func newGuildService(ctx context.Context, cfg config.Config) (*guild.Service, roblox.API, func(), error) {
	db, cleanup, err := connectMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := mongostore.New(db)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	api := roblox.NewClient()
	svc, err := guild.NewService(
		guild.NewCachedStore(store, cfg.Cache.TTL),
		roblox.NewFactory(api),
		guild.MigrationConfig{
			SaveConverted:   cfg.Migrate.SaveConverted,
			PopLegacyFields: cfg.Migrate.PopLegacyFields,
		},
		slog.Default(),
	)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return svc, api, cleanup, nil
}
