// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

// Package mongostore persists guild documents in MongoDB.
package mongostore

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bindery/bindery/internal/guild"
)

// CollectionName holds guild documents keyed by guild id.
const CollectionName = "guilds"

// Store reads and writes guild documents in a mongo collection.
type Store struct {
	collection *mongo.Collection
}

// New builds a Store over the given database.
func New(db *mongo.Database) (*Store, error) {
	if db == nil {
		return nil, oops.Errorf("database is required")
	}
	return &Store{collection: db.Collection(CollectionName)}, nil
}

// Fetch loads a guild document projected to the given fields. A missing
// document is not an error: it decodes to an empty document carrying only
// the id, so new guilds start from defaults.
func (s *Store) Fetch(ctx context.Context, guildID string, fields ...string) (*guild.Data, error) {
	projection := bson.M{}
	for _, field := range fields {
		projection[field] = 1
	}

	var data guild.Data
	err := s.collection.FindOne(ctx, bson.M{"_id": guildID},
		options.FindOne().SetProjection(projection)).Decode(&data)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &guild.Data{ID: guildID}, nil
	}
	if err != nil {
		return nil, oops.Code(guild.CodeGuildLoad).
			With("guild_id", guildID).
			Wrapf(err, "fetching guild document")
	}
	data.ID = guildID
	return &data, nil
}

// Update applies sets and unsets to the guild document, inserting it when
// absent.
func (s *Store) Update(ctx context.Context, guildID string, set map[string]any, unset []string) error {
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = bson.M(set)
	}
	if len(unset) > 0 {
		fields := bson.M{}
		for _, field := range unset {
			fields[field] = ""
		}
		update["$unset"] = fields
	}
	if len(update) == 0 {
		return nil
	}

	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": guildID}, update,
		options.Update().SetUpsert(true))
	if err != nil {
		return oops.Code(guild.CodeGuildStore).
			With("guild_id", guildID).
			Wrapf(err, "updating guild document")
	}
	return nil
}
