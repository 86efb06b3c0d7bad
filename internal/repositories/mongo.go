// Package repositories provides document store access for all collections.
package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names
const (
	usersCollection    = "users"
	newsCollection     = "news"
	galleryCollection  = "gallery"
	projectsCollection = "projects"
	programsCollection = "programs"
)

// Connect opens a connection to the document store and verifies it
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client.Database(dbName), nil
}

// EnsureIndexes creates the indexes the queries rely on. Safe to call on
// every startup; existing indexes are left untouched.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	_, err = db.Collection(newsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "title", Value: "text"},
			{Key: "content", Value: "text"},
			{Key: "tags", Value: "text"},
		}},
		{Keys: bson.D{{Key: "publishedAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create news indexes: %w", err)
	}

	_, err = db.Collection(galleryCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "category", Value: 1}, {Key: "year", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create gallery indexes: %w", err)
	}

	_, err = db.Collection(projectsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "department", Value: 1}, {Key: "year", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create projects indexes: %w", err)
	}

	_, err = db.Collection(programsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "year", Value: -1}, {Key: "department", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create programs indexes: %w", err)
	}

	return nil
}
