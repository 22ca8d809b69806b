package repository

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	postsCollection    = "posts"
	commentsCollection = "comments"
)

// NewMongoStore builds the MongoDB driver. Writes are not wrapped in sessions,
// so a cascade interrupted midway is not rolled back.
func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Users:    &mongoUserRepository{coll: db.Collection(usersCollection)},
		Posts:    &mongoPostRepository{coll: db.Collection(postsCollection)},
		Comments: &mongoCommentRepository{coll: db.Collection(commentsCollection)},
		Tx:       passthroughTx{},
	}
}

// EnsureMongoIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		postsCollection: {
			{Keys: bson.D{{Key: "published", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "author", Value: 1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
		},
		commentsCollection: {
			{Keys: bson.D{{Key: "post", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "author", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", name, err)
		}
	}
	return nil
}

// passthroughTx runs fn without a transaction.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// containsRegex matches q literally anywhere in a field, ignoring case.
func containsRegex(q string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func pageOptions(limit, offset int) *options.FindOptions {
	return options.Find().SetSort(newestFirst).SetSkip(int64(offset)).SetLimit(int64(limit))
}
