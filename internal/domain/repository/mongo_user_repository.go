package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blogapi/internal/common"
	"blogapi/internal/domain/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	ID             string    `bson:"_id"`
	Username       string    `bson:"username"`
	Email          string    `bson:"email"`
	HashedPassword string    `bson:"password"`
	Bio            string    `bson:"bio"`
	IsAdmin        bool      `bson:"is_admin"`
	CreatedAt      time.Time `bson:"created_at"`
}

func (d userDoc) toModel() model.User {
	return model.User{
		ID:             d.ID,
		Username:       d.Username,
		Email:          d.Email,
		HashedPassword: d.HashedPassword,
		Bio:            d.Bio,
		IsAdmin:        d.IsAdmin,
		CreatedAt:      d.CreatedAt,
	}
}

func userDocFrom(u *model.User) userDoc {
	return userDoc{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		HashedPassword: u.HashedPassword,
		Bio:            u.Bio,
		IsAdmin:        u.IsAdmin,
		CreatedAt:      u.CreatedAt,
	}
}

type mongoUserRepository struct {
	coll *mongo.Collection
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	if _, err := r.coll.InsertOne(ctx, userDocFrom(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("mongoUserRepository.Create: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) findOne(ctx context.Context, op string, filter bson.M) (*model.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongoUserRepository.%s: %w", op, err)
	}
	user := doc.toModel()
	return &user, nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "FindByID", bson.M{"_id": id})
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", bson.M{"email": email})
}

func (r *mongoUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "FindByUsername", bson.M{"username": username})
}

func (r *mongoUserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmailOrUsername", bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}})
}

func (r *mongoUserRepository) Update(ctx context.Context, user *model.User) error {
	update := bson.M{"$set": bson.M{
		"username": user.Username,
		"email":    user.Email,
		"password": user.HashedPassword,
		"bio":      user.Bio,
		"is_admin": user.IsAdmin,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("username or email already taken: %w", common.ErrConflict)
		}
		return fmt.Errorf("mongoUserRepository.Update: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongoUserRepository.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) List(ctx context.Context, filter model.UserFilter) ([]model.User, int, error) {
	query := bson.M{}
	if filter.Search != "" {
		query["$or"] = bson.A{
			bson.M{"username": containsRegex(filter.Search)},
			bson.M{"email": containsRegex(filter.Search)},
		}
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("mongoUserRepository.List count: %w", err)
	}
	users, err := r.find(ctx, query, pageOptions(filter.Limit, filter.Offset))
	if err != nil {
		return nil, 0, fmt.Errorf("mongoUserRepository.List: %w", err)
	}
	return users, int(total), nil
}

func (r *mongoUserRepository) SearchByUsername(ctx context.Context, q string) ([]model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	users, err := r.find(ctx, bson.M{"username": containsRegex(q)}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongoUserRepository.SearchByUsername: %w", err)
	}
	return users, nil
}

func (r *mongoUserRepository) FindSummaries(ctx context.Context, ids []string) (map[string]model.AuthorSummary, error) {
	summaries := make(map[string]model.AuthorSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}
	users, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
	if err != nil {
		return nil, fmt.Errorf("mongoUserRepository.FindSummaries: %w", err)
	}
	for i := range users {
		summaries[users[i].ID] = users[i].Summary()
	}
	return summaries, nil
}

func (r *mongoUserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.User, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, doc.toModel())
	}
	return users, nil
}
