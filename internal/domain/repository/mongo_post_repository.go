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

type postDoc struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Slug      string    `bson:"slug"`
	Content   string    `bson:"content"`
	AuthorID  string    `bson:"author"`
	Tags      []string  `bson:"tags"`
	Likes     []string  `bson:"likes"`
	Published bool      `bson:"published"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d postDoc) toModel() model.Post {
	return model.Post{
		ID:        d.ID,
		Title:     d.Title,
		Slug:      d.Slug,
		Content:   d.Content,
		AuthorID:  d.AuthorID,
		Tags:      nonNil(d.Tags),
		Likes:     nonNil(d.Likes),
		Published: d.Published,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type mongoPostRepository struct {
	coll *mongo.Collection
}

func (r *mongoPostRepository) Create(ctx context.Context, p *model.Post) error {
	doc := postDoc{
		ID:        p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Content:   p.Content,
		AuthorID:  p.AuthorID,
		Tags:      nonNil(p.Tags),
		Likes:     nonNil(p.Likes),
		Published: p.Published,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongoPostRepository.Create: %w", err)
	}
	return nil
}

func (r *mongoPostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var doc postDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongoPostRepository.FindByID: %w", err)
	}
	post := doc.toModel()
	return &post, nil
}

func (r *mongoPostRepository) Update(ctx context.Context, p *model.Post) error {
	update := bson.M{"$set": bson.M{
		"title":      p.Title,
		"slug":       p.Slug,
		"content":    p.Content,
		"tags":       nonNil(p.Tags),
		"published":  p.Published,
		"updated_at": p.UpdatedAt,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		return fmt.Errorf("mongoPostRepository.Update: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *mongoPostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongoPostRepository.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *mongoPostRepository) List(ctx context.Context, filter model.PostFilter) ([]model.Post, int, error) {
	query := bson.M{}
	if filter.PublishedOnly {
		query["published"] = true
	}
	if filter.Tag != "" {
		query["tags"] = filter.Tag
	}
	if filter.AuthorID != "" {
		query["author"] = filter.AuthorID
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("mongoPostRepository.List count: %w", err)
	}
	posts, err := r.find(ctx, query, pageOptions(filter.Limit, filter.Offset))
	if err != nil {
		return nil, 0, fmt.Errorf("mongoPostRepository.List: %w", err)
	}
	return posts, int(total), nil
}

func (r *mongoPostRepository) Search(ctx context.Context, q string) ([]model.Post, error) {
	query := bson.M{
		"published": true,
		"$or": bson.A{
			bson.M{"title": containsRegex(q)},
			bson.M{"content": containsRegex(q)},
		},
	}
	posts, err := r.find(ctx, query, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("mongoPostRepository.Search: %w", err)
	}
	return posts, nil
}

func (r *mongoPostRepository) ListIDsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.coll.Find(ctx, bson.M{"author": authorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongoPostRepository.ListIDsByAuthor: %w", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongoPostRepository.ListIDsByAuthor decode: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (r *mongoPostRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"author": authorID})
	if err != nil {
		return 0, fmt.Errorf("mongoPostRepository.DeleteByAuthor: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *mongoPostRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"author": authorID})
	if err != nil {
		return 0, fmt.Errorf("mongoPostRepository.CountByAuthor: %w", err)
	}
	return int(n), nil
}

func (r *mongoPostRepository) AddLike(ctx context.Context, postID, userID string) error {
	return addToLikes(ctx, r.coll, postID, userID)
}

func (r *mongoPostRepository) RemoveLike(ctx context.Context, postID, userID string) error {
	return pullFromLikes(ctx, r.coll, postID, userID)
}

func (r *mongoPostRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Post, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []postDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	posts := make([]model.Post, 0, len(docs))
	for _, doc := range docs {
		posts = append(posts, doc.toModel())
	}
	return posts, nil
}

// addToLikes adds userID to the likes set of the document with the given id.
func addToLikes(ctx context.Context, coll *mongo.Collection, id, userID string) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"likes": userID}})
	if err != nil {
		return fmt.Errorf("adding like to %s: %w", coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	if res.ModifiedCount == 0 {
		return common.ErrAlreadyLiked
	}
	return nil
}

func pullFromLikes(ctx context.Context, coll *mongo.Collection, id, userID string) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"likes": userID}})
	if err != nil {
		return fmt.Errorf("removing like from %s: %w", coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	if res.ModifiedCount == 0 {
		return common.ErrNotLiked
	}
	return nil
}
