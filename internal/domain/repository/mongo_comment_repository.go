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
)

type commentDoc struct {
	ID        string    `bson:"_id"`
	Content   string    `bson:"content"`
	PostID    string    `bson:"post"`
	AuthorID  string    `bson:"author"`
	Likes     []string  `bson:"likes"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d commentDoc) toModel() model.Comment {
	return model.Comment{
		ID:        d.ID,
		Content:   d.Content,
		PostID:    d.PostID,
		AuthorID:  d.AuthorID,
		Likes:     nonNil(d.Likes),
		CreatedAt: d.CreatedAt,
	}
}

type mongoCommentRepository struct {
	coll *mongo.Collection
}

func (r *mongoCommentRepository) Create(ctx context.Context, c *model.Comment) error {
	doc := commentDoc{
		ID:        c.ID,
		Content:   c.Content,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Likes:     nonNil(c.Likes),
		CreatedAt: c.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongoCommentRepository.Create: %w", err)
	}
	return nil
}

func (r *mongoCommentRepository) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	var doc commentDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongoCommentRepository.FindByID: %w", err)
	}
	comment := doc.toModel()
	return &comment, nil
}

func (r *mongoCommentRepository) UpdateContent(ctx context.Context, id, content string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"content": content}})
	if err != nil {
		return fmt.Errorf("mongoCommentRepository.UpdateContent: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *mongoCommentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongoCommentRepository.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *mongoCommentRepository) ListByPost(ctx context.Context, postID string, limit, offset int) ([]model.Comment, int, error) {
	query := bson.M{"post": postID}
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("mongoCommentRepository.ListByPost count: %w", err)
	}
	cursor, err := r.coll.Find(ctx, query, pageOptions(limit, offset))
	if err != nil {
		return nil, 0, fmt.Errorf("mongoCommentRepository.ListByPost: %w", err)
	}
	var docs []commentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("mongoCommentRepository.ListByPost decode: %w", err)
	}
	comments := make([]model.Comment, 0, len(docs))
	for _, doc := range docs {
		comments = append(comments, doc.toModel())
	}
	return comments, int(total), nil
}

func (r *mongoCommentRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	return r.deleteMany(ctx, "DeleteByPost", bson.M{"post": postID})
}

func (r *mongoCommentRepository) DeleteByPosts(ctx context.Context, postIDs []string) (int64, error) {
	if len(postIDs) == 0 {
		return 0, nil
	}
	return r.deleteMany(ctx, "DeleteByPosts", bson.M{"post": bson.M{"$in": postIDs}})
}

func (r *mongoCommentRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	return r.deleteMany(ctx, "DeleteByAuthor", bson.M{"author": authorID})
}

func (r *mongoCommentRepository) deleteMany(ctx context.Context, op string, filter bson.M) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("mongoCommentRepository.%s: %w", op, err)
	}
	return res.DeletedCount, nil
}

func (r *mongoCommentRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"author": authorID})
	if err != nil {
		return 0, fmt.Errorf("mongoCommentRepository.CountByAuthor: %w", err)
	}
	return int(n), nil
}

func (r *mongoCommentRepository) AddLike(ctx context.Context, commentID, userID string) error {
	return addToLikes(ctx, r.coll, commentID, userID)
}

func (r *mongoCommentRepository) RemoveLike(ctx context.Context, commentID, userID string) error {
	return pullFromLikes(ctx, r.coll, commentID, userID)
}
