package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blogapi/internal/common"
	"blogapi/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	FindByID(ctx context.Context, id string) (*model.Comment, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	// ListByPost returns the comments of a post newest first plus their total count.
	ListByPost(ctx context.Context, postID string, limit, offset int) ([]model.Comment, int, error)
	DeleteByPost(ctx context.Context, postID string) (int64, error)
	DeleteByPosts(ctx context.Context, postIDs []string) (int64, error)
	DeleteByAuthor(ctx context.Context, authorID string) (int64, error)
	CountByAuthor(ctx context.Context, authorID string) (int, error)
	AddLike(ctx context.Context, commentID, userID string) error
	RemoveLike(ctx context.Context, commentID, userID string) error
}

type commentRow struct {
	ID        string         `db:"id"`
	PostID    string         `db:"post_id"`
	AuthorID  string         `db:"author_id"`
	Content   string         `db:"content"`
	Likes     pq.StringArray `db:"likes"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r commentRow) toModel() model.Comment {
	return model.Comment{
		ID:        r.ID,
		PostID:    r.PostID,
		AuthorID:  r.AuthorID,
		Content:   r.Content,
		Likes:     nonNil(r.Likes),
		CreatedAt: r.CreatedAt,
	}
}

const selectComment = `SELECT c.id::text AS id, c.post_id::text AS post_id, c.author_id::text AS author_id, c.content,
       COALESCE((SELECT array_agg(l.user_id::text ORDER BY l.created_at) FROM comment_likes l WHERE l.comment_id = c.id), '{}') AS likes,
       c.created_at
  FROM comments c`

type pgCommentRepository struct {
	db *sqlx.DB
}

func NewPgCommentRepository(db *sqlx.DB) CommentRepository {
	return &pgCommentRepository{db: db}
}

func (r *pgCommentRepository) Create(ctx context.Context, c *model.Comment) error {
	query := `INSERT INTO comments (id, post_id, author_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := runner(ctx, r.db).ExecContext(ctx, query, c.ID, c.PostID, c.AuthorID, c.Content, c.CreatedAt); err != nil {
		return fmt.Errorf("pgCommentRepository.Create: %w", err)
	}
	return nil
}

func (r *pgCommentRepository) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	if !validID(id) {
		return nil, common.ErrNotFound
	}
	var row commentRow
	if err := runner(ctx, r.db).GetContext(ctx, &row, selectComment+` WHERE c.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCommentRepository.FindByID: %w", err)
	}
	comment := row.toModel()
	return &comment, nil
}

func (r *pgCommentRepository) UpdateContent(ctx context.Context, id, content string) error {
	if !validID(id) {
		return common.ErrNotFound
	}
	res, err := runner(ctx, r.db).ExecContext(ctx, `UPDATE comments SET content = $1 WHERE id = $2`, content, id)
	if err != nil {
		return fmt.Errorf("pgCommentRepository.UpdateContent: %w", err)
	}
	return requireAffected(res, "pgCommentRepository.UpdateContent")
}

func (r *pgCommentRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrNotFound
	}
	res, err := runner(ctx, r.db).ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgCommentRepository.Delete: %w", err)
	}
	return requireAffected(res, "pgCommentRepository.Delete")
}

func (r *pgCommentRepository) ListByPost(ctx context.Context, postID string, limit, offset int) ([]model.Comment, int, error) {
	if !validID(postID) {
		return []model.Comment{}, 0, nil
	}
	var total int
	if err := runner(ctx, r.db).GetContext(ctx, &total, `SELECT COUNT(*) FROM comments WHERE post_id = $1`, postID); err != nil {
		return nil, 0, fmt.Errorf("pgCommentRepository.ListByPost count: %w", err)
	}

	var rows []commentRow
	query := selectComment + ` WHERE c.post_id = $1 ORDER BY c.created_at DESC, c.id DESC LIMIT $2 OFFSET $3`
	if err := runner(ctx, r.db).SelectContext(ctx, &rows, query, postID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("pgCommentRepository.ListByPost query: %w", err)
	}
	comments := make([]model.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.toModel())
	}
	return comments, total, nil
}

func (r *pgCommentRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	return r.DeleteByPosts(ctx, []string{postID})
}

func (r *pgCommentRepository) DeleteByPosts(ctx context.Context, postIDs []string) (int64, error) {
	postIDs = validIDs(postIDs)
	if len(postIDs) == 0 {
		return 0, nil
	}
	res, err := runner(ctx, r.db).ExecContext(ctx, `DELETE FROM comments WHERE post_id::text = ANY($1)`, pq.Array(postIDs))
	if err != nil {
		return 0, fmt.Errorf("pgCommentRepository.DeleteByPosts: %w", err)
	}
	return res.RowsAffected()
}

func (r *pgCommentRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	if !validID(authorID) {
		return 0, nil
	}
	res, err := runner(ctx, r.db).ExecContext(ctx, `DELETE FROM comments WHERE author_id = $1`, authorID)
	if err != nil {
		return 0, fmt.Errorf("pgCommentRepository.DeleteByAuthor: %w", err)
	}
	return res.RowsAffected()
}

func (r *pgCommentRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	if !validID(authorID) {
		return 0, nil
	}
	if err := runner(ctx, r.db).GetContext(ctx, &n, `SELECT COUNT(*) FROM comments WHERE author_id = $1`, authorID); err != nil {
		return 0, fmt.Errorf("pgCommentRepository.CountByAuthor: %w", err)
	}
	return n, nil
}

func (r *pgCommentRepository) AddLike(ctx context.Context, commentID, userID string) error {
	if !validID(commentID) || !validID(userID) {
		return common.ErrNotFound
	}
	_, err := runner(ctx, r.db).ExecContext(ctx,
		`INSERT INTO comment_likes (comment_id, user_id) VALUES ($1, $2)`, commentID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return common.ErrAlreadyLiked
			case pgForeignKeyViolation:
				return common.ErrNotFound
			}
		}
		return fmt.Errorf("pgCommentRepository.AddLike: %w", err)
	}
	return nil
}

func (r *pgCommentRepository) RemoveLike(ctx context.Context, commentID, userID string) error {
	if !validID(commentID) || !validID(userID) {
		return common.ErrNotLiked
	}
	res, err := runner(ctx, r.db).ExecContext(ctx,
		`DELETE FROM comment_likes WHERE comment_id = $1 AND user_id = $2`, commentID, userID)
	if err != nil {
		return fmt.Errorf("pgCommentRepository.RemoveLike: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotLiked
	}
	return nil
}
