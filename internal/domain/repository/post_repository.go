package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogapi/internal/common"
	"blogapi/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id string) (*model.Post, error)
	// Update overwrites the mutable fields: title, slug, content, tags, published, updated_at.
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
	// List returns posts newest first plus the total matching count.
	List(ctx context.Context, filter model.PostFilter) ([]model.Post, int, error)
	// Search returns published posts whose title or content contains q, newest first.
	Search(ctx context.Context, q string) ([]model.Post, error)
	ListIDsByAuthor(ctx context.Context, authorID string) ([]string, error)
	DeleteByAuthor(ctx context.Context, authorID string) (int64, error)
	CountByAuthor(ctx context.Context, authorID string) (int, error)
	// AddLike returns ErrAlreadyLiked when userID already likes the post.
	AddLike(ctx context.Context, postID, userID string) error
	// RemoveLike returns ErrNotLiked when userID does not like the post.
	RemoveLike(ctx context.Context, postID, userID string) error
}

type postRow struct {
	ID        string         `db:"id"`
	Title     string         `db:"title"`
	Slug      string         `db:"slug"`
	Content   string         `db:"content"`
	AuthorID  string         `db:"author_id"`
	Tags      pq.StringArray `db:"tags"`
	Likes     pq.StringArray `db:"likes"`
	Published bool           `db:"published"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r postRow) toModel() model.Post {
	return model.Post{
		ID:        r.ID,
		Title:     r.Title,
		Slug:      r.Slug,
		Content:   r.Content,
		AuthorID:  r.AuthorID,
		Tags:      nonNil(r.Tags),
		Likes:     nonNil(r.Likes),
		Published: r.Published,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const selectPost = `SELECT p.id::text AS id, p.title, p.slug, p.content, p.author_id::text AS author_id, p.tags,
       COALESCE((SELECT array_agg(l.user_id::text ORDER BY l.created_at) FROM post_likes l WHERE l.post_id = p.id), '{}') AS likes,
       p.published, p.created_at, p.updated_at
  FROM posts p`

type pgPostRepository struct {
	db *sqlx.DB
}

func NewPgPostRepository(db *sqlx.DB) PostRepository {
	return &pgPostRepository{db: db}
}

func (r *pgPostRepository) Create(ctx context.Context, p *model.Post) error {
	query := `INSERT INTO posts (id, title, slug, content, author_id, tags, published, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := runner(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.Title, p.Slug, p.Content, p.AuthorID, pq.Array(nonNil(p.Tags)), p.Published, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgPostRepository.Create: %w", err)
	}
	return nil
}

func (r *pgPostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if !validID(id) {
		return nil, common.ErrNotFound
	}
	var row postRow
	if err := runner(ctx, r.db).GetContext(ctx, &row, selectPost+` WHERE p.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgPostRepository.FindByID: %w", err)
	}
	post := row.toModel()
	return &post, nil
}

func (r *pgPostRepository) Update(ctx context.Context, p *model.Post) error {
	if !validID(p.ID) {
		return common.ErrNotFound
	}
	query := `UPDATE posts SET title = $1, slug = $2, content = $3, tags = $4, published = $5, updated_at = $6
	          WHERE id = $7`
	res, err := runner(ctx, r.db).ExecContext(ctx, query,
		p.Title, p.Slug, p.Content, pq.Array(nonNil(p.Tags)), p.Published, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("pgPostRepository.Update: %w", err)
	}
	return requireAffected(res, "pgPostRepository.Update")
}

func (r *pgPostRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrNotFound
	}
	res, err := runner(ctx, r.db).ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgPostRepository.Delete: %w", err)
	}
	return requireAffected(res, "pgPostRepository.Delete")
}

func (r *pgPostRepository) List(ctx context.Context, filter model.PostFilter) ([]model.Post, int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if filter.PublishedOnly {
		conditions = append(conditions, "p.published = TRUE")
	}
	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(p.tags)", argID))
		args = append(args, filter.Tag)
		argID++
	}
	if filter.AuthorID != "" {
		if !validID(filter.AuthorID) {
			return []model.Post{}, 0, nil
		}
		conditions = append(conditions, fmt.Sprintf("p.author_id = $%d", argID))
		args = append(args, filter.AuthorID)
		argID++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := runner(ctx, r.db).GetContext(ctx, &total, `SELECT COUNT(*) FROM posts p`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("pgPostRepository.List count: %w", err)
	}

	query := selectPost + where + fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, filter.Limit, filter.Offset)

	var rows []postRow
	if err := runner(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("pgPostRepository.List query: %w", err)
	}
	return postsFromRows(rows), total, nil
}

func (r *pgPostRepository) Search(ctx context.Context, q string) ([]model.Post, error) {
	query := selectPost + ` WHERE p.published = TRUE AND (p.title ILIKE $1 OR p.content ILIKE $1)
	 ORDER BY p.created_at DESC, p.id DESC`
	var rows []postRow
	if err := runner(ctx, r.db).SelectContext(ctx, &rows, query, containsPattern(q)); err != nil {
		return nil, fmt.Errorf("pgPostRepository.Search: %w", err)
	}
	return postsFromRows(rows), nil
}

func (r *pgPostRepository) ListIDsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	ids := []string{}
	if !validID(authorID) {
		return ids, nil
	}
	if err := runner(ctx, r.db).SelectContext(ctx, &ids, `SELECT id::text FROM posts WHERE author_id = $1`, authorID); err != nil {
		return nil, fmt.Errorf("pgPostRepository.ListIDsByAuthor: %w", err)
	}
	return ids, nil
}

func (r *pgPostRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	if !validID(authorID) {
		return 0, nil
	}
	res, err := runner(ctx, r.db).ExecContext(ctx, `DELETE FROM posts WHERE author_id = $1`, authorID)
	if err != nil {
		return 0, fmt.Errorf("pgPostRepository.DeleteByAuthor: %w", err)
	}
	return res.RowsAffected()
}

func (r *pgPostRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	if !validID(authorID) {
		return 0, nil
	}
	if err := runner(ctx, r.db).GetContext(ctx, &n, `SELECT COUNT(*) FROM posts WHERE author_id = $1`, authorID); err != nil {
		return 0, fmt.Errorf("pgPostRepository.CountByAuthor: %w", err)
	}
	return n, nil
}

func (r *pgPostRepository) AddLike(ctx context.Context, postID, userID string) error {
	if !validID(postID) || !validID(userID) {
		return common.ErrNotFound
	}
	_, err := runner(ctx, r.db).ExecContext(ctx,
		`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)`, postID, userID)
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
		return fmt.Errorf("pgPostRepository.AddLike: %w", err)
	}
	return nil
}

func (r *pgPostRepository) RemoveLike(ctx context.Context, postID, userID string) error {
	if !validID(postID) || !validID(userID) {
		return common.ErrNotLiked
	}
	res, err := runner(ctx, r.db).ExecContext(ctx,
		`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return fmt.Errorf("pgPostRepository.RemoveLike: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotLiked
	}
	return nil
}

func postsFromRows(rows []postRow) []model.Post {
	posts := make([]model.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toModel())
	}
	return posts
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
