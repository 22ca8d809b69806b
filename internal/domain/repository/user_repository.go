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

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// FindByEmailOrUsername returns the first user matching either value.
	FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
	// List returns users newest first plus the total matching count.
	List(ctx context.Context, filter model.UserFilter) ([]model.User, int, error)
	// SearchByUsername returns users whose username contains q (case-insensitive), alphabetically.
	SearchByUsername(ctx context.Context, q string) ([]model.User, error)
	FindSummaries(ctx context.Context, ids []string) (map[string]model.AuthorSummary, error)
}

type userRow struct {
	ID             string    `db:"id"`
	Username       string    `db:"username"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	Bio            string    `db:"bio"`
	IsAdmin        bool      `db:"is_admin"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r userRow) toModel() model.User {
	return model.User{
		ID:             r.ID,
		Username:       r.Username,
		Email:          r.Email,
		HashedPassword: r.HashedPassword,
		Bio:            r.Bio,
		IsAdmin:        r.IsAdmin,
		CreatedAt:      r.CreatedAt,
	}
}

const selectUser = `SELECT id::text AS id, username, email, hashed_password, bio, is_admin, created_at FROM users`

type pgUserRepository struct {
	db *sqlx.DB
}

func NewPgUserRepository(db *sqlx.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, bio, is_admin, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := runner(ctx, r.db).ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.HashedPassword, user.Bio, user.IsAdmin, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) findOne(ctx context.Context, op, where string, args ...interface{}) (*model.User, error) {
	var row userRow
	err := runner(ctx, r.db).GetContext(ctx, &row, selectUser+" WHERE "+where+" LIMIT 1", args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	user := row.toModel()
	return &user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, common.ErrNotFound
	}
	return r.findOne(ctx, "FindByID", "id = $1", id)
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", "email = $1", email)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "FindByUsername", "username = $1", username)
}

func (r *pgUserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmailOrUsername", "email = $1 OR username = $2", email, username)
}

func (r *pgUserRepository) Update(ctx context.Context, user *model.User) error {
	if !validID(user.ID) {
		return common.ErrNotFound
	}
	query := `UPDATE users SET username = $1, email = $2, hashed_password = $3, bio = $4, is_admin = $5
	          WHERE id = $6`
	res, err := runner(ctx, r.db).ExecContext(ctx, query,
		user.Username, user.Email, user.HashedPassword, user.Bio, user.IsAdmin, user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("username or email already taken: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Update: %w", err)
	}
	return requireAffected(res, "pgUserRepository.Update")
}

func (r *pgUserRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrNotFound
	}
	res, err := runner(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.Delete: %w", err)
	}
	return requireAffected(res, "pgUserRepository.Delete")
}

func (r *pgUserRepository) List(ctx context.Context, filter model.UserFilter) ([]model.User, int, error) {
	where := ""
	var args []interface{}
	if filter.Search != "" {
		where = " WHERE (username ILIKE $1 OR email ILIKE $1)"
		args = append(args, containsPattern(filter.Search))
	}

	var total int
	if err := runner(ctx, r.db).GetContext(ctx, &total, `SELECT COUNT(*) FROM users`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List count: %w", err)
	}

	query := selectUser + where + fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	var rows []userRow
	if err := runner(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List query: %w", err)
	}
	return usersFromRows(rows), total, nil
}

func (r *pgUserRepository) SearchByUsername(ctx context.Context, q string) ([]model.User, error) {
	var rows []userRow
	query := selectUser + ` WHERE username ILIKE $1 ORDER BY username ASC`
	if err := runner(ctx, r.db).SelectContext(ctx, &rows, query, containsPattern(q)); err != nil {
		return nil, fmt.Errorf("pgUserRepository.SearchByUsername: %w", err)
	}
	return usersFromRows(rows), nil
}

func (r *pgUserRepository) FindSummaries(ctx context.Context, ids []string) (map[string]model.AuthorSummary, error) {
	summaries := make(map[string]model.AuthorSummary, len(ids))
	ids = validIDs(ids)
	if len(ids) == 0 {
		return summaries, nil
	}

	var rows []userRow
	query := `SELECT id::text AS id, username, bio FROM users WHERE id::text = ANY($1)`
	if err := runner(ctx, r.db).SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("pgUserRepository.FindSummaries: %w", err)
	}
	for _, row := range rows {
		summaries[row.ID] = model.AuthorSummary{ID: row.ID, Username: row.Username, Bio: row.Bio}
	}
	return summaries, nil
}

func usersFromRows(rows []userRow) []model.User {
	users := make([]model.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toModel())
	}
	return users
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
