package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store bundles the repositories of one storage driver.
type Store struct {
	Users    UserRepository
	Posts    PostRepository
	Comments CommentRepository
	Tx       Transactor
}

// Transactor runs fn atomically when the driver supports multi-statement transactions.
// Drivers without them run fn directly; a failure midway leaves earlier writes in place.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewPgStore(db *sqlx.DB) *Store {
	return &Store{
		Users:    NewPgUserRepository(db),
		Posts:    NewPgPostRepository(db),
		Comments: NewPgCommentRepository(db),
		Tx:       &pgTransactor{db: db},
	}
}

type txKey struct{}

// sqlRunner is the subset of *sqlx.DB and *sqlx.Tx the repositories use.
type sqlRunner interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// runner returns the transaction carried by ctx, or db when there is none.
func runner(ctx context.Context, db *sqlx.DB) sqlRunner {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

type pgTransactor struct {
	db *sqlx.DB
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx) // join the outer transaction
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// validID reports whether id can be a primary key; ids are UUIDs in every driver.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			out = append(out, id)
		}
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching q literally anywhere in the value.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)
