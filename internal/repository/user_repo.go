package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-content-dashboard/internal/metrics"
	"go-content-dashboard/internal/model"
)

const pgUniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// NewPostgres wires every store onto one pool.
func NewPostgres(pool *pgxpool.Pool) Set {
	return Set{
		Users:  NewUserRepository(pool),
		Posts:  NewPostRepository(pool),
		Events: NewCalendarRepository(pool),
		Audit:  NewAuditRepository(pool),
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	if !validID(id) {
		return model.User{}, fmt.Errorf("find user %q: %w", id, model.ErrUserNotFound)
	}
	defer metrics.ObserveStore(ctx, "users.find_by_id")()

	var u model.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at
		 FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("find user %q: %w", id, model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	defer metrics.ObserveStore(ctx, "users.find_by_email")()

	var u model.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at
		 FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email)).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("find user by email: %w", model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	defer metrics.ObserveStore(ctx, "users.create")()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user: %w", model.ErrEmailTaken)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// validID filters ids that would make postgres reject the uuid cast; such
// ids can never match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
