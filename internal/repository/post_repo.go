package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-content-dashboard/internal/metrics"
	"go-content-dashboard/internal/model"
)

const postColumns = `p.id, p.title, p.author_id, COALESCE(u.name, ''), p.status, p.date, p.views, p.created_at, p.updated_at`

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) List(ctx context.Context, filter model.PostFilter) ([]model.Post, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 3)
	argIdx := 1

	if authorID := strings.TrimSpace(filter.AuthorID); authorID != "" {
		if !validID(authorID) {
			return []model.Post{}, nil
		}
		where = append(where, fmt.Sprintf("p.author_id = $%d", argIdx))
		args = append(args, authorID)
		argIdx++
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("p.status = $%d", argIdx))
		args = append(args, string(filter.Status))
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	orderClause := "ORDER BY p.date DESC NULLS LAST, p.created_at DESC, p.id"
	if filter.ByViews {
		orderClause = "ORDER BY p.views DESC, p.created_at DESC, p.id"
	}

	limitClause := ""
	if filter.Limit > 0 {
		limitClause = fmt.Sprintf("LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	query := fmt.Sprintf(`SELECT %s FROM posts p LEFT JOIN users u ON u.id = p.author_id %s %s %s`,
		postColumns, whereClause, orderClause, limitClause)

	defer metrics.ObserveStore(ctx, "posts.list")()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (model.Post, error) {
	if !validID(id) {
		return model.Post{}, fmt.Errorf("find post %q: %w", id, model.ErrPostNotFound)
	}
	defer metrics.ObserveStore(ctx, "posts.find_by_id")()

	row := r.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts p LEFT JOIN users u ON u.id = p.author_id WHERE p.id = $1`, id)
	p, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Post{}, fmt.Errorf("find post %q: %w", id, model.ErrPostNotFound)
	}
	if err != nil {
		return model.Post{}, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

func (r *PostRepository) Create(ctx context.Context, p model.Post) error {
	defer metrics.ObserveStore(ctx, "posts.create")()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO posts (id, title, author_id, status, date, views, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Title, p.Author, string(p.Status), p.Date, p.Views, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// Update never touches author_id or created_at.
func (r *PostRepository) Update(ctx context.Context, p model.Post) error {
	defer metrics.ObserveStore(ctx, "posts.update")()

	tag, err := r.pool.Exec(ctx,
		`UPDATE posts SET title = $2, status = $3, date = $4, views = $5, updated_at = $6 WHERE id = $1`,
		p.ID, p.Title, string(p.Status), p.Date, p.Views, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update post %q: %w", p.ID, model.ErrPostNotFound)
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("delete post %q: %w", id, model.ErrPostNotFound)
	}
	defer metrics.ObserveStore(ctx, "posts.delete")()

	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete post %q: %w", id, model.ErrPostNotFound)
	}
	return nil
}

func scanPost(row pgx.Row) (model.Post, error) {
	var p model.Post
	var status string
	err := row.Scan(&p.ID, &p.Title, &p.Author, &p.AuthorName, &status, &p.Date, &p.Views, &p.CreatedAt, &p.UpdatedAt)
	p.Status = model.PostStatus(status)
	return p, err
}
