package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shop-api/internal/auth"
)

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM categories
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM categories
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, auth.ErrNotFound
		}
		return Category{}, fmt.Errorf("query category: %w", err)
	}

	return c, nil
}

func (r *Repository) Create(ctx context.Context, name string) (Category, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Category{}, fmt.Errorf("generate category id: %w", err)
	}

	now := time.Now().UTC()
	c := Category{ID: id.String(), Name: name, CreatedAt: now, UpdatedAt: now}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
	`, c.ID, c.Name, now)
	if err != nil {
		return Category{}, fmt.Errorf("insert category: %w", err)
	}

	return c, nil
}

func (r *Repository) Update(ctx context.Context, id, name string) (Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx, `
		UPDATE categories
		SET name = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, name, created_at, updated_at
	`, id, name, time.Now().UTC()).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, auth.ErrNotFound
		}
		return Category{}, fmt.Errorf("update category: %w", err)
	}

	return c, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows affected: %w", err)
	}
	if affected == 0 {
		return auth.ErrNotFound
	}

	return nil
}
