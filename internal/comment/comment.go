package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shop-api/internal/auth"
)

type Comment struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const commentColumns = `id, product_id, user_id, content, created_at, updated_at`

func scanComment(row interface{ Scan(...any) error }) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.ProductID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListByProduct returns a product's comments, optionally narrowed to one
// author. Newest first.
func (r *Repository) ListByProduct(ctx context.Context, productID, userID string) ([]Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE product_id = $1 AND ($2 = '' OR user_id::text = $2)
		ORDER BY created_at DESC
	`, productID, userID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

func (r *Repository) Create(ctx context.Context, productID, userID, content string) (Comment, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return Comment{}, fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return Comment{}, auth.ErrNotFound
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Comment{}, fmt.Errorf("generate comment id: %w", err)
	}

	now := time.Now().UTC()
	c := Comment{
		ID:        id.String(),
		ProductID: productID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO comments (id, product_id, user_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, c.ID, c.ProductID, c.UserID, c.Content, now)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}

	return c, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Comment{}, auth.ErrNotFound
		}
		return Comment{}, fmt.Errorf("query comment: %w", err)
	}

	return c, nil
}

func (r *Repository) UpdateContent(ctx context.Context, id, content string) (Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, `
		UPDATE comments
		SET content = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+commentColumns+`
	`, id, content, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Comment{}, auth.ErrNotFound
		}
		return Comment{}, fmt.Errorf("update comment: %w", err)
	}

	return c, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete comment rows affected: %w", err)
	}
	if affected == 0 {
		return auth.ErrNotFound
	}

	return nil
}
