package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shop-api/internal/auth"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// categoryParam maps the optional category to its SQL value: the column is a
// nullable uuid and '' is not a valid uuid literal.
func categoryParam(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	var categoryID sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Thumbnail,
		&categoryID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.CategoryID = categoryID.String

	return p, nil
}

func (r *Repository) List(ctx context.Context, query ListQuery) ([]Product, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 || query.Limit > 100 {
		query.Limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price, description, thumbnail, category_id, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR category_id::text = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, query.Keyword, query.CategoryID, query.Limit, (query.Page-1)*query.Limit)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT id, name, price, description, thumbnail, category_id, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, auth.ErrNotFound
		}
		return Product{}, fmt.Errorf("query product: %w", err)
	}

	return p, nil
}

func (r *Repository) Create(ctx context.Context, input ProductInput) (Product, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Product{}, fmt.Errorf("generate product id: %w", err)
	}

	now := time.Now().UTC()
	p := Product{
		ID:          id.String(),
		Name:        input.Name,
		Price:       input.Price,
		Description: input.Description,
		Thumbnail:   input.Thumbnail,
		CategoryID:  input.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, description, thumbnail, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, p.ID, p.Name, p.Price, p.Description, p.Thumbnail, categoryParam(p.CategoryID), now)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}

	return p, nil
}

func (r *Repository) Update(ctx context.Context, id string, input ProductInput) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, price = $3, description = $4, thumbnail = $5, category_id = $6, updated_at = $7
		WHERE id = $1
		RETURNING id, name, price, description, thumbnail, category_id, created_at, updated_at
	`, id, input.Name, input.Price, input.Description, input.Thumbnail, categoryParam(input.CategoryID), time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, auth.ErrNotFound
		}
		return Product{}, fmt.Errorf("update product: %w", err)
	}

	return p, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product rows affected: %w", err)
	}
	if affected == 0 {
		return auth.ErrNotFound
	}

	return nil
}
