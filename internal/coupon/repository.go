package coupon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shop-api/internal/auth"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByCode(ctx context.Context, code string) (Coupon, error) {
	var c Coupon
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, active
		FROM coupons
		WHERE code = $1
	`, code).Scan(&c.ID, &c.Code, &c.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Coupon{}, auth.ErrNotFound
		}
		return Coupon{}, fmt.Errorf("query coupon by code: %w", err)
	}

	return c, nil
}

func (r *Repository) ConditionsByCoupon(ctx context.Context, couponID string) ([]Condition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, coupon_id, attribute, operator, value, discount_percent
		FROM coupon_conditions
		WHERE coupon_id = $1
		ORDER BY created_at ASC
	`, couponID)
	if err != nil {
		return nil, fmt.Errorf("query coupon conditions: %w", err)
	}
	defer rows.Close()

	conditions := make([]Condition, 0)
	for rows.Next() {
		var condition Condition
		if err := rows.Scan(&condition.ID, &condition.CouponID, &condition.Attribute,
			&condition.Operator, &condition.Value, &condition.DiscountPercent); err != nil {
			return nil, fmt.Errorf("scan coupon condition: %w", err)
		}
		conditions = append(conditions, condition)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon conditions: %w", err)
	}

	return conditions, nil
}
