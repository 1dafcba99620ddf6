package order

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
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

const orderColumns = `id, user_id, full_name, email, phone_number, address, note,
	order_date, status, total_money, shipping_method, shipping_address,
	shipping_date, payment_method, active`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.FullName, &o.Email, &o.PhoneNumber, &o.Address,
		&o.Note, &o.OrderDate, &o.Status, &o.TotalMoney, &o.ShippingMethod,
		&o.ShippingAddress, &o.ShippingDate, &o.PaymentMethod, &o.Active,
	)
	return o, err
}

// Create places an order: product prices are read inside the transaction,
// lines are priced from them, and the order plus its details commit together.
func (r *Repository) Create(ctx context.Context, userID string, input CreateInput, shippingDate time.Time) (Order, error) {
	orderID, err := uuid.NewV7()
	if err != nil {
		return Order{}, fmt.Errorf("generate order id: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback()

	prices := make(map[string]float64, len(input.CartItems))
	for _, item := range input.CartItems {
		if _, seen := prices[item.ProductID]; seen {
			continue
		}
		var price float64
		err := tx.QueryRowContext(ctx,
			`SELECT price FROM products WHERE id = $1`, item.ProductID).Scan(&price)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Order{}, fmt.Errorf("%w: %s", ErrProductUnknown, item.ProductID)
			}
			return Order{}, fmt.Errorf("query product price: %w", err)
		}
		prices[item.ProductID] = price
	}

	details, total, err := priceDetails(input.CartItems, prices)
	if err != nil {
		return Order{}, err
	}

	now := r.now().UTC()
	o := Order{
		ID:              orderID.String(),
		UserID:          userID,
		FullName:        input.FullName,
		Email:           input.Email,
		PhoneNumber:     input.PhoneNumber,
		Address:         input.Address,
		Note:            input.Note,
		OrderDate:       now,
		Status:          StatusPending,
		TotalMoney:      total,
		ShippingMethod:  input.ShippingMethod,
		ShippingAddress: input.ShippingAddress,
		ShippingDate:    shippingDate,
		PaymentMethod:   input.PaymentMethod,
		Active:          true,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, full_name, email, phone_number, address,
			note, order_date, status, total_money, shipping_method,
			shipping_address, shipping_date, payment_method, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, true)
	`, o.ID, o.UserID, o.FullName, o.Email, o.PhoneNumber, o.Address,
		o.Note, o.OrderDate, o.Status, o.TotalMoney, o.ShippingMethod,
		o.ShippingAddress, o.ShippingDate, o.PaymentMethod)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	for i := range details {
		detailID, err := uuid.NewV7()
		if err != nil {
			return Order{}, fmt.Errorf("generate order detail id: %w", err)
		}
		details[i].ID = detailID.String()
		details[i].OrderID = o.ID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_details (id, order_id, product_id, price,
				number_of_products, total_money)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, details[i].ID, o.ID, details[i].ProductID, details[i].Price,
			details[i].Quantity, details[i].TotalMoney)
		if err != nil {
			return Order{}, fmt.Errorf("insert order detail: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Order{}, fmt.Errorf("commit order tx: %w", err)
	}

	o.Details = details
	return o, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND active
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, auth.ErrNotFound
		}
		return Order{}, fmt.Errorf("query order: %w", err)
	}

	details, err := r.detailsByOrder(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Details = details

	return o, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1 AND active
		ORDER BY order_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id, status string) (Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $2
		WHERE id = $1 AND active
		RETURNING `+orderColumns+`
	`, id, status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, auth.ErrNotFound
		}
		return Order{}, fmt.Errorf("update order status: %w", err)
	}

	return o, nil
}

// SoftDelete hides the order from every read path without losing the rows.
func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET active = false WHERE id = $1 AND active
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete order rows affected: %w", err)
	}
	if affected == 0 {
		return auth.ErrNotFound
	}

	return nil
}

func (r *Repository) detailsByOrder(ctx context.Context, orderID string) ([]Detail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, price, number_of_products, total_money
		FROM order_details
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order details: %w", err)
	}
	defer rows.Close()

	details := make([]Detail, 0)
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.OrderID, &d.ProductID, &d.Price,
			&d.Quantity, &d.TotalMoney); err != nil {
			return nil, fmt.Errorf("scan order detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order details: %w", err)
	}

	return details, nil
}
