package order

import (
	"errors"
	"fmt"
	"time"
)

// Order statuses, advanced only by admins via UpdateStatus.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

var ErrProductUnknown = errors.New("order references an unknown product")

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	PhoneNumber     string    `json:"phone_number"`
	Address         string    `json:"address"`
	Note            string    `json:"note"`
	OrderDate       time.Time `json:"order_date"`
	Status          string    `json:"status"`
	TotalMoney      float64   `json:"total_money"`
	ShippingMethod  string    `json:"shipping_method"`
	ShippingAddress string    `json:"shipping_address"`
	ShippingDate    time.Time `json:"shipping_date"`
	PaymentMethod   string    `json:"payment_method"`
	Active          bool      `json:"active"`
	Details         []Detail  `json:"details,omitempty"`
}

// Detail is one priced line of an order. Price is captured at order time, so
// later product price changes never touch past orders.
type Detail struct {
	ID         string  `json:"id"`
	OrderID    string  `json:"order_id"`
	ProductID  string  `json:"product_id"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	TotalMoney float64 `json:"total_money"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateInput struct {
	FullName        string     `json:"full_name"`
	Email           string     `json:"email"`
	PhoneNumber     string     `json:"phone_number"`
	Address         string     `json:"address"`
	Note            string     `json:"note"`
	ShippingMethod  string     `json:"shipping_method"`
	ShippingAddress string     `json:"shipping_address"`
	ShippingDate    string     `json:"shipping_date"`
	PaymentMethod   string     `json:"payment_method"`
	CartItems       []CartItem `json:"cart_items"`
}

// priceDetails turns cart items into priced order lines using the given
// product prices. Every cart item must resolve to a known price.
func priceDetails(items []CartItem, prices map[string]float64) ([]Detail, float64, error) {
	details := make([]Detail, 0, len(items))
	var total float64
	for _, item := range items {
		price, ok := prices[item.ProductID]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrProductUnknown, item.ProductID)
		}

		lineTotal := price * float64(item.Quantity)
		details = append(details, Detail{
			ProductID:  item.ProductID,
			Price:      price,
			Quantity:   item.Quantity,
			TotalMoney: lineTotal,
		})
		total += lineTotal
	}

	return details, total, nil
}

// resolveShippingDate parses the requested date, defaulting to today and
// rejecting dates in the past. Dates compare by UTC calendar day.
func resolveShippingDate(requested string, now time.Time) (time.Time, error) {
	today := now.UTC().Truncate(24 * time.Hour)
	if requested == "" {
		return today, nil
	}

	date, err := time.Parse("2006-01-02", requested)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid shipping date: %w", err)
	}
	if date.Before(today) {
		return time.Time{}, errors.New("shipping date cannot be in the past")
	}

	return date, nil
}
