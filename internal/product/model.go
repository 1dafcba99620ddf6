package product

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	CategoryID  string    `json:"category_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProductInput struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Thumbnail   string  `json:"thumbnail"`
	CategoryID  string  `json:"category_id"`
}

// ListQuery narrows and pages the listing endpoint.
type ListQuery struct {
	Keyword    string
	CategoryID string
	Page       int
	Limit      int
}
