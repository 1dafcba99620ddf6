package coupon

import (
	"context"
	"strconv"
	"time"

	"shop-api/internal/auth"
)

// Condition attributes understood by the calculator.
const (
	attrMinimumAmount  = "minimum_amount"
	attrApplicableDate = "applicable_date"
)

type Coupon struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Active bool   `json:"active"`
}

// Condition is one rule attached to a coupon: when the attribute/operator
// pair holds for the order, DiscountPercent comes off the running total.
// Conditions stack in insertion order.
type Condition struct {
	ID              string
	CouponID        string
	Attribute       string
	Operator        string
	Value           string
	DiscountPercent float64
}

type ConditionSource interface {
	FindByCode(ctx context.Context, code string) (Coupon, error)
	ConditionsByCoupon(ctx context.Context, couponID string) ([]Condition, error)
}

type Service struct {
	repo ConditionSource
	now  func() time.Time
}

func NewService(repo ConditionSource) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Calculate applies the coupon's conditions to totalAmount and returns the
// discounted total. Unknown or inactive codes are ErrNotFound; a coupon
// whose conditions all fail simply leaves the amount unchanged.
func (s *Service) Calculate(ctx context.Context, code string, totalAmount float64) (float64, error) {
	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return 0, err
	}
	if !c.Active {
		return 0, auth.ErrNotFound
	}

	conditions, err := s.repo.ConditionsByCoupon(ctx, c.ID)
	if err != nil {
		return 0, err
	}

	amount := totalAmount
	for _, condition := range conditions {
		if s.conditionHolds(condition, totalAmount) {
			amount -= amount * condition.DiscountPercent / 100
		}
	}

	return amount, nil
}

func (s *Service) conditionHolds(condition Condition, totalAmount float64) bool {
	switch condition.Attribute {
	case attrMinimumAmount:
		threshold, err := strconv.ParseFloat(condition.Value, 64)
		if err != nil {
			return false
		}
		return condition.Operator == ">" && totalAmount > threshold
	case attrApplicableDate:
		date, err := time.Parse("2006-01-02", condition.Value)
		if err != nil {
			return false
		}
		today := s.now().UTC().Truncate(24 * time.Hour)
		return condition.Operator == "BETWEEN" && today.Equal(date.UTC().Truncate(24*time.Hour))
	default:
		return false
	}
}
