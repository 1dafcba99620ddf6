package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-api/internal/auth"
)

type fakeRepo struct {
	coupons    map[string]Coupon
	conditions map[string][]Condition
}

func (r *fakeRepo) FindByCode(_ context.Context, code string) (Coupon, error) {
	c, ok := r.coupons[code]
	if !ok {
		return Coupon{}, auth.ErrNotFound
	}
	return c, nil
}

func (r *fakeRepo) ConditionsByCoupon(_ context.Context, couponID string) ([]Condition, error) {
	return r.conditions[couponID], nil
}

func TestCalculate_MinimumAmountDiscount(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{
		coupons: map[string]Coupon{"SAVE10": {ID: "c1", Code: "SAVE10", Active: true}},
		conditions: map[string][]Condition{
			"c1": {{Attribute: "minimum_amount", Operator: ">", Value: "100", DiscountPercent: 10}},
		},
	}
	service := NewService(repo)

	t.Run("above threshold gets the discount", func(t *testing.T) {
		result, err := service.Calculate(context.Background(), "SAVE10", 200)
		require.NoError(t, err)
		assert.InDelta(t, 180, result, 0.001)
	})

	t.Run("below threshold pays full price", func(t *testing.T) {
		result, err := service.Calculate(context.Background(), "SAVE10", 50)
		require.NoError(t, err)
		assert.InDelta(t, 50, result, 0.001)
	})
}

func TestCalculate_ConditionsStack(t *testing.T) {
	t.Parallel()

	today := time.Now().UTC().Format("2006-01-02")
	repo := &fakeRepo{
		coupons: map[string]Coupon{"STACK": {ID: "c2", Code: "STACK", Active: true}},
		conditions: map[string][]Condition{
			"c2": {
				{Attribute: "minimum_amount", Operator: ">", Value: "100", DiscountPercent: 10},
				{Attribute: "applicable_date", Operator: "BETWEEN", Value: today, DiscountPercent: 5},
			},
		},
	}
	service := NewService(repo)

	// 200 -> -10% = 180 -> -5% = 171; the second cut applies to the
	// already discounted amount.
	result, err := service.Calculate(context.Background(), "STACK", 200)
	require.NoError(t, err)
	assert.InDelta(t, 171, result, 0.001)
}

func TestCalculate_RejectsUnknownAndInactive(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{
		coupons: map[string]Coupon{"OLD": {ID: "c3", Code: "OLD", Active: false}},
	}
	service := NewService(repo)

	_, err := service.Calculate(context.Background(), "MISSING", 100)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	_, err = service.Calculate(context.Background(), "OLD", 100)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestCalculate_MalformedConditionIsIgnored(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{
		coupons: map[string]Coupon{"BAD": {ID: "c4", Code: "BAD", Active: true}},
		conditions: map[string][]Condition{
			"c4": {
				{Attribute: "minimum_amount", Operator: ">", Value: "not-a-number", DiscountPercent: 50},
				{Attribute: "unknown_attribute", Operator: ">", Value: "1", DiscountPercent: 50},
			},
		},
	}
	service := NewService(repo)

	result, err := service.Calculate(context.Background(), "BAD", 100)
	require.NoError(t, err)
	assert.InDelta(t, 100, result, 0.001)
}
