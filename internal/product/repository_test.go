package product

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryParam(t *testing.T) {
	t.Parallel()

	assert.Nil(t, categoryParam(""))
	assert.Equal(t, "0198f3a2-0000-7000-8000-000000000001", categoryParam("0198f3a2-0000-7000-8000-000000000001"))
}

type fakeRow struct {
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(r.values), len(dest))
	}
	for i, value := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = value.(string)
		case *float64:
			*d = value.(float64)
		case *sql.NullString:
			*d = value.(sql.NullString)
		case *time.Time:
			*d = value.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func TestScanProduct_NullCategory(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	p, err := scanProduct(fakeRow{values: []any{
		"p1", "green tea", 9.5, "loose leaf", "tea.png", sql.NullString{}, now, now,
	}})
	require.NoError(t, err)

	assert.Equal(t, "p1", p.ID)
	assert.Empty(t, p.CategoryID)
}

func TestScanProduct_PresentCategory(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	p, err := scanProduct(fakeRow{values: []any{
		"p2", "black tea", 7.0, "", "", sql.NullString{String: "c9", Valid: true}, now, now,
	}})
	require.NoError(t, err)

	assert.Equal(t, "c9", p.CategoryID)
}
