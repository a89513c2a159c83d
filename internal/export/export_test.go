package export

import (
	"testing"
	"time"

	"github.com/ashendes/store-console/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestOrdersWorkbook(t *testing.T) {
	orders := []models.Order{
		{
			ID:           "ord-1",
			Number:       "SO-1",
			CustomerName: "Asha Menon",
			ShippingAddress: models.Address{
				Line1: "12 Spice Lane", City: "Kochi", State: "Kerala", PostalCode: "682001",
			},
			LineItems: []models.LineItem{
				{Name: "Pepper", Quantity: 2, UnitPrice: decimal.NewFromInt(90), Status: "Pending"},
			},
			Total:     decimal.NewFromInt(180),
			Status:    models.OrderStatusPending,
			CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{ID: "ord-2", Status: models.OrderStatusShipped, Total: decimal.RequireFromString("99.5")},
	}

	buf, err := Orders(models.SourceLegacyCart, orders)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"LegacyCart Orders"}, f.GetSheetList())
	rows, err := f.GetRows("LegacyCart Orders")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, orderHeaders, rows[0])
	assert.Equal(t, "ord-1", rows[1][1])
	assert.Equal(t, "12 Spice Lane, Kochi, Kerala, 682001", rows[1][6])
	assert.Equal(t, "Pepper x2 @ 90.00 [Pending]", rows[1][7])
	assert.Equal(t, "Pending", rows[1][10])
	assert.Equal(t, "2024-03-01 10:00", rows[1][11])
	assert.Equal(t, "Shipped", rows[2][10])

	raw, err := f.GetCellValue("LegacyCart Orders", "I3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "99.5", raw)
}

func TestProductsWorkbook(t *testing.T) {
	products := []models.Product{{
		ID:       "p-1",
		Name:     "Black Pepper",
		Category: "Whole Spices",
		Stock:    40,
		Images:   []string{"a.jpg", "b.jpg"},
		Variants: []models.Variant{
			{Quantity: "100g", Price: decimal.NewFromInt(90)},
			{Quantity: "500g", Price: decimal.RequireFromString("399.5")},
		},
	}}

	buf, err := Products(products)
	require.NoError(t, err)
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Products")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "Black Pepper", rows[1][2])
	assert.Equal(t, "40", rows[1][4])
	assert.Equal(t, "100g: 90.00, 500g: 399.50", rows[1][5])
	assert.Equal(t, "2", rows[1][6])
}

func TestEmptyWorkbookHasHeaderOnly(t *testing.T) {
	buf, err := Products(nil)
	require.NoError(t, err)
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Products")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "products.xlsx", FileName("Products"))
}
