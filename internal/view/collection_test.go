package view

import (
	"fmt"
	"testing"

	"github.com/ashendes/store-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productKey(p models.Product) string { return p.ID }

func newProducts(n int, category func(i int) string) []models.Product {
	products := make([]models.Product, 0, n)
	for i := 0; i < n; i++ {
		products = append(products, models.Product{
			ID:       fmt.Sprintf("p-%02d", i),
			Name:     fmt.Sprintf("Item %02d", i),
			Category: category(i),
		})
	}
	return products
}

func TestPaginationOfTwentyThreeItems(t *testing.T) {
	c := New(productKey, Options[models.Product]{PageSize: 7, Matcher: ProductMatcher})
	c.SetSource(newProducts(23, func(int) string { return "Spices" }))

	require.Equal(t, 4, c.PageCount())
	c.SetPage(4)
	rows := c.VisibleRows()
	require.Len(t, rows, 2)
	assert.Equal(t, "p-21", rows[0].ID)
	assert.Equal(t, "p-22", rows[1].ID)

	// 22 items still need a fourth page
	require.True(t, c.Remove(rows[0].ID))
	assert.Equal(t, 4, c.PageCount())
	assert.Equal(t, 4, c.CurrentPage())
	assert.Len(t, c.VisibleRows(), 1)

	require.True(t, c.Remove(rows[1].ID))
	assert.Equal(t, 3, c.PageCount())
	assert.Equal(t, 3, c.CurrentPage())
	assert.Len(t, c.VisibleRows(), 7)
}

func TestPaginationClampsWhenFilteredSetShrinksOnReplace(t *testing.T) {
	c := New(productKey, Options[models.Product]{PageSize: 7, Matcher: ProductMatcher})
	c.SetSource(newProducts(8, func(int) string { return "Spices" }))
	c.Search("spices")
	c.SetPage(2)
	require.Equal(t, 2, c.CurrentPage())

	p, ok := c.Get("p-07")
	require.True(t, ok)
	p.Category = "Tea"
	p.Name = "Assam"
	require.True(t, c.Replace(p.ID, p))

	assert.Equal(t, 1, c.PageCount())
	assert.Equal(t, 1, c.CurrentPage())
}

func TestSearchMatchesNameOrCategoryCaseInsensitively(t *testing.T) {
	categories := []string{"Whole Spices", "Ground Masala", "Tea", "WHOLE SPICES blend"}
	c := New(productKey, Options[models.Product]{PageSize: 6, Matcher: ProductMatcher})
	c.SetSource(newProducts(12, func(i int) string { return categories[i%len(categories)] }))

	c.SetPage(2)
	c.Search("whole spices")
	assert.Equal(t, 1, c.CurrentPage(), "new search term resets the page")

	filtered := c.Filtered()
	require.Len(t, filtered, 6)
	for _, p := range filtered {
		assert.Contains(t, []string{"Whole Spices", "WHOLE SPICES blend"}, p.Category)
	}

	c.Search("item 1")
	assert.Equal(t, 2, c.FilteredCount(), "Item 10 and Item 11 match by name")

	c.Search("")
	assert.Equal(t, 12, c.FilteredCount())
}

func TestSearchTermAlwaysResetsPage(t *testing.T) {
	c := New(productKey, Options[models.Product]{PageSize: 2, Matcher: ProductMatcher})
	c.SetSource(newProducts(10, func(int) string { return "x" }))
	c.SetPage(5)
	require.Equal(t, 5, c.CurrentPage())

	c.Search("")
	assert.Equal(t, 1, c.CurrentPage())
}

func TestEmptyCollection(t *testing.T) {
	c := New(productKey, Options[models.Product]{PageSize: 7})
	assert.Equal(t, 0, c.PageCount())
	assert.Equal(t, 1, c.CurrentPage())
	assert.Empty(t, c.VisibleRows())

	c.SetPage(3)
	assert.Equal(t, 1, c.CurrentPage())
	c.SetPage(-2)
	assert.Equal(t, 1, c.CurrentPage())
}

func TestPageSnapshotSerials(t *testing.T) {
	c := New(productKey, Options[models.Product]{PageSize: 10})
	c.SetSource(newProducts(15, func(int) string { return "x" }))
	c.SetPage(2)

	page := c.Page()
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 2, page.PageCount)
	assert.Equal(t, 15, page.TotalCount)
	require.Len(t, page.Rows, 5)
	assert.Equal(t, 11, page.Rows[0].Serial)
	assert.Equal(t, 15, page.Rows[4].Serial)
}

func TestStatusPredicate(t *testing.T) {
	c := New(func(o models.Order) string { return o.ID }, Options[models.Order]{PageSize: 10})
	c.SetSource([]models.Order{
		{ID: "1", Status: models.OrderStatusPending},
		{ID: "2", Status: models.OrderStatusShipped},
		{ID: "3", Status: "in transit"},
	})
	c.SetPredicate(StatusPredicate("ship"))
	require.Equal(t, 1, c.FilteredCount())
	assert.Equal(t, "2", c.VisibleRows()[0].ID)

	c.SetPredicate(StatusPredicate(""))
	assert.Equal(t, 3, c.FilteredCount())
}

func TestReplaceAtIgnoresStaleGeneration(t *testing.T) {
	c := New(productKey, Options[models.Product]{PageSize: 7})
	c.SetSource(newProducts(2, func(int) string { return "Spices" }))

	_, gen, ok := c.GetAt("p-01")
	require.True(t, ok)
	assert.True(t, c.ReplaceAt(gen, "p-01", models.Product{ID: "p-01", Name: "Renamed"}))

	c.SetSource(newProducts(2, func(int) string { return "Spices" }))
	assert.NotEqual(t, gen, c.Generation())
	assert.False(t, c.ReplaceAt(gen, "p-01", models.Product{ID: "p-01", Name: "Stale"}))

	current, _ := c.Get("p-01")
	assert.Equal(t, "Item 01", current.Name)
}
