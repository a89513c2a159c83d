package normalize

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProductVariantList(t *testing.T) {
	raw := `{
		"_id": "p-1", "name": "Black Pepper", "category": "Whole Spices", "category_id": "c-2",
		"description": "Malabar", "stock": "40",
		"images": ["a.jpg", null, "b.jpg", "", "c.jpg", "d.jpg", "e.jpg"],
		"variants": [{"quantity": "100g", "price": 90}, {"quantity": "500g", "price": "399.50"}]
	}`
	p, err := NormalizeProduct(json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, "Whole Spices", p.Category)
	assert.Equal(t, "c-2", p.CategoryID)
	assert.Equal(t, 40, p.Stock)
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"}, p.Images)
	require.Len(t, p.Variants, 2)
	assert.Equal(t, "500g", p.Variants[1].Quantity)
	assert.True(t, p.Variants[1].Price.Equal(decimal.RequireFromString("399.5")))
}

func TestNormalizeProductSinglePrice(t *testing.T) {
	raw := `{"_id": "p-2", "name": "Saffron", "category": {"_id": "c-9", "category": "Premium"}, "price": 650, "quantity": "1g"}`
	p, err := NormalizeProduct(json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, "Premium", p.Category)
	assert.Equal(t, "c-9", p.CategoryID)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, "1g", p.Variants[0].Quantity)
	assert.True(t, p.Variants[0].Price.Equal(decimal.NewFromInt(650)))
}

func TestNormalizeProductVariantsAsEncodedString(t *testing.T) {
	raw := `{"_id": "p-3", "name": "Cumin", "category": "Seeds", "variants": "[{\"quantity\":\"250g\",\"price\":120}]"}`
	p, err := NormalizeProduct(json.RawMessage(raw))
	require.NoError(t, err)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, "250g", p.Variants[0].Quantity)
}

func TestNormalizeProductRejectsMissingVariantPrice(t *testing.T) {
	cases := map[string]struct {
		raw   string
		field string
	}{
		"variant price":  {`{"_id":"p","name":"x","variants":[{"quantity":"1kg"}]}`, "variants[0].price"},
		"zero price":     {`{"_id":"p","name":"x","variants":[{"quantity":"1kg","price":0}]}`, "variants[0].price"},
		"no price":       {`{"_id":"p","name":"x"}`, "price"},
		"name":           {`{"_id":"p","price":3}`, "name"},
		"negative stock": {`{"_id":"p","name":"x","price":3,"stock":-1}`, "stock"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeProduct(json.RawMessage(tc.raw))
			var sm *SchemaMismatch
			require.ErrorAs(t, err, &sm)
			assert.Equal(t, tc.field, sm.Field)
		})
	}
}

func TestNormalizeProductsBatch(t *testing.T) {
	batch := NormalizeProducts([]json.RawMessage{
		json.RawMessage(`{"_id":"a","name":"A","price":1}`),
		json.RawMessage(`{"_id":"b","name":"B"}`),
		json.RawMessage(`{"_id":"c","name":"C","variants":[{"quantity":"x","price":2}]}`),
	})
	assert.Len(t, batch.Products, 2)
	require.Equal(t, 1, batch.Excluded())
	assert.Equal(t, 1, batch.Rejected[0].Index)
	assert.Equal(t, "b", batch.Rejected[0].RecordID)
}

func TestNormalizeCategories(t *testing.T) {
	categories, excluded := NormalizeCategories([]json.RawMessage{
		json.RawMessage(`{"_id":"c1","category":"Whole Spices"}`),
		json.RawMessage(`{"id":"c2","label":"Blends"}`),
		json.RawMessage(`{"_id":"c3"}`),
	})
	assert.Equal(t, 1, excluded)
	require.Len(t, categories, 2)
	assert.Equal(t, "Whole Spices", categories[0].Label)
	assert.Equal(t, "c2", categories[1].ID)
}
