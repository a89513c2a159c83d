package variants

import (
	"testing"

	"github.com/ashendes/store-console/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddThenRemoveReturnsToEmpty(t *testing.T) {
	e := NewEditor()
	require.NoError(t, e.Add("500g", "199"))
	require.Equal(t, 1, e.Len())
	assert.True(t, e.Variants()[0].Price.Equal(decimal.NewFromInt(199)))

	require.NoError(t, e.Remove(0))
	assert.Empty(t, e.Variants())
	assert.Error(t, e.Validate())
}

func TestAddRejectsInvalidInput(t *testing.T) {
	e := NewEditor()
	for _, tc := range []struct{ qty, price string }{
		{"", "10"},
		{"  ", "10"},
		{"1kg", "0"},
		{"1kg", "-5"},
		{"1kg", "abc"},
		{"1kg", ""},
	} {
		err := e.Add(tc.qty, tc.price)
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr, "qty=%q price=%q", tc.qty, tc.price)
	}
	assert.Zero(t, e.Len())
}

func TestEditSaveOverwritesInPlace(t *testing.T) {
	e := NewEditor()
	require.NoError(t, e.Add("100g", "50"))
	require.NoError(t, e.Add("250g", "110"))
	require.NoError(t, e.Add("1kg", "400"))

	require.NoError(t, e.Edit(1))
	assert.Equal(t, ModeUpdate, e.Mode())
	assert.Equal(t, Buffer{Quantity: "250g", Price: "110"}, e.Buffer())

	assert.ErrorIs(t, e.Add("2kg", "700"), ErrWrongMode, "add is unavailable while editing")
	assert.ErrorIs(t, e.Remove(0), ErrWrongMode)

	e.SetBuffer("250g", "0")
	require.Error(t, e.Save(), "save re-validates")
	assert.Equal(t, ModeUpdate, e.Mode())

	e.SetBuffer("300g", "125.5")
	require.NoError(t, e.Save())
	assert.Equal(t, ModeAdd, e.Mode())
	assert.Equal(t, -1, e.Editing())

	got := e.Variants()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"100g", "300g", "1kg"}, []string{got[0].Quantity, got[1].Quantity, got[2].Quantity})
	assert.True(t, got[1].Price.Equal(decimal.RequireFromString("125.5")))
}

func TestCancelKeepsList(t *testing.T) {
	e := NewEditor(models.Variant{Quantity: "1kg", Price: decimal.NewFromInt(10)})
	require.NoError(t, e.Edit(0))
	e.SetBuffer("2kg", "20")
	e.Cancel()
	assert.Equal(t, ModeAdd, e.Mode())
	assert.Equal(t, "1kg", e.Variants()[0].Quantity)
	assert.ErrorIs(t, e.Save(), ErrWrongMode)
}

func TestDuplicateLabelsAreAllowed(t *testing.T) {
	e := NewEditor()
	require.NoError(t, e.Add("500g", "199"))
	require.NoError(t, e.Add("500g", "189"))
	assert.Equal(t, 2, e.Len())
	require.NoError(t, e.Validate())
}

func TestOutOfRangeIndex(t *testing.T) {
	e := NewEditor()
	assert.Error(t, e.Edit(0))
	assert.Error(t, e.Remove(3))
}
