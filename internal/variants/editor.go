// Package variants edits a product's ordered (quantity, price) list before submit.
package variants

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ashendes/store-console/internal/models"
	"github.com/shopspring/decimal"
)

// Mode is the editor's input mode
type Mode string

// Mode constants
const (
	ModeAdd    Mode = "add"
	ModeUpdate Mode = "update"
)

// ErrWrongMode is returned when an operation is not available in the current mode
var ErrWrongMode = errors.New("operation not available in the current editor mode")

// Buffer holds the quantity and price inputs as typed
type Buffer struct {
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
}

// Editor is an ordered, client-side list of variants. Duplicate quantity
// labels are allowed.
type Editor struct {
	variants []models.Variant
	buffer   Buffer
	mode     Mode
	editing  int
}

// NewEditor creates an editor preloaded with initial variants
func NewEditor(initial ...models.Variant) *Editor {
	return &Editor{
		variants: append([]models.Variant(nil), initial...),
		mode:     ModeAdd,
		editing:  -1,
	}
}

// ParseVariant validates a quantity label and a price typed by the operator
func ParseVariant(quantity, price string) (models.Variant, error) {
	quantity = strings.TrimSpace(quantity)
	if quantity == "" {
		return models.Variant{}, models.NewValidationError("quantity", "Please provide both valid quantity and price.")
	}
	p, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil || !p.IsPositive() {
		return models.Variant{}, models.NewValidationError("price", "Please provide both valid quantity and price.")
	}
	return models.Variant{Quantity: quantity, Price: p}, nil
}

// Add appends a variant. Unavailable while a variant is being edited.
func (e *Editor) Add(quantity, price string) error {
	if e.mode != ModeAdd {
		return ErrWrongMode
	}
	v, err := ParseVariant(quantity, price)
	if err != nil {
		return err
	}
	e.variants = append(e.variants, v)
	e.buffer = Buffer{}
	return nil
}

// Edit loads the variant at index into the buffer and enters update mode
func (e *Editor) Edit(index int) error {
	if err := e.check(index); err != nil {
		return err
	}
	v := e.variants[index]
	e.buffer = Buffer{Quantity: v.Quantity, Price: v.Price.String()}
	e.mode = ModeUpdate
	e.editing = index
	return nil
}

// SetBuffer replaces the input buffer
func (e *Editor) SetBuffer(quantity, price string) {
	e.buffer = Buffer{Quantity: quantity, Price: price}
}

// Buffer returns the input buffer
func (e *Editor) Buffer() Buffer {
	return e.buffer
}

// Save overwrites the variant being edited with the validated buffer and
// returns to add mode. On a validation error the editor stays in update mode.
func (e *Editor) Save() error {
	if e.mode != ModeUpdate {
		return ErrWrongMode
	}
	v, err := ParseVariant(e.buffer.Quantity, e.buffer.Price)
	if err != nil {
		return err
	}
	e.variants[e.editing] = v
	e.reset()
	return nil
}

// Cancel leaves update mode without changing the list
func (e *Editor) Cancel() {
	e.reset()
}

// Remove deletes the variant at index. Only valid in add mode.
func (e *Editor) Remove(index int) error {
	if e.mode != ModeAdd {
		return ErrWrongMode
	}
	if err := e.check(index); err != nil {
		return err
	}
	e.variants = append(e.variants[:index:index], e.variants[index+1:]...)
	return nil
}

// Variants returns a copy of the list in insertion order
func (e *Editor) Variants() []models.Variant {
	return append([]models.Variant(nil), e.variants...)
}

// Len returns the number of variants
func (e *Editor) Len() int {
	return len(e.variants)
}

// Mode returns the current mode
func (e *Editor) Mode() Mode {
	return e.mode
}

// Editing returns the index being edited, or -1
func (e *Editor) Editing() int {
	return e.editing
}

// Validate reports whether the list may be submitted with a product
func (e *Editor) Validate() error {
	if len(e.variants) == 0 {
		return models.NewValidationError("variants", "at least one quantity and price is required")
	}
	return nil
}

func (e *Editor) check(index int) error {
	if index < 0 || index >= len(e.variants) {
		return models.NewValidationError("variants", fmt.Sprintf("no variant at position %d", index))
	}
	return nil
}

func (e *Editor) reset() {
	e.buffer = Buffer{}
	e.mode = ModeAdd
	e.editing = -1
}
