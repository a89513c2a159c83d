package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/variants"
	"github.com/google/uuid"
)

// Fields are the free-form product inputs of a draft
type Fields struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Details     string `json:"details"`
	Stock       int    `json:"stock"`
}

// Draft is a product being authored. A draft without a product id creates a
// new product on submit.
type Draft struct {
	key string

	mu         sync.Mutex
	draft      models.ProductDraft
	editor     *variants.Editor
	submitting bool
}

func newDraft(product *models.Product) *Draft {
	d := &Draft{key: uuid.New().String()}
	if product == nil {
		d.editor = variants.NewEditor()
		return d
	}
	d.draft = models.ProductDraft{
		ID:          product.ID,
		Name:        product.Name,
		Category:    product.Category,
		CategoryID:  product.CategoryID,
		Description: product.Description,
		Details:     product.Details,
		Stock:       product.Stock,
	}
	for i, url := range product.Images {
		if i == models.MaxImages {
			break
		}
		d.draft.Images[i] = models.ImageSlot{URL: url}
	}
	d.editor = variants.NewEditor(product.Variants...)
	return d
}

func (d *Draft) beginSubmit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitting {
		return false
	}
	d.submitting = true
	return true
}

func (d *Draft) endSubmit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitting = false
}

// Key identifies the draft within the catalog
func (d *Draft) Key() string {
	return d.key
}

// ProductID returns the id of the product being edited, empty for a new product
func (d *Draft) ProductID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft.ID
}

// SetFields replaces the free-form inputs
func (d *Draft) SetFields(f Fields) error {
	if f.Stock < 0 {
		return models.NewValidationError("stock", "Stock cannot be negative.")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draft.Name = strings.TrimSpace(f.Name)
	d.draft.Description = f.Description
	d.draft.Details = f.Details
	d.draft.Stock = f.Stock
	return nil
}

// SelectCategory sets the category by its label and resolves its id from
// categories. An unknown label clears the selection.
func (d *Draft) SelectCategory(categories []models.Category, label string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	label = strings.TrimSpace(label)
	for _, c := range categories {
		if strings.EqualFold(c.Label, label) {
			d.draft.Category = c.Label
			d.draft.CategoryID = c.ID
			return nil
		}
	}
	d.draft.Category = ""
	d.draft.CategoryID = ""
	return models.NewValidationError("category", fmt.Sprintf("Unknown category %q.", label))
}

// SetImage fills image slot 0..4; a zero ImageSlot empties it
func (d *Draft) SetImage(slot int, image models.ImageSlot) error {
	if slot < 0 || slot >= models.MaxImages {
		return models.NewValidationError("images", fmt.Sprintf("Image slot must be between 1 and %d.", models.MaxImages))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draft.Images[slot] = image
	return nil
}

// EditVariants runs fn with exclusive access to the draft's variant editor
func (d *Draft) EditVariants(fn func(e *variants.Editor) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.editor)
}

// State is a read-only view of a draft
type State struct {
	Key     string              `json:"key"`
	Draft   models.ProductDraft `json:"draft"`
	Mode    variants.Mode       `json:"variantMode"`
	Editing int                 `json:"editingIndex"`
	Buffer  variants.Buffer     `json:"variantBuffer"`
}

// State returns a snapshot of the draft including the editor state
func (d *Draft) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		Key:     d.key,
		Draft:   d.snapshot(),
		Mode:    d.editor.Mode(),
		Editing: d.editor.Editing(),
		Buffer:  d.editor.Buffer(),
	}
}

// Snapshot returns the draft as it would be submitted
func (d *Draft) Snapshot() models.ProductDraft {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot()
}

func (d *Draft) snapshot() models.ProductDraft {
	out := d.draft
	out.Variants = d.editor.Variants()
	return out
}

// validate checks everything the store would otherwise reject
func (d *Draft) validate(categories []models.Category) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draft.Name == "" || d.draft.Category == "" {
		return models.NewValidationError("", "Please fill in all required fields.")
	}
	if d.draft.CategoryID == "" || !knownCategory(categories, d.draft.CategoryID) {
		return models.NewValidationError("category", "Please select a valid category.")
	}
	return d.editor.Validate()
}

func knownCategory(categories []models.Category, id string) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}
