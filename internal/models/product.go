package models

import (
	"github.com/shopspring/decimal"
)

// MaxImages is the number of image slots on a product
const MaxImages = 5

// Variant is a quantity label and its price
type Variant struct {
	Quantity string          `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Product represents a catalog product
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	CategoryID  string    `json:"categoryId,omitempty"`
	Description string    `json:"description,omitempty"`
	Details     string    `json:"details,omitempty"`
	Stock       int       `json:"stock"`
	Images      []string  `json:"images,omitempty"`
	Variants    []Variant `json:"variants"`
}

// Key returns the product identifier
func (p Product) Key() string {
	return p.ID
}

// Clone returns a copy that shares no slices with p
func (p Product) Clone() Product {
	c := p
	if p.Images != nil {
		c.Images = append([]string(nil), p.Images...)
	}
	if p.Variants != nil {
		c.Variants = append([]Variant(nil), p.Variants...)
	}
	return c
}

// Category is reference data used to resolve a product's category id
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ImageUpload is a file selected for upload into an image slot
type ImageUpload struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"-"`
}

// ImageSlot holds either a reference to an already stored image or a pending upload.
// A zero slot is empty.
type ImageSlot struct {
	URL    string       `json:"url,omitempty"`
	Upload *ImageUpload `json:"upload,omitempty"`
}

// Empty reports whether the slot holds nothing
func (s ImageSlot) Empty() bool {
	return s.URL == "" && s.Upload == nil
}

// ProductDraft is the authoring state submitted to create or update a product.
// An empty ID means create.
type ProductDraft struct {
	ID          string               `json:"id,omitempty"`
	Name        string               `json:"name"`
	Category    string               `json:"category"`
	CategoryID  string               `json:"categoryId"`
	Description string               `json:"description"`
	Details     string               `json:"details"`
	Stock       int                  `json:"stock"`
	Images      [MaxImages]ImageSlot `json:"images"`
	Variants    []Variant            `json:"variants"`
}

// Uploads returns the pending uploads in slot order
func (d ProductDraft) Uploads() []ImageUpload {
	var uploads []ImageUpload
	for _, slot := range d.Images {
		if slot.Upload != nil {
			uploads = append(uploads, *slot.Upload)
		}
	}
	return uploads
}

// Product returns the product the draft describes, keeping stored image references
func (d ProductDraft) Product() Product {
	p := Product{
		ID:          d.ID,
		Name:        d.Name,
		Category:    d.Category,
		CategoryID:  d.CategoryID,
		Description: d.Description,
		Details:     d.Details,
		Stock:       d.Stock,
		Variants:    append([]Variant(nil), d.Variants...),
	}
	for _, slot := range d.Images {
		if slot.URL != "" {
			p.Images = append(p.Images, slot.URL)
		}
	}
	return p
}
