package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashendes/store-console/internal/models"
	"github.com/shopspring/decimal"
)

// productSource tags product mismatches; products have a single upstream schema
const productSource models.SourceTag = "products"

type rawVariant struct {
	Quantity flexString       `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
}

type rawCategoryRef struct {
	MongoID  flexString `json:"_id"`
	ID       flexString `json:"id"`
	Category string     `json:"category"`
	Name     string     `json:"name"`
	Label    string     `json:"label"`
}

type rawProduct struct {
	MongoID     flexString       `json:"_id"`
	ID          flexString       `json:"id"`
	Name        string           `json:"name"`
	Category    json.RawMessage  `json:"category"`
	CategoryID  flexString       `json:"categoryId"`
	SnakeCatID  flexString       `json:"category_id"`
	Description string           `json:"description"`
	Details     string           `json:"details"`
	Stock       flexInt          `json:"stock"`
	Images      []*string        `json:"images"`
	Variants    json.RawMessage  `json:"variants"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    flexString       `json:"quantity"`
}

// ProductBatch is the result of normalizing a fetched product collection
type ProductBatch struct {
	Products []models.Product
	Rejected []*SchemaMismatch
}

// Excluded returns the number of records left out of Products
func (b ProductBatch) Excluded() int {
	return len(b.Rejected)
}

// NormalizeProducts maps every raw product, collecting failures
func NormalizeProducts(records []json.RawMessage) ProductBatch {
	batch := ProductBatch{Products: make([]models.Product, 0, len(records))}
	for i, raw := range records {
		product, err := NormalizeProduct(raw)
		if err != nil {
			sm, ok := err.(*SchemaMismatch)
			if !ok {
				sm = mismatch(productSource, "", "record", err.Error())
			}
			sm.Index = i
			batch.Rejected = append(batch.Rejected, sm)
			continue
		}
		batch.Products = append(batch.Products, product)
	}
	return batch
}

// NormalizeProduct maps a raw product carrying either a variant list or a single price
func NormalizeProduct(raw json.RawMessage) (models.Product, error) {
	var r rawProduct
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Product{}, mismatch(productSource, "", fieldOf(err), err.Error())
	}

	id := firstNonEmpty(string(r.MongoID), string(r.ID))
	if id == "" {
		return models.Product{}, mismatch(productSource, "", "id", "no identifier present")
	}
	if strings.TrimSpace(r.Name) == "" {
		return models.Product{}, mismatch(productSource, id, "name", "missing name")
	}
	if r.Stock.Value < 0 {
		return models.Product{}, mismatch(productSource, id, "stock", "negative stock")
	}

	product := models.Product{
		ID:          id,
		Name:        r.Name,
		CategoryID:  firstNonEmpty(string(r.CategoryID), string(r.SnakeCatID)),
		Description: r.Description,
		Details:     r.Details,
		Stock:       r.Stock.Value,
	}

	label, refID, err := categoryRef(r.Category)
	if err != nil {
		return models.Product{}, mismatch(productSource, id, "category", err.Error())
	}
	product.Category = label
	if product.CategoryID == "" {
		product.CategoryID = refID
	}

	for _, img := range r.Images {
		if img == nil || strings.TrimSpace(*img) == "" {
			continue
		}
		if len(product.Images) == models.MaxImages {
			break
		}
		product.Images = append(product.Images, *img)
	}

	variants, err := mapVariants(id, &r)
	if err != nil {
		return models.Product{}, err
	}
	product.Variants = variants
	return product, nil
}

func mapVariants(id string, r *rawProduct) ([]models.Variant, error) {
	list, err := decodeVariantList(r.Variants)
	if err != nil {
		return nil, mismatch(productSource, id, "variants", err.Error())
	}
	if len(list) == 0 {
		if r.Price == nil {
			return nil, mismatch(productSource, id, "price", "neither variants nor price present")
		}
		if !r.Price.IsPositive() {
			return nil, mismatch(productSource, id, "price", "price must be positive")
		}
		return []models.Variant{{Quantity: string(r.Quantity), Price: *r.Price}}, nil
	}

	variants := make([]models.Variant, 0, len(list))
	for i, v := range list {
		path := fmt.Sprintf("variants[%d].price", i)
		if v.Price == nil {
			return nil, mismatch(productSource, id, path, "missing variant price")
		}
		if !v.Price.IsPositive() {
			return nil, mismatch(productSource, id, path, "variant price must be positive")
		}
		variants = append(variants, models.Variant{Quantity: string(v.Quantity), Price: *v.Price})
	}
	return variants, nil
}

// decodeVariantList accepts an array or the JSON-encoded string the authoring form submits
func decodeVariantList(raw json.RawMessage) ([]rawVariant, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, err
		}
		if strings.TrimSpace(encoded) == "" {
			return nil, nil
		}
		raw = json.RawMessage(encoded)
	}
	var list []rawVariant
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// categoryRef accepts a bare label or a populated category document
func categoryRef(raw json.RawMessage) (label, id string, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", "", nil
	}
	if raw[0] == '"' {
		err = json.Unmarshal(raw, &label)
		return label, "", err
	}
	var ref rawCategoryRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", "", err
	}
	return firstNonEmpty(ref.Category, ref.Name, ref.Label), firstNonEmpty(string(ref.MongoID), string(ref.ID)), nil
}

// NormalizeCategories maps {_id, category} records and returns the number excluded
func NormalizeCategories(records []json.RawMessage) ([]models.Category, int) {
	categories := make([]models.Category, 0, len(records))
	excluded := 0
	for _, raw := range records {
		var ref rawCategoryRef
		if err := json.Unmarshal(raw, &ref); err != nil {
			excluded++
			continue
		}
		c := models.Category{
			ID:    firstNonEmpty(string(ref.MongoID), string(ref.ID)),
			Label: firstNonEmpty(ref.Category, ref.Label, ref.Name),
		}
		if c.ID == "" || c.Label == "" {
			excluded++
			continue
		}
		categories = append(categories, c)
	}
	return categories, excluded
}
