// Package catalog holds the product collection, the category reference data
// and the product drafts being authored.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ashendes/store-console/internal/metrics"
	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/mutation"
	"github.com/ashendes/store-console/internal/normalize"
	"github.com/ashendes/store-console/internal/notify"
	"github.com/ashendes/store-console/internal/view"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrDeclined is returned when the operator does not confirm a delete
	ErrDeclined = errors.New("deletion not confirmed")
	// ErrDraftNotFound is returned for an unknown draft key
	ErrDraftNotFound = errors.New("draft not found")
)

// Messages shown to the operator
const (
	DeleteConfirmMessage = "Are you sure you want to delete this product?"

	msgAdded         = "Product added successfully!"
	msgAddFailed     = "Failed to add product."
	msgUpdated       = "Product updated successfully!"
	msgUpdateFailed  = "Failed to update product."
	msgDeleted       = "Product deleted successfully!"
	msgDeleteFailed  = "Failed to delete product."
	msgLoadFailed    = "Failed to load products."
	msgCategoryFail  = "Failed to load categories."
	productsSource   = "products"
	categoriesSource = "categories"
)

// Store is the part of the store API the catalog uses
type Store interface {
	FetchProducts(ctx context.Context) ([]json.RawMessage, error)
	FetchCategories(ctx context.Context) ([]json.RawMessage, error)
	PersistProduct(ctx context.Context, draft models.ProductDraft) (models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// ReloadResult summarises one product reload
type ReloadResult struct {
	Loaded   int                         `json:"loaded"`
	Excluded int                         `json:"excluded"`
	Rejected []*normalize.SchemaMismatch `json:"rejected,omitempty"`
}

// Catalog is the products board
type Catalog struct {
	store       Store
	notifier    notify.Notifier
	products    *view.Collection[models.Product]
	coordinator *mutation.Coordinator[models.Product]

	mu         sync.RWMutex
	categories []models.Category
	drafts     map[string]*Draft
	excluded   int
}

// NewCatalog creates an empty catalog whose view shows pageSize products per page
func NewCatalog(store Store, notifier notify.Notifier, pageSize int) *Catalog {
	products := view.New(models.Product.Key, view.Options[models.Product]{
		PageSize: pageSize,
		Matcher:  view.ProductMatcher,
	})
	return &Catalog{
		store:       store,
		notifier:    notifier,
		products:    products,
		coordinator: mutation.New[models.Product](products, notifier, "product"),
		drafts:      make(map[string]*Draft),
	}
}

// Reload fetches and normalizes the products, replacing the collection
func (c *Catalog) Reload(ctx context.Context) (ReloadResult, error) {
	records, err := c.store.FetchProducts(ctx)
	if err != nil {
		c.notifier.Notify(notify.KindError, mutation.FailureMessage(msgLoadFailed, err))
		return ReloadResult{}, fmt.Errorf("fetch products: %w", err)
	}
	batch := normalize.NormalizeProducts(records)
	for _, rejected := range batch.Rejected {
		log.WithFields(log.Fields{
			"index":     rejected.Index,
			"record_id": rejected.RecordID,
			"field":     rejected.Field,
		}).Warn("Excluding product record: ", rejected.Reason)
	}
	metrics.RecordsExcluded.WithLabelValues(productsSource).Add(float64(batch.Excluded()))
	c.products.SetSource(batch.Products)
	c.mu.Lock()
	c.excluded = batch.Excluded()
	c.mu.Unlock()
	if batch.Excluded() > 0 {
		c.notifier.Notify(notify.KindError, normalize.ExcludedMessage(batch.Excluded(), "product"))
	}

	log.WithFields(log.Fields{
		"loaded":   len(batch.Products),
		"excluded": batch.Excluded(),
	}).Info("Products reloaded")

	return ReloadResult{Loaded: len(batch.Products), Excluded: batch.Excluded(), Rejected: batch.Rejected}, nil
}

// ReloadCategories fetches the category reference data
func (c *Catalog) ReloadCategories(ctx context.Context) ([]models.Category, error) {
	records, err := c.store.FetchCategories(ctx)
	if err != nil {
		c.notifier.Notify(notify.KindError, mutation.FailureMessage(msgCategoryFail, err))
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	categories, excluded := normalize.NormalizeCategories(records)
	metrics.RecordsExcluded.WithLabelValues(categoriesSource).Add(float64(excluded))

	c.mu.Lock()
	c.categories = categories
	c.mu.Unlock()
	if excluded > 0 {
		c.notifier.Notify(notify.KindError, normalize.ExcludedMessage(excluded, "category"))
	}

	log.WithFields(log.Fields{
		"loaded":   len(categories),
		"excluded": excluded,
	}).Info("Categories reloaded")
	return append([]models.Category(nil), categories...), nil
}

// Categories returns the last fetched categories
func (c *Catalog) Categories() []models.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Category(nil), c.categories...)
}

// Excluded returns how many product records the last reload could not show
func (c *Catalog) Excluded() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.excluded
}

// View returns the product collection
func (c *Catalog) View() *view.Collection[models.Product] {
	return c.products
}

// NewDraft starts authoring a new product
func (c *Catalog) NewDraft() *Draft {
	d := newDraft(nil)
	c.mu.Lock()
	c.drafts[d.key] = d
	c.mu.Unlock()
	return d
}

// DraftFrom starts editing product id, preloading its images and variants
func (c *Catalog) DraftFrom(id string) (*Draft, error) {
	product, ok := c.products.Get(id)
	if !ok {
		return nil, mutation.ErrNotFound
	}
	if product.CategoryID == "" {
		for _, category := range c.Categories() {
			if strings.EqualFold(category.Label, product.Category) {
				product.CategoryID = category.ID
				break
			}
		}
	}
	d := newDraft(&product)
	c.mu.Lock()
	c.drafts[d.key] = d
	c.mu.Unlock()
	return d, nil
}

// Draft returns an open draft by key
func (c *Catalog) Draft(key string) (*Draft, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.drafts[key]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return d, nil
}

// Discard drops an open draft
func (c *Catalog) Discard(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.drafts, key)
}

// Submit validates the draft and sends it. Validation failures never reach
// the network. A new product is added to the collection once the store
// confirms it; an edit is applied optimistically and rolled back on failure.
// A draft already being submitted is refused with mutation.ErrInFlight.
func (c *Catalog) Submit(ctx context.Context, d *Draft) (models.Product, error) {
	if !d.beginSubmit() {
		metrics.Mutations.WithLabelValues("product", "rejected").Inc()
		return models.Product{}, mutation.ErrInFlight
	}
	defer d.endSubmit()

	if err := d.validate(c.Categories()); err != nil {
		return models.Product{}, err
	}
	draft := d.Snapshot()

	var (
		product models.Product
		err     error
	)
	if draft.ID == "" {
		product, err = c.create(ctx, draft)
	} else {
		product, err = c.update(ctx, draft)
	}
	if err != nil {
		return product, err
	}
	c.Discard(d.key)
	return product, nil
}

func (c *Catalog) create(ctx context.Context, draft models.ProductDraft) (models.Product, error) {
	product, err := c.store.PersistProduct(ctx, draft)
	if err == nil && product.ID == "" {
		err = errors.New("incomplete response: product has no id")
	}
	if err != nil {
		metrics.Mutations.WithLabelValues("product", "failed").Inc()
		log.WithField("name", draft.Name).WithError(err).Warn("Product create failed")
		c.notifier.Notify(notify.KindError, mutation.FailureMessage(msgAddFailed, err))
		return models.Product{}, err
	}
	c.products.Append(product)
	metrics.Mutations.WithLabelValues("product", "applied").Inc()
	log.WithField("product_id", product.ID).Info("Product created")
	c.notifier.Notify(notify.KindSuccess, msgAdded)
	return product, nil
}

func (c *Catalog) update(ctx context.Context, draft models.ProductDraft) (models.Product, error) {
	out, err := c.coordinator.Apply(ctx, draft.ID,
		func(current models.Product) (models.Product, error) {
			next := draft.Product()
			// pending uploads have no URL until the store answers
			if len(draft.Uploads()) > 0 {
				next.Images = current.Images
			}
			return next, nil
		},
		func(ctx context.Context) (models.Product, error) {
			return c.store.PersistProduct(ctx, draft)
		},
		mutation.WithMessages[models.Product](msgUpdated, msgUpdateFailed),
		mutation.WithVerify(func(p models.Product) error {
			if p.ID != draft.ID {
				return fmt.Errorf("response is for product %q", p.ID)
			}
			return nil
		}),
	)
	if err != nil {
		return out.Current, err
	}
	return out.Current, nil
}

// Delete removes product id once confirm agrees and the store confirms
func (c *Catalog) Delete(ctx context.Context, id string, confirm notify.Confirmer) error {
	if _, ok := c.products.Get(id); !ok {
		return mutation.ErrNotFound
	}
	if confirm == nil || !confirm.Confirm(ctx, DeleteConfirmMessage) {
		return ErrDeclined
	}
	return c.coordinator.Remove(ctx, id,
		func(ctx context.Context) error {
			return c.store.DeleteProduct(ctx, id)
		},
		mutation.WithMessages[models.Product](msgDeleted, msgDeleteFailed),
	)
}
