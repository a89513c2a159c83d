package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/mutation"
	"github.com/ashendes/store-console/internal/notify"
	"github.com/ashendes/store-console/internal/variants"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reasonErr string

func (e reasonErr) Error() string  { return string(e) }
func (e reasonErr) Reason() string { return string(e) }

type fakeStore struct {
	mu       sync.Mutex
	products []json.RawMessage
	persists int
	deletes  int
	persist  func(ctx context.Context, draft models.ProductDraft) (models.Product, error)
	delete   func(ctx context.Context, id string) error
}

func (f *fakeStore) FetchProducts(context.Context) ([]json.RawMessage, error) {
	return f.products, nil
}

func (f *fakeStore) FetchCategories(context.Context) ([]json.RawMessage, error) {
	return []json.RawMessage{
		json.RawMessage(`{"_id":"cat-whole","category":"Whole Spices"}`),
		json.RawMessage(`{"_id":"cat-blends","category":"Blends"}`),
		json.RawMessage(`{"category":"No id"}`),
	}, nil
}

func (f *fakeStore) PersistProduct(ctx context.Context, draft models.ProductDraft) (models.Product, error) {
	f.mu.Lock()
	f.persists++
	f.mu.Unlock()
	return f.persist(ctx, draft)
}

func (f *fakeStore) DeleteProduct(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deletes++
	f.mu.Unlock()
	return f.delete(ctx, id)
}

func productRecords(n int) []json.RawMessage {
	out := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		category := "Whole Spices"
		if i%3 == 0 {
			category = "Blends"
		}
		out = append(out, json.RawMessage(fmt.Sprintf(
			`{"_id":"p%d","name":"Spice %d","category":%q,"category_id":"cat","images":["/img/p%d.jpg"],"variants":[{"quantity":"100g","price":%d}]}`,
			i, i, category, i, 50+i)))
	}
	return out
}

func newCatalog(t *testing.T, n int) (*Catalog, *fakeStore, *notify.Feed) {
	t.Helper()
	store := &fakeStore{
		products: productRecords(n),
		persist: func(_ context.Context, draft models.ProductDraft) (models.Product, error) {
			p := draft.Product()
			if p.ID == "" {
				p.ID = "new-1"
			}
			for _, upload := range draft.Uploads() {
				p.Images = append(p.Images, "/uploads/"+upload.FileName)
			}
			return p, nil
		},
		delete: func(context.Context, string) error { return nil },
	}
	feed := notify.NewFeed(20)
	c := NewCatalog(store, feed, 7)
	_, err := c.Reload(context.Background())
	require.NoError(t, err)
	categories, err := c.ReloadCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	feed.Drain()
	return c, store, feed
}

func TestReloadSearchAndPaginate(t *testing.T) {
	c, _, _ := newCatalog(t, 23)

	products := c.View()
	assert.Equal(t, 4, products.PageCount())
	products.SetPage(4)
	assert.Len(t, products.VisibleRows(), 2)

	products.Search("blends")
	assert.Equal(t, 1, products.CurrentPage())
	assert.Equal(t, 8, products.FilteredCount())
	for _, p := range products.Filtered() {
		assert.Equal(t, "Blends", p.Category)
	}
}

func TestSubmitWithoutVariantsNeverCallsStore(t *testing.T) {
	c, store, feed := newCatalog(t, 1)

	d := c.NewDraft()
	require.NoError(t, d.SetFields(Fields{Name: "Turmeric", Stock: 5}))
	require.NoError(t, d.SelectCategory(c.Categories(), "whole spices"))

	_, err := c.Submit(context.Background(), d)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "variants", verr.Field)
	assert.Zero(t, store.persists)
	assert.Empty(t, feed.Drain())
}

func TestSubmitRequiresNameAndCategory(t *testing.T) {
	c, store, _ := newCatalog(t, 1)

	d := c.NewDraft()
	require.NoError(t, d.EditVariants(func(e *variants.Editor) error { return e.Add("500g", "199") }))
	_, err := c.Submit(context.Background(), d)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please fill in all required fields.", verr.Message)

	require.NoError(t, d.SetFields(Fields{Name: "Turmeric"}))
	err = d.SelectCategory(c.Categories(), "Herbs")
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, d.Snapshot().CategoryID)

	_, err = c.Submit(context.Background(), d)
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, store.persists)

	assert.ErrorAs(t, d.SetFields(Fields{Name: "x", Stock: -1}), &verr)
	assert.ErrorAs(t, d.SetImage(5, models.ImageSlot{URL: "x"}), &verr)
}

func TestSubmitCreateAppendsConfirmedProduct(t *testing.T) {
	c, store, feed := newCatalog(t, 3)

	d := c.NewDraft()
	require.NoError(t, d.SetFields(Fields{Name: "Turmeric", Details: "Erode", Stock: 5}))
	require.NoError(t, d.SelectCategory(c.Categories(), "Whole Spices"))
	require.NoError(t, d.SetImage(0, models.ImageSlot{Upload: &models.ImageUpload{FileName: "t.jpg", Data: []byte("x")}}))
	require.NoError(t, d.EditVariants(func(e *variants.Editor) error { return e.Add("250g", "120") }))

	product, err := c.Submit(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "new-1", product.ID)
	assert.Equal(t, "cat-whole", product.CategoryID)
	assert.Equal(t, []string{"/uploads/t.jpg"}, product.Images)
	assert.Equal(t, 1, store.persists)
	assert.Equal(t, 4, c.View().Len())

	items := feed.Drain()
	require.Len(t, items, 1)
	assert.Equal(t, "Product added successfully!", items[0].Message)

	_, err = c.Draft(d.Key())
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestSubmitCreateFailureKeepsDraft(t *testing.T) {
	c, store, feed := newCatalog(t, 1)
	store.persist = func(context.Context, models.ProductDraft) (models.Product, error) {
		return models.Product{}, reasonErr("Image too large")
	}

	d := c.NewDraft()
	require.NoError(t, d.SetFields(Fields{Name: "Turmeric"}))
	require.NoError(t, d.SelectCategory(c.Categories(), "Blends"))
	require.NoError(t, d.EditVariants(func(e *variants.Editor) error { return e.Add("250g", "120") }))

	_, err := c.Submit(context.Background(), d)
	require.Error(t, err)
	assert.Equal(t, 1, c.View().Len())
	items := feed.Drain()
	require.Len(t, items, 1)
	assert.Equal(t, "Failed to add product. Image too large", items[0].Message)

	_, err = c.Draft(d.Key())
	require.NoError(t, err)
}

func TestDraftFromPreloadsProduct(t *testing.T) {
	c, _, _ := newCatalog(t, 2)

	d, err := c.DraftFrom("p1")
	require.NoError(t, err)
	state := d.State()
	assert.Equal(t, "p1", state.Draft.ID)
	assert.Equal(t, "/img/p1.jpg", state.Draft.Images[0].URL)
	assert.True(t, state.Draft.Images[1].Empty())
	require.Len(t, state.Draft.Variants, 1)
	assert.Equal(t, variants.ModeAdd, state.Mode)

	_, err = c.DraftFrom("missing")
	require.ErrorIs(t, err, mutation.ErrNotFound)
}

func TestSubmitUpdateIsOptimisticAndRollsBack(t *testing.T) {
	c, store, feed := newCatalog(t, 2)

	var during models.Product
	store.persist = func(context.Context, models.ProductDraft) (models.Product, error) {
		during, _ = c.View().Get("p1")
		return models.Product{}, reasonErr("Category is archived")
	}

	d, err := c.DraftFrom("p1")
	require.NoError(t, err)
	require.NoError(t, d.SetFields(Fields{Name: "Renamed"}))
	require.NoError(t, d.SelectCategory(c.Categories(), "Blends"))

	_, err = c.Submit(context.Background(), d)
	require.Error(t, err)
	assert.Equal(t, "Renamed", during.Name)

	current, _ := c.View().Get("p1")
	assert.Equal(t, "Spice 1", current.Name)
	items := feed.Drain()
	require.Len(t, items, 1)
	assert.Equal(t, "Failed to update product. Category is archived", items[0].Message)

	store.persist = func(_ context.Context, draft models.ProductDraft) (models.Product, error) {
		p := draft.Product()
		p.Variants = append(p.Variants, models.Variant{Quantity: "1kg", Price: decimal.NewFromInt(700)})
		return p, nil
	}
	updated, err := c.Submit(context.Background(), d)
	require.NoError(t, err)
	assert.Len(t, updated.Variants, 2)
	current, _ = c.View().Get("p1")
	assert.Equal(t, "Renamed", current.Name)
	assert.Equal(t, "cat-blends", current.CategoryID)
	assert.Len(t, current.Variants, 2)
}

func TestDelete(t *testing.T) {
	c, store, feed := newCatalog(t, 8)
	ctx := context.Background()
	products := c.View()
	products.SetPage(2)

	require.ErrorIs(t, c.Delete(ctx, "p7", notify.Answer(false)), ErrDeclined)
	assert.Zero(t, store.deletes)

	store.delete = func(context.Context, string) error { return errors.New("timeout") }
	require.Error(t, c.Delete(ctx, "p7", notify.Answer(true)))
	_, ok := products.Get("p7")
	assert.True(t, ok)
	assert.Equal(t, "Failed to delete product.", feed.Drain()[0].Message)

	store.delete = func(context.Context, string) error { return nil }
	require.NoError(t, c.Delete(ctx, "p7", notify.Answer(true)))
	_, ok = products.Get("p7")
	assert.False(t, ok)
	assert.Equal(t, 1, products.CurrentPage())
	assert.Equal(t, "Product deleted successfully!", feed.Drain()[0].Message)

	require.ErrorIs(t, c.Delete(ctx, "p7", notify.Answer(true)), mutation.ErrNotFound)
}

func TestOverlappingSubmitsPersistOnce(t *testing.T) {
	c, store, _ := newCatalog(t, 3)
	started := make(chan struct{})
	release := make(chan struct{})
	store.persist = func(_ context.Context, draft models.ProductDraft) (models.Product, error) {
		close(started)
		<-release
		p := draft.Product()
		p.ID = "new-1"
		return p, nil
	}

	d := c.NewDraft()
	require.NoError(t, d.SetFields(Fields{Name: "Turmeric"}))
	require.NoError(t, d.SelectCategory(c.Categories(), "Blends"))
	require.NoError(t, d.EditVariants(func(e *variants.Editor) error { return e.Add("250g", "120") }))

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), d)
		done <- err
	}()
	<-started

	_, err := c.Submit(context.Background(), d)
	require.ErrorIs(t, err, mutation.ErrInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, store.persists)
	assert.Equal(t, 4, c.View().Len())
}

func TestReloadReportsExcludedProducts(t *testing.T) {
	c, store, feed := newCatalog(t, 2)
	store.products = append(store.products,
		json.RawMessage(`{"_id":"bad-1","name":"No price"}`),
		json.RawMessage(`{"_id":"bad-2","category":"Blends","price":5}`),
	)

	result, err := c.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Excluded)
	assert.Equal(t, 2, c.Excluded())
	assert.Equal(t, 2, c.View().Len())

	items := feed.Drain()
	require.Len(t, items, 1)
	assert.Equal(t, notify.KindError, items[0].Kind)
	assert.Equal(t, "2 product records could not be shown.", items[0].Message)
}
