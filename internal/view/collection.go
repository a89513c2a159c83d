// Package view provides search, filtering and pagination over an in-memory,
// already fetched collection. Nothing here talks to the network.
package view

import (
	"strings"
	"sync"
)

// Matcher reports whether item matches a lower-cased, non-empty search term
type Matcher[T any] func(item T, term string) bool

// Options configures a Collection
type Options[T any] struct {
	PageSize int
	Matcher  Matcher[T]
}

// Row is a visible item with its 1-based serial number across the filtered collection
type Row[T any] struct {
	Serial int `json:"serial"`
	Item   T   `json:"item"`
}

// Page is a snapshot of the current view state
type Page[T any] struct {
	Term          string   `json:"term"`
	CurrentPage   int      `json:"currentPage"`
	PageCount     int      `json:"pageCount"`
	PageSize      int      `json:"pageSize"`
	FilteredCount int      `json:"filteredCount"`
	TotalCount    int      `json:"totalCount"`
	Rows          []Row[T] `json:"rows"`
}

// Collection is a searchable, paginated view over a source collection.
// The filtered set is recomputed only when the term, the predicate or the
// source changes.
type Collection[T any] struct {
	mu        sync.RWMutex
	key       func(T) string
	pageSize  int
	matcher   Matcher[T]
	predicate func(T) bool
	term      string
	page      int
	source    []T
	filtered  []T
	// generation changes whenever SetSource replaces the whole collection
	generation uint64
}

// DefaultPageSize is used when Options.PageSize is not positive
const DefaultPageSize = 10

// New creates an empty collection keyed by key
func New[T any](key func(T) string, opts Options[T]) *Collection[T] {
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Collection[T]{
		key:      key,
		pageSize: size,
		matcher:  opts.Matcher,
		page:     1,
	}
}

// Search sets the search term and resets the view to the first page
func (c *Collection[T]) Search(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.term = strings.TrimSpace(term)
	c.page = 1
	c.recompute()
}

// SetPredicate installs an externally supplied filter; nil clears it.
// Like a new search term it resets the view to the first page.
func (c *Collection[T]) SetPredicate(predicate func(T) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.predicate = predicate
	c.page = 1
	c.recompute()
}

// SetSource replaces the underlying collection
func (c *Collection[T]) SetSource(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = append([]T(nil), items...)
	c.generation++
	c.recompute()
}

// Generation identifies the current source; it changes on every SetSource
func (c *Collection[T]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// SetPage moves to page n, clamped to the valid range
func (c *Collection[T]) SetPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = n
	c.clamp()
}

// CurrentPage returns the current 1-based page
func (c *Collection[T]) CurrentPage() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.page
}

// PageSize returns the fixed page size of this view
func (c *Collection[T]) PageSize() int {
	return c.pageSize
}

// Term returns the current search term
func (c *Collection[T]) Term() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.term
}

// PageCount returns ceil(filtered/pageSize); zero when nothing matches
func (c *Collection[T]) PageCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pageCount()
}

// FilteredCount returns the number of items matching the current filter
func (c *Collection[T]) FilteredCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.filtered)
}

// Len returns the size of the source collection
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.source)
}

// VisibleRows returns the current page slice of the filtered collection
func (c *Collection[T]) VisibleRows() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	start, end := c.bounds()
	return append([]T(nil), c.filtered[start:end]...)
}

// Filtered returns the whole filtered collection in source order
func (c *Collection[T]) Filtered() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.filtered...)
}

// All returns the source collection
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.source...)
}

// Page returns a snapshot of the current page with row serial numbers
func (c *Collection[T]) Page() Page[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	start, end := c.bounds()
	rows := make([]Row[T], 0, end-start)
	for i, item := range c.filtered[start:end] {
		rows = append(rows, Row[T]{Serial: start + i + 1, Item: item})
	}
	return Page[T]{
		Term:          c.term,
		CurrentPage:   c.page,
		PageCount:     c.pageCount(),
		PageSize:      c.pageSize,
		FilteredCount: len(c.filtered),
		TotalCount:    len(c.source),
		Rows:          rows,
	}
}

// Get returns the item with the given id
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.source {
		if c.key(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// GetAt returns the item with the given id together with the current generation
func (c *Collection[T]) GetAt(id string) (T, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.source {
		if c.key(item) == id {
			return item, c.generation, true
		}
	}
	var zero T
	return zero, c.generation, false
}

// Replace swaps the item with the given id in place, keeping its position
func (c *Collection[T]) Replace(id string, item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replace(id, item)
}

// ReplaceAt is Replace that only applies while the source is still at
// generation; after a SetSource it leaves the reloaded item alone
func (c *Collection[T]) ReplaceAt(generation uint64, id string, item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		return false
	}
	return c.replace(id, item)
}

func (c *Collection[T]) replace(id string, item T) bool {
	for i := range c.source {
		if c.key(c.source[i]) == id {
			c.source[i] = item
			c.recompute()
			return true
		}
	}
	return false
}

// Append adds an item at the end of the source collection
func (c *Collection[T]) Append(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = append(c.source, item)
	c.recompute()
}

// Remove deletes the item with the given id. The current page is clamped
// down if the filtered set shrinks below it.
func (c *Collection[T]) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.source {
		if c.key(c.source[i]) == id {
			c.source = append(c.source[:i:i], c.source[i+1:]...)
			c.recompute()
			return true
		}
	}
	return false
}

func (c *Collection[T]) recompute() {
	term := strings.ToLower(c.term)
	filtered := make([]T, 0, len(c.source))
	for _, item := range c.source {
		if c.predicate != nil && !c.predicate(item) {
			continue
		}
		if term != "" && c.matcher != nil && !c.matcher(item, term) {
			continue
		}
		filtered = append(filtered, item)
	}
	c.filtered = filtered
	c.clamp()
}

func (c *Collection[T]) pageCount() int {
	return (len(c.filtered) + c.pageSize - 1) / c.pageSize
}

func (c *Collection[T]) clamp() {
	last := c.pageCount()
	if last < 1 {
		last = 1
	}
	if c.page > last {
		c.page = last
	}
	if c.page < 1 {
		c.page = 1
	}
}

func (c *Collection[T]) bounds() (int, int) {
	start := (c.page - 1) * c.pageSize
	if start > len(c.filtered) {
		start = len(c.filtered)
	}
	end := start + c.pageSize
	if end > len(c.filtered) {
		end = len(c.filtered)
	}
	return start, end
}

// ContainsFold reports whether s contains the already lower-cased term
func ContainsFold(s, term string) bool {
	return strings.Contains(strings.ToLower(s), term)
}
