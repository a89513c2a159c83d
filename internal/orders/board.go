// Package orders holds the order collections of every upstream source and
// applies status changes to them.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ashendes/store-console/internal/lifecycle"
	"github.com/ashendes/store-console/internal/metrics"
	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/mutation"
	"github.com/ashendes/store-console/internal/normalize"
	"github.com/ashendes/store-console/internal/notify"
	"github.com/ashendes/store-console/internal/view"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrReadOnlySource is returned for mutations on fulfillment orders
	ErrReadOnlySource = errors.New("orders from this source are read-only")
	// ErrStale is returned when the order changed after the action was offered
	ErrStale = errors.New("order status changed since it was displayed")
	// ErrUnknownSource is returned for a source the board does not hold
	ErrUnknownSource = errors.New("unknown order source")
	// ErrNoLineStatus is returned for orders whose items carry no status
	ErrNoLineStatus = errors.New("items of this order have no status of their own")
)

// Messages shown to the operator
const (
	msgStatusUpdated = "Order status updated successfully!"
	msgStatusFailed  = "Failed to update order status."
	msgStatusError   = "Error updating status"
	msgItemUpdated   = "Item status updated successfully!"
	msgItemFailed    = "Failed to update item status."
	msgItemError     = "Error updating item status"
	msgLoadFailed    = "Failed to load orders."
)

// Store is the part of the store API the board uses
type Store interface {
	FetchOrders(ctx context.Context, source models.SourceTag) ([]json.RawMessage, error)
	PersistOrderStatus(ctx context.Context, source models.SourceTag, id string, status models.OrderStatus) (models.Order, error)
	PersistOrderLineItems(ctx context.Context, source models.SourceTag, id string, items []models.LineItem) (models.Order, error)
}

// ReloadResult summarises one reload
type ReloadResult struct {
	Source   models.SourceTag            `json:"source"`
	Loaded   int                         `json:"loaded"`
	Excluded int                         `json:"excluded"`
	Rejected []*normalize.SchemaMismatch `json:"rejected,omitempty"`
	Warnings []normalize.TotalMismatch   `json:"warnings,omitempty"`
}

// Detail is a single order together with the status control it offers
type Detail struct {
	Order    models.Order     `json:"order"`
	Action   lifecycle.Action `json:"action"`
	ReadOnly bool             `json:"readOnly"`
	InFlight bool             `json:"inFlight"`
}

type sourceBoard struct {
	source      models.SourceTag
	view        *view.Collection[models.Order]
	coordinator *mutation.Coordinator[models.Order]
	excluded    atomic.Int64
}

// Board holds one collection per source
type Board struct {
	store    Store
	notifier notify.Notifier
	sources  map[models.SourceTag]*sourceBoard
}

// NewBoard creates empty collections for every known source, each with its
// own page size
func NewBoard(store Store, notifier notify.Notifier, pageSizes map[models.SourceTag]int) *Board {
	b := &Board{
		store:    store,
		notifier: notifier,
		sources:  make(map[models.SourceTag]*sourceBoard, len(models.Sources)),
	}
	for _, source := range models.Sources {
		collection := view.New(models.Order.Key, view.Options[models.Order]{PageSize: pageSizes[source]})
		b.sources[source] = &sourceBoard{
			source:      source,
			view:        collection,
			coordinator: mutation.New[models.Order](collection, notifier, "order"),
		}
	}
	return b
}

func (b *Board) board(source models.SourceTag) (*sourceBoard, error) {
	sb, ok := b.sources[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	return sb, nil
}

// Reload fetches and normalizes the orders of source, replacing its collection.
// Records that fail normalization are excluded and counted.
func (b *Board) Reload(ctx context.Context, source models.SourceTag) (ReloadResult, error) {
	sb, err := b.board(source)
	if err != nil {
		return ReloadResult{}, err
	}

	records, err := b.store.FetchOrders(ctx, source)
	if err != nil {
		b.notifier.Notify(notify.KindError, mutation.FailureMessage(msgLoadFailed, err))
		return ReloadResult{}, fmt.Errorf("fetch %s orders: %w", source, err)
	}

	batch := normalize.NormalizeOrders(source, records)
	for _, rejected := range batch.Rejected {
		log.WithFields(log.Fields{
			"source":    source,
			"index":     rejected.Index,
			"record_id": rejected.RecordID,
			"field":     rejected.Field,
		}).Warn("Excluding order record: ", rejected.Reason)
	}
	for _, warning := range batch.Warnings {
		log.WithFields(log.Fields{
			"source":   source,
			"order_id": warning.OrderID,
		}).Warn(warning.String())
	}
	metrics.RecordsExcluded.WithLabelValues(string(source)).Add(float64(batch.Excluded()))
	metrics.TotalMismatches.WithLabelValues(string(source)).Add(float64(len(batch.Warnings)))

	sb.view.SetSource(batch.Orders)
	sb.excluded.Store(int64(batch.Excluded()))
	if batch.Excluded() > 0 {
		b.notifier.Notify(notify.KindError, normalize.ExcludedMessage(batch.Excluded(), string(source)+" order"))
	}

	log.WithFields(log.Fields{
		"source":   source,
		"loaded":   len(batch.Orders),
		"excluded": batch.Excluded(),
		"warnings": len(batch.Warnings),
	}).Info("Orders reloaded")

	return ReloadResult{
		Source:   source,
		Loaded:   len(batch.Orders),
		Excluded: batch.Excluded(),
		Rejected: batch.Rejected,
		Warnings: batch.Warnings,
	}, nil
}

// Excluded returns how many records of source the last reload could not show
func (b *Board) Excluded(source models.SourceTag) (int, error) {
	sb, err := b.board(source)
	if err != nil {
		return 0, err
	}
	return int(sb.excluded.Load()), nil
}

// View returns the collection of source
func (b *Board) View(source models.SourceTag) (*view.Collection[models.Order], error) {
	sb, err := b.board(source)
	if err != nil {
		return nil, err
	}
	return sb.view, nil
}

// FilterStatus narrows the collection of source to orders whose status
// contains status, case-insensitively; an empty status clears the filter
func (b *Board) FilterStatus(source models.SourceTag, status string) error {
	sb, err := b.board(source)
	if err != nil {
		return err
	}
	sb.view.SetPredicate(view.StatusPredicate(status))
	return nil
}

// Order returns one order with its status control
func (b *Board) Order(source models.SourceTag, id string) (Detail, error) {
	sb, err := b.board(source)
	if err != nil {
		return Detail{}, err
	}
	order, ok := sb.view.Get(id)
	if !ok {
		return Detail{}, mutation.ErrNotFound
	}
	detail := Detail{
		Order:    order,
		ReadOnly: source.ReadOnly(),
		InFlight: sb.coordinator.InFlight(id),
	}
	if !source.ReadOnly() {
		detail.Action = lifecycle.ActionFor(order.Status)
	}
	return detail, nil
}

// Advance moves order id one step forward once confirm agrees. The new
// status is shown immediately and rolled back if the store refuses it.
func (b *Board) Advance(ctx context.Context, source models.SourceTag, id string, confirm notify.Confirmer) (models.Order, error) {
	sb, err := b.board(source)
	if err != nil {
		return models.Order{}, err
	}
	if source.ReadOnly() {
		return models.Order{}, ErrReadOnlySource
	}
	current, ok := sb.view.Get(id)
	if !ok {
		return models.Order{}, mutation.ErrNotFound
	}

	machine := lifecycle.NewMachine(lifecycle.DispatchFunc(func(ctx context.Context, orderID string, from, to models.OrderStatus) error {
		_, err := sb.coordinator.Apply(ctx, orderID,
			func(o models.Order) (models.Order, error) {
				if o.Status != from {
					return o, fmt.Errorf("%w: now %q", ErrStale, o.Status)
				}
				o.Status = to
				return o, nil
			},
			func(ctx context.Context) (models.Order, error) {
				return b.store.PersistOrderStatus(ctx, source, orderID, to)
			},
			mutation.WithMessages[models.Order](msgStatusUpdated, msgStatusFailed),
			mutation.WithReasonPrefix[models.Order](msgStatusError),
			mutation.WithVerify(func(o models.Order) error {
				if o.ID != orderID {
					return fmt.Errorf("response is for order %q", o.ID)
				}
				if o.Status != to {
					return fmt.Errorf("store reports status %q", o.Status)
				}
				return nil
			}),
		)
		return err
	}))

	next, err := machine.RequestTransition(ctx, id, current.Status, confirm)
	if next != "" {
		metrics.StatusTransitions.WithLabelValues(string(next), transitionOutcome(err)).Inc()
	}
	if err != nil {
		return current, err
	}

	updated, _ := sb.view.Get(id)
	return updated, nil
}

func transitionOutcome(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, lifecycle.ErrDeclined):
		return "declined"
	case errors.Is(err, mutation.ErrInFlight), errors.Is(err, mutation.ErrReloaded), errors.Is(err, ErrStale):
		return "rejected"
	default:
		return "failed"
	}
}

// ItemConfirmMessage is the question put to the operator before an item status change
func ItemConfirmMessage(name string, status models.OrderStatus) string {
	return fmt.Sprintf("Are you sure you want to change the status of %q to %q?", name, string(status))
}

// SetLineItemStatus changes the status of one item of a cart order
func (b *Board) SetLineItemStatus(ctx context.Context, source models.SourceTag, id string, index int, status string, confirm notify.Confirmer) (models.Order, error) {
	sb, err := b.board(source)
	if err != nil {
		return models.Order{}, err
	}
	if source.ReadOnly() {
		return models.Order{}, ErrReadOnlySource
	}
	current, ok := sb.view.Get(id)
	if !ok {
		return models.Order{}, mutation.ErrNotFound
	}
	if !current.HasLineStatus() {
		return current, ErrNoLineStatus
	}
	if index < 0 || index >= len(current.LineItems) {
		return current, models.NewValidationError("index", fmt.Sprintf("order has no item %d", index))
	}
	target, ok := models.ParseOrderStatus(status)
	if !ok {
		return current, models.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	if confirm == nil || !confirm.Confirm(ctx, ItemConfirmMessage(current.LineItems[index].Name, target)) {
		return current, lifecycle.ErrDeclined
	}

	out, err := sb.coordinator.Apply(ctx, id,
		func(o models.Order) (models.Order, error) {
			if index >= len(o.LineItems) {
				return o, ErrStale
			}
			o.LineItems[index].Status = string(target)
			return o, nil
		},
		func(ctx context.Context) (models.Order, error) {
			latest, _ := sb.view.Get(id)
			return b.store.PersistOrderLineItems(ctx, source, id, latest.LineItems)
		},
		mutation.WithMessages[models.Order](msgItemUpdated, msgItemFailed),
		mutation.WithReasonPrefix[models.Order](msgItemError),
		mutation.WithVerify(func(o models.Order) error {
			if o.ID != id {
				return fmt.Errorf("response is for order %q", o.ID)
			}
			return nil
		}),
	)
	if err != nil {
		return out.Current, err
	}
	return out.Current, nil
}
