// Package lifecycle is the forward-only order status machine:
// Pending → Processing → Shipped → Delivered.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/notify"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrTerminal is returned for orders that reached Delivered
	ErrTerminal = errors.New("order is already delivered")
	// ErrNoTransition is returned for statuses outside the managed workflow
	ErrNoTransition = errors.New("no status action for this order")
	// ErrDeclined is returned when the operator does not confirm the change
	ErrDeclined = errors.New("status change not confirmed")
)

// transitions holds exactly one successor per managed state. Delivered has none.
var transitions = map[models.OrderStatus]models.OrderStatus{
	models.OrderStatusPending:    models.OrderStatusProcessing,
	models.OrderStatusProcessing: models.OrderStatusShipped,
	models.OrderStatusShipped:    models.OrderStatusDelivered,
}

// Next returns the single legal successor of status
func Next(status models.OrderStatus) (models.OrderStatus, bool) {
	next, ok := transitions[status]
	return next, ok
}

// IsTerminal reports whether status is the end of the workflow
func IsTerminal(status models.OrderStatus) bool {
	return status == models.OrderStatusDelivered
}

// Managed reports whether status belongs to the workflow at all
func Managed(status models.OrderStatus) bool {
	_, ok := transitions[status]
	return ok || IsTerminal(status)
}

// Action describes the status control rendered for an order
type Action struct {
	Visible  bool               `json:"visible"`
	Disabled bool               `json:"disabled"`
	Label    string             `json:"label,omitempty"`
	Next     models.OrderStatus `json:"next,omitempty"`
}

// ActionFor returns the control for status. Delivered shows a disabled
// control; foreign statuses show none.
func ActionFor(status models.OrderStatus) Action {
	if IsTerminal(status) {
		return Action{Visible: true, Disabled: true, Label: string(models.OrderStatusDelivered)}
	}
	next, ok := Next(status)
	if !ok {
		return Action{}
	}
	return Action{Visible: true, Label: "Mark as " + string(next), Next: next}
}

// ConfirmMessage is the question put to the operator before a transition
func ConfirmMessage(next models.OrderStatus) string {
	return fmt.Sprintf("Are you sure you want to change the order status to %q?", string(next))
}

// Dispatcher hands a confirmed transition to the mutation layer
type Dispatcher interface {
	Dispatch(ctx context.Context, orderID string, from, to models.OrderStatus) error
}

// DispatchFunc adapts a function to Dispatcher
type DispatchFunc func(ctx context.Context, orderID string, from, to models.OrderStatus) error

// Dispatch implements Dispatcher
func (f DispatchFunc) Dispatch(ctx context.Context, orderID string, from, to models.OrderStatus) error {
	return f(ctx, orderID, from, to)
}

// Machine gates every transition behind an operator confirmation. It never
// applies a status itself.
type Machine struct {
	dispatcher Dispatcher
}

// NewMachine creates a machine that dispatches confirmed transitions
func NewMachine(dispatcher Dispatcher) *Machine {
	return &Machine{dispatcher: dispatcher}
}

// RequestTransition computes the next status for current, asks confirm, and
// dispatches the single-step change. It returns the requested status.
func (m *Machine) RequestTransition(ctx context.Context, orderID string, current models.OrderStatus, confirm notify.Confirmer) (models.OrderStatus, error) {
	if IsTerminal(current) {
		return "", ErrTerminal
	}
	next, ok := Next(current)
	if !ok {
		return "", fmt.Errorf("%w: status %q", ErrNoTransition, current)
	}
	if confirm == nil || !confirm.Confirm(ctx, ConfirmMessage(next)) {
		log.WithFields(log.Fields{"order_id": orderID, "to": next}).Debug("Status change declined")
		return next, ErrDeclined
	}
	log.WithFields(log.Fields{
		"order_id": orderID,
		"from":     current,
		"to":       next,
	}).Info("Dispatching status change")
	if err := m.dispatcher.Dispatch(ctx, orderID, current, next); err != nil {
		return next, err
	}
	return next, nil
}
