package mutation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ashendes/store-console/internal/models"
	"github.com/ashendes/store-console/internal/notify"
	"github.com/ashendes/store-console/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reasonErr string

func (e reasonErr) Error() string  { return string(e) }
func (e reasonErr) Reason() string { return string(e) }

func newOrders(t *testing.T) (*view.Collection[models.Order], *notify.Feed, *Coordinator[models.Order]) {
	t.Helper()
	orders := view.New(models.Order.Key, view.Options[models.Order]{PageSize: 10})
	orders.SetSource([]models.Order{
		{ID: "o1", Status: models.OrderStatusPending, LineItems: []models.LineItem{{Name: "a", Quantity: 1}}},
		{ID: "o2", Status: models.OrderStatusShipped},
	})
	feed := notify.NewFeed(10)
	return orders, feed, New[models.Order](orders, feed, "order")
}

func setStatus(s models.OrderStatus) func(models.Order) (models.Order, error) {
	return func(o models.Order) (models.Order, error) {
		o.Status = s
		return o, nil
	}
}

func TestApplyShowsOptimisticStateThenServerState(t *testing.T) {
	orders, feed, c := newOrders(t)

	var seenDuringPersist models.OrderStatus
	out, err := c.Apply(context.Background(), "o1", setStatus(models.OrderStatusProcessing),
		func(context.Context) (models.Order, error) {
			current, _ := orders.Get("o1")
			seenDuringPersist = current.Status
			return models.Order{ID: "o1", Status: models.OrderStatusProcessing, PaymentMethod: "from-server"}, nil
		},
		WithMessages[models.Order]("Order status updated successfully!", "Error updating status:"),
	)
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, models.OrderStatusProcessing, seenDuringPersist)

	current, _ := orders.Get("o1")
	assert.Equal(t, "from-server", current.PaymentMethod, "server response is authoritative")
	assert.Equal(t, models.OrderStatusPending, out.Previous.Status)

	items := feed.Drain()
	require.Len(t, items, 1)
	assert.Equal(t, notify.KindSuccess, items[0].Kind)
}

func TestApplyFailureRestoresSnapshotAndNotifiesOnce(t *testing.T) {
	orders, feed, c := newOrders(t)
	before, _ := orders.Get("o1")

	_, err := c.Apply(context.Background(), "o1",
		func(o models.Order) (models.Order, error) {
			o.Status = models.OrderStatusProcessing
			o.LineItems[0].Name = "mutated"
			return o, nil
		},
		func(context.Context) (models.Order, error) { return models.Order{}, reasonErr("order is locked") },
		WithMessages[models.Order]("ok", "Error updating status:"),
	)
	require.Error(t, err)

	after, _ := orders.Get("o1")
	assert.Equal(t, before, after)
	assert.Equal(t, "a", after.LineItems[0].Name, "snapshot does not share line items with the mutated copy")

	items := feed.Drain()
	require.Len(t, items, 1)
	assert.Equal(t, notify.KindError, items[0].Kind)
	assert.Equal(t, "Error updating status: order is locked", items[0].Message)
}

func TestApplyGenericMessageWithoutReason(t *testing.T) {
	_, feed, c := newOrders(t)
	_, err := c.Apply(context.Background(), "o1", setStatus(models.OrderStatusProcessing),
		func(context.Context) (models.Order, error) { return models.Order{}, errors.New("dial tcp: refused") },
		WithMessages[models.Order]("ok", "Failed to update order status."),
	)
	require.Error(t, err)
	items := feed.Drain()
	require.Len(t, items, 1)
	assert.Equal(t, "Failed to update order status.", items[0].Message)
}

func TestApplyPartialResponseIsFailure(t *testing.T) {
	orders, feed, c := newOrders(t)
	_, err := c.Apply(context.Background(), "o1", setStatus(models.OrderStatusProcessing),
		func(context.Context) (models.Order, error) { return models.Order{}, nil },
		WithVerify(func(o models.Order) error {
			if o.ID == "" {
				return errors.New("missing id")
			}
			return nil
		}),
	)
	require.Error(t, err)
	current, _ := orders.Get("o1")
	assert.Equal(t, models.OrderStatusPending, current.Status)
	assert.Len(t, feed.Drain(), 1)
}

func TestApplyRejectsConcurrentMutationOnSameEntity(t *testing.T) {
	orders, _, c := newOrders(t)

	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.Apply(context.Background(), "o1", setStatus(models.OrderStatusProcessing),
			func(context.Context) (models.Order, error) {
				atomic.AddInt32(&calls, 1)
				close(started)
				<-release
				return models.Order{ID: "o1", Status: models.OrderStatusProcessing}, nil
			})
	}()
	<-started
	require.True(t, c.InFlight("o1"))

	_, err := c.Apply(context.Background(), "o1", setStatus(models.OrderStatusShipped),
		func(context.Context) (models.Order, error) {
			atomic.AddInt32(&calls, 1)
			return models.Order{ID: "o1", Status: models.OrderStatusShipped}, nil
		})
	require.ErrorIs(t, err, ErrInFlight)

	// a different entity is independent
	_, err = c.Apply(context.Background(), "o2", setStatus(models.OrderStatusDelivered),
		func(context.Context) (models.Order, error) {
			return models.Order{ID: "o2", Status: models.OrderStatusDelivered}, nil
		})
	require.NoError(t, err)

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	current, _ := orders.Get("o1")
	assert.Equal(t, models.OrderStatusProcessing, current.Status)
	assert.False(t, c.InFlight("o1"))
}

func TestApplyMutateErrorLeavesStoreUntouched(t *testing.T) {
	orders, feed, c := newOrders(t)
	invalid := errors.New("invalid")
	persisted := false
	_, err := c.Apply(context.Background(), "o1",
		func(models.Order) (models.Order, error) { return models.Order{}, invalid },
		func(context.Context) (models.Order, error) { persisted = true; return models.Order{}, nil },
	)
	require.ErrorIs(t, err, invalid)
	assert.False(t, persisted)
	current, _ := orders.Get("o1")
	assert.Equal(t, models.OrderStatusPending, current.Status)
	assert.Empty(t, feed.Drain())
}

func TestApplyUnknownEntity(t *testing.T) {
	_, _, c := newOrders(t)
	_, err := c.Apply(context.Background(), "missing", setStatus(models.OrderStatusProcessing),
		func(context.Context) (models.Order, error) { return models.Order{}, nil })
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveOnlyAfterConfirmation(t *testing.T) {
	orders, feed, c := newOrders(t)

	err := c.Remove(context.Background(), "o2", func(context.Context) error {
		_, still := orders.Get("o2")
		assert.True(t, still, "entity stays visible while the delete is outstanding")
		return reasonErr("in use")
	})
	require.Error(t, err)
	_, ok := orders.Get("o2")
	assert.True(t, ok)
	require.Len(t, feed.Drain(), 1)

	err = c.Remove(context.Background(), "o2", func(context.Context) error { return nil },
		WithMessages[models.Order]("Product deleted successfully!", "Failed to delete product."))
	require.NoError(t, err)
	_, ok = orders.Get("o2")
	assert.False(t, ok)
	items := feed.Drain()
	require.Len(t, items, 1)
	assert.Equal(t, "Product deleted successfully!", items[0].Message)
}

func TestFailedPersistKeepsReloadedEntry(t *testing.T) {
	orders, feed, c := newOrders(t)

	out, err := c.Apply(context.Background(), "o1", setStatus(models.OrderStatusProcessing),
		func(context.Context) (models.Order, error) {
			orders.SetSource([]models.Order{{ID: "o1", Status: models.OrderStatusShipped}})
			return models.Order{}, errors.New("connection reset")
		},
		WithMessages[models.Order]("ok", "Failed to update order status."),
		WithReasonPrefix[models.Order]("Error updating status"),
	)
	require.Error(t, err)

	current, _ := orders.Get("o1")
	assert.Equal(t, models.OrderStatusShipped, current.Status)
	assert.Equal(t, models.OrderStatusShipped, out.Current.Status)

	items := feed.Drain()
	require.Len(t, items, 1)
	assert.Equal(t, "Error updating status: Unknown error", items[0].Message)
}

func TestConfirmedPersistKeepsReloadedEntry(t *testing.T) {
	orders, _, c := newOrders(t)

	out, err := c.Apply(context.Background(), "o1", setStatus(models.OrderStatusProcessing),
		func(context.Context) (models.Order, error) {
			orders.SetSource([]models.Order{{ID: "o1", Status: models.OrderStatusShipped}})
			return models.Order{ID: "o1", Status: models.OrderStatusProcessing}, nil
		})
	require.NoError(t, err)
	assert.True(t, out.Applied)

	current, _ := orders.Get("o1")
	assert.Equal(t, models.OrderStatusShipped, current.Status)
}

func TestApplyRefusedWhenReloadedBeforeShown(t *testing.T) {
	orders, _, c := newOrders(t)
	persisted := false

	_, err := c.Apply(context.Background(), "o1",
		func(o models.Order) (models.Order, error) {
			orders.SetSource([]models.Order{{ID: "o1", Status: models.OrderStatusPending}})
			o.Status = models.OrderStatusProcessing
			return o, nil
		},
		func(context.Context) (models.Order, error) { persisted = true; return models.Order{}, nil },
	)
	require.ErrorIs(t, err, ErrReloaded)
	assert.False(t, persisted)
	current, _ := orders.Get("o1")
	assert.Equal(t, models.OrderStatusPending, current.Status)
}

func TestIncompleteResponseUsesGenericMessage(t *testing.T) {
	_, feed, c := newOrders(t)
	_, err := c.Apply(context.Background(), "o1", setStatus(models.OrderStatusProcessing),
		func(context.Context) (models.Order, error) { return models.Order{}, nil },
		WithMessages[models.Order]("ok", "Failed to update order status."),
		WithReasonPrefix[models.Order]("Error updating status"),
		WithVerify(func(o models.Order) error {
			if o.ID == "" {
				return errors.New("missing id")
			}
			return nil
		}),
	)
	require.Error(t, err)
	assert.Equal(t, "Failed to update order status.", feed.Drain()[0].Message)
}

func TestReasonMessage(t *testing.T) {
	assert.Equal(t, "Error updating status: order is locked", ReasonMessage("Error updating status", reasonErr("order is locked")))
	assert.Equal(t, "Error updating status: Unknown error", ReasonMessage("Error updating status", errors.New("EOF")))
}
