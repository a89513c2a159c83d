// Package mutation applies entity changes optimistically: the in-memory
// collection reflects the change at once, the change is persisted, and the
// entry is either replaced by the server's copy or restored to its snapshot.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ashendes/store-console/internal/metrics"
	"github.com/ashendes/store-console/internal/notify"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrInFlight is returned when a mutation on the same entity is still outstanding
	ErrInFlight = errors.New("a change to this record is already in progress")
	// ErrNotFound is returned when the entity is not in the collection
	ErrNotFound = errors.New("record not found")
	// ErrReloaded is returned when the collection was reloaded before the change could be shown
	ErrReloaded = errors.New("records were reloaded, try again")
)

// UnknownReason stands in for a failure the server gave no reason for
const UnknownReason = "Unknown error"

// Entity is a record the coordinator can snapshot and replace
type Entity[T any] interface {
	Key() string
	Clone() T
}

// Store is the in-memory collection the coordinator mutates. The generation
// changes whenever the whole collection is reloaded.
type Store[T any] interface {
	GetAt(id string) (T, uint64, bool)
	ReplaceAt(generation uint64, id string, item T) bool
	Remove(id string) bool
}

// Outcome describes a settled mutation
type Outcome[T any] struct {
	Previous T
	Current  T
	Applied  bool
}

type settings[T any] struct {
	success string
	failure string
	prefix  string
	verify  func(T) error
}

// Option customises a single Apply or Remove call
type Option[T any] func(*settings[T])

// WithMessages sets the success notification and the generic failure message
// used when the server gives no reason
func WithMessages[T any](success, failure string) Option[T] {
	return func(s *settings[T]) {
		s.success = success
		s.failure = failure
	}
}

// WithReasonPrefix reports failed persists as "prefix: reason", falling back
// to UnknownReason. Incomplete responses still use the generic failure message.
func WithReasonPrefix[T any](prefix string) Option[T] {
	return func(s *settings[T]) {
		s.prefix = prefix
	}
}

// WithVerify checks the server response; a verify error turns an HTTP
// success into a failed mutation
func WithVerify[T any](verify func(T) error) Option[T] {
	return func(s *settings[T]) {
		s.verify = verify
	}
}

// Reasoner is implemented by errors that carry a server-reported reason
type Reasoner interface {
	Reason() string
}

// Coordinator serialises mutations per entity and keeps the store consistent
// with either the old or the new value, never anything in between.
type Coordinator[T Entity[T]] struct {
	store    Store[T]
	notifier notify.Notifier
	entity   string

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a coordinator for one collection
func New[T Entity[T]](store Store[T], notifier notify.Notifier, entity string) *Coordinator[T] {
	return &Coordinator[T]{
		store:    store,
		notifier: notifier,
		entity:   entity,
		inFlight: make(map[string]struct{}),
	}
}

// InFlight reports whether a mutation on id is outstanding
func (c *Coordinator[T]) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inFlight[id]
	return busy
}

func (c *Coordinator[T]) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return false
	}
	c.inFlight[id] = struct{}{}
	return true
}

func (c *Coordinator[T]) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, id)
}

// Apply runs one optimistic mutation on id. mutate receives a private copy of
// the current entity and returns the prospective state, which is shown at
// once. persist is then called exactly once; its result replaces the
// prospective state on success, and the pre-mutation snapshot is restored on
// failure. Failed persists are not retried.
func (c *Coordinator[T]) Apply(ctx context.Context, id string, mutate func(T) (T, error), persist func(context.Context) (T, error), opts ...Option[T]) (Outcome[T], error) {
	cfg := c.settings(opts)

	if !c.acquire(id) {
		metrics.Mutations.WithLabelValues(c.entity, "rejected").Inc()
		log.WithFields(log.Fields{"entity": c.entity, "id": id}).Debug("Mutation rejected, another one is in flight")
		return Outcome[T]{}, ErrInFlight
	}
	defer c.release(id)

	snapshot, generation, ok := c.store.GetAt(id)
	if !ok {
		return Outcome[T]{}, ErrNotFound
	}
	snapshot = snapshot.Clone()

	prospective, err := mutate(snapshot.Clone())
	if err != nil {
		metrics.Mutations.WithLabelValues(c.entity, "rejected").Inc()
		return Outcome[T]{Previous: snapshot, Current: snapshot}, err
	}
	if !c.store.ReplaceAt(generation, id, prospective) {
		metrics.Mutations.WithLabelValues(c.entity, "rejected").Inc()
		return Outcome[T]{Previous: snapshot, Current: snapshot}, ErrReloaded
	}

	confirmed, err := persist(ctx)
	incomplete := false
	if err == nil && cfg.verify != nil {
		if verr := cfg.verify(confirmed); verr != nil {
			err = fmt.Errorf("incomplete response: %w", verr)
			incomplete = true
		}
	}
	if err != nil {
		current := snapshot
		fields := log.Fields{"entity": c.entity, "id": id}
		if c.store.ReplaceAt(generation, id, snapshot) {
			log.WithFields(fields).WithError(err).Warn("Mutation failed, restored previous state")
		} else {
			// reloaded meanwhile: the fetched copy is newer than the snapshot
			if reloaded, _, found := c.store.GetAt(id); found {
				current = reloaded
			}
			log.WithFields(fields).WithError(err).Warn("Mutation failed, keeping reloaded state")
		}
		metrics.Mutations.WithLabelValues(c.entity, "rolled_back").Inc()
		message := FailureMessage(cfg.failure, err)
		if cfg.prefix != "" && !incomplete {
			message = ReasonMessage(cfg.prefix, err)
		}
		c.notifier.Notify(notify.KindError, message)
		return Outcome[T]{Previous: snapshot, Current: current}, err
	}

	if !c.store.ReplaceAt(generation, id, confirmed) {
		log.WithFields(log.Fields{"entity": c.entity, "id": id}).Info("Collection reloaded during mutation, keeping reloaded state")
	}
	metrics.Mutations.WithLabelValues(c.entity, "applied").Inc()
	if cfg.success != "" {
		c.notifier.Notify(notify.KindSuccess, cfg.success)
	}
	return Outcome[T]{Previous: snapshot, Current: confirmed, Applied: true}, nil
}

// Remove deletes id from the store only after persist confirms the deletion
func (c *Coordinator[T]) Remove(ctx context.Context, id string, persist func(context.Context) error, opts ...Option[T]) error {
	cfg := c.settings(opts)

	if !c.acquire(id) {
		metrics.Mutations.WithLabelValues(c.entity, "rejected").Inc()
		return ErrInFlight
	}
	defer c.release(id)

	if _, _, ok := c.store.GetAt(id); !ok {
		return ErrNotFound
	}

	if err := persist(ctx); err != nil {
		metrics.Mutations.WithLabelValues(c.entity, "rolled_back").Inc()
		log.WithFields(log.Fields{"entity": c.entity, "id": id}).WithError(err).Warn("Delete failed")
		c.notifier.Notify(notify.KindError, FailureMessage(cfg.failure, err))
		return err
	}

	c.store.Remove(id)
	metrics.Mutations.WithLabelValues(c.entity, "applied").Inc()
	if cfg.success != "" {
		c.notifier.Notify(notify.KindSuccess, cfg.success)
	}
	return nil
}

func (c *Coordinator[T]) settings(opts []Option[T]) settings[T] {
	cfg := settings[T]{failure: "The change could not be saved."}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// FailureMessage appends the server-reported reason of err, if any, to generic
func FailureMessage(generic string, err error) string {
	var r Reasoner
	if errors.As(err, &r) && r.Reason() != "" {
		return generic + " " + r.Reason()
	}
	return generic
}

// ReasonMessage formats err as "prefix: reason", using UnknownReason when
// the server gave none
func ReasonMessage(prefix string, err error) string {
	var r Reasoner
	if errors.As(err, &r) && r.Reason() != "" {
		return prefix + ": " + r.Reason()
	}
	return prefix + ": " + UnknownReason
}
