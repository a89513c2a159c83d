// Package notify holds the operator-facing notification and confirmation surfaces.
package notify

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Kind classifies a notification
type Kind string

// Kind constants
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notifier is a fire-and-forget toast surface
type Notifier interface {
	Notify(kind Kind, message string)
}

// Confirmer is a yes/no gate answered by the operator
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// Notification is a single toast
type Notification struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Feed buffers notifications until the UI drains them
type Feed struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

// NewFeed creates a feed that keeps at most limit undrained notifications
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 100
	}
	return &Feed{limit: limit}
}

// Notify appends a notification, dropping the oldest past the limit
func (f *Feed) Notify(kind Kind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, Notification{Kind: kind, Message: message, Timestamp: time.Now()})
	if len(f.items) > f.limit {
		f.items = f.items[len(f.items)-f.limit:]
	}
}

// Drain returns and clears the pending notifications
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.items
	f.items = nil
	return items
}

// Pending returns the pending notifications without clearing them
func (f *Feed) Pending() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.items...)
}

// LogNotifier mirrors notifications into the log before handing them on
type LogNotifier struct {
	Next Notifier
}

// Notify implements Notifier
func (n LogNotifier) Notify(kind Kind, message string) {
	entry := log.WithField("kind", string(kind))
	if kind == KindError {
		entry.Warn(message)
	} else {
		entry.Info(message)
	}
	if n.Next != nil {
		n.Next.Notify(kind, message)
	}
}

// Answer is a Confirmer with a fixed answer, used when the operator has
// already answered the dialog in the request that triggered the action
type Answer bool

// Confirm implements Confirmer
func (a Answer) Confirm(context.Context, string) bool {
	return bool(a)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, message string) bool

// Confirm implements Confirmer
func (f ConfirmFunc) Confirm(ctx context.Context, message string) bool {
	return f(ctx, message)
}
