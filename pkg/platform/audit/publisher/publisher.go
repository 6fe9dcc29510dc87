package publisher

import (
	"context"
	"sync"

	audit "gemnet/pkg/platform/audit"
	"gemnet/pkg/platform/audit/worker"
)

// Publisher emits audit events to a backing store, synchronously by default.
// WithAsyncBuffer switches to a buffered channel drained by a background
// goroutine, for callers that must not block on the audit path.
type Publisher struct {
	store audit.Store

	inbox chan audit.Event
	wg    sync.WaitGroup
	once  sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// NewPublisher creates a publisher backed by the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}

	if p.inbox != nil {
		drain := worker.NewWorker(p.store, p.inbox)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			// Context is detached on purpose: an async event outlives
			// the request that produced it.
			_ = drain.Run(context.Background())
		}()
	}
	return p
}

// Emit records one event. In async mode a full buffer drops the event rather
// than blocking the caller; registration events are advisory, not fail-closed.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
	default:
	}
	return nil
}

// Close drains buffered events. Safe to call more than once.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}
