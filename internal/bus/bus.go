// Package bus delivers change events to in-process observers.
//
// Every subscriber owns a buffered queue drained by its own goroutine, so Publish
// never waits on a handler (only on a full queue) and each subscriber sees events
// in the order they were published.
package bus

import (
	"context"
	"edsync/internal/types"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultBufferSize = 64
	flushPollInterval = 2 * time.Millisecond
)

var ErrClosed = errors.New("bus closed")

// Handler receives one event. The context is the one passed to Subscribe.
type Handler func(ctx context.Context, evt types.ChangeEvent)

type Option func(*Bus)

// WithBufferSize sets the per-subscriber queue length.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufSize = n
		}
	}
}

type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscription
	nextID  uint64
	bufSize int
	closed  bool
	wg      sync.WaitGroup
	pending atomic.Int64
}

type subscription struct {
	id   uint64
	name string
	ctx  context.Context
	ch   chan types.ChangeEvent
	fn   Handler
	done chan struct{}
	once sync.Once

	pending *atomic.Int64
}

// Subscription is returned by Subscribe and cancels delivery when unsubscribed.
type Subscription struct {
	bus *Bus
	id  uint64
}

func New(opts ...Option) *Bus {
	b := &Bus{
		subs:    make(map[uint64]*subscription),
		bufSize: DefaultBufferSize,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Subscribe registers fn. name is only used in logs.
func (b *Bus) Subscribe(ctx context.Context, name string, fn Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return Subscription{}, ErrClosed
	}
	b.nextID++
	s := &subscription{
		id:   b.nextID,
		name: name,
		ctx:  ctx,
		ch:   make(chan types.ChangeEvent, b.bufSize),
		fn:      fn,
		done:    make(chan struct{}),
		pending: &b.pending,
	}
	b.subs[s.id] = s
	b.wg.Add(1)
	go s.loop(&b.wg)
	return Subscription{bus: b, id: s.id}, nil
}

// Unsubscribe stops delivery. Events already queued are still handled.
func (s Subscription) Unsubscribe() {
	if s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	sub, ok := s.bus.subs[s.id]
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
	if ok {
		sub.stop()
	}
}

// Publish queues evt for every current subscriber. It blocks only while a queue is full.
func (b *Bus) Publish(ctx context.Context, evt types.ChangeEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		b.pending.Add(1)
		select {
		case s.ch <- evt:
		case <-s.done:
			b.pending.Add(-1)
		case <-ctx.Done():
			b.pending.Add(-1)
			return ctx.Err()
		}
	}
	return nil
}

// Flush blocks until every event queued so far has been handled, or ctx is done.
func (b *Bus) Flush(ctx context.Context) error {
	if b.pending.Load() == 0 {
		return nil
	}
	t := time.NewTicker(flushPollInterval)
	defer t.Stop()
	for b.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// Len returns the number of active subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops accepting events, lets every subscriber drain its queue and waits for them.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[uint64]*subscription)
	b.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
	b.wg.Wait()
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) loop(wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case evt := <-s.ch:
			s.handle(evt)
		case <-s.done:
			for {
				select {
				case evt := <-s.ch:
					s.handle(evt)
				default:
					return
				}
			}
		}
	}
}

func (s *subscription) handle(evt types.ChangeEvent) {
	defer s.pending.Add(-1)
	defer func() {
		if rec := recover(); rec != nil {
			log.WithFields(log.Fields{
				"subscriber": s.name,
				"eventID":    evt.ID,
				"siteID":     evt.SiteID,
				"panic":      rec,
			}).Error("change event handler panicked")
		}
	}()
	s.fn(s.ctx, evt)
}
