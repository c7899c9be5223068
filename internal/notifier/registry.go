// Package notifier fans out the "requested with invalid authentication" signal to weakly held listeners.
package notifier

import (
	"edsync/internal/ports"
	"edsync/internal/types"
	"fmt"
	"sync"
	"weak"

	log "github.com/sirupsen/logrus"
)

type handle interface {
	resolve() ports.InvalidAuthListener
}

type weakHandle[T any] struct{ ptr weak.Pointer[T] }

func (h weakHandle[T]) resolve() ports.InvalidAuthListener {
	p := h.ptr.Value()
	if p == nil {
		return nil
	}
	l, _ := any(p).(ports.InvalidAuthListener)
	return l
}

// ListenerPtr is satisfied by pointer listeners. The registry needs the pointer to hold it weakly.
type ListenerPtr[T any] interface {
	*T
	ports.InvalidAuthListener
}

// Registry holds listeners without keeping them alive. Entries whose listener was
// collected are swept on the next Notify.
// Listeners must not be zero-sized types: those share an address and cannot be told apart.
type Registry struct {
	mu        sync.Mutex
	listeners map[string]handle
}

func NewRegistry() *Registry {
	return &Registry{listeners: make(map[string]handle)}
}

// Add registers l under its identity, replacing any previous registration of the same listener.
func Add[T any, P ListenerPtr[T]](r *Registry, l P) {
	if l == nil {
		return
	}
	h := weakHandle[T]{ptr: weak.Make((*T)(l))}
	r.mu.Lock()
	r.listeners[identity(l)] = h
	r.mu.Unlock()
}

// Remove drops the registration of l. Removing an unknown listener is a no-op.
func Remove[T any, P ListenerPtr[T]](r *Registry, l P) {
	if l == nil {
		return
	}
	r.mu.Lock()
	delete(r.listeners, identity(l))
	r.mu.Unlock()
}

// Notify delivers site.URL to every live listener once. Listeners run outside the lock,
// so they may add or remove registrations themselves.
func (r *Registry) Notify(site types.Site) {
	for key, l := range r.sweep() {
		r.deliver(key, l, site.URL)
	}
}

// Len returns the number of registrations, dead or alive.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// sweep drops collected listeners and returns strong references to the live ones.
func (r *Registry) sweep() map[string]ports.InvalidAuthListener {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := make(map[string]ports.InvalidAuthListener, len(r.listeners))
	for key, h := range r.listeners {
		l := h.resolve()
		if l == nil {
			delete(r.listeners, key)
			continue
		}
		live[key] = l
	}
	return live
}

func (r *Registry) deliver(key string, l ports.InvalidAuthListener, siteURL string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithFields(log.Fields{
				"listener": key,
				"siteURL":  siteURL,
				"panic":    rec,
			}).Error("invalid auth listener panicked")
		}
	}()
	l.OnRequestedWithInvalidAuthentication(siteURL)
}

func identity(l any) string {
	return fmt.Sprintf("%T@%p", l, l)
}
