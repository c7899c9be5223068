package flow

import (
	"context"
	"edsync/internal/ports"
	"edsync/internal/types"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Command asks the dispatcher to run the handler registered for Kind.
type Command struct {
	Kind                      types.ActionKind `json:"kind"`
	SiteID                    int64            `json:"site_id"`
	SkipNetworkIfCachePresent bool             `json:"skip_network_if_cache_present"`
}

type HandlerFunc func(ctx context.Context, cmd Command) error

// Dispatcher routes commands to handlers through an explicit kind -> handler table.
// Background commands run on a bounded worker pool.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[types.ActionKind]HandlerFunc
	workers  errgroup.Group
}

// NewDispatcher creates a dispatcher running at most workers background commands at once.
// workers <= 0 means no limit.
func NewDispatcher(workers int) *Dispatcher {
	d := &Dispatcher{handlers: make(map[types.ActionKind]HandlerFunc)}
	if workers > 0 {
		d.workers.SetLimit(workers)
	}
	return d
}

// Register installs fn for kind, replacing any previous handler.
func (d *Dispatcher) Register(kind types.ActionKind, fn HandlerFunc) {
	d.mu.Lock()
	d.handlers[kind] = fn
	d.mu.Unlock()
}

func (d *Dispatcher) handler(kind types.ActionKind) (HandlerFunc, error) {
	d.mu.RLock()
	fn, ok := d.handlers[kind]
	d.mu.RUnlock()
	if !ok {
		return nil, types.Err(types.ErrUnknownAction, nil, "%s", kind)
	}
	return fn, nil
}

// Dispatch runs the command on the caller's goroutine.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) error {
	fn, err := d.handler(cmd.Kind)
	if err != nil {
		return err
	}
	return fn(ctx, cmd)
}

// Go runs the command on the worker pool, blocking while the pool is full.
// The command keeps running if ctx is cancelled afterwards.
func (d *Dispatcher) Go(ctx context.Context, cmd Command) error {
	fn, err := d.handler(cmd.Kind)
	if err != nil {
		return err
	}
	bg := context.WithoutCancel(ctx)
	d.workers.Go(func() error {
		if err := fn(bg, cmd); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"kind":   cmd.Kind.String(),
				"siteID": cmd.SiteID,
			}).Error("background command failed")
		}
		return nil
	})
	return nil
}

// Wait blocks until every background command has finished.
func (d *Dispatcher) Wait() {
	_ = d.workers.Wait()
}

// NewFetchHandler returns the handler for types.FetchEditorSettings.
func NewFetchHandler(engine *Engine, sites ports.SiteDirectory) HandlerFunc {
	return func(ctx context.Context, cmd Command) error {
		site, err := sites.Site(cmd.SiteID)
		if err != nil {
			return err
		}
		engine.Reconcile(ctx, site, cmd.SkipNetworkIfCachePresent)
		return nil
	}
}

// RegisterHandlers installs every handler this package provides.
func RegisterHandlers(d *Dispatcher, engine *Engine, sites ports.SiteDirectory) {
	d.Register(types.FetchEditorSettings, NewFetchHandler(engine, sites))
}
