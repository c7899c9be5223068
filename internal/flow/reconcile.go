package flow

import (
	"context"
	"edsync/internal/metrics"
	"edsync/internal/ports"
	"edsync/internal/types"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Engine reconciles a site's cached editor settings with the remote ones and publishes
// a change event for every decision. It keeps nothing in memory between calls.
type Engine struct {
	store   ports.SettingsStore
	fetcher ports.SettingsFetcher
	pub     ports.Publisher
	metrics *metrics.Metrics
}

func NewEngine(store ports.SettingsStore, fetcher ports.SettingsFetcher, pub ports.Publisher, m *metrics.Metrics) *Engine {
	return &Engine{store: store, fetcher: fetcher, pub: pub, metrics: m}
}

// Reconcile publishes the cached document first, then refreshes it from the network unless
// skipNetworkIfCachePresent is set and a cache exists. A fresh document is stored and published
// only when it differs from the cached one. On fetch failure the cached document is published
// again, or an error event when nothing is cached.
func (e *Engine) Reconcile(ctx context.Context, site types.Site, skipNetworkIfCachePresent bool) (outcome Outcome) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			log.WithFields(log.Fields{"siteID": site.ID, "panic": rec}).Error("reconciliation panicked")
			e.publish(ctx, types.NewErrorEvent(types.FetchEditorSettings, site.ID, fmt.Sprintf("internal error: %v", rec)))
			outcome = EmittedError
		}
		e.metrics.ObserveReconcile(outcome.String(), start)
		log.WithFields(log.Fields{
			"siteID":  site.ID,
			"outcome": outcome.String(),
			"elapsed": time.Since(start).String(),
		}).Debug("reconciled editor settings")
	}()
	return e.reconcile(ctx, site, skipNetworkIfCachePresent)
}

func (e *Engine) reconcile(ctx context.Context, site types.Site, skipNetworkIfCachePresent bool) Outcome {
	const cause = types.FetchEditorSettings

	cached, err := e.store.Get(ctx, site.ID)
	if err != nil {
		// An unreadable cache is treated as an empty one.
		log.WithError(err).WithField("siteID", site.ID).Warn("failed to read cached editor settings")
		e.metrics.IncPersistFailure()
		cached = nil
	}
	if cached != nil {
		e.publish(ctx, types.NewDocumentEvent(cause, cached, true))
		if skipNetworkIfCachePresent {
			return SkippedNetwork
		}
	}

	doc, err := e.fetcher.Fetch(ctx, site)
	switch {
	case err == nil:
		if cached.Equal(doc) {
			return Unchanged
		}
		if perr := e.store.Replace(ctx, site.ID, doc); perr != nil {
			log.WithError(perr).WithField("siteID", site.ID).Error("failed to persist editor settings")
			e.metrics.IncPersistFailure()
		}
		e.publish(ctx, types.NewDocumentEvent(cause, doc, false))
		return EmittedFresh

	case errors.Is(err, types.ErrMalformedResponse):
		e.publish(ctx, types.NewErrorEvent(cause, site.ID, types.ErrMalformedResponse.Error()))
		return EmittedMalformed

	default:
		log.WithError(err).WithField("siteID", site.ID).Info("editor settings fetch failed")
		if cached != nil {
			e.publish(ctx, types.NewDocumentEvent(cause, cached, true))
			return EmittedCachedOnError
		}
		e.publish(ctx, types.NewErrorEvent(cause, site.ID, err.Error()))
		return EmittedError
	}
}

func (e *Engine) publish(ctx context.Context, evt types.ChangeEvent) {
	kind := "fresh"
	switch {
	case evt.IsError():
		kind = "error"
	case evt.FromCache:
		kind = "cached"
	}
	if err := e.pub.Publish(ctx, evt); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"siteID":  evt.SiteID,
			"eventID": evt.ID,
			"kind":    kind,
		}).Error("failed to publish change event")
		return
	}
	e.metrics.IncEvent(kind)
}
