package api

import (
	"edsync/internal/flow"
	"edsync/internal/ports"
	"edsync/internal/types"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	Store      ports.SettingsStore
	Dispatcher *flow.Dispatcher
	Sites      ports.SiteDirectory
	Signal     ports.AuthSignal
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewHandler(store ports.SettingsStore, d *flow.Dispatcher, sites ports.SiteDirectory, signal ports.AuthSignal, metrics http.Handler) *Handler {
	return &Handler{
		Store:      store,
		Dispatcher: d,
		Sites:      sites,
		Signal:     signal,
		Metrics:    metrics,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}
	r.Route("/sites/{siteID}", func(r chi.Router) {
		r.Get("/settings", h.handleGetSettings)
		r.Post("/settings/fetch", h.handleFetch)
		r.Post("/auth-invalid", h.handleAuthInvalid)
	})
	return r
}

// site resolves the {siteID} URL parameter, writing the error response itself when it fails.
func (h *Handler) site(w http.ResponseWriter, r *http.Request) (types.Site, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "siteID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid site id", http.StatusBadRequest)
		return types.Site{}, false
	}
	site, err := h.Sites.Site(id)
	if err != nil {
		if errors.Is(err, types.ErrUnknownSite) {
			http.Error(w, "unknown site", http.StatusNotFound)
		} else {
			http.Error(w, "site lookup failed", http.StatusInternalServerError)
		}
		return types.Site{}, false
	}
	return site, true
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	site, ok := h.site(w, r)
	if !ok {
		return
	}
	doc, err := h.Store.Get(r.Context(), site.ID)
	if err != nil {
		log.WithError(err).WithField("siteID", site.ID).Error("read cached settings")
		http.Error(w, "settings cache unavailable", http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.Error(w, "no cached settings", http.StatusNotFound)
		return
	}

	if q := r.URL.Query().Get("query"); q != "" {
		v, err := doc.Query(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := writeJSON(w, http.StatusOK, map[string]any{"site_id": site.ID, "result": v}); err != nil {
			log.WithError(err).Warn("write response")
		}
		return
	}
	if err := writeJSON(w, http.StatusOK, doc); err != nil {
		log.WithError(err).Warn("write response")
	}
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	site, ok := h.site(w, r)
	if !ok {
		return
	}
	skip, _ := strconv.ParseBool(r.URL.Query().Get("skip_if_cached"))
	cmd := flow.Command{
		Kind:                      types.FetchEditorSettings,
		SiteID:                    site.ID,
		SkipNetworkIfCachePresent: skip,
	}
	if err := h.Dispatcher.Go(r.Context(), cmd); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted", "command": cmd}); err != nil {
		log.WithError(err).Warn("write response")
	}
}

func (h *Handler) handleAuthInvalid(w http.ResponseWriter, r *http.Request) {
	site, ok := h.site(w, r)
	if !ok {
		return
	}
	h.Signal.Notify(site)
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
