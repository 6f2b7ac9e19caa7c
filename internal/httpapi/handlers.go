// Package httpapi exposes the application admin service over HTTP and gRPC.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"orphanadmin/internal/application"
	"orphanadmin/internal/export"
	"orphanadmin/internal/listview"
	"orphanadmin/internal/notify"
	"orphanadmin/internal/obs"
)

const serviceName = "orphan-admin"

type readinessChecker interface {
	Check(ctx context.Context) error
}

// ReadyProbe pings the database and any extra dependencies.
type ReadyProbe struct {
	DB     *sql.DB
	Checks []func(context.Context) error
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	var errs []error
	for _, check := range rp.Checks {
		errs = append(errs, check(ctx))
	}
	return errors.Join(errs...)
}

// Options carries the API dependencies and transport limits.
type Options struct {
	Ready        readinessChecker
	Version      string
	Applications application.Service
	Views        *listview.Registry
	Exporter     *export.Exporter
	Hub          *notify.Hub
	Notifier     notify.Notifier

	RatePerSec   float64
	RateBurst    int
	MaxBodyBytes int64
	CORSOrigins  []string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe readinessChecker
	version    string

	apps     application.Service
	views    *listview.Registry
	exporter *export.Exporter
	hub      *notify.Hub
	notifier notify.Notifier

	ratePerSec   float64
	rateBurst    int
	maxBodyBytes int64
	corsOrigins  []string
}

func New(opts Options) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   opts.Ready,
		version:      opts.Version,
		apps:         opts.Applications,
		views:        opts.Views,
		exporter:     opts.Exporter,
		hub:          opts.Hub,
		notifier:     opts.Notifier,
		ratePerSec:   opts.RatePerSec,
		rateBurst:    opts.RateBurst,
		maxBodyBytes: opts.MaxBodyBytes,
		corsOrigins:  opts.CORSOrigins,
	}
	if a.readyProbe == nil {
		a.readyProbe = ReadyProbe{}
	}
	if a.notifier == nil {
		a.notifier = notify.Discard
	}
	if a.exporter == nil && a.apps != nil {
		a.exporter = export.NewExporter(a.apps, a.notifier)
	}
	if a.views == nil && a.apps != nil {
		a.views = listview.NewRegistry(a.apps, a.notifier, nil, obs.Named("listview"))
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 20
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 40
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())
	a.mux.HandleFunc("POST /v1/auth/token", a.handleAuthToken)

	staff := func(h http.HandlerFunc) http.Handler { return staffOnly(h) }

	a.mux.Handle("GET /v1/applications", staff(a.listApplications))
	a.mux.Handle("POST /v1/applications", staff(a.createApplication))
	a.mux.Handle("GET /v1/applications/{id}", staff(a.getApplication))
	a.mux.Handle("PUT /v1/applications/{id}", staff(a.updateApplication))
	a.mux.Handle("DELETE /v1/applications/{id}", staff(a.deleteApplication))
	a.mux.Handle("GET /v1/applications/{id}/transitions", staff(a.listTransitions))
	a.mux.Handle("PATCH /v1/applications/{id}/status", staff(a.changeStatus))
	a.mux.Handle("GET /v1/applications/{id}/export", staff(a.exportApplication))

	a.mux.Handle("POST /v1/views", staff(a.openView))
	a.mux.Handle("GET /v1/views/{id}", staff(a.getView))
	a.mux.Handle("POST /v1/views/{id}/intents", staff(a.applyIntent))
	a.mux.Handle("POST /v1/views/{id}/refresh", staff(a.refreshView))
	a.mux.Handle("DELETE /v1/views/{id}", staff(a.closeView))

	a.mux.Handle("GET /v1/events", staff(a.Stream))

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.withAuth(a.mux)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
