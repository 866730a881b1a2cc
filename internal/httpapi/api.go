// Package httpapi exposes the authorization lifecycle over HTTP. Route-level
// authorization is already decided by the policy decision point; the bearer
// token carries the resolved caller identity which the handlers translate
// into domain-level party checks.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/elhub/auth-grant-manager-sub001/internal/authorization"
	"github.com/elhub/auth-grant-manager-sub001/internal/obs"
	"github.com/elhub/auth-grant-manager-sub001/internal/process"
)

// ReadyProbe reports whether the service can reach its database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the collaborators an API needs.
type Config struct {
	Requests   *authorization.RequestService
	Documents  *authorization.DocumentService
	Grants     *authorization.GrantService
	Validator  *process.Validator
	ReadyProbe ReadyProbe
	Version    string
}

// API is the HTTP layer.
type API struct {
	router     chi.Router
	requests   *authorization.RequestService
	documents  *authorization.DocumentService
	grants     *authorization.GrantService
	validator  *process.Validator
	readyProbe ReadyProbe
	version    string
}

func New(cfg Config) *API {
	a := &API{
		router:     chi.NewRouter(),
		requests:   cfg.Requests,
		documents:  cfg.Documents,
		grants:     cfg.Grants,
		validator:  cfg.Validator,
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
	}

	r := a.router
	r.Use(RequestID)
	r.Use(Logging)
	r.Use(SecurityHeaders)

	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.ready)
	r.Get("/v1/info", a.info)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Group(func(r chi.Router) {
		r.Use(a.withAuth)

		r.Route("/v1/authorization-requests", func(r chi.Router) {
			r.Post("/", a.createRequest)
			r.Get("/", a.listRequests)
			r.Get("/{id}", a.getRequest)
			r.Post("/{id}/accept", a.acceptRequest)
			r.Post("/{id}/reject", a.rejectRequest)
		})

		r.Route("/v1/authorization-documents", func(r chi.Router) {
			r.Post("/", a.createDocument)
			r.Get("/", a.listDocuments)
			r.Get("/{id}", a.getDocument)
			r.Post("/{id}/confirm", a.confirmDocument)
		})

		r.Route("/v1/authorization-grants", func(r chi.Router) {
			r.Get("/", a.listGrants)
			r.Get("/{id}", a.getGrant)
			r.Post("/{id}/status", a.consumeGrant)
		})
	})

	return a
}

// Handler returns the instrumented root handler.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "auth-grant-manager",
		"version": a.version,
	})
}

func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "auth-grant-manager",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
