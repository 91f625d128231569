/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acronis/go-recordcache/httpserver/middleware"
	"github.com/acronis/go-recordcache/log"
	"github.com/acronis/go-recordcache/lookup"
	"github.com/acronis/go-recordcache/recordstore"
	"github.com/acronis/go-recordcache/restapi"
)

// ErrorDomain is the domain of all errors returned by the API.
const ErrorDomain = "RecordCache"

// ServiceNameInURL is the service segment of the versioned API prefix (/api/recordcache/v1).
const ServiceNameInURL = "recordcache"

// RecordService is the lookup layer behind the HTTP handlers.
type RecordService interface {
	Get(ctx context.Context, callerKey string, id int64) (lookup.Result, error)
	Create(ctx context.Context, callerKey string, req lookup.CreateRequest) (recordstore.Record, error)
	List(ctx context.Context, callerKey string) ([]recordstore.Record, error)
	ClearCache(ctx context.Context, callerKey string) error
	Status(ctx context.Context, callerKey string) (lookup.Status, error)
	ResponseTimes() *lookup.ResponseTimes
}

var _ RecordService = (*lookup.Service)(nil)

// Opts represents options for Handler.
type Opts struct {
	// CallerKey tells callers apart for rate limiting. RemoteAddrCallerKey is used when nil.
	CallerKey CallerKeyFunc

	// Logger is used when the request has no request-scoped logger in its context.
	Logger log.FieldLogger
}

// Handler serves the record API.
type Handler struct {
	svc       RecordService
	callerKey CallerKeyFunc
	logger    log.FieldLogger
}

// New creates a new Handler.
func New(svc RecordService, opts Opts) *Handler {
	if opts.CallerKey == nil {
		opts.CallerKey = RemoteAddrCallerKey
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &Handler{svc: svc, callerKey: opts.CallerKey, logger: opts.Logger}
}

// Routes registers the API routes in the router.
func (h *Handler) Routes(router chi.Router) {
	router.Use(h.observeResponseTime)
	router.Get("/users/{id}", h.getUser)
	router.Post("/users", h.createUser)
	router.Get("/users", h.listUsers)
	router.Delete("/cache", h.clearCache)
	router.Get("/cache-status", h.cacheStatus)
	router.Get("/health", h.health)
}

type getUserResponse struct {
	Source lookup.Source      `json:"source"`
	User   recordstore.Record `json:"user"`
}

type createUserResponse struct {
	Message string             `json:"message"`
	User    recordstore.Record `json:"user"`
}

type listUsersResponse struct {
	Users []recordstore.Record `json:"users"`
	Count int                  `json:"count"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type cacheStatusMetrics struct {
	TotalRequests     int64   `json:"totalRequests"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
}

type cacheStatusDispatcher struct {
	Running int `json:"running"`
	Queued  int `json:"queued"`
}

type cacheStatusResponse struct {
	Cache          any                   `json:"cache"`
	Metrics        cacheStatusMetrics    `json:"metrics"`
	InFlightCount  int                   `json:"inFlightCount"`
	Dispatcher     cacheStatusDispatcher `json:"dispatcher"`
	LimiterCallers int                   `json:"limiterCallers"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) getUser(rw http.ResponseWriter, r *http.Request) {
	id, err := lookup.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	res, err := h.svc.Get(r.Context(), h.callerKey(r), id)
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	if lp := middleware.GetLoggingParamsFromContext(r.Context()); lp != nil {
		lp.ExtendFields(log.String("record_source", string(res.Source)))
	}
	restapi.RespondJSON(rw, getUserResponse{Source: res.Source, User: res.Record}, h.loggerFor(r))
}

func (h *Handler) createUser(rw http.ResponseWriter, r *http.Request) {
	var req lookup.CreateRequest
	if err := restapi.DecodeRequestJSON(r, &req); err != nil {
		restapi.RespondMalformedRequestOrInternalError(rw, ErrorDomain, err, h.loggerFor(r))
		return
	}
	rec, err := h.svc.Create(r.Context(), h.callerKey(r), req)
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	restapi.RespondCodeAndJSON(rw, http.StatusCreated, createUserResponse{Message: "User created", User: rec}, h.loggerFor(r))
}

func (h *Handler) listUsers(rw http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context(), h.callerKey(r))
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, listUsersResponse{Users: records, Count: len(records)}, h.loggerFor(r))
}

func (h *Handler) clearCache(rw http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCache(r.Context(), h.callerKey(r)); err != nil {
		h.respondError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, messageResponse{Message: "Cache cleared"}, h.loggerFor(r))
}

func (h *Handler) cacheStatus(rw http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context(), h.callerKey(r))
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, cacheStatusResponse{
		Cache:          st.Cache,
		Metrics:        cacheStatusMetrics{TotalRequests: st.TotalRequests, AvgResponseTimeMs: st.AvgResponseTimeMs},
		InFlightCount:  st.InFlightCount,
		Dispatcher:     cacheStatusDispatcher{Running: st.DispatcherRunning, Queued: st.DispatcherQueued},
		LimiterCallers: st.LimiterCallers,
	}, h.loggerFor(r))
}

func (h *Handler) health(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, healthResponse{Status: "ok"}, h.loggerFor(r))
}

func (h *Handler) observeResponseTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		startTime := middleware.GetRequestStartTimeFromContext(r.Context())
		if startTime.IsZero() {
			startTime = time.Now()
		}
		wrw := middleware.WrapResponseWriterIfNeeded(rw, r.ProtoMajor)
		next.ServeHTTP(wrw, r)
		// Rate-limited requests are rejected before they are served, so they are not accounted.
		if wrw.Status() != http.StatusTooManyRequests {
			h.svc.ResponseTimes().Observe(time.Since(startTime))
		}
	})
}

func (h *Handler) loggerFor(r *http.Request) log.FieldLogger {
	if logger := middleware.GetLoggerFromContext(r.Context()); logger != nil {
		return logger
	}
	return h.logger
}
