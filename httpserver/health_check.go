/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/acronis/go-recordcache/httpserver/middleware"
	"github.com/acronis/go-recordcache/log"
	"github.com/acronis/go-recordcache/restapi"
)

// StatusClientClosedRequest is a non-standard HTTP status code (nginx convention)
// used when the client has closed the connection before the health check finished.
const StatusClientClosedRequest = 499

// Overall health statuses reported in the "status" field.
const (
	HealthStatusOK   = "ok"
	HealthStatusFail = "fail"
)

// HealthCheckComponentName is a type alias for component names.
type HealthCheckComponentName = string

// HealthCheckStatus is a resulting status of the health-check.
type HealthCheckStatus int

// Health-check statuses.
const (
	HealthCheckStatusOK HealthCheckStatus = iota
	HealthCheckStatusFail
)

// HealthCheckResult contains health-check statuses per component.
type HealthCheckResult = map[HealthCheckComponentName]HealthCheckStatus

// HealthCheck is a function that checks the health of the service components.
type HealthCheck = func(ctx context.Context) (HealthCheckResult, error)

type healthCheckResponseData struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components"`
}

// HealthCheckHandler implements http.Handler for the health-check endpoint.
// It responds with 200 and {"status":"ok"} when all components are healthy and with 503 otherwise.
type HealthCheckHandler struct {
	healthCheckFn HealthCheck
}

// NewHealthCheckHandler creates a new health-check HTTP handler.
// A nil fn reports the service healthy without components.
func NewHealthCheckHandler(fn HealthCheck) *HealthCheckHandler {
	if fn == nil {
		fn = func(ctx context.Context) (HealthCheckResult, error) {
			return HealthCheckResult{}, ctx.Err()
		}
	}
	return &HealthCheckHandler{fn}
}

func (h *HealthCheckHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())

	hcResult, err := h.healthCheckFn(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			rw.WriteHeader(StatusClientClosedRequest)
			return
		}
		if logger != nil {
			logger.Error("error while checking health", log.Error(err))
		}
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	respData := healthCheckResponseData{Status: HealthStatusOK, Components: make(map[string]bool, len(hcResult))}
	for name, status := range hcResult {
		respData.Components[name] = status == HealthCheckStatusOK
		if status != HealthCheckStatusOK {
			respData.Status = HealthStatusFail
		}
	}

	respStatus := http.StatusOK
	if respData.Status != HealthStatusOK {
		respStatus = http.StatusServiceUnavailable
	}
	restapi.RespondCodeAndJSON(rw, respStatus, respData, logger)
}
