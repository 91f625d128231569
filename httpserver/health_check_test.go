/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-recordcache/httpserver/middleware"
	"github.com/acronis/go-recordcache/log"
	"github.com/acronis/go-recordcache/restapi"
)

func TestHealthCheckHandler_ServeHTTP(t *testing.T) {
	makeRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(middleware.NewContextWithLogger(req.Context(), log.NewDisabledLogger()))
	}

	t.Run("health-check returns error", func(t *testing.T) {
		h := NewHealthCheckHandler(func(context.Context) (HealthCheckResult, error) {
			return nil, fmt.Errorf("internal error")
		})
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, makeRequest())
		require.Equal(t, http.StatusInternalServerError, resp.Code)
	})

	tests := []struct {
		name         string
		result       HealthCheckResult
		wantCode     int
		wantRespData healthCheckResponseData
	}{
		{
			name:         "empty components",
			result:       HealthCheckResult{},
			wantCode:     http.StatusOK,
			wantRespData: healthCheckResponseData{Status: HealthStatusOK, Components: map[string]bool{}},
		},
		{
			name:     "healthy components",
			result:   HealthCheckResult{"store": HealthCheckStatusOK, "dispatcher": HealthCheckStatusOK},
			wantCode: http.StatusOK,
			wantRespData: healthCheckResponseData{
				Status: HealthStatusOK, Components: map[string]bool{"store": true, "dispatcher": true},
			},
		},
		{
			name:     "unhealthy component",
			result:   HealthCheckResult{"store": HealthCheckStatusFail, "dispatcher": HealthCheckStatusOK},
			wantCode: http.StatusServiceUnavailable,
			wantRespData: healthCheckResponseData{
				Status: HealthStatusFail, Components: map[string]bool{"store": false, "dispatcher": true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthCheckHandler(func(context.Context) (HealthCheckResult, error) {
				return tt.result, nil
			})
			resp := httptest.NewRecorder()
			h.ServeHTTP(resp, makeRequest())

			require.Equal(t, tt.wantCode, resp.Code)
			require.Equal(t, restapi.ContentTypeAppJSON, resp.Header().Get("Content-Type"))
			var gotRespData healthCheckResponseData
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&gotRespData))
			require.Equal(t, tt.wantRespData, gotRespData)
		})
	}

	t.Run("default health-check responds 499 on client cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

		resp := httptest.NewRecorder()
		NewHealthCheckHandler(nil).ServeHTTP(resp, req)
		require.Equal(t, StatusClientClosedRequest, resp.Code)
	})
}
