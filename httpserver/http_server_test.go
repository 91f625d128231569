/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-recordcache/log/logtest"
	"github.com/acronis/go-recordcache/restapi"
	"github.com/acronis/go-recordcache/testutil"
)

const testErrDomain = "TestDomain"

func startTestServer(t *testing.T, cfg *Config, opts Opts) (*HTTPServer, string) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	opts.Listener = listener
	if opts.MetricsRegisterer == nil {
		opts.MetricsRegisterer = prometheus.NewRegistry()
	}

	srv := New(cfg, logtest.NewRecorder(), opts)
	srv.MustRegisterMetrics()
	fatalErr := make(chan error, 1)
	go srv.Start(fatalErr)
	require.NoError(t, testutil.WaitListeningServer(listener.Addr().String(), 3*time.Second))

	t.Cleanup(func() {
		require.NoError(t, srv.Stop(true))
		srv.UnregisterMetrics()
		select {
		case err := <-fatalErr:
			require.NoError(t, err)
		default:
		}
	})
	return srv, "http://" + listener.Addr().String()
}

func doRequest(t *testing.T, method, url, body string) (int, http.Header, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header, string(respBody)
}

func TestHTTPServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := NewDefaultConfig()
	cfg.Limits.MaxBodySizeBytes = 64
	srv, baseURL := startTestServer(t, cfg, Opts{
		ServiceNameInURL: "recordcache",
		ErrorDomain:      testErrDomain,
		APIRoutes: map[APIVersion]APIRoute{
			1: func(router chi.Router) {
				router.Get("/hello/{name}", func(rw http.ResponseWriter, r *http.Request) {
					_, _ = rw.Write([]byte("hello " + chi.URLParam(r, "name")))
				})
				router.Post("/echo", func(rw http.ResponseWriter, r *http.Request) {
					var dst map[string]string
					if err := restapi.DecodeRequestJSON(r, &dst); err != nil {
						restapi.RespondMalformedRequestOrInternalError(rw, testErrDomain, err, nil)
						return
					}
					restapi.RespondJSON(rw, dst, nil)
				})
				router.Get("/panic", func(rw http.ResponseWriter, r *http.Request) {
					panic("boom")
				})
			},
		},
		RootRoutes: func(router chi.Router) {
			router.Get("/hello", func(rw http.ResponseWriter, r *http.Request) {
				_, _ = rw.Write([]byte("hello from root"))
			})
		},
		MetricsHandler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MetricsRegisterer: reg,
	})
	require.Greater(t, srv.GetPort(), 0)

	t.Run("versioned API route", func(t *testing.T) {
		code, header, body := doRequest(t, http.MethodGet, baseURL+"/api/recordcache/v1/hello/bob", "")
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, "hello bob", body)
		require.NotEmpty(t, header.Get("X-Request-ID"))
		require.NotEmpty(t, header.Get("X-Int-Request-ID"))
	})

	t.Run("root route", func(t *testing.T) {
		code, _, body := doRequest(t, http.MethodGet, baseURL+"/hello", "")
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, "hello from root", body)
	})

	t.Run("health check", func(t *testing.T) {
		code, _, body := doRequest(t, http.MethodGet, baseURL+HealthCheckEndpoint, "")
		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `{"status":"ok","components":{}}`, body)
	})

	t.Run("not found", func(t *testing.T) {
		code, _, body := doRequest(t, http.MethodGet, baseURL+"/unknown", "")
		require.Equal(t, http.StatusNotFound, code)
		require.Contains(t, body, `"code":"`+restapi.ErrCodeNotFound+`"`)
		require.Contains(t, body, `"domain":"`+testErrDomain+`"`)
	})

	t.Run("method not allowed", func(t *testing.T) {
		code, _, body := doRequest(t, http.MethodDelete, baseURL+"/hello", "")
		require.Equal(t, http.StatusMethodNotAllowed, code)
		require.Contains(t, body, `"code":"`+restapi.ErrCodeMethodNotAllowed+`"`)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		code, _, body := doRequest(t, http.MethodGet, baseURL+"/api/recordcache/v1/panic", "")
		require.Equal(t, http.StatusInternalServerError, code)
		require.Contains(t, body, `"code":"`+restapi.ErrCodeInternal+`"`)
	})

	t.Run("body within limit", func(t *testing.T) {
		code, _, body := doRequest(t, http.MethodPost, baseURL+"/api/recordcache/v1/echo", `{"a":"b"}`)
		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `{"a":"b"}`, body)
	})

	t.Run("too large body", func(t *testing.T) {
		code, _, _ := doRequest(t, http.MethodPost, baseURL+"/api/recordcache/v1/echo", `{"a":"`+strings.Repeat("x", 100)+`"}`)
		require.Equal(t, http.StatusRequestEntityTooLarge, code)
	})

	t.Run("request metrics are exposed", func(t *testing.T) {
		code, _, body := doRequest(t, http.MethodGet, baseURL+MetricsEndpoint, "")
		require.Equal(t, http.StatusOK, code)
		require.Contains(t, body, `http_request_duration_seconds_count{method="GET",route_pattern="/api/recordcache/v1/hello/{name}",status_code="200"} 1`)
		require.NotContains(t, body, `route_pattern="/healthz"`)
	})
}

func TestHTTPServer_StopNotGracefully(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := New(NewDefaultConfig(), logtest.NewRecorder(), Opts{Listener: listener, MetricsRegisterer: prometheus.NewRegistry()})
	fatalErr := make(chan error, 1)
	go srv.Start(fatalErr)
	require.NoError(t, testutil.WaitListeningServer(listener.Addr().String(), 3*time.Second))

	require.NoError(t, srv.Stop(false))
	require.Empty(t, fatalErr)
}
