/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpapi

import (
	"net"
	"net/http"
	"strings"
)

const headerForwardedFor = "X-Forwarded-For"

// CallerKeyFunc returns the key by which the rate limiter tells callers apart.
type CallerKeyFunc func(r *http.Request) string

// RemoteAddrCallerKey identifies the caller by the IP address of the connection.
func RemoteAddrCallerKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ForwardedForCallerKey identifies the caller by the first X-Forwarded-For hop
// and falls back to the connection address when the header is absent.
// Use it only behind a proxy that sets the header.
func ForwardedForCallerKey(r *http.Request) string {
	forwardedFor := r.Header.Get(headerForwardedFor)
	if forwardedFor == "" {
		return RemoteAddrCallerKey(r)
	}
	if i := strings.IndexByte(forwardedFor, ','); i != -1 {
		forwardedFor = forwardedFor[:i]
	}
	if hop := strings.TrimSpace(forwardedFor); hop != "" {
		return hop
	}
	return RemoteAddrCallerKey(r)
}
