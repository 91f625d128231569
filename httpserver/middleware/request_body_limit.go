/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/acronis/go-recordcache/restapi"
)

// RequestBodyLimit is a middleware that sets the maximum allowed size for a request body.
// Requests with a larger Content-Length are rejected right away with 413,
// otherwise the body is wrapped so that reading past the limit fails in restapi.DecodeRequestJSON.
func RequestBodyLimit(maxSizeBytes uint64, errDomain string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if r.ContentLength > int64(maxSizeBytes) { //nolint:gosec // limit comes from config and is far below MaxInt64
				reqErr := restapi.NewTooLargeMalformedRequestError(maxSizeBytes)
				restapi.RespondMalformedRequestError(rw, errDomain, reqErr, GetLoggerFromContext(r.Context()))
				return
			}
			restapi.SetRequestMaxBodySize(rw, r, maxSizeBytes)
			next.ServeHTTP(rw, r)
		})
	}
}
