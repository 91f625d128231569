/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/acronis/go-recordcache/log"
	"github.com/acronis/go-recordcache/lookup"
	"github.com/acronis/go-recordcache/recordstore"
	"github.com/acronis/go-recordcache/restapi"
)

const headerRetryAfter = "Retry-After"

// Error messages of the record API.
const (
	ErrMessageRecordNotFound    = "User not found."
	ErrMessageRateLimitExceeded = "Rate limit exceeded. Try again later."
)

// Error context keys.
const (
	ErrContextKeyRetryAfterSeconds = "retryAfterSeconds"
)

// respondError maps lookup errors to HTTP responses:
// validation errors to 400, missing records to 404, rate limiting to 429 and everything else to 500.
func (h *Handler) respondError(rw http.ResponseWriter, r *http.Request, err error) {
	logger := h.loggerFor(r)

	var validationErr *lookup.ValidationError
	if errors.As(err, &validationErr) {
		apiErr := restapi.NewError(ErrorDomain, restapi.ErrCodeBadRequest, validationErr.Message)
		restapi.RespondError(rw, http.StatusBadRequest, apiErr, logger)
		return
	}

	var rateLimitErr *lookup.RateLimitError
	if errors.As(err, &rateLimitErr) {
		retryAfter := rateLimitErr.RetryAfterSeconds()
		rw.Header().Set(headerRetryAfter, strconv.Itoa(retryAfter))
		apiErr := restapi.NewError(ErrorDomain, restapi.ErrCodeTooManyRequests, ErrMessageRateLimitExceeded).
			AddContext(ErrContextKeyRetryAfterSeconds, retryAfter)
		restapi.RespondError(rw, http.StatusTooManyRequests, apiErr, logger)
		return
	}

	if errors.Is(err, recordstore.ErrNotFound) {
		apiErr := restapi.NewError(ErrorDomain, restapi.ErrCodeNotFound, ErrMessageRecordNotFound)
		restapi.RespondError(rw, http.StatusNotFound, apiErr, logger)
		return
	}

	logger.Error("request failed", log.Error(err))
	restapi.RespondInternalError(rw, ErrorDomain, logger)
}
