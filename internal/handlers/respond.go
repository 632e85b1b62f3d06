package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/logging"
)

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}

// respondError writes the error body for err. Errors outside the taxonomy are
// logged in full and reported as the generic unknown error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	appErr := apperr.From(err)
	body := apperr.NewBody(appErr, r.URL.Path, time.Now())

	switch {
	case body.StatusCode >= http.StatusInternalServerError:
		logger.Error("request failed", "status", body.StatusCode, "code", appErr.Code, "error", err)
	default:
		logger.Warn("request returned client error", "status", body.StatusCode, "code", appErr.Code, "error", err)
	}

	respondJSON(ctx, w, body.StatusCode, body)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Validation("request body too large")
		}
		return apperr.Validation("invalid request body").WithCause(err)
	}
	return nil
}
