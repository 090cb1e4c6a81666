// Package handlers is the thin HTTP layer: decode, validate, call the
// service, encode. No business rules live here.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/campusmint/backend/internal/apperr"
)

// ErrorResponse is the JSON shape of every non-2xx body.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

var validate = validator.New()

// decodeJSON reads and validates a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.BadRequest("invalid request body").WithCause(err)
	}
	if err := validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps a service error onto the wire. Validation failures carry
// per-field details; internal errors are logged and masked.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		resp := ErrorResponse{Error: "validation failed", Details: make(map[string]string)}
		for _, fieldErr := range validationErrs {
			resp.Details[fieldErr.Field()] = fmt.Sprintf("failed on the '%s' rule", fieldErr.Tag())
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	status := apperr.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		message = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: message})
}

// queryLimit parses the limit query parameter; 0 lets the store default
// apply. Garbage and negatives read as 0.
func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
