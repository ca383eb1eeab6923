package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
)

const maxBodyBytes = 1 << 20

// Decode reads a JSON body into dst. An empty or malformed body is a validation error.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.ValidationField("body", "request body is required")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.ValidationField("body", "request body is required")
		}
		return apperr.Wrap(apperr.CodeValidation, "request body is not valid JSON", err)
	}

	return nil
}

// UUIDParam parses a chi path parameter as a UUID.
// A malformed id cannot match any row, so it is reported as not found.
func UUIDParam(r *http.Request, name string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

// QueryString returns a trimmed query value, or nil when absent or blank.
func QueryString(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	return &v
}

// QueryInt parses an integer query value, returning 0 when absent or malformed.
func QueryInt(r *http.Request, key string) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
