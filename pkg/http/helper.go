package http

import (
	"encoding/json"
	"net/http"
	"staymate/pkg/config"
	apperrors "staymate/pkg/errors"
	"strconv"
	"time"
)

// ExtractHistoryWindow reads the "limit" and "before" query parameters used
// by history endpoints.
func ExtractHistoryWindow(r *http.Request, maxLimit int) (int, *time.Time, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, nil, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}
	limit = config.NormalizeHistoryLimit(limit, maxLimit)

	var before *time.Time
	if s := query.Get("before"); s != "" {
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, nil, apperrors.InvalidInput("invalid before parameter, must be RFC3339")
		}
		before = &parsed
	}

	return limit, before, nil
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apperrors.InvalidInput("Invalid request body")
	}
	return nil
}
