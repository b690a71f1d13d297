package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "lodgeworks/pkg/errors"
)

// DateLayout is the wire format for calendar dates. Full RFC 3339
// timestamps are also accepted and truncated to their date downstream.
const DateLayout = "2006-01-02"

func ExtractDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, apperrors.InvalidInput("missing required parameter: " + name)
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.InvalidInput("invalid date for parameter " + name + ": " + raw)
}

// ExtractBool returns fallback when the parameter is absent or not a
// valid boolean, so callers can keep opt-out defaults.
func ExtractBool(r *http.Request, name string, fallback bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func ExtractInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid integer for parameter " + name + ": " + raw)
	}
	return v, nil
}

// ExtractIDList splits a comma-separated id parameter, dropping empty
// segments.
func ExtractIDList(r *http.Request, name string) ([]string, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, apperrors.InvalidInput("missing required parameter: " + name)
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) == 0 {
		return nil, apperrors.InvalidInput("parameter " + name + " contains no ids")
	}
	return ids, nil
}
