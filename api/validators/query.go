package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter bounded by
// [min, max]. A missing value yields defaultVal.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "must be numeric", nil)
	}
	if value < min || value > max {
		return 0, queryError(key, "out of range", map[string]any{"min": min, "max": max})
	}
	return value, nil
}

// ParseQueryString reads an optional string query parameter, rejecting
// values longer than maxLen or containing control characters.
func ParseQueryString(r *http.Request, key string, maxLen int) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if maxLen > 0 && len(raw) > maxLen {
		return "", queryError(key, "too long", map[string]any{"max": maxLen})
	}
	if raw != SanitizeString(raw, 0) {
		return "", queryError(key, "contains invalid characters", nil)
	}
	return raw, nil
}

func queryError(key, problem string, extra map[string]any) *pkgerrors.Error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "query parameter "+key+" "+problem).WithDetails(details)
}
