package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Dickson-Hardy/cmda-backend-sub000/api/responses"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
)

const internalTokenHeader = "X-Internal-Token"

// InternalToken admits service-to-service calls carrying the shared token.
func InternalToken(expected string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(r.Header.Get(internalTokenHeader))
			if expected == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid service token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
