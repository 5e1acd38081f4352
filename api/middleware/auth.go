package middleware

import (
	"net/http"
	"strings"

	"github.com/Dickson-Hardy/cmda-backend-sub000/api/responses"
	pkgAuth "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/auth"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
)

// Auth validates a member bearer token and seeds the request context with
// the caller identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				UserID: claims.UserID,
				Email:  strings.ToLower(strings.TrimSpace(claims.Email)),
				Role:   claims.Role,
			})
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithField(ctx, "actor_role", string(claims.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
