package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/dmarukhin/tasknote-api/pkg/respond"
)

// Middleware validates the bearer token and puts the caller's Identity
// into the request context. Everything behind it can assume a subject.
func Middleware(keys KeySource, issuer, audience string, logger *zap.Logger) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "HS256"})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respond.Error(w, r, http.StatusUnauthorized, "authorization header is required")
				return
			}
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || raw == "" {
				respond.Error(w, r, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(raw, &claims, keys.Key, opts...)
			if err != nil || !token.Valid {
				logger.Debug("token rejected", zap.Error(err))
				respond.Error(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if claims.Subject == "" {
				respond.Error(w, r, http.StatusUnauthorized, "token has no subject")
				return
			}

			ident := Identity{Subject: claims.Subject, RemoteAddr: r.RemoteAddr}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}
