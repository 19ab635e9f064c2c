package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/careerbox/presenced/internal/store"
	"github.com/careerbox/presenced/pkg/state"
	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims is the JWT shape the platform's session tokens carry.
// The token only proves possession; the session store stays the
// authority on identity and role.
type sessionClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewAuthMiddleware gates the upgrade behind the session handshake:
// verify the token signature, then resolve the session against the
// external store within the auth timeout. Any failure rejects the
// request before a socket exists, so no partially-authenticated
// connection is ever observable.
func NewAuthMiddleware(logger *slog.Logger, jwtSecret string, sessions store.SessionStore, timeout time.Duration) Middleware {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			tokenString := extractToken(r)
			if tokenString == "" {
				logger.Warn("connection attempt without session token", slog.String("ip", reqMeta.IP))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid session token", slog.String("ip", reqMeta.IP), slog.Any("error", err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			claims, ok := token.Claims.(*sessionClaims)
			if !ok || claims.Subject == "" {
				logger.Warn("session token missing subject", slog.String("ip", reqMeta.IP))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// The session store lookup is bounded: a hung store must
			// hard-fail the accept, not hang it.
			lookupCtx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			sess, err := sessions.Get(lookupCtx, tokenString)
			if err != nil {
				if errors.Is(err, store.ErrSessionNotFound) {
					logger.Warn("no live session for token", slog.String("ip", reqMeta.IP))
				} else {
					logger.Error("session store lookup failed", slog.String("ip", reqMeta.IP), slog.Any("error", err))
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if sess.UserID != claims.Subject {
				logger.Warn("session token subject mismatch",
					slog.String("ip", reqMeta.IP),
					slog.String("subject", claims.Subject),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Missing role means a plain account; an unknown role is
			// rejected with an audit entry, never silently defaulted.
			role, err := state.ParseRole(sess.Role)
			if err != nil {
				logger.Warn("session carries unknown role, rejecting",
					slog.String("ip", reqMeta.IP),
					slog.String("identityID", sess.UserID),
					slog.String("role", sess.Role),
				)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			reqMeta.Identity = &AuthenticatedIdentity{
				ID:           sess.UserID,
				Role:         role,
				Capabilities: role.Capabilities(),
				SessionRef:   tokenString,
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie("session-token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// Browsers cannot set headers on WebSocket dials; allow the token
	// as a query parameter as a last resort.
	return r.URL.Query().Get("token")
}
