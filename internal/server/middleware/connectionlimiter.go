package middleware

import (
	"log/slog"
	"net/http"

	"github.com/careerbox/presenced/pkg/config"
)

type IdentityConnectionCounter func(identityID string) int
type IdentityConnectionCycler func(identityID string)

// NewConnectionLimiter caps live connections per identity. In "cycle"
// mode the oldest connection is closed to make room; in "reject" mode
// the new connection is refused. Must run after the auth middleware.
func NewConnectionLimiter(
	logger *slog.Logger,
	counter IdentityConnectionCounter,
	cycler IdentityConnectionCycler,
	cfg config.ConnectionLimitConfig,
) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.MaxPerIdentity <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok || reqMeta.Identity == nil {
				logger.Error("connection limiter ran before authentication; check middleware order")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			identityID := reqMeta.Identity.ID
			count := counter(identityID)
			if count < cfg.MaxPerIdentity {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("identity connection limit reached",
				slog.String("identityID", identityID),
				slog.Int("count", count),
			)
			switch cfg.Mode {
			case "reject":
				http.Error(w, "Too Many Active Connections", http.StatusTooManyRequests)
			case "cycle":
				cycler(identityID)
				next.ServeHTTP(w, r)
			default:
				logger.Error("invalid connection limit mode", slog.String("mode", cfg.Mode))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		})
	}
}
