package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/careerbox/presenced/pkg/state"
)

type contextKey string

const reqMetaKey = contextKey("r-metadata")

// AuthenticatedIdentity is the outcome of the session handshake,
// filled in by the auth middleware before the upgrade handler runs.
type AuthenticatedIdentity struct {
	ID           string
	Role         state.Role
	Capabilities state.Capability
	SessionRef   string
}

type RequestMetadata struct {
	IP        string
	UserAgent string
	Identity  *AuthenticatedIdentity
}

func ReqMetadataFrom(ctx context.Context) (*RequestMetadata, bool) {
	reqMeta, ok := ctx.Value(reqMetaKey).(*RequestMetadata)
	return reqMeta, ok
}

// RequestMetadataMiddleware creates and injects the RequestMetadata
// struct. Must be the first middleware in the chain.
func RequestMetadataMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta := &RequestMetadata{UserAgent: r.UserAgent()}

			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			reqMeta.IP = ip
			ctx := context.WithValue(r.Context(), reqMetaKey, reqMeta)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
