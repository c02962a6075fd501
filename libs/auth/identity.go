package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
)

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// CanActOn reports whether the caller may act on a resource owned by ownerID.
func (i Identity) CanActOn(ownerID string) bool {
	return i.IsAdmin() || (i.UserID != "" && i.UserID == ownerID)
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-Role"
)

// Authenticator resolves the caller from a bearer token. With TrustHeaders set it
// also accepts X-User-Id and X-Role stamped by a trusted edge proxy.
type Authenticator struct {
	Secret       string
	TrustHeaders bool
	Logger       *slog.Logger
}

// Middleware attaches an Identity when the request carries valid credentials.
// Requests without credentials pass through anonymously; invalid tokens get 401.
func (a Authenticator) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw != "" {
				token, ok := strings.CutPrefix(raw, "Bearer ")
				if !ok || a.Secret == "" {
					unauthorized(w, r)
					return
				}
				claims, err := ParseAndVerifyHS256(strings.TrimSpace(token), a.Secret)
				if err != nil {
					if a.Logger != nil {
						a.Logger.Debug("token rejected", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
					}
					unauthorized(w, r)
					return
				}
				id := Identity{UserID: claims.Subject, Role: Role(claims.Role)}
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
				return
			}
			if a.TrustHeaders {
				userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
				role := Role(strings.ToUpper(strings.TrimSpace(r.Header.Get(HeaderRole))))
				if userID != "" && role.Valid() {
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{UserID: userID, Role: role})))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				unauthorized(w, r)
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.WriteError(w, http.StatusForbidden, httpx.ErrorDetail{
				Code:      "forbidden",
				Message:   "insufficient role",
				RequestID: httpx.RequestIDFromContext(r.Context()),
			})
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorDetail{
		Code:      "unauthorized",
		Message:   "missing or invalid credentials",
		RequestID: httpx.RequestIDFromContext(r.Context()),
	})
}
