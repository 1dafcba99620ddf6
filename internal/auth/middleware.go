package auth

import (
	"context"
	"net/http"
	"path"
	"strings"
)

// BypassRule marks one publicly reachable (method, path pattern) pair.
// Patterns are literal paths, optionally ending in "/**" which matches the
// base path and any sub-path under it.
type BypassRule struct {
	Method  string
	Pattern string
}

// DefaultBypassRules is the fixed table of endpoints reachable without a
// token, loaded once at startup.
func DefaultBypassRules(apiPrefix string) []BypassRule {
	return []BypassRule{
		{Method: http.MethodGet, Pattern: apiPrefix + "/products"},
		{Method: http.MethodGet, Pattern: apiPrefix + "/products/**"},
		{Method: http.MethodGet, Pattern: apiPrefix + "/categories"},
		{Method: http.MethodPost, Pattern: apiPrefix + "/users/register"},
		{Method: http.MethodPost, Pattern: apiPrefix + "/users/login"},
		{Method: http.MethodPost, Pattern: apiPrefix + "/users/refreshToken"},
		{Method: http.MethodGet, Pattern: apiPrefix + "/health-check"},
		{Method: http.MethodGet, Pattern: apiPrefix + "/coupons/**"},
	}
}

func (rule BypassRule) matches(method, requestPath string) bool {
	if !strings.EqualFold(rule.Method, method) {
		return false
	}

	if base, ok := strings.CutSuffix(rule.Pattern, "/**"); ok {
		return requestPath == base || strings.HasPrefix(requestPath, base+"/")
	}

	return requestPath == rule.Pattern
}

// Gate classifies every request as bypassed, authenticated or rejected. A
// bypassed request is forwarded untouched; an authenticated one carries a
// Principal in its context; everything else gets a 401 and stops here.
type Gate struct {
	codec     *Codec
	directory Directory
	rules     []BypassRule
}

func NewGate(codec *Codec, directory Directory, rules []BypassRule) *Gate {
	return &Gate{codec: codec, directory: directory, rules: rules}
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestPath := path.Clean(r.URL.Path)

		if g.bypassed(r.Method, requestPath) {
			next.ServeHTTP(w, r)
			return
		}

		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], TokenTypeBearer) {
			writeError(w, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "invalid authorization token")
			return
		}

		claims, err := g.codec.Validate(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid authorization token")
			return
		}
		if claims.TokenUse != useAccess {
			writeError(w, http.StatusUnauthorized, "invalid token type")
			return
		}

		// Expiry is checked separately from the signature so an expired
		// token is reported as such, pointing the client at the refresh
		// flow instead of a re-login. The claims were decoded above; no
		// second parse.
		if g.codec.expired(claims) {
			writeError(w, http.StatusUnauthorized, "token is expired")
			return
		}

		account, err := g.directory.AccountByPhone(r.Context(), claims.Subject)
		if err != nil || !account.Active {
			// Lookup failures of any kind end the request here; a
			// partially populated principal must never reach a handler.
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := WithPrincipal(r.Context(), principalFor(account))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gate) bypassed(method, requestPath string) bool {
	for _, rule := range g.rules {
		if rule.matches(method, requestPath) {
			return true
		}
	}

	return false
}

type principalContextKey struct{}

func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the authenticated identity set by the gate.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	return principal, ok
}

// RequireRole guards a protected handler with a role check on the gate's
// principal.
func RequireRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok || !strings.EqualFold(principal.Role, role) {
			writeError(w, http.StatusUnauthorized, "insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}
