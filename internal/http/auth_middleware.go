package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwtpkg "github.com/splax/heatlens/pkg/jwt"
)

type authContextKey string

type authInfo struct {
	Subject string
	claims  *jwtpkg.Claims
}

const contextKeyAuth authContextKey = "heatlens-auth-info"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request has a valid bearer token before invoking the handler.
// With auth disabled every request passes as an unscoped anonymous caller.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if r.settings.AuthDisabled {
			next(w, req)
			return
		}
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the bearer token and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, authInfo, bool) {
	token, err := requestToken(req)
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return req.Context(), authInfo{}, false
	}
	claims, err := jwtpkg.Parse(token, r.settings.JWTSecret)
	if err != nil {
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return req.Context(), authInfo{}, false
	}
	info := authInfo{Subject: claims.Subject, claims: claims}
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	return ctx, info, true
}

// authorizeSite rejects callers whose token is scoped away from siteID. A missing site
// is left for the service to reject as a validation error.
func (r *Router) authorizeSite(w http.ResponseWriter, req *http.Request, siteID string) bool {
	if r.settings.AuthDisabled || siteID == "" {
		return true
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return false
	}
	if !info.claims.CanAccess(siteID) {
		writeError(w, http.StatusForbidden, "site access denied")
		return false
	}
	return true
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

// requestToken reads the bearer token, falling back to the access_token query parameter
// for streaming clients that cannot set headers.
func requestToken(req *http.Request) (string, error) {
	header := req.Header.Get("Authorization")
	if strings.TrimSpace(header) == "" {
		if token := strings.TrimSpace(req.URL.Query().Get("access_token")); token != "" {
			return token, nil
		}
	}
	return bearerToken(header)
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
