package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/communitymapper/community-mapper/internal/auth"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	claimsKey ctxKey = "claims"
	clientKey ctxKey = "client"
)

// authMiddleware verifies a bearer token or the session cookie and stores
// the claims in the context. Requests without valid credentials continue
// anonymously; handlers call requireUser to reject them. Any other failure,
// such as a storage outage, is answered here with its mapped status.
func authMiddleware(authService *service.AuthService, cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				if c, err := r.Cookie(cookieName); err == nil {
					token = c.Value
				}
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := authService.Authenticate(r.Context(), token)
			if err != nil {
				var domainErr *domainerrors.Error
				if errors.As(err, &domainErr) && domainErr.Code == domainerrors.CodeUnauthorized {
					next.ServeHTTP(w, r)
					return
				}
				writeAuthError(w, r, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	apiErr := toAPIError(http.StatusInternalServerError, domainerrors.ErrInternal.Message, err)
	if logger != nil {
		logger.Error("authentication failed",
			"status", apiErr.status,
			"code", apiErr.Code,
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
	w.Header().Set("Content-Type", apiErr.ContentType(""))
	w.WriteHeader(apiErr.status)
	_ = json.NewEncoder(w).Encode(apiErr)
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireUser returns the verified claims of the caller, or 401.
func requireUser(ctx context.Context) (*auth.Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok || claims == nil || claims.UserID == "" {
		return nil, domainerrors.Unauthorized("authentication required")
	}
	return claims, nil
}

// clientInfoMiddleware records the caller's address and user agent for
// session bookkeeping and login throttling.
func clientInfoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		info := service.ClientInfo{IPAddress: ip, UserAgent: r.UserAgent()}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientKey, info)))
	})
}

func clientInfo(ctx context.Context) service.ClientInfo {
	info, _ := ctx.Value(clientKey).(service.ClientInfo)
	return info
}
