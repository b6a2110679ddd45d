package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/auth"
)

// Func is a net/http middleware.
type Func func(http.Handler) http.Handler

// Chain wraps h with mws. The first middleware is the outermost, so it
// sees the request first.
func Chain(h http.Handler, mws ...Func) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RequestInfo records the client address and user agent in the request
// context. With trustProxy set, the first X-Forwarded-For entry wins
// over the connection's remote address.
func RequestInfo(trustProxy bool) Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := bastion.RequestInfo{
				IP:        clientIP(r, trustProxy),
				UserAgent: r.UserAgent(),
			}
			next.ServeHTTP(w, r.WithContext(bastion.WithRequestInfo(r.Context(), info)))
		})
	}
}

// Authenticate resolves the bearer token of the request into a principal.
// Requests without an Authorization header continue anonymously, leaving
// the decision to the authorization checks downstream. A present but
// invalid token is answered with 401.
func Authenticate(a *auth.Authenticator, logger *slog.Logger) Func {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, err := auth.BearerToken(header)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}
			p, err := a.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) {
					writeJSON(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				logger.Error("authentication failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, "internal error")
				return
			}
			next.ServeHTTP(w, r.WithContext(bastion.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAuth answers 401 when no principal has been authenticated.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := bastion.PrincipalFromContext(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
