package tenancy

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xraph/bastion"
)

// Middleware resolves the tenant for every request and installs it in a
// fresh per-request tenant context. Unresolved requests on enforced paths
// get a 404 so tenant existence is not disclosed.
func Middleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := bastion.NewTenantContext(r.Context())
			r = r.WithContext(ctx)

			res, err := resolver.Resolve(ctx, InputFromRequest(r))
			switch {
			case errors.Is(err, bastion.ErrTenantUnresolved):
				writeError(w, http.StatusNotFound, "tenant could not be resolved")
				return
			case err != nil:
				resolver.logger.Error("tenant resolution failed", slog.String("error", err.Error()))
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			case res.Skipped:
				next.ServeHTTP(w, r)
				return
			}

			if err := bastion.SetTenant(ctx, res.Tenant); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
