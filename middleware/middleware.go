// Package middleware provides the request pipeline of the admin console:
// forge middlewares gating routes on a permission, and net/http
// decorators that annotate the request context with the caller's
// address, user agent and principal.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
)

// Require allows the request only when the principal in the request
// context holds permission. Root always passes.
func Require(eng *bastion.Engine, permission string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			p, _ := bastion.PrincipalFromContext(ctx.Context())
			if err := eng.Enforce(ctx.Context(), p, permission); err != nil {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAll allows the request only if ALL permissions are held.
func RequireAll(eng *bastion.Engine, permissions ...string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			p, _ := bastion.PrincipalFromContext(ctx.Context())
			for _, perm := range permissions {
				if err := eng.Enforce(ctx.Context(), p, perm); err != nil {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
