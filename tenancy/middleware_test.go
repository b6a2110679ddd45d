package tenancy_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/tenancy"
)

func TestMiddlewareInstallsTenant(t *testing.T) {
	f := newFixture(t)
	r := tenancy.NewResolver(f.store)

	var seen string
	h := tenancy.Middleware(r)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		tn, ok := bastion.TenantFromContext(req.Context())
		if ok {
			seen = tn.Slug
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://demo.example.com/admin/settings", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "demo", seen)
}

func TestMiddlewareUnresolvedIs404(t *testing.T) {
	f := newFixture(t)
	r := tenancy.NewResolver(f.store)

	called := false
	h := tenancy.Middleware(r)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "http://unknown.example.com/admin", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "tenant could not be resolved", body["error"])
}

func TestMiddlewareIgnoredPathHasNoTenant(t *testing.T) {
	f := newFixture(t)
	r := tenancy.NewResolver(f.store)

	var hasTenant bool
	h := tenancy.Middleware(r)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, hasTenant = bastion.TenantFromContext(req.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://unknown.example.com/login", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, hasTenant)
}

func TestMiddlewareUsesPrincipalFromContext(t *testing.T) {
	f := newFixture(t)
	r := tenancy.NewResolver(f.store)

	var seen string
	h := tenancy.Middleware(r)(http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
		seen = bastion.TenantIDFromContext(req.Context()).String()
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/admin", nil)
	p := &bastion.Principal{ID: f.demo.ID, TenantID: f.demo2.ID}
	req = req.WithContext(bastion.WithPrincipal(req.Context(), p))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, f.demo2.ID.String(), seen)
}
