package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/middleware"
)

func TestLocale(t *testing.T) {
	tests := []struct {
		name   string
		user   string
		accept string
		want   string
	}{
		{name: "fallback", want: "en"},
		{name: "accept language", accept: "es-MX,es;q=0.9,en;q=0.5", want: "es"},
		{name: "unsupported accept", accept: "de-DE,de;q=0.9", want: "en"},
		{name: "malformed accept", accept: ";;;", want: "en"},
		{name: "user locale wins", user: "es", accept: "en-US", want: "es"},
		{name: "unsupported user locale", user: "fr", accept: "es", want: "es"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := middleware.Locale([]string{"es", "en"}, "en")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = bastion.LocaleFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			if tt.user != "" {
				p := &bastion.Principal{ID: id.NewUserID(), Locale: tt.user}
				req = req.WithContext(bastion.WithPrincipal(req.Context(), p))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, rec.Header().Get("Content-Language"))
		})
	}
}

func TestRequireAjax(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		headers map[string]string
		want    int
	}{
		{name: "get passes", method: http.MethodGet, want: http.StatusOK},
		{name: "form post", method: http.MethodPost, headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"}, want: http.StatusForbidden},
		{name: "bare delete", method: http.MethodDelete, want: http.StatusForbidden},
		{name: "json body", method: http.MethodPost, headers: map[string]string{"Content-Type": "application/json; charset=utf-8"}, want: http.StatusOK},
		{name: "expects json", method: http.MethodDelete, headers: map[string]string{"Accept": "application/json"}, want: http.StatusOK},
		{name: "xhr", method: http.MethodPut, headers: map[string]string{"X-Requested-With": "XMLHttpRequest"}, want: http.StatusOK},
		{name: "patch html", method: http.MethodPatch, headers: map[string]string{"Accept": "text/html"}, want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := middleware.RequireAjax(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(tt.method, "/v1/admin/roles", strings.NewReader("{}"))
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
