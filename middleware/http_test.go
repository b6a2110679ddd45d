package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/auth"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/middleware"
	"github.com/xraph/bastion/store/memory"
	"github.com/xraph/bastion/user"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) middleware.Func {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := middleware.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestRequestInfo(t *testing.T) {
	var got bastion.RequestInfo
	h := func(next http.Handler) http.Handler { return next }
	capture := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = bastion.RequestInfoFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	req.Header.Set("User-Agent", "curl/8.5.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	middleware.Chain(capture, h, middleware.RequestInfo(false)).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "192.0.2.7", got.IP)
	assert.Equal(t, "curl/8.5.0", got.UserAgent)

	middleware.RequestInfo(true)(capture).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.9", got.IP)
}

func TestAuthenticate(t *testing.T) {
	st := memory.New()
	eng, err := bastion.NewEngine(bastion.WithStore(st))
	require.NoError(t, err)
	a, err := auth.NewAuthenticator("secret", eng)
	require.NoError(t, err)

	u := &user.User{ID: id.NewUserID(), Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, st.CreateUser(context.Background(), u))
	token, err := a.Issue(u.ID, id.Nil)
	require.NoError(t, err)

	var seen *bastion.Principal
	h := middleware.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = bastion.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}), middleware.Authenticate(a, nil))

	tests := []struct {
		name      string
		header    string
		status    int
		principal bool
	}{
		{"anonymous", "", http.StatusOK, false},
		{"valid", "Bearer " + token, http.StatusOK, true},
		{"garbage", "Bearer nope", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.principal {
				require.NotNil(t, seen)
				assert.Equal(t, u.ID, seen.ID)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := middleware.RequireAuth(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(bastion.WithPrincipal(req.Context(), &bastion.Principal{ID: id.NewUserID()}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
