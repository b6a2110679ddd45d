package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/xraph/bastion"
)

// Locale negotiates the response language and stores it in the request
// context. The authenticated user's own locale wins when it is one of
// supported, then the best Accept-Language match, then fallback.
func Locale(supported []string, fallback string) Func {
	tags := make([]language.Tag, 0, len(supported))
	names := make([]string, 0, len(supported))
	for _, s := range supported {
		tag, err := language.Parse(s)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		names = append(names, s)
	}
	var matcher language.Matcher
	if len(tags) > 0 {
		matcher = language.NewMatcher(tags)
	}

	pick := func(r *http.Request) string {
		if p, ok := bastion.PrincipalFromContext(r.Context()); ok && p.Locale != "" {
			for _, n := range names {
				if strings.EqualFold(n, p.Locale) {
					return n
				}
			}
		}
		if matcher == nil {
			return fallback
		}
		accept := r.Header.Get("Accept-Language")
		if accept == "" {
			return fallback
		}
		wanted, _, err := language.ParseAcceptLanguage(accept)
		if err != nil || len(wanted) == 0 {
			return fallback
		}
		_, idx, conf := matcher.Match(wanted...)
		if conf == language.No {
			return fallback
		}
		return names[idx]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := pick(r)
			if loc != "" {
				w.Header().Set("Content-Language", loc)
			}
			next.ServeHTTP(w, r.WithContext(bastion.WithLocale(r.Context(), loc)))
		})
	}
}

// RequireAjax rejects state-changing requests that are neither JSON nor
// sent with X-Requested-With: XMLHttpRequest. A plain HTML form cannot
// satisfy either condition cross-origin without a CORS preflight.
func RequireAjax(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if !isAjax(r) {
				writeJSON(w, http.StatusForbidden, "X-Requested-With header required")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isAjax(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	if strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "json") {
		return true
	}
	accept := strings.ToLower(r.Header.Get("Accept"))
	return strings.Contains(accept, "/json") || strings.Contains(accept, "+json")
}
