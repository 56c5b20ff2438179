package server

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// requestGuard rejects writes that a browser could send cross-site without
// a preflight, and answers CORS only for same-origin callers and the
// configured allow-list. Origins are compared as scheme://host[:port].
func requestGuard(allowed []string) func(http.Handler) http.Handler {
	allow := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allow[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isWrite(r.Method) && !isJSON(r.Header.Get("Content-Type")) {
				writeError(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}

			origin := r.Header.Get("Origin")
			if origin != "" {
				if !sameOrigin(origin, r.Host) && !allow[strings.ToLower(origin)] {
					writeError(w, "origin not allowed", http.StatusForbidden)
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

func sameOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
