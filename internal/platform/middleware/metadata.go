package middleware

import (
	"net"
	"net/http"
	"strings"

	ua "github.com/mssola/useragent"

	"libris/pkg/requestcontext"
)

// Metadata captures client IP and a normalized User-Agent into the request
// context. The audit trail records both for every staff mutation.
func Metadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), normalizeUserAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	// First hop of X-Forwarded-For when behind a proxy.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// normalizeUserAgent reduces the raw UA string to "browser/version (os)" so
// audit rows stay compact and comparable.
func normalizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	parsed := ua.New(raw)
	name, version := parsed.Browser()
	if name == "" {
		return raw
	}
	normalized := name
	if version != "" {
		normalized += "/" + version
	}
	if os := parsed.OS(); os != "" {
		normalized += " (" + os + ")"
	}
	return normalized
}
