package middleware

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP returns the address rate limiting keys on. Proxy headers
// win over the socket address: the first parseable entry of
// X-Forwarded-For, then X-Real-IP, then the connection's remote host.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for _, entry := range strings.Split(forwarded, ",") {
			if ip := net.ParseIP(strings.TrimSpace(entry)); ip != nil {
				return ip.String()
			}
		}
	}

	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
