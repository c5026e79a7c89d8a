package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Headers are checked in order. Google's front end puts the client first in
// X-Forwarded-For; Cloudflare sets CF-Connecting-IP when proxied.
var Headers = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// GetIP returns the first valid address from Headers, else RemoteAddr.
// The result is normalized and empty when nothing parses.
func GetIP(r *http.Request) string {
	for _, h := range Headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		for part := range strings.SplitSeq(v, ",") {
			if ip := parse(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parse(r.RemoteAddr)
	}
	return parse(host)
}

func parse(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().WithZone("").String()
}
