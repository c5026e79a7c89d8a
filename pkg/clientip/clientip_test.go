package clientip_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/profepj/profepj/pkg/clientip"
)

func TestGetIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "cloudflare first",
			headers: map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"},
			remote:  "10.0.0.1:4000",
			want:    "203.0.113.7",
		},
		{
			name:    "client is the first forwarded address",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.1, 35.191.0.1"},
			remote:  "169.254.1.1:4000",
			want:    "198.51.100.1",
		},
		{
			name:    "skips garbage in forwarded list",
			headers: map[string]string{"X-Forwarded-For": "unknown, 198.51.100.2"},
			remote:  "10.0.0.1:4000",
			want:    "198.51.100.2",
		},
		{
			name:    "invalid cloudflare header falls through",
			headers: map[string]string{"CF-Connecting-IP": "nope", "X-Real-IP": "192.0.2.9"},
			remote:  "10.0.0.1:4000",
			want:    "192.0.2.9",
		},
		{
			name:   "remote addr",
			remote: "127.0.0.1:8080",
			want:   "127.0.0.1",
		},
		{
			name:   "ipv6 remote addr",
			remote: "[2001:db8::1]:443",
			want:   "2001:db8::1",
		},
		{
			name:    "ipv4 mapped ipv6 is unmapped",
			headers: map[string]string{"X-Real-IP": "::ffff:192.0.2.1"},
			want:    "192.0.2.1",
		},
		{
			name:   "nothing parses",
			remote: "garbage",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.GetIP(req))
		})
	}
}
