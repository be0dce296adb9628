package script

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExecutorRequest(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		headers map[string]string
		want    bool
	}{
		{name: "empty user agent", ua: "", want: true},
		{name: "known executor", ua: "Synapse X/2.0", want: true},
		{name: "delta", ua: "Delta Android", want: true},
		{name: "roblox client", ua: "Roblox/WinInet", want: true},
		{name: "http.request", ua: "LuaHttp http.request", want: true},
		{name: "roblox id header", ua: "curl/8.0", headers: map[string]string{"Roblox-Id": "123"}, want: true},
		{name: "roblox game header", ua: "curl/8.0", headers: map[string]string{"Roblox-Game": "456"}, want: true},
		{name: "browser", ua: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Firefox/120.0", want: false},
		{name: "curl", ua: "curl/8.0", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/script", nil)
			r.Header.Del("User-Agent")
			if tt.ua != "" {
				r.Header.Set("User-Agent", tt.ua)
			}
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, IsExecutorRequest(r))
		})
	}
}
