package llm

import (
	"net"
	"net/http"
	"time"
)

// Chat completions can take well over a minute; the header timeout covers
// the wait for the first byte, the client timeout bounds the full body.
const (
	headerTimeout = 60 * time.Second
	totalTimeout  = 120 * time.Second
)

// newProviderClient builds the shared HTTP client for upstream AI calls.
// Connections are pooled per provider host so tutor traffic reuses them.
func newProviderClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: totalTimeout,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: headerTimeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   5,
			MaxConnsPerHost:       10,
			ForceAttemptHTTP2:     true,
		},
	}
}
