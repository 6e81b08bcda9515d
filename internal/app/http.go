package app

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// newLLMHTTPClient returns an HTTP client for model calls. Chat completions
// over long documents can take minutes, so only the overall timeout is long;
// connection setup stays short to fail fast on an unreachable server.
// insecure disables certificate verification for self-signed local servers.
func newLLMHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,  // no global limit
		MaxIdleConnsPerHost:   64, // enough for the worker pool
		MaxConnsPerHost:       0,  // unlimited
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
