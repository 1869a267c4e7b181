package cleanhttp

import (
	"net"
	"net/http"
	"time"
)

// DefaultTransport is a pooled transport tuned for many small API
// requests, the audit path's traffic pattern.
var DefaultTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

var DefaultClient = &http.Client{
	Transport: DefaultTransport,
}

func Get(url string) (resp *http.Response, err error) {
	return DefaultClient.Get(url)
}

func Do(req *http.Request) (resp *http.Response, err error) {
	return DefaultClient.Do(req)
}
