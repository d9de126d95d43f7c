package entities

import "net/http"

// UpstreamResponse is a fully read provider response.
type UpstreamResponse struct {
	StatusCode int
	Body       string
}

func (r *UpstreamResponse) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *UpstreamResponse) RateLimited() bool {
	return r.StatusCode == http.StatusTooManyRequests
}
