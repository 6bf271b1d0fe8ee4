package shared

import (
	"net/http"
)

const (
	// Realistic desktop browser; upstream serves degraded or blocked responses to bot agents
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	apiAccept        = "application/json, text/plain, */*"
)

// IUserAgent decorates outbound requests with the identity upstream expects from a browser.
type IUserAgent interface {
	AddApiHeaders(req *http.Request)
	AddImageHeaders(req *http.Request)
}

type userAgent struct {
	apiReferer     string
	imageReferer   string
	acceptLanguage string
}

func NewUserAgent(cfg *Config) IUserAgent {
	return &userAgent{
		apiReferer:     cfg.UpstreamReferer,
		imageReferer:   cfg.ImageReferer,
		acceptLanguage: cfg.AcceptLanguage,
	}
}

func (ua *userAgent) AddApiHeaders(req *http.Request) {
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Referer", ua.apiReferer)
	req.Header.Set("Accept", apiAccept)
	req.Header.Set("Accept-Language", ua.acceptLanguage)
}

// AddImageHeaders spoofs the main site's web origin, which is what the image CDN checks against.
func (ua *userAgent) AddImageHeaders(req *http.Request) {
	req.Header.Set("Referer", ua.imageReferer)
	req.Header.Set("User-Agent", BrowserUserAgent)
}
