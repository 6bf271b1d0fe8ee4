package logic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"weibo_relay/shared"
)

const (
	LabelApi   = "api"
	LabelImage = "image"
)

const maxImageRedirects = 10

// ErrRedirectNotAllowed is returned by FetchImage when the image host redirects outside the allowed domains.
var ErrRedirectNotAllowed = errors.New("image redirect target not allowed")

// IForwarder issues the single outbound request behind each proxied call.
// Callers own the returned response and must close its body.
type IForwarder interface {
	ForwardApi(ctx context.Context, method, pathAndQuery string, body io.Reader, contentType string) (*http.Response, error)
	FetchImage(ctx context.Context, imageUrl string) (*http.Response, error)
}

type forwarder struct {
	cfg       *shared.Config
	logger    shared.ILogger
	userAgent shared.IUserAgent
	metrics   IMetrics
	client    *http.Client
	imgClient *http.Client
}

// NewForwarder sets no client timeout: outbound requests live as long as the inbound request context.
func NewForwarder(
	cfg *shared.Config,
	logger shared.ILogger,
	userAgent shared.IUserAgent,
	metrics IMetrics,
) IForwarder {
	fw := &forwarder{
		cfg:       cfg,
		logger:    logger,
		userAgent: userAgent,
		metrics:   metrics,
		client:    &http.Client{},
	}
	fw.imgClient = &http.Client{CheckRedirect: fw.checkImageRedirect}
	return fw
}

// Every hop of an image fetch must stay on an allowed image domain.
func (fw *forwarder) checkImageRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxImageRedirects {
		return fmt.Errorf("stopped after %d redirects", maxImageRedirects)
	}
	scheme := req.URL.Scheme
	host := req.URL.Hostname()
	if (scheme != "http" && scheme != "https") || host == "" || !shared.HostMatchesDomains(host, fw.cfg.ImageDomains) {
		fw.logger.Warnf("Image redirect to %s refused", req.URL.Redacted())
		return ErrRedirectNotAllowed
	}
	return nil
}

func (fw *forwarder) ForwardApi(
	ctx context.Context,
	method, pathAndQuery string,
	body io.Reader,
	contentType string,
) (resp *http.Response, err error) {

	targetUrl := fw.cfg.UpstreamApiBase + pathAndQuery
	var req *http.Request
	if req, err = http.NewRequestWithContext(ctx, method, targetUrl, body); err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	fw.userAgent.AddApiHeaders(req)
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	fw.logger.Debugf("Forwarding %s %s", method, targetUrl)
	observer := fw.metrics.StartUpstreamRequestOut(LabelApi)
	resp, err = fw.client.Do(req)
	observer.Finish()
	if err != nil {
		return nil, err
	}
	fw.metrics.UpstreamStatus(LabelApi, resp.StatusCode)
	return resp, nil
}

func (fw *forwarder) FetchImage(ctx context.Context, imageUrl string) (resp *http.Response, err error) {

	var req *http.Request
	if req, err = http.NewRequestWithContext(ctx, "GET", imageUrl, nil); err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	fw.userAgent.AddImageHeaders(req)

	fw.logger.Debugf("Fetching image %s", imageUrl)
	observer := fw.metrics.StartUpstreamRequestOut(LabelImage)
	resp, err = fw.imgClient.Do(req)
	observer.Finish()
	if err != nil {
		return nil, err
	}
	fw.metrics.UpstreamStatus(LabelImage, resp.StatusCode)
	return resp, nil
}
