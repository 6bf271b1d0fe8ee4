// Package client queries the upstream content API, through the edge router when one is configured.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"weibo_relay/dto"
	"weibo_relay/shared"
)

type IClient interface {
	FetchProfile(ctx context.Context, authorId dto.AuthorId) (*dto.ProfileResponse, error)
	FetchTimeline(ctx context.Context, authorId dto.AuthorId, page int) (*dto.TimelineResponse, error)
	ImageURL(rawUrl string) string
	IsProxyConfigured() bool
	BaseURL() string
}

type Config struct {
	// Edge router address; empty means requests go straight to UpstreamBase
	BaseURL      string
	UpstreamBase string
	ImageDomains []string
}

// ConfigFrom picks the client settings out of the shared config file.
func ConfigFrom(cfg *shared.Config) Config {
	return Config{
		BaseURL:      cfg.ProxyBaseUrl,
		UpstreamBase: cfg.UpstreamApiBase,
		ImageDomains: shared.DefaultClientImageDomains,
	}
}

// StatusError is returned when the API answered with a non-2xx status.
// Body is the payload as received; Msg is the envelope's msg field when the payload is an API envelope.
type StatusError struct {
	Url        string
	StatusCode int
	Msg        string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("request to %s failed with status %d: %s", e.Url, e.StatusCode, e.Msg)
	}
	return fmt.Sprintf("request to %s failed with status %d", e.Url, e.StatusCode)
}

// Upper bound on the error payload kept in a StatusError
const maxErrorBody = 64 * 1024

type client struct {
	cfg       Config
	userAgent shared.IUserAgent
	http      *http.Client
	idb       shared.IdBuilder
}

// NewClient uses http.DefaultClient if httpClient is nil.
func NewClient(cfg Config, userAgent shared.IUserAgent, httpClient *http.Client) IClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UpstreamBase == "" {
		cfg.UpstreamBase = shared.DefaultUpstreamApiBase
	}
	cfg.UpstreamBase = strings.TrimRight(cfg.UpstreamBase, "/")
	if cfg.ImageDomains == nil {
		cfg.ImageDomains = shared.DefaultClientImageDomains
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	res := client{
		cfg:       cfg,
		userAgent: userAgent,
		http:      httpClient,
	}
	res.idb.Base = cfg.UpstreamBase
	if cfg.BaseURL != "" {
		res.idb.Base = cfg.BaseURL
	}
	return &res
}

func (c *client) IsProxyConfigured() bool {
	return c.cfg.BaseURL != ""
}

func (c *client) BaseURL() string {
	return c.cfg.BaseURL
}

func (c *client) FetchProfile(ctx context.Context, authorId dto.AuthorId) (*dto.ProfileResponse, error) {
	var resp dto.ProfileResponse
	if err := c.getJson(ctx, c.idb.ProfileUrl(int64(authorId)), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch profile of %v: %w", authorId, err)
	}
	return &resp, nil
}

func (c *client) FetchTimeline(ctx context.Context, authorId dto.AuthorId, page int) (*dto.TimelineResponse, error) {
	var resp dto.TimelineResponse
	if err := c.getJson(ctx, c.idb.TimelineUrl(int64(authorId), page), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch timeline of %v, page %d: %w", authorId, page, err)
	}
	return &resp, nil
}

func (c *client) getJson(ctx context.Context, targetUrl string, obj any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", targetUrl, nil)
	if err != nil {
		return err
	}
	// The edge router sets the browser identity itself; direct calls must bring it along
	if !c.IsProxyConfigured() && c.userAgent != nil {
		c.userAgent.AddApiHeaders(req)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Url: targetUrl, StatusCode: resp.StatusCode}
		statusErr.Body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var envelope struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(statusErr.Body, &envelope) == nil {
			statusErr.Msg = envelope.Msg
		}
		return statusErr
	}
	if err = json.NewDecoder(resp.Body).Decode(obj); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ImageURL routes hotlink-protected images through the edge router.
// Other URLs, and all URLs when no router is configured, come back unchanged.
func (c *client) ImageURL(rawUrl string) string {
	if rawUrl == "" {
		return ""
	}
	if !c.IsProxyConfigured() {
		return rawUrl
	}
	host, err := shared.GetHostName(rawUrl)
	if err != nil {
		host = rawUrl
	}
	if !shared.HostMatchesDomains(host, c.cfg.ImageDomains) {
		return rawUrl
	}
	return c.idb.ImageUrl(rawUrl)
}
