package idconv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recitation/internal/config"
	"recitation/internal/services"
)

const operation = "idconv lookup"

// Kind distinguishes a resolved identifier from one the service has no
// record for.
type Kind string

const (
	KindResolved      Kind = "resolved"
	KindNotApplicable Kind = "not_applicable"
)

// Resolution is the definitive answer for one identifier.
type Resolution struct {
	Kind       Kind
	ExternalID string
}

// HTTPDoer describes the HTTP client used by the converter client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each lookup.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// Client wraps the PMC ID converter HTTP API.
type Client struct {
	baseURL   string
	userAgent string
	http      HTTPDoer
}

// New constructs a converter client.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("idconv base url required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig builds a client from the resolver section.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("idconv: config is nil")
	}
	opts = append([]Option{WithUserAgent(cfg.Wiki.UserAgent)}, opts...)
	return New(cfg.Resolver.BaseURL, time.Duration(cfg.Resolver.Timeout)*time.Second, opts...)
}

// LookupURL returns the URL queried for identifier. Operators can open it to
// see the raw converter response.
func (c *Client) LookupURL(identifier string) string {
	params := url.Values{}
	params.Set("ids", identifier)
	params.Set("format", "json")
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + params.Encode()
}

type response struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Records *[]record `json:"records"`
}

type record struct {
	PMCID  string `json:"pmcid"`
	PMID   string `json:"pmid"`
	DOI    string `json:"doi"`
	Status string `json:"status"`
	Errmsg string `json:"errmsg"`
}

// Resolve performs a single lookup for identifier.
func (c *Client) Resolve(ctx context.Context, identifier string) (Resolution, error) {
	lookup := c.LookupURL(identifier)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookup, nil)
	if err != nil {
		return Resolution{}, services.Wrap(services.ErrValidation, "", operation, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Resolution{}, services.WithHint(
			services.Wrap(services.ErrExternalTool, "", operation, "request failed", err), lookup)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Resolution{}, services.WithHint(
			services.Wrap(services.ErrExternalTool, "", operation, "read response", err), lookup)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return Resolution{}, services.WithHint(services.Wrap(services.ErrExternalTool, "", operation,
			fmt.Sprintf("service returned %d", resp.StatusCode), nil), lookup)
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return Resolution{}, services.Wrap(services.ErrTransient, "", operation, "malformed response", err)
	}
	if payload.Records == nil {
		return Resolution{}, services.WithHint(services.Wrap(services.ErrValidation, "", operation,
			"response has no records; the identifier may contain a typo or extra text", nil), lookup)
	}
	records := *payload.Records
	if len(records) != 1 {
		return Resolution{}, services.Wrap(services.ErrStructural, "", operation,
			fmt.Sprintf("expected exactly one record, got %d", len(records)), nil)
	}
	rec := records[0]
	if strings.EqualFold(rec.Status, "error") || strings.TrimSpace(rec.PMCID) == "" {
		return Resolution{Kind: KindNotApplicable}, nil
	}
	return Resolution{Kind: KindResolved, ExternalID: strings.TrimSpace(rec.PMCID)}, nil
}
