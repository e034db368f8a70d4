package oa

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"recitation/internal/config"
	"recitation/internal/services"
)

// HTTPDoer describes the HTTP client used by the OA client.
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

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// Client wraps the OA service lookup and package download.
type Client struct {
	serviceURL string
	userAgent  string
	http       HTTPDoer
}

// New constructs an OA client. timeout bounds each request including the
// package download.
func New(serviceURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	serviceURL = strings.TrimSpace(serviceURL)
	if serviceURL == "" {
		return nil, errors.New("oa service url required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	c := &Client{serviceURL: serviceURL, http: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig builds a client from the archive section.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("oa: config is nil")
	}
	opts = append([]Option{WithUserAgent(cfg.Wiki.UserAgent)}, opts...)
	return New(cfg.Archive.OAServiceURL, time.Duration(cfg.Archive.DownloadTimeout)*time.Second, opts...)
}

type oaResponse struct {
	XMLName xml.Name `xml:"OA"`
	Error   *struct {
		Code    string `xml:"code,attr"`
		Message string `xml:",chardata"`
	} `xml:"error"`
	Records []struct {
		ID    string `xml:"id,attr"`
		Links []struct {
			Format string `xml:"format,attr"`
			Href   string `xml:"href,attr"`
		} `xml:"link"`
	} `xml:"records>record"`
}

// LookupURL returns the service URL queried for externalID.
func (c *Client) LookupURL(externalID string) string {
	params := url.Values{}
	params.Set("id", externalID)
	sep := "?"
	if strings.Contains(c.serviceURL, "?") {
		sep = "&"
	}
	return c.serviceURL + sep + params.Encode()
}

// Locate returns the download URL of the tgz package for externalID. An id
// the service reports as not open access yields services.ErrNotFound.
func (c *Client) Locate(ctx context.Context, externalID string) (string, error) {
	const op = "oa lookup"
	lookup := c.LookupURL(externalID)
	body, err := c.get(ctx, op, lookup)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var payload oaResponse
	if err := xml.NewDecoder(io.LimitReader(body, 1<<20)).Decode(&payload); err != nil {
		return "", services.WithHint(services.Wrap(services.ErrTransient, "", op, "malformed response", err), lookup)
	}
	if payload.Error != nil {
		msg := strings.TrimSpace(payload.Error.Message)
		if msg == "" {
			msg = payload.Error.Code
		}
		return "", services.WithHint(services.Wrap(services.ErrNotFound, "", op, msg, nil), lookup)
	}
	for _, rec := range payload.Records {
		for _, link := range rec.Links {
			if strings.EqualFold(link.Format, "tgz") && strings.TrimSpace(link.Href) != "" {
				return normalizeHref(link.Href), nil
			}
		}
	}
	return "", services.WithHint(services.Wrap(services.ErrStructural, "", op, "no tgz package listed", nil), lookup)
}

// Download streams href into destDir and returns the written file path. The
// file is written under a temporary name and renamed once complete.
func (c *Client) Download(ctx context.Context, href, destDir string) (string, error) {
	const op = "download package"
	name := path.Base(strings.TrimSpace(href))
	if u, err := url.Parse(href); err == nil {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" {
		return "", services.Wrap(services.ErrValidation, "", op, fmt.Sprintf("cannot derive file name from %q", href), nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	body, err := c.get(ctx, op, href)
	if err != nil {
		return "", err
	}
	defer body.Close()

	target := filepath.Join(destDir, name)
	tmp, err := os.CreateTemp(destDir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", services.Wrap(services.ErrTransient, "", op, "stream package", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close download file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("finalize download: %w", err)
	}
	return target, nil
}

func (c *Client) get(ctx context.Context, op, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", op, "build request", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.WithHint(services.Wrap(services.ErrExternalTool, "", op, "request failed", err), target)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, services.WithHint(services.Wrap(services.ErrNotFound, "", op, "resource not found", nil), target)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, services.WithHint(services.Wrap(services.ErrExternalTool, "", op,
			fmt.Sprintf("service returned %d", resp.StatusCode), nil), target)
	}
	return resp.Body, nil
}

// NCBI lists packages with ftp:// links; the same paths are served over https.
func normalizeHref(href string) string {
	href = strings.TrimSpace(href)
	if rest, ok := strings.CutPrefix(href, "ftp://"); ok {
		return "https://" + rest
	}
	return href
}
