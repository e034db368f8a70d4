package mediawiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"recitation/internal/config"
)

// HTTPDoer describes the HTTP client used by the API client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client. The client must keep cookies
// between requests for the login session to survive.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithUserAgent sets the User-Agent header. Wikimedia rejects requests
// without one.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// Client talks to one wiki's api.php endpoint.
type Client struct {
	apiURL    string
	username  string
	password  string
	userAgent string
	http      HTTPDoer

	mu        sync.Mutex
	loggedIn  bool
	csrfToken string
}

// New constructs a client for apiURL authenticating as username.
func New(apiURL, username, password string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiURL = strings.TrimSpace(apiURL)
	if apiURL == "" {
		return nil, errors.New("mediawiki api url required")
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		apiURL:   apiURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: timeout, Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig builds the client for the text wiki that receives articles.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("mediawiki: config is nil")
	}
	return fromConfig(cfg, cfg.Wiki.APIURL, opts)
}

// NewMediaFromConfig builds the client for the media repository that
// receives images.
func NewMediaFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("mediawiki: config is nil")
	}
	return fromConfig(cfg, cfg.MediaAPIURL(), opts)
}

func fromConfig(cfg *config.Config, apiURL string, opts []Option) (*Client, error) {
	opts = append([]Option{WithUserAgent(cfg.Wiki.UserAgent)}, opts...)
	timeout := time.Duration(cfg.Wiki.Timeout) * time.Second
	return New(apiURL, cfg.Wiki.Username, cfg.Wiki.Password, timeout, opts...)
}

// APIURL returns the endpoint this client talks to.
func (c *Client) APIURL() string {
	return c.apiURL
}

func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		if err := c.login(ctx); err != nil {
			return "", err
		}
		c.loggedIn = true
	}
	if c.csrfToken == "" {
		token, err := c.token(ctx, "csrf")
		if err != nil {
			return "", err
		}
		c.csrfToken = token
	}
	return c.csrfToken, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.csrfToken = ""
	c.mu.Unlock()
}
