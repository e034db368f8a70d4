package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"recitation/internal/config"
	"recitation/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStylesheet verifies that the transform stylesheet is a readable file.
func CheckStylesheet(path string) Result {
	const name = "Stylesheet"
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "transform.stylesheet not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckCredentials verifies that a wiki bot account is configured.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Wiki credentials"
	if cfg == nil || !cfg.WikiCredentialsConfigured() {
		return Result{Name: name, Detail: "set wiki.username and wiki.password or RECITATION_WIKI_USERNAME/RECITATION_WIKI_PASSWORD"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("user %s", cfg.Wiki.Username)}
}

// CheckSystemDeps evaluates the external tools the pipeline runs.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Transform",
			Command:     cfg.Transform.Command,
			Description: "Required to convert source documents to wiki markup",
		},
	}
	return deps.CheckBinaries(requirements)
}

// CheckEndpoints probes every configured HTTP endpoint once.
func CheckEndpoints(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckEndpoint(ctx, "Identifier converter", cfg.Resolver.BaseURL, cfg.Wiki.UserAgent),
		CheckEndpoint(ctx, "Open access service", cfg.Archive.OAServiceURL, cfg.Wiki.UserAgent),
		CheckWikiAPI(ctx, "Text wiki", cfg.Wiki.APIURL, cfg.Wiki.UserAgent),
	}
	if cfg.MediaAPIURL() != cfg.Wiki.APIURL {
		results = append(results, CheckWikiAPI(ctx, "Media wiki", cfg.MediaAPIURL(), cfg.Wiki.UserAgent))
	}
	return results
}

// CheckWikiAPI verifies that apiURL answers a siteinfo query.
func CheckWikiAPI(ctx context.Context, name, apiURL, userAgent string) Result {
	base := strings.TrimSpace(apiURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "siteinfo")
	params.Set("format", "json")
	return probe(ctx, name, base+"?"+params.Encode(), userAgent)
}

// CheckEndpoint verifies that baseURL is reachable. Any answer below 500
// counts, since bare service URLs usually reject requests without ids.
func CheckEndpoint(ctx context.Context, name, baseURL, userAgent string) Result {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	return probe(ctx, name, base, userAgent)
}

func probe(ctx context.Context, name, target, userAgent string) Result {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, target, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (endpoint unreachable)"
	}
	return fmt.Sprintf("check failed (%v)", err)
}
