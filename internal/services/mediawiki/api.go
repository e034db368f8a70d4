package mediawiki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"recitation/internal/services"
)

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type apiResponse struct {
	Error *apiError `json:"error"`
	Login *struct {
		Result string `json:"result"`
		Reason string `json:"reason"`
	} `json:"login"`
	Upload *struct {
		Result   string                     `json:"result"`
		Filename string                     `json:"filename"`
		Warnings map[string]json.RawMessage `json:"warnings"`
	} `json:"upload"`
	Edit *struct {
		Result string `json:"result"`
		Title  string `json:"title"`
	} `json:"edit"`
	Query *struct {
		Tokens    map[string]string `json:"tokens"`
		AllImages []struct {
			Name  string `json:"name"`
			Title string `json:"title"`
		} `json:"allimages"`
	} `json:"query"`
}

type filePart struct {
	field string
	path  string
}

func (c *Client) get(ctx context.Context, op string, params url.Values) (*apiResponse, error) {
	params.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", op, "build request", err)
	}
	return c.do(op, req)
}

func (c *Client) postForm(ctx context.Context, op string, params url.Values) (*apiResponse, error) {
	params.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(op, req)
}

func (c *Client) postMultipart(ctx context.Context, op string, params url.Values, file filePart) (*apiResponse, error) {
	params.Set("format", "json")
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, values := range params {
		for _, v := range values {
			if err := w.WriteField(key, v); err != nil {
				return nil, fmt.Errorf("write field %s: %w", key, err)
			}
		}
	}
	f, err := os.Open(file.path)
	if err != nil {
		return nil, services.Wrap(services.ErrStructural, "", op, "open upload file", err)
	}
	defer f.Close()
	part, err := w.CreateFormFile(file.field, filepath.Base(file.path))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy upload file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, &body)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", op, "build request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(op, req)
}

func (c *Client) do(op string, req *http.Request) (*apiResponse, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.WithHint(services.Wrap(services.ErrExternalTool, "", op, "request failed", err), c.apiURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, services.WithHint(services.Wrap(services.ErrExternalTool, "", op,
			fmt.Sprintf("api returned %d", resp.StatusCode), nil), c.apiURL)
	}
	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&out); err != nil {
		return nil, services.WithHint(services.Wrap(services.ErrExternalTool, "", op, "malformed api response", err), c.apiURL)
	}
	return &out, nil
}

func (c *Client) token(ctx context.Context, kind string) (string, error) {
	op := "fetch " + kind + " token"
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "tokens")
	params.Set("type", kind)
	resp, err := c.get(ctx, op, params)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", apiFailure(op, resp.Error)
	}
	if resp.Query == nil || resp.Query.Tokens[kind+"token"] == "" {
		return "", services.Wrap(services.ErrExternalTool, "", op, "api returned no token", nil)
	}
	return resp.Query.Tokens[kind+"token"], nil
}

func (c *Client) login(ctx context.Context) error {
	const op = "login"
	if c.username == "" || c.password == "" {
		return services.WithHint(
			services.Wrap(services.ErrConfiguration, "", op, "wiki credentials are not configured", nil),
			"set wiki.username and wiki.password or the RECITATION_WIKI_* environment variables")
	}
	token, err := c.token(ctx, "login")
	if err != nil {
		return err
	}
	params := url.Values{}
	params.Set("action", "login")
	params.Set("lgname", c.username)
	params.Set("lgpassword", c.password)
	params.Set("lgtoken", token)
	resp, err := c.postForm(ctx, op, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return apiFailure(op, resp.Error)
	}
	if resp.Login == nil || !strings.EqualFold(resp.Login.Result, "Success") {
		reason := "login rejected"
		if resp.Login != nil && resp.Login.Reason != "" {
			reason = resp.Login.Reason
		}
		return services.Wrap(services.ErrConfiguration, "", op, reason, nil)
	}
	return nil
}

func apiFailure(op string, e *apiError) error {
	return services.Wrap(services.ErrExternalTool, "", op, fmt.Sprintf("%s: %s", e.Code, e.Info), nil)
}
