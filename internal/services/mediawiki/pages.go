package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"recitation/internal/services"
)

// Upload sends the file at path as name, with description as the file page
// text. When the wiki already holds the same content or the same name, the
// error wraps services.ErrPublishConflict and the returned name is the
// existing file's name.
func (c *Client) Upload(ctx context.Context, name, path, description, comment string) (string, error) {
	const op = "upload"
	params := url.Values{}
	params.Set("action", "upload")
	params.Set("filename", name)
	params.Set("text", description)
	params.Set("comment", comment)
	params.Set("ignorewarnings", "0")

	resp, err := c.withToken(ctx, func(token string) (*apiResponse, error) {
		params.Set("token", token)
		return c.postMultipart(ctx, op, params, filePart{field: "file", path: path})
	})
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		if strings.HasPrefix(resp.Error.Code, "fileexists") {
			return name, conflict(op, name, resp.Error.Info)
		}
		return "", apiFailure(op, resp.Error)
	}
	if resp.Upload == nil {
		return "", services.Wrap(services.ErrExternalTool, "", op, "api returned no upload result", nil)
	}
	switch {
	case strings.EqualFold(resp.Upload.Result, "Success"):
		if resp.Upload.Filename != "" {
			return resp.Upload.Filename, nil
		}
		return name, nil
	case strings.EqualFold(resp.Upload.Result, "Warning"):
		if existing, ok := duplicateName(resp.Upload.Warnings); ok {
			return existing, conflict(op, existing, "identical file already uploaded")
		}
		if _, ok := resp.Upload.Warnings["exists"]; ok {
			return name, conflict(op, name, "file name already in use")
		}
		keys := make([]string, 0, len(resp.Upload.Warnings))
		for k := range resp.Upload.Warnings {
			keys = append(keys, k)
		}
		return "", services.Wrap(services.ErrExternalTool, "", op, fmt.Sprintf("upload warnings: %s", strings.Join(keys, ", ")), nil)
	default:
		return "", services.Wrap(services.ErrExternalTool, "", op, fmt.Sprintf("unexpected upload result %q", resp.Upload.Result), nil)
	}
}

// Edit saves text to the page title as a bot edit.
func (c *Client) Edit(ctx context.Context, title, text, summary string) error {
	const op = "edit"
	params := url.Values{}
	params.Set("action", "edit")
	params.Set("title", title)
	params.Set("text", text)
	params.Set("summary", summary)
	params.Set("bot", "1")

	resp, err := c.withToken(ctx, func(token string) (*apiResponse, error) {
		params.Set("token", token)
		return c.postForm(ctx, op, params)
	})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		if resp.Error.Code == "articleexists" || resp.Error.Code == "editconflict" {
			return conflict(op, title, resp.Error.Info)
		}
		return apiFailure(op, resp.Error)
	}
	if resp.Edit == nil || !strings.EqualFold(resp.Edit.Result, "Success") {
		return services.Wrap(services.ErrExternalTool, "", op, "edit was not saved", nil)
	}
	return nil
}

// FindFile returns the title of the first file whose name starts with prefix.
func (c *Client) FindFile(ctx context.Context, prefix string) (string, bool, error) {
	const op = "find file"
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "allimages")
	params.Set("aiprefix", prefix)
	params.Set("ailimit", "1")
	resp, err := c.get(ctx, op, params)
	if err != nil {
		return "", false, err
	}
	if resp.Error != nil {
		return "", false, apiFailure(op, resp.Error)
	}
	if resp.Query == nil || len(resp.Query.AllImages) == 0 {
		return "", false, nil
	}
	img := resp.Query.AllImages[0]
	if img.Title != "" {
		return img.Title, true, nil
	}
	return "File:" + img.Name, true, nil
}

// withToken runs call with the session CSRF token, refreshing the token once
// when the wiki reports it stale.
func (c *Client) withToken(ctx context.Context, call func(token string) (*apiResponse, error)) (*apiResponse, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.session(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := call(token)
		if err != nil {
			return nil, err
		}
		if resp.Error != nil && resp.Error.Code == "badtoken" && attempt == 0 {
			c.resetToken()
			continue
		}
		return resp, nil
	}
}

func duplicateName(warnings map[string]json.RawMessage) (string, bool) {
	raw, ok := warnings["duplicate"]
	if !ok {
		return "", false
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil || len(names) == 0 {
		return "", false
	}
	return names[0], true
}

func conflict(op, name, info string) error {
	return &services.Error{
		Marker:    services.ErrPublishConflict,
		Operation: op,
		Message:   name,
		Hint:      info,
	}
}

// ExistingName returns the page or file name carried by a publish conflict.
func ExistingName(err error) string {
	if !services.IsRecoverable(err) {
		return ""
	}
	return services.Details(err).Message
}
