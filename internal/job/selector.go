package job

import (
	"fmt"
	"slices"
	"strings"
)

// TextToken is the selector token that requests text regeneration only.
const TextToken = "text"

// Selector names the asset categories a run regenerates. Text regeneration is
// implied whenever the pipeline runs; the Text flag records that it was
// requested explicitly.
type Selector struct {
	Categories []Category `json:"categories"`
	Text       bool       `json:"text,omitempty"`
}

// AllCategories is the selector used for first runs.
func AllCategories() Selector {
	return Selector{Categories: slices.Clone(Categories), Text: true}
}

// IsEmpty reports whether nothing was requested.
func (s Selector) IsEmpty() bool {
	return len(s.Categories) == 0 && !s.Text
}

// Includes reports whether c is regenerated.
func (s Selector) Includes(c Category) bool {
	return slices.Contains(s.Categories, c)
}

// Excluded returns the categories not regenerated, in canonical order.
func (s Selector) Excluded() []Category {
	out := make([]Category, 0, len(Categories))
	for _, c := range Categories {
		if !s.Includes(c) {
			out = append(out, c)
		}
	}
	return out
}

// Normalized returns a copy with deduplicated categories in canonical order.
func (s Selector) Normalized() Selector {
	out := Selector{Categories: make([]Category, 0, len(s.Categories)), Text: s.Text}
	for _, c := range Categories {
		if slices.Contains(s.Categories, c) {
			out.Categories = append(out.Categories, c)
		}
	}
	return out
}

// String renders the selector as comma-separated tokens.
func (s Selector) String() string {
	parts := make([]string, 0, len(s.Categories)+1)
	for _, c := range s.Normalized().Categories {
		parts = append(parts, string(c))
	}
	if s.Text {
		parts = append(parts, TextToken)
	}
	return strings.Join(parts, ",")
}

// ParseSelector parses comma-separated tokens (images, equations, tables, text).
func ParseSelector(values ...string) (Selector, error) {
	var sel Selector
	for _, value := range values {
		for _, token := range strings.Split(value, ",") {
			token = strings.ToLower(strings.TrimSpace(token))
			if token == "" {
				continue
			}
			if token == TextToken {
				sel.Text = true
				continue
			}
			c, err := ParseCategory(token)
			if err != nil {
				return Selector{}, fmt.Errorf("parse reupload selector: %w", err)
			}
			sel.Categories = append(sel.Categories, c)
		}
	}
	return sel.Normalized(), nil
}
