package wikitext

import (
	"context"
	"path"
	"regexp"
	"strings"

	"recitation/internal/job"
)

// ReplaceMediaReferences points every "File:<name>|" reference at the
// uploaded name of the matching asset. Assets without an uploaded name are
// left alone. It returns the rewritten text and the number of replacements.
func ReplaceMediaReferences(text string, assets []job.Asset) (string, int) {
	total := 0
	for _, asset := range assets {
		if asset.Name == "" || asset.UploadedName == "" {
			continue
		}
		pattern := regexp.MustCompile(`File:` + regexp.QuoteMeta(asset.Name) + `\|`)
		replacement := "File:" + asset.UploadedName + "|"
		n := len(pattern.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		text = pattern.ReplaceAllLiteralString(text, replacement)
		total += n
	}
	return text, total
}

// FileFinder looks up an existing file by name prefix.
type FileFinder interface {
	FindFile(ctx context.Context, prefix string) (string, bool, error)
}

// ReplaceSupplementaryLinks rewrites embedded "[[File:<href>...]]" links for
// supplementary material. A file already present on the media repository is
// linked directly; anything else becomes an external link to the archive copy.
func ReplaceSupplementaryLinks(ctx context.Context, text string, items []job.Supplementary, finder FileFinder) (string, int, error) {
	total := 0
	for _, item := range items {
		if item.Href == "" {
			continue
		}
		pattern := regexp.MustCompile(`\[\[File:` + regexp.QuoteMeta(item.Href) + `.*?\]\]`)
		if !pattern.MatchString(text) {
			continue
		}
		replacement := "[" + item.URL + " " + item.Href + "]"
		if finder != nil {
			stem := strings.TrimSuffix(item.Href, path.Ext(item.Href))
			found, ok, err := finder.FindFile(ctx, stem)
			if err != nil {
				return text, total, err
			}
			if ok {
				replacement = "[[" + found + "]]"
			}
		}
		total += len(pattern.FindAllStringIndex(text, -1))
		text = pattern.ReplaceAllLiteralString(text, replacement)
	}
	return text, total, nil
}
