package wikitext

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	forbiddenChars  = "?,;:^/!<>\"`'±#[]|{}ʻʾʿ᾿῾‘’“”"
	namePrefixRunes = 100
)

func stripForbidden(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbiddenChars, r) {
			return -1
		}
		return r
	}, s)
}

// CleanTitle returns title in NFC form with forbidden title characters
// removed and whitespace runs collapsed to single spaces.
func CleanTitle(title string) string {
	title = norm.NFC.String(title)
	title = strings.Join(strings.Fields(title), " ")
	return strings.TrimSpace(stripForbidden(title))
}

// HarmonizeName derives a media file name from the article title and the
// asset file name. The title prefix is cut to its first hundred characters
// with spaces turned into dashes; a word split by the cut is dropped.
func HarmonizeName(file, articleTitle string) string {
	dirty := norm.NFC.String(articleTitle)
	dirty = strings.ReplaceAll(dirty, "\n", "")
	dirty = strings.Join(strings.Fields(dirty), " ")
	dirty = stripForbidden(dirty)

	runes := []rune(dirty)
	truncated := len(runes) > namePrefixRunes
	if truncated {
		runes = runes[:namePrefixRunes]
	}
	prefix := strings.ReplaceAll(string(runes), " ", "-")
	if truncated {
		if idx := strings.LastIndex(prefix, "-"); idx >= 0 {
			prefix = prefix[:idx]
		} else {
			prefix = ""
		}
	}
	if prefix != "" && !strings.HasSuffix(prefix, "-") {
		prefix += "-"
	}
	return prefix + file
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Redirect returns the body of a redirect page pointing at target.
func Redirect(target string) string {
	return "#REDIRECT [[" + target + "]]"
}
