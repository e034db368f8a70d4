package job

import (
	"errors"
	"strings"
)

var identifierPrefixes = []string{
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"https://doi.org/",
	"http://doi.org/",
	"doi:",
}

// ErrEmptyIdentifier is returned when an identifier is blank after canonicalization.
var ErrEmptyIdentifier = errors.New("identifier is empty")

// CanonicalIdentifier strips resolver URL prefixes and surrounding whitespace.
func CanonicalIdentifier(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	for {
		stripped := false
		lower := strings.ToLower(id)
		for _, prefix := range identifierPrefixes {
			if strings.HasPrefix(lower, prefix) {
				id = strings.TrimSpace(id[len(prefix):])
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	if id == "" {
		return "", ErrEmptyIdentifier
	}
	return id, nil
}
