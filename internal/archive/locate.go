package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"recitation/internal/services"
)

// LocateSource returns the single file in dir whose name ends in ext.
// Zero or several matches are a structural error.
func LocateSource(dir, ext string) (string, error) {
	const op = "locate source"
	if ext == "" {
		ext = ".nxml"
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", services.Wrap(services.ErrStructural, "", op, "read article directory", err)
	}
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), strings.ToLower(ext)) {
			matches = append(matches, entry.Name())
		}
	}
	if len(matches) != 1 {
		return "", services.Wrap(services.ErrStructural, "", op,
			fmt.Sprintf("expected exactly one %s file, found %d", ext, len(matches)), nil)
	}
	return filepath.Join(dir, matches[0]), nil
}

// FindAsset looks for name in dir, trying each extension in order when name
// has none of its own. It returns the matching path, or false.
func FindAsset(dir, name string, extensions []string) (string, bool) {
	candidates := []string{name}
	for _, ext := range extensions {
		candidates = append(candidates, name+ext)
	}
	for _, candidate := range candidates {
		p := filepath.Join(dir, candidate)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
