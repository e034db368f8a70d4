package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"recitation/internal/services"
)

const maxEntrySize = 512 << 20

// ExtractTarGz unpacks the gzip-compressed tarball at path into dest. Entries
// that would land outside dest are rejected. When every entry shares a single
// top-level directory, that directory is returned; otherwise dest is.
func ExtractTarGz(path, dest string) (string, error) {
	const op = "extract archive"
	f, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrStructural, "", op, "open archive", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", services.Wrap(services.ErrStructural, "", op, "archive is not gzip compressed", err)
	}
	defer gz.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve destination: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	tops := map[string]struct{}{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", services.Wrap(services.ErrStructural, "", op, "read archive entry", err)
		}
		target, err := safeJoin(root, hdr.Name)
		if err != nil {
			return "", services.Wrap(services.ErrStructural, "", op, err.Error(), nil)
		}
		if rel, _ := filepath.Rel(root, target); rel != "." {
			tops[strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]] = struct{}{}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", fmt.Errorf("create %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if hdr.Size > maxEntrySize {
				return "", services.Wrap(services.ErrStructural, "", op, fmt.Sprintf("entry %s exceeds size limit", hdr.Name), nil)
			}
			if err := writeEntry(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return "", fmt.Errorf("write %s: %w", hdr.Name, err)
			}
		default:
			// Links and devices are not part of article packages.
		}
	}

	if len(tops) == 1 {
		for top := range tops {
			candidate := filepath.Join(root, top)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				return candidate, nil
			}
		}
	}
	return root, nil
}

func safeJoin(root, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("entry %q has an absolute path", name)
	}
	target := filepath.Join(root, cleaned)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes the destination", name)
	}
	return target, nil
}

func writeEntry(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, io.LimitReader(r, maxEntrySize)); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
