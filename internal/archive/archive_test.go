package archive_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"recitation/internal/archive"
	"recitation/internal/services"
	"recitation/internal/testsupport"
)

func TestExtractTarGzReturnsTopLevelDirectory(t *testing.T) {
	base := t.TempDir()
	pkg := filepath.Join(base, "PMC1.tar.gz")
	testsupport.TarGz(t, pkg, map[string]string{
		"PMC1/article.nxml": "<article/>",
		"PMC1/fig1.jpg":     "jpeg",
	})

	dir, err := archive.ExtractTarGz(pkg, filepath.Join(base, "out"))
	if err != nil {
		t.Fatalf("ExtractTarGz returned error: %v", err)
	}
	if filepath.Base(dir) != "PMC1" {
		t.Fatalf("expected top-level dir, got %q", dir)
	}
	if data, err := os.ReadFile(filepath.Join(dir, "fig1.jpg")); err != nil || string(data) != "jpeg" {
		t.Fatalf("unexpected asset contents %q (%v)", data, err)
	}
}

func TestExtractTarGzRejectsTraversal(t *testing.T) {
	base := t.TempDir()
	pkg := filepath.Join(base, "evil.tar.gz")
	testsupport.TarGz(t, pkg, map[string]string{"../escape.txt": "x"})

	_, err := archive.ExtractTarGz(pkg, filepath.Join(base, "out"))
	if !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(base, "escape.txt")); !os.IsNotExist(statErr) {
		t.Fatal("traversal entry must not be written")
	}
}

func TestExtractTarGzRejectsNonGzip(t *testing.T) {
	base := t.TempDir()
	pkg := filepath.Join(base, "plain.tar.gz")
	testsupport.WriteText(t, pkg, "not a gzip stream")
	if _, err := archive.ExtractTarGz(pkg, filepath.Join(base, "out")); !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}

func TestLocateSource(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteText(t, filepath.Join(dir, "article.nxml"), "<article/>")
	testsupport.WriteText(t, filepath.Join(dir, "fig1.jpg"), "jpeg")

	got, err := archive.LocateSource(dir, ".nxml")
	if err != nil {
		t.Fatalf("LocateSource returned error: %v", err)
	}
	if got != filepath.Join(dir, "article.nxml") {
		t.Fatalf("unexpected source %q", got)
	}

	testsupport.WriteText(t, filepath.Join(dir, "second.nxml"), "<article/>")
	if _, err := archive.LocateSource(dir, ".nxml"); !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected structural error for two sources, got %v", err)
	}

	empty := t.TempDir()
	if _, err := archive.LocateSource(empty, ".nxml"); !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected structural error for no sources, got %v", err)
	}
}

func TestFindAssetTriesExtensions(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteText(t, filepath.Join(dir, "pone.0001.g002.png"), "png")

	got, ok := archive.FindAsset(dir, "pone.0001.g002", []string{".jpg", ".jpeg", ".png"})
	if !ok || filepath.Base(got) != "pone.0001.g002.png" {
		t.Fatalf("unexpected match %q %v", got, ok)
	}
	if _, ok := archive.FindAsset(dir, "missing", []string{".jpg"}); ok {
		t.Fatal("expected no match")
	}
}
