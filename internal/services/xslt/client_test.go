package xslt_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"recitation/internal/services"
	"recitation/internal/services/xslt"
	"recitation/internal/testsupport"
)

type fakeExecutor struct {
	binary string
	args   []string
	out    []byte
	err    error
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	f.binary = binary
	f.args = append([]string(nil), args...)
	return f.out, f.err
}

const exportXML = `<mediawiki xmlns="http://www.mediawiki.org/xml/export-0.8/">
<page><title>Example</title><revision><text xml:space="preserve">== Intro ==
[[File:pone.0000001.g001|thumb]]</text></revision></page>
</mediawiki>`

func TestTransformWritesMarkup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &fakeExecutor{out: []byte(exportXML)}
	client, err := xslt.NewFromConfig(cfg, xslt.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}

	out, err := client.Transform(context.Background(), "10.1371/journal.pone.0000001", "/tmp/article.nxml")
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	want := filepath.Join(cfg.Paths.WorkDir, "10.1371", "journal.pone.0000001.mw.xml")
	if out != want {
		t.Fatalf("unexpected output path %q, want %q", out, want)
	}
	if exec.binary != "xsltproc" || len(exec.args) != 2 || exec.args[0] != cfg.Transform.Stylesheet || exec.args[1] != "/tmp/article.nxml" {
		t.Fatalf("unexpected invocation %s %v", exec.binary, exec.args)
	}

	text, err := xslt.ExtractText(out)
	if err != nil {
		t.Fatalf("ExtractText returned error: %v", err)
	}
	if text != "== Intro ==\n[[File:pone.0000001.g001|thumb]]" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTransformRejectsIdentifierWithoutSlash(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client, _ := xslt.NewFromConfig(cfg, xslt.WithExecutor(&fakeExecutor{out: []byte(exportXML)}))
	if _, err := client.Transform(context.Background(), "no-slash", "/tmp/a.nxml"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.OutputPath("10.1/../../../etc/passwd"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected traversal to be rejected, got %v", err)
	}
}

func TestTransformClassifiesToolFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client, _ := xslt.NewFromConfig(cfg, xslt.WithExecutor(&fakeExecutor{err: errors.New("exit status 5")}))
	if _, err := client.Transform(context.Background(), "10.1/x", "/tmp/a.nxml"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestExtractTextMissingElement(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mw.xml")
	if err := os.WriteFile(path, []byte(`<mediawiki><page><title>x</title></page></mediawiki>`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := xslt.ExtractText(path); !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}
