package article

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"recitation/internal/archive"
	"recitation/internal/job"
	"recitation/internal/logging"
	"recitation/internal/services"
	"recitation/internal/stage"
)

// FetchArchive downloads the article bundle into the work directory.
type FetchArchive struct {
	handlerBase
	source ArchiveSource
}

func (h *FetchArchive) Execute(ctx context.Context, rec *job.Record) error {
	if err := stage.RequireInput(rec, h.name, "external id", rec.ExternalID); err != nil {
		return err
	}
	href, err := h.source.Locate(ctx, rec.ExternalID)
	if err != nil {
		return err
	}
	path, err := h.source.Download(ctx, href, h.cfg.Paths.WorkDir)
	if err != nil {
		return err
	}
	rec.Workspace.ArchivePath = path
	h.log(ctx).Info("archive downloaded",
		logging.String("href", href),
		logging.String("archive_path", path),
	)
	return nil
}

func (h *FetchArchive) HealthCheck(context.Context) stage.Health {
	return h.health(h.source != nil, "archive source unavailable")
}

// ExtractArchive unpacks the bundle into a directory derived from the
// identifier, replacing anything a previous attempt left there.
type ExtractArchive struct {
	handlerBase
}

func (h *ExtractArchive) Execute(ctx context.Context, rec *job.Record) error {
	if err := stage.RequireInput(rec, h.name, "archive path", rec.Workspace.ArchivePath); err != nil {
		return err
	}
	dest := WorkspaceDir(h.cfg.Paths.WorkDir, rec.Identifier)
	if err := os.RemoveAll(dest); err != nil {
		return services.Wrap(services.ErrStructural, string(h.name), "reset workspace", dest, err)
	}
	dir, err := archive.ExtractTarGz(rec.Workspace.ArchivePath, dest)
	if err != nil {
		return err
	}
	rec.Workspace.ArticleDir = dir
	h.log(ctx).Info("archive extracted", logging.String("article_dir", dir))
	return nil
}

func (h *ExtractArchive) HealthCheck(context.Context) stage.Health {
	return h.health(true, "")
}

// WorkspaceDir returns the per-identifier extraction directory under workDir.
// Identifiers contain slashes, so the directory name is a name-based UUID.
func WorkspaceDir(workDir, identifier string) string {
	return filepath.Join(workDir, uuid.NewSHA1(uuid.NameSpaceURL, []byte("doi:"+identifier)).String())
}

// LocateSource finds the single source document in the extracted bundle.
type LocateSource struct {
	handlerBase
}

func (h *LocateSource) Execute(ctx context.Context, rec *job.Record) error {
	if err := stage.RequireInput(rec, h.name, "article directory", rec.Workspace.ArticleDir); err != nil {
		return err
	}
	path, err := archive.LocateSource(rec.Workspace.ArticleDir, h.cfg.Archive.SourceExtension)
	if err != nil {
		return services.WithHint(err, fmt.Sprintf("inspect %s", rec.Workspace.ArticleDir))
	}
	rec.Workspace.SourcePath = path
	h.log(ctx).Debug("source document located", logging.String("source_path", path))
	return nil
}

func (h *LocateSource) HealthCheck(context.Context) stage.Health {
	return h.health(true, "")
}
