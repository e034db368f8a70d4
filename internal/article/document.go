package article

import (
	"context"
	"os/exec"

	"recitation/internal/job"
	"recitation/internal/logging"
	"recitation/internal/services"
	"recitation/internal/stage"
)

// ExtractMetadata reads bibliographic data and the media inventory from the
// source document. Articles carrying no license signal are rejected.
type ExtractMetadata struct {
	handlerBase
	extract func(path string) (job.Metadata, error)
}

func (h *ExtractMetadata) Execute(ctx context.Context, rec *job.Record) error {
	if err := stage.RequireInput(rec, h.name, "source path", rec.Workspace.SourcePath); err != nil {
		return err
	}
	meta, err := h.extract(rec.Workspace.SourcePath)
	if err != nil {
		return err
	}
	if !meta.HasLicense() {
		return services.WithHint(
			services.Wrap(services.ErrLicensing, string(h.name), "check license",
				"document carries no license url, license text, or copyright statement", nil),
			rec.Workspace.SourcePath)
	}
	if meta.PMCID == "" {
		meta.PMCID = rec.ExternalID
	}
	rec.Metadata = &meta
	h.log(ctx).Info("metadata extracted",
		logging.String("title", meta.Title),
		logging.Int("images", len(meta.Assets[job.CategoryImages])),
		logging.Int("equations", len(meta.Assets[job.CategoryEquations])),
		logging.Int("tables", len(meta.Assets[job.CategoryTables])),
		logging.Int("supplementary", len(meta.Supplementary)),
	)
	return nil
}

func (h *ExtractMetadata) HealthCheck(context.Context) stage.Health {
	return h.health(h.extract != nil, "metadata extractor unavailable")
}

// TransformMarkup runs the stylesheet transform over the source document.
type TransformMarkup struct {
	handlerBase
	transformer Transformer
}

func (h *TransformMarkup) Execute(ctx context.Context, rec *job.Record) error {
	if err := stage.RequireInput(rec, h.name, "source path", rec.Workspace.SourcePath); err != nil {
		return err
	}
	out, err := h.transformer.Transform(ctx, rec.Identifier, rec.Workspace.SourcePath)
	if err != nil {
		return err
	}
	rec.Workspace.MarkupPath = out
	h.log(ctx).Info("markup written", logging.String("markup_path", out))
	return nil
}

func (h *TransformMarkup) HealthCheck(context.Context) stage.Health {
	if h.transformer == nil {
		return h.health(false, "transformer unavailable")
	}
	if _, err := exec.LookPath(h.cfg.Transform.Command); err != nil {
		return h.health(false, h.cfg.Transform.Command+" not found on PATH")
	}
	return h.health(true, "")
}

// ExtractText pulls the page text out of the transformed markup.
type ExtractText struct {
	handlerBase
	read func(path string) (string, error)
}

func (h *ExtractText) Execute(ctx context.Context, rec *job.Record) error {
	if err := stage.RequireInput(rec, h.name, "markup path", rec.Workspace.MarkupPath); err != nil {
		return err
	}
	text, err := h.read(rec.Workspace.MarkupPath)
	if err != nil {
		return err
	}
	rec.Text = text
	h.log(ctx).Debug("document text extracted", logging.Int("text_length", len(text)))
	return nil
}

func (h *ExtractText) HealthCheck(context.Context) stage.Health {
	return h.health(h.read != nil, "text reader unavailable")
}
