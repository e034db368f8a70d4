package article

import (
	"context"

	"recitation/internal/job"
	"recitation/internal/logging"
	"recitation/internal/stage"
	"recitation/internal/wikitext"
)

// RewriteMedia points file references in the text at the uploaded names of
// every category present on the record, spliced ones included.
type RewriteMedia struct {
	handlerBase
}

func (h *RewriteMedia) Execute(ctx context.Context, rec *job.Record) error {
	if err := stage.RequireInput(rec, h.name, "document text", rec.Text); err != nil {
		return err
	}
	text := rec.Text
	total := 0
	for _, category := range job.Categories {
		bundle, ok := rec.Assets[category]
		if !ok {
			continue
		}
		var n int
		text, n = wikitext.ReplaceMediaReferences(text, bundle.Assets)
		total += n
	}
	rec.Text = text
	h.log(ctx).Info("media references rewritten", logging.Int("replacements", total))
	return nil
}

func (h *RewriteMedia) HealthCheck(context.Context) stage.Health {
	return h.health(true, "")
}

// RewriteSupplementary replaces embedded supplementary file links with a
// link to the media repository copy or to the archive download.
type RewriteSupplementary struct {
	handlerBase
	finder wikitext.FileFinder
}

func (h *RewriteSupplementary) Execute(ctx context.Context, rec *job.Record) error {
	meta, err := stage.RequireMetadata(rec, h.name)
	if err != nil {
		return err
	}
	text, n, err := wikitext.ReplaceSupplementaryLinks(ctx, rec.Text, meta.Supplementary, h.finder)
	if err != nil {
		return err
	}
	rec.Text = text
	h.log(ctx).Info("supplementary links rewritten",
		logging.Int("materials", len(meta.Supplementary)),
		logging.Int("replacements", n),
	)
	return nil
}

func (h *RewriteSupplementary) HealthCheck(context.Context) stage.Health {
	return h.health(h.finder != nil, "media repository client unavailable")
}
