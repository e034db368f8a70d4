package article

import (
	"context"
	"fmt"

	"recitation/internal/job"
	"recitation/internal/logging"
	"recitation/internal/services"
	"recitation/internal/stage"
	"recitation/internal/wikitext"
)

// MaxTitleRunes bounds published page titles.
const MaxTitleRunes = 255

// PublishDocument saves the rewritten text under the cleaned article title.
type PublishDocument struct {
	handlerBase
	wiki Wiki
}

func (h *PublishDocument) Execute(ctx context.Context, rec *job.Record) error {
	meta, err := stage.RequireMetadata(rec, h.name)
	if err != nil {
		return err
	}
	if err := stage.RequireInput(rec, h.name, "document text", rec.Text); err != nil {
		return err
	}
	title := PageTitle(h.cfg.Wiki.BasePath, meta.Title)
	summary := fmt.Sprintf("Imported [[doi:%s]] from PMC%s by %s", rec.Identifier, trimPMC(meta.PMCID), wikitext.Bot)
	if err := h.wiki.Edit(ctx, title, rec.Text, summary); err != nil {
		if !services.IsRecoverable(err) {
			return err
		}
		h.log(ctx).Info("page already exists; keeping it", logging.String("title", title))
	}
	rec.PublishedTitle = title
	h.log(ctx).Info("document published", logging.String("title", title))
	return nil
}

func (h *PublishDocument) HealthCheck(context.Context) stage.Health {
	return h.health(h.wiki != nil, "wiki client unavailable")
}

// PageTitle joins basePath and the cleaned title, cut to MaxTitleRunes.
func PageTitle(basePath, title string) string {
	return wikitext.Truncate(basePath+wikitext.CleanTitle(title), MaxTitleRunes)
}

func trimPMC(pmcid string) string {
	if len(pmcid) > 3 && (pmcid[:3] == "PMC" || pmcid[:3] == "pmc") {
		return pmcid[3:]
	}
	return pmcid
}

// PublishRedirect points base_path + identifier at the published page.
type PublishRedirect struct {
	handlerBase
	wiki Wiki
}

func (h *PublishRedirect) Execute(ctx context.Context, rec *job.Record) error {
	if err := stage.RequireInput(rec, h.name, "published title", rec.PublishedTitle); err != nil {
		return err
	}
	title := wikitext.Truncate(h.cfg.Wiki.BasePath+rec.Identifier, MaxTitleRunes)
	if err := h.wiki.Edit(ctx, title, wikitext.Redirect(rec.PublishedTitle), "Making a redirect"); err != nil {
		if !services.IsRecoverable(err) {
			return err
		}
		h.log(ctx).Info("redirect already exists; keeping it", logging.String("title", title))
	}
	rec.RedirectTitle = title
	return nil
}

func (h *PublishRedirect) HealthCheck(context.Context) stage.Health {
	return h.health(h.wiki != nil, "wiki client unavailable")
}
