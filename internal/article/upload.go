package article

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"recitation/internal/archive"
	"recitation/internal/job"
	"recitation/internal/logging"
	"recitation/internal/services"
	"recitation/internal/services/mediawiki"
	"recitation/internal/stage"
	"recitation/internal/wikitext"
)

// UploadExtensions are tried in order when an asset reference has no
// extension of its own.
var UploadExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".tif"}

// UploadMedia uploads every asset of the categories the run regenerates.
// Images go to the media repository; equations and tables go to the text
// wiki. Categories the run does not regenerate are left untouched.
type UploadMedia struct {
	handlerBase
	media Wiki
	text  Wiki
}

func (h *UploadMedia) Execute(ctx context.Context, rec *job.Record) error {
	meta, err := stage.RequireMetadata(rec, h.name)
	if err != nil {
		return err
	}
	if err := stage.RequireInput(rec, h.name, "article directory", rec.Workspace.ArticleDir); err != nil {
		return err
	}
	if rec.Assets == nil {
		rec.Assets = map[job.Category]job.AssetBundle{}
	}
	logger := h.log(ctx)
	comment := fmt.Sprintf("Automatic upload of media from: [[doi:%s]]", rec.Identifier)

	for _, category := range rec.Regenerate.Normalized().Categories {
		site := h.media
		if category != job.CategoryImages {
			site = h.text
		}
		uploaded := make([]job.Asset, 0, len(meta.Assets[category]))
		for _, asset := range meta.Assets[category] {
			path, ok := archive.FindAsset(rec.Workspace.ArticleDir, asset.Name, UploadExtensions)
			if !ok {
				return services.WithHint(
					services.Wrap(services.ErrStructural, string(h.name), "locate asset",
						fmt.Sprintf("%s asset %s not found in bundle", category, asset.Name), nil),
					rec.Workspace.ArticleDir)
			}
			if !uploadable(path) {
				logger.Debug("asset is not an image; leaving it to the supplementary links",
					logging.String("category", string(category)),
					logging.String("asset", asset.Name),
				)
				continue
			}
			asset.File = filepath.Base(path)
			name := wikitext.HarmonizeName(asset.File, meta.Title)
			description := wikitext.DescriptionPage(*meta, asset.Caption)

			got, err := site.Upload(ctx, name, path, description, comment)
			if err != nil {
				if !services.IsRecoverable(err) {
					return err
				}
				if existing := mediawiki.ExistingName(err); existing != "" {
					got = existing
				} else if got == "" {
					got = name
				}
				logger.Info("file already on wiki; reusing",
					logging.String("category", string(category)),
					logging.String("uploaded_name", got),
				)
			}
			asset.UploadedName = got
			uploaded = append(uploaded, asset)
		}
		rec.Assets[category] = job.AssetBundle{Assets: uploaded}
		logger.Info("category uploaded",
			logging.String("category", string(category)),
			logging.Int("count", len(uploaded)),
		)
	}
	return nil
}

func (h *UploadMedia) HealthCheck(context.Context) stage.Health {
	if h.media == nil || h.text == nil {
		return h.health(false, "wiki clients unavailable")
	}
	if !h.cfg.WikiCredentialsConfigured() {
		return h.health(false, "wiki credentials not configured")
	}
	return h.health(true, "")
}

// uploadable reports whether the file at path is an image the wikis accept.
// Supplementary files such as spreadsheets or videos are linked instead.
func uploadable(path string) bool {
	return slices.Contains(UploadExtensions, strings.ToLower(filepath.Ext(path)))
}
