package article

import (
	"context"
	"errors"
	"log/slog"

	"recitation/internal/config"
	"recitation/internal/job"
	"recitation/internal/jats"
	"recitation/internal/logging"
	"recitation/internal/pipeline"
	"recitation/internal/services/idconv"
	"recitation/internal/services/mediawiki"
	"recitation/internal/services/oa"
	"recitation/internal/services/xslt"
)

// Resolver maps an article identifier to the archive's external identifier.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (idconv.Resolution, error)
	LookupURL(identifier string) string
}

// ArchiveSource finds and downloads the article bundle for an external id.
type ArchiveSource interface {
	Locate(ctx context.Context, externalID string) (string, error)
	Download(ctx context.Context, href, destDir string) (string, error)
}

// Transformer converts the source document to wiki export markup.
type Transformer interface {
	Transform(ctx context.Context, identifier, sourcePath string) (string, error)
}

// Wiki is the publishing surface of one wiki.
type Wiki interface {
	Upload(ctx context.Context, name, path, description, comment string) (string, error)
	Edit(ctx context.Context, title, text, summary string) error
	FindFile(ctx context.Context, prefix string) (string, bool, error)
}

// Deps bundles the collaborators the phase handlers call.
type Deps struct {
	Resolver    Resolver
	Archive     ArchiveSource
	Transformer Transformer
	// Media receives images and answers supplementary file lookups.
	Media Wiki
	// Text receives the article, its redirect, equations, and tables.
	Text Wiki

	// ExtractMetadata and ReadText default to the jats and xslt readers.
	ExtractMetadata func(path string) (job.Metadata, error)
	ReadText        func(path string) (string, error)
}

// NewDeps builds the production collaborators from configuration.
func NewDeps(cfg *config.Config) (Deps, error) {
	if cfg == nil {
		return Deps{}, errors.New("article: config is nil")
	}
	resolver, err := idconv.NewFromConfig(cfg)
	if err != nil {
		return Deps{}, err
	}
	archive, err := oa.NewFromConfig(cfg)
	if err != nil {
		return Deps{}, err
	}
	transformer, err := xslt.NewFromConfig(cfg)
	if err != nil {
		return Deps{}, err
	}
	media, err := mediawiki.NewMediaFromConfig(cfg)
	if err != nil {
		return Deps{}, err
	}
	text, err := mediawiki.NewFromConfig(cfg)
	if err != nil {
		return Deps{}, err
	}
	return Deps{
		Resolver:    resolver,
		Archive:     archive,
		Transformer: transformer,
		Media:       media,
		Text:        text,
	}, nil
}

func (d Deps) withDefaults() Deps {
	if d.ExtractMetadata == nil {
		d.ExtractMetadata = jats.Extract
	}
	if d.ReadText == nil {
		d.ReadText = xslt.ExtractText
	}
	return d
}

// NewPhaseSet builds one handler per phase.
func NewPhaseSet(cfg *config.Config, deps Deps, logger *slog.Logger) pipeline.PhaseSet {
	if logger == nil {
		logger = logging.NewNop()
	}
	deps = deps.withDefaults()
	base := func(name job.PhaseName) handlerBase {
		return handlerBase{
			cfg:    cfg,
			name:   name,
			logger: logging.NewComponentLogger(logger, string(name)),
		}
	}
	return pipeline.PhaseSet{
		ResolveID:                 &ResolveID{handlerBase: base(job.PhaseResolveID), resolver: deps.Resolver},
		FetchArchive:              &FetchArchive{handlerBase: base(job.PhaseFetchArchive), source: deps.Archive},
		ExtractArchive:            &ExtractArchive{handlerBase: base(job.PhaseExtractArchive)},
		LocateSourceDocument:      &LocateSource{handlerBase: base(job.PhaseLocateSourceDocument)},
		ExtractMetadata:           &ExtractMetadata{handlerBase: base(job.PhaseExtractMetadata), extract: deps.ExtractMetadata},
		TransformToMarkup:         &TransformMarkup{handlerBase: base(job.PhaseTransformToMarkup), transformer: deps.Transformer},
		ExtractDocumentText:       &ExtractText{handlerBase: base(job.PhaseExtractDocumentText), read: deps.ReadText},
		UploadMedia:               &UploadMedia{handlerBase: base(job.PhaseUploadMedia), media: deps.Media, text: deps.Text},
		RewriteMediaReferences:    &RewriteMedia{handlerBase: base(job.PhaseRewriteMediaReferences)},
		RewriteSupplementaryLinks: &RewriteSupplementary{handlerBase: base(job.PhaseRewriteSupplementaryLinks), finder: deps.Media},
		PublishDocument:           &PublishDocument{handlerBase: base(job.PhasePublishDocument), wiki: deps.Text},
		PublishRedirect:           &PublishRedirect{handlerBase: base(job.PhasePublishRedirect), wiki: deps.Text},
	}
}
