package job

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category groups uploaded media by kind.
type Category string

const (
	CategoryImages    Category = "images"
	CategoryEquations Category = "equations"
	CategoryTables    Category = "tables"
)

// Categories lists every asset category in a stable order.
var Categories = []Category{CategoryImages, CategoryEquations, CategoryTables}

// ParseCategory validates a category name.
func ParseCategory(value string) (Category, error) {
	for _, c := range Categories {
		if string(c) == value {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown asset category %q", value)
}

// Asset is one media file referenced by the source document.
type Asset struct {
	Name         string `json:"name"`
	Caption      string `json:"caption,omitempty"`
	Label        string `json:"label,omitempty"`
	File         string `json:"file,omitempty"`
	UploadedName string `json:"uploaded_name,omitempty"`
}

// AssetBundle is the upload result for one category.
type AssetBundle struct {
	Assets []Asset `json:"assets"`
}

// Clone returns a deep copy of the bundle.
func (b AssetBundle) Clone() AssetBundle {
	if b.Assets == nil {
		return AssetBundle{Assets: []Asset{}}
	}
	out := make([]Asset, len(b.Assets))
	copy(out, b.Assets)
	return AssetBundle{Assets: out}
}

// Supplementary is a downloadable attachment linked from the document text.
type Supplementary struct {
	Href     string `json:"href"`
	URL      string `json:"url,omitempty"`
	Label    string `json:"label,omitempty"`
	Title    string `json:"title,omitempty"`
	Caption  string `json:"caption,omitempty"`
	MimeType string `json:"mimetype,omitempty"`
}

// Metadata is the bibliographic and licensing summary extracted from the
// source document.
type Metadata struct {
	DOI                string               `json:"doi,omitempty"`
	PMCID              string               `json:"pmcid,omitempty"`
	PMID               string               `json:"pmid,omitempty"`
	Title              string               `json:"title,omitempty"`
	Abstract           string               `json:"abstract,omitempty"`
	JournalTitle       string               `json:"journal_title,omitempty"`
	Authors            string               `json:"authors,omitempty"`
	Year               int                  `json:"year,omitempty"`
	Month              int                  `json:"month,omitempty"`
	Day                int                  `json:"day,omitempty"`
	ArticleURL         string               `json:"article_url,omitempty"`
	LicenseURL         string               `json:"license_url,omitempty"`
	LicenseText        string               `json:"license_text,omitempty"`
	CopyrightStatement string               `json:"copyright_statement,omitempty"`
	CopyrightHolder    string               `json:"copyright_holder,omitempty"`
	Categories         []string             `json:"categories,omitempty"`
	Assets             map[Category][]Asset `json:"assets,omitempty"`
	Supplementary      []Supplementary      `json:"supplementary,omitempty"`
}

// HasLicense reports whether any usable license signal is present.
func (m Metadata) HasLicense() bool {
	return m.LicenseURL != "" || m.LicenseText != "" || m.CopyrightStatement != ""
}

// Workspace tracks on-disk artifacts produced by earlier phases.
type Workspace struct {
	ArchivePath string `json:"archive_path,omitempty"`
	ArticleDir  string `json:"article_dir,omitempty"`
	SourcePath  string `json:"source_path,omitempty"`
	MarkupPath  string `json:"markup_path,omitempty"`
}

// Record is the durable unit of pipeline state for one identifier.
type Record struct {
	Identifier     string                   `json:"identifier"`
	RunID          string                   `json:"run_id,omitempty"`
	Phases         []PhaseState             `json:"phases"`
	Assets         map[Category]AssetBundle `json:"assets"`
	Text           string                   `json:"text,omitempty"`
	Regenerate     Selector                 `json:"regenerate"`
	ExternalID     string                   `json:"external_id,omitempty"`
	NotApplicable  bool                     `json:"not_applicable,omitempty"`
	Metadata       *Metadata                `json:"metadata,omitempty"`
	Workspace      Workspace                `json:"workspace"`
	PublishedTitle string                   `json:"published_title,omitempty"`
	RedirectTitle  string                   `json:"redirect_title,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// NewRecord builds a fresh record with every phase pending.
func NewRecord(identifier string, regenerate Selector, now time.Time) *Record {
	now = now.UTC()
	return &Record{
		Identifier: identifier,
		Phases:     NewPhases(),
		Assets:     map[Category]AssetBundle{},
		Regenerate: regenerate.Normalized(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		panic(fmt.Sprintf("clone record: %v", err))
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("clone record: %v", err))
	}
	return &out
}
