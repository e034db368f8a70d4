package jats_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"recitation/internal/jats"
	"recitation/internal/job"
	"recitation/internal/services"
)

func TestExtractFixture(t *testing.T) {
	meta, err := jats.Extract(filepath.Join("testdata", "article.nxml"))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	checks := map[string][2]string{
		"doi":     {meta.DOI, "10.1371/journal.pone.0000001"},
		"pmcid":   {meta.PMCID, "1762313"},
		"pmid":    {meta.PMID, "17183658"},
		"title":   {meta.Title, "Population Dynamics of Daphnia in Temporary Ponds"},
		"journal": {meta.JournalTitle, "PLOS ONE"},
		"authors": {meta.Authors, "Smith J, The Pond Consortium"},
		"license": {meta.LicenseURL, "http://creativecommons.org/licenses/by/4.0/"},
		"url":     {meta.ArticleURL, "https://doi.org/10.1371/journal.pone.0000001"},
		"holder":  {meta.CopyrightHolder, "Smith et al."},
	}
	for name, pair := range checks {
		if pair[0] != pair[1] {
			t.Errorf("%s: got %q, want %q", name, pair[0], pair[1])
		}
	}
	if meta.Abstract != "Ponds dry out & refill." {
		t.Errorf("unexpected abstract %q", meta.Abstract)
	}
	if meta.Year != 2006 || meta.Month != 12 || meta.Day != 20 {
		t.Errorf("unexpected date %d-%d-%d", meta.Year, meta.Month, meta.Day)
	}
	if !meta.HasLicense() {
		t.Error("expected license to be detected")
	}
	if len(meta.Categories) != 2 || meta.Categories[0] != "Population Ecology" || meta.Categories[1] != "zooplankton" {
		t.Errorf("unexpected categories %v", meta.Categories)
	}

	images := meta.Assets[job.CategoryImages]
	if len(images) != 2 {
		t.Fatalf("expected figure and media, got %+v", images)
	}
	if images[0].Name != "pone.0000001.g001" || images[0].Label != "Figure 1" || images[0].Caption != "Map of the ponds." {
		t.Errorf("unexpected figure %+v", images[0])
	}
	equations := meta.Assets[job.CategoryEquations]
	if len(equations) != 2 || equations[0].Name != "pone.0000001.e001" || equations[1].Name != "pone.0000001.e002" {
		t.Errorf("unexpected equations %+v", equations)
	}
	tables := meta.Assets[job.CategoryTables]
	if len(tables) != 1 || tables[0].Name != "pone.0000001.t001" || tables[0].Label != "Table 1" {
		t.Errorf("unexpected tables %+v", tables)
	}

	if len(meta.Supplementary) != 1 {
		t.Fatalf("expected one supplementary item, got %+v", meta.Supplementary)
	}
	supp := meta.Supplementary[0]
	if supp.Href != "pone.0000001.s001.mpg" || supp.MimeType != "video/mpeg" || supp.Title != "Daphnia swimming." {
		t.Errorf("unexpected supplementary %+v", supp)
	}
	if supp.Caption != "Recorded at noon." {
		t.Errorf("expected size note trimmed, got %q", supp.Caption)
	}
	if supp.URL != "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC1762313/bin/pone.0000001.s001.mpg" {
		t.Errorf("unexpected supplementary url %q", supp.URL)
	}
}

func TestParseWithoutLicense(t *testing.T) {
	doc := `<article><front><article-meta>
		<article-id pub-id-type="doi">10.1/x</article-id>
		<title-group><article-title>Closed</article-title></title-group>
	</article-meta></front></article>`
	meta, err := jats.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if meta.HasLicense() {
		t.Fatalf("expected no license, got %+v", meta)
	}
}

func TestParseCopyrightStatementOnly(t *testing.T) {
	doc := `<article><front><article-meta><permissions>
		<copyright-statement>© 2010 Doe. This is an open-access article distributed under the terms of the Creative Commons Attribution License, which permits unrestricted use, distribution, and reproduction in any medium, provided the original author and source are credited.</copyright-statement>
	</permissions></article-meta></front></article>`
	meta, err := jats.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if meta.CopyrightStatement == "" || meta.LicenseURL != "http://creativecommons.org/licenses/by/4.0/" {
		t.Fatalf("unexpected licensing %q %q", meta.CopyrightStatement, meta.LicenseURL)
	}
}

func TestParseLicenseInExtLink(t *testing.T) {
	doc := `<article xmlns:xlink="http://www.w3.org/1999/xlink"><front><article-meta><permissions>
		<license><license-p>See <ext-link ext-link-type="uri" xlink:href="http://creativecommons.org/licenses/by/3.0/">CC BY</ext-link>.</license-p></license>
	</permissions></article-meta></front></article>`
	meta, err := jats.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if meta.LicenseURL != "http://creativecommons.org/licenses/by/3.0/" {
		t.Fatalf("unexpected license url %q", meta.LicenseURL)
	}
}

func TestParseRejectsMissingFront(t *testing.T) {
	_, err := jats.Parse(strings.NewReader(`<article><body/></article>`))
	if !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}
