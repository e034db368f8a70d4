package jats

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"recitation/internal/job"
	"recitation/internal/services"
)

const supplementaryBaseURL = "https://www.ncbi.nlm.nih.gov/pmc/articles/"

// Extract parses the JATS document at path.
func Extract(path string) (job.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return job.Metadata{}, services.Wrap(services.ErrStructural, "", "extract metadata", "open source document", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a JATS document from r.
func Parse(r io.Reader) (job.Metadata, error) {
	const op = "parse jats"
	d := xml.NewDecoder(r)
	d.Strict = false
	d.Entity = xml.HTMLEntity

	var (
		fr      *front
		meta    job.Metadata
		inv     = newInventory()
		sawRoot bool
	)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return job.Metadata{}, services.Wrap(services.ErrStructural, "", op, "malformed XML", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		switch start.Name.Local {
		case "front":
			if fr != nil {
				if err := d.Skip(); err != nil {
					return job.Metadata{}, services.Wrap(services.ErrStructural, "", op, "malformed XML", err)
				}
				continue
			}
			fr = &front{}
			err = d.DecodeElement(fr, &start)
		case "fig":
			var v fig
			if err = d.DecodeElement(&v, &start); err == nil {
				inv.addFigure(v)
			}
		case "disp-formula", "inline-formula":
			var v formula
			if err = d.DecodeElement(&v, &start); err == nil {
				inv.addFormula(v)
			}
		case "table-wrap":
			var v tableWrap
			if err = d.DecodeElement(&v, &start); err == nil {
				inv.addTable(v)
			}
		case "supplementary-material":
			var v supplementary
			if err = d.DecodeElement(&v, &start); err == nil {
				inv.addSupplementary(v)
			}
		}
		if err != nil {
			return job.Metadata{}, services.Wrap(services.ErrStructural, "", op, fmt.Sprintf("decode %s", start.Name.Local), err)
		}
	}
	if !sawRoot {
		return job.Metadata{}, services.Wrap(services.ErrStructural, "", op, "document is empty", nil)
	}
	if fr == nil {
		return job.Metadata{}, services.Wrap(services.ErrStructural, "", op, "document has no front matter", nil)
	}

	am := fr.ArticleMeta
	meta.DOI = articleIDOf(am.IDs, "doi")
	meta.PMID = articleIDOf(am.IDs, "pmid")
	meta.PMCID = articleIDOf(am.IDs, "pmc", "pmcid")
	meta.Title = articleTitle(am)
	meta.Abstract = articleAbstract(am.Abstracts)
	meta.JournalTitle = journalTitle(fr)
	meta.Authors = authors(am.Contribs)
	meta.Year, meta.Month, meta.Day = articleDate(am.PubDates)
	if meta.DOI != "" {
		meta.ArticleURL = "https://doi.org/" + meta.DOI
	}
	meta.LicenseURL, meta.LicenseText, meta.CopyrightStatement = licensing(am.Permissions)
	meta.CopyrightHolder = copyrightHolder(am.Permissions)
	meta.Categories = categories(am)
	meta.Assets = inv.assets
	meta.Supplementary = inv.supplementary
	for i := range meta.Supplementary {
		meta.Supplementary[i].URL = supplementaryURL(meta.PMCID, meta.Supplementary[i].Href)
	}
	return meta, nil
}

func articleIDOf(ids []articleID, types ...string) string {
	for _, id := range ids {
		for _, t := range types {
			if strings.EqualFold(id.Type, t) {
				return strings.TrimSpace(id.Value)
			}
		}
	}
	return ""
}

func articleTitle(am articleMeta) string {
	if am.Title != nil {
		if s := am.Title.String(); s != "" {
			return s
		}
	}
	for _, g := range am.Categories {
		if len(g.Subjects) > 0 {
			return collapse(g.Subjects[0])
		}
	}
	return ""
}

func articleAbstract(abstracts []abstract) string {
	for _, a := range abstracts {
		if a.Type == "" {
			return a.Text
		}
	}
	return ""
}

func journalTitle(fr *front) string {
	titles := append(append([]text(nil), fr.JournalTitles...), fr.LegacyJournal...)
	for _, t := range titles {
		s := t.String()
		if s == "" {
			continue
		}
		if before, _, ok := strings.Cut(s, ":"); ok {
			s = strings.TrimSpace(before)
		}
		s = strings.ReplaceAll(s, "PLoS", "PLOS")
		return strings.ReplaceAll(s, "PloS", "PLOS")
	}
	return ""
}

func authors(contribs []contrib) string {
	var names []string
	for _, c := range contribs {
		if c.Type != "author" {
			continue
		}
		switch {
		case c.Name != nil && strings.TrimSpace(c.Name.Surname) != "":
			name := strings.TrimSpace(c.Name.Surname)
			if given := strings.TrimSpace(c.Name.GivenNames); given != "" {
				name += " " + string([]rune(given)[:1])
			}
			names = append(names, name)
		case c.Collab != nil && c.Collab.String() != "":
			names = append(names, c.Collab.String())
		}
	}
	return strings.Join(names, ", ")
}

func articleDate(dates []pubDate) (int, int, int) {
	for _, d := range dates {
		year, err := strconv.Atoi(strings.TrimSpace(d.Year))
		if err != nil {
			continue
		}
		month, _ := strconv.Atoi(strings.TrimSpace(d.Month))
		day, _ := strconv.Atoi(strings.TrimSpace(d.Day))
		if month == 0 {
			day = 0
		}
		return year, month, day
	}
	return 0, 0, 0
}

func categories(am articleMeta) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(groups []subjGroup)
	walk = func(groups []subjGroup) {
		for _, g := range groups {
			if g.Type == "heading" {
				continue
			}
			for _, subject := range g.Subjects {
				s := collapse(subject)
				if i := strings.LastIndex(s, "/"); i >= 0 {
					s = strings.TrimSpace(s[i+1:])
				}
				if !strings.Contains(s, " ") || strings.Contains(s, "and") || seen[s] {
					continue
				}
				seen[s] = true
				out = append(out, s)
			}
			walk(g.Nested)
		}
	}
	walk(am.Categories)
	for _, kw := range am.Keywords {
		if s := kw.String(); s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func supplementaryURL(pmcid, href string) string {
	if href == "" {
		return ""
	}
	if pmcid == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToUpper(pmcid), "PMC") {
		pmcid = "PMC" + pmcid
	}
	return supplementaryBaseURL + pmcid + "/bin/" + href
}
