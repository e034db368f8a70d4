package jats

import (
	"strings"

	"recitation/internal/job"
)

type inventory struct {
	assets        map[job.Category][]job.Asset
	seen          map[job.Category]map[string]bool
	supplementary []job.Supplementary
}

func newInventory() *inventory {
	inv := &inventory{
		assets: map[job.Category][]job.Asset{},
		seen:   map[job.Category]map[string]bool{},
	}
	for _, c := range job.Categories {
		inv.assets[c] = []job.Asset{}
		inv.seen[c] = map[string]bool{}
	}
	return inv
}

func (inv *inventory) add(c job.Category, asset job.Asset) {
	if asset.Name == "" || inv.seen[c][asset.Name] {
		return
	}
	inv.seen[c][asset.Name] = true
	inv.assets[c] = append(inv.assets[c], asset)
}

func labelOf(t *text) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func (inv *inventory) addFigure(f fig) {
	for _, g := range f.Graphics {
		inv.add(job.CategoryImages, job.Asset{
			Name:    g.href(),
			Label:   labelOf(f.Label),
			Caption: f.Caption.body(),
		})
	}
}

func (inv *inventory) addFormula(f formula) {
	for _, g := range append(append([]linked(nil), f.Graphics...), f.InlineGraphics...) {
		inv.add(job.CategoryEquations, job.Asset{Name: g.href()})
	}
}

func (inv *inventory) addTable(t tableWrap) {
	for _, alt := range t.Alternatives {
		for _, g := range alt.Graphics {
			inv.add(job.CategoryTables, job.Asset{
				Name:    g.href(),
				Label:   labelOf(t.Label),
				Caption: t.Caption.body(),
			})
		}
	}
}

func (inv *inventory) addSupplementary(s supplementary) {
	for _, m := range s.Media {
		href := m.href()
		if href == "" {
			continue
		}
		caption := trimSizeNote(s.Caption.body())
		inv.add(job.CategoryImages, job.Asset{
			Name:    href,
			Label:   labelOf(s.Label),
			Caption: caption,
		})
		mime := m.MimeType
		if m.MimeSubtype != "" {
			mime += "/" + m.MimeSubtype
		}
		inv.supplementary = append(inv.supplementary, job.Supplementary{
			Href:     href,
			Label:    labelOf(s.Label),
			Title:    s.Caption.title(),
			Caption:  caption,
			MimeType: mime,
		})
	}
}

// trimSizeNote drops a trailing "(1.3 MB MPG)" style size annotation.
func trimSizeNote(caption string) string {
	caption = strings.TrimSpace(caption)
	if !strings.HasSuffix(caption, ")") {
		return caption
	}
	open := strings.LastIndex(caption, "(")
	if open < 0 {
		return caption
	}
	note := caption[open+1 : len(caption)-1]
	for _, unit := range []string{"KB", "MB", "GB"} {
		if strings.Contains(note, unit) {
			return strings.TrimSpace(caption[:open])
		}
	}
	return caption
}
