package jats

import (
	"encoding/xml"
	"strings"
)

// text collects the character data of an element and all its descendants.
type text string

func (t *text) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s, _, err := collectText(d)
	if err != nil {
		return err
	}
	*t = text(s)
	return nil
}

func (t text) String() string {
	return collapse(string(t))
}

// collectText consumes tokens up to the end of the current element and
// returns its character data plus the href of every nested ext-link.
func collectText(d *xml.Decoder) (string, []string, error) {
	var (
		b     strings.Builder
		links []string
		depth int
	)
	for {
		tok, err := d.Token()
		if err != nil {
			return "", nil, err
		}
		switch v := tok.(type) {
		case xml.CharData:
			b.Write(v)
		case xml.StartElement:
			depth++
			if blockElements[v.Name.Local] {
				b.WriteByte(' ')
			}
			if v.Name.Local == "ext-link" {
				if href := attrs(v.Attr).get("href"); href != "" {
					links = append(links, href)
				}
			}
		case xml.EndElement:
			if depth == 0 {
				return b.String(), links, nil
			}
			depth--
		}
	}
}

// Elements whose content is separated from its neighbours by whitespace.
var blockElements = map[string]bool{
	"p": true, "title": true, "label": true, "sec": true, "list-item": true, "license-p": true, "break": true,
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type attrs []xml.Attr

func (a attrs) get(local string) string {
	for _, attr := range a {
		if attr.Name.Local == local {
			return strings.TrimSpace(attr.Value)
		}
	}
	return ""
}

type linked struct {
	Attrs attrs `xml:",any,attr"`
}

func (l linked) href() string { return l.Attrs.get("href") }

type caption struct {
	Title      *text  `xml:"title"`
	Paragraphs []text `xml:"p"`
}

func (c *caption) body() string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		if s := p.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (c *caption) title() string {
	if c == nil || c.Title == nil {
		return ""
	}
	return c.Title.String()
}

type articleID struct {
	Type  string `xml:"pub-id-type,attr"`
	Value string `xml:",chardata"`
}

type subjGroup struct {
	Type     string      `xml:"subj-group-type,attr"`
	Subjects []string    `xml:"subject"`
	Nested   []subjGroup `xml:"subj-group"`
}

type personName struct {
	Surname    string `xml:"surname"`
	GivenNames string `xml:"given-names"`
}

type contrib struct {
	Type   string      `xml:"contrib-type,attr"`
	Name   *personName `xml:"name"`
	Collab *text       `xml:"collab"`
}

type pubDate struct {
	Year  string `xml:"year"`
	Month string `xml:"month"`
	Day   string `xml:"day"`
}

// license keeps the href attribute, any ext-link targets in the body, and
// the flattened body text.
type license struct {
	Href  string
	Links []string
	Text  string
}

func (l *license) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	l.Href = attrs(start.Attr).get("href")
	body, links, err := collectText(d)
	if err != nil {
		return err
	}
	l.Links = links
	l.Text = collapse(body)
	return nil
}

type abstract struct {
	Type string
	Text string
}

func (a *abstract) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	a.Type = attrs(start.Attr).get("abstract-type")
	body, _, err := collectText(d)
	if err != nil {
		return err
	}
	a.Text = collapse(body)
	return nil
}

type permissions struct {
	CopyrightStatement *text     `xml:"copyright-statement"`
	CopyrightHolder    *text     `xml:"copyright-holder"`
	Licenses           []license `xml:"license"`
}

type articleMeta struct {
	IDs         []articleID `xml:"article-id"`
	Categories  []subjGroup `xml:"article-categories>subj-group"`
	Title       *text       `xml:"title-group>article-title"`
	Contribs    []contrib   `xml:"contrib-group>contrib"`
	PubDates    []pubDate   `xml:"pub-date"`
	Permissions permissions `xml:"permissions"`
	Abstracts   []abstract  `xml:"abstract"`
	Keywords    []text      `xml:"kwd-group>kwd"`
}

type front struct {
	JournalTitles []text      `xml:"journal-meta>journal-title-group>journal-title"`
	LegacyJournal []text      `xml:"journal-meta>journal-title"`
	ArticleMeta   articleMeta `xml:"article-meta"`
}

type fig struct {
	Label    *text    `xml:"label"`
	Caption  *caption `xml:"caption"`
	Graphics []linked `xml:"graphic"`
}

type formula struct {
	Graphics       []linked `xml:"graphic"`
	InlineGraphics []linked `xml:"inline-graphic"`
}

type alternatives struct {
	Graphics []linked `xml:"graphic"`
}

type tableWrap struct {
	Label        *text          `xml:"label"`
	Caption      *caption       `xml:"caption"`
	Alternatives []alternatives `xml:"alternatives"`
}

type media struct {
	linked
	MimeType    string `xml:"mimetype,attr"`
	MimeSubtype string `xml:"mime-subtype,attr"`
}

type supplementary struct {
	Label   *text    `xml:"label"`
	Caption *caption `xml:"caption"`
	Media   []media  `xml:"media"`
}
