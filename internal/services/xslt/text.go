package xslt

import (
	"encoding/xml"
	"os"
	"strings"

	"recitation/internal/services"
)

type exportDocument struct {
	Pages []struct {
		Revisions []struct {
			Text *string `xml:"text"`
		} `xml:"revision"`
	} `xml:"page"`
}

// ExtractText reads the wikitext of the first page revision in a MediaWiki
// export document.
func ExtractText(path string) (string, error) {
	const op = "extract text"
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrStructural, "", op, "read markup", err)
	}
	var doc exportDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", services.Wrap(services.ErrStructural, "", op, "malformed markup", err)
	}
	for _, page := range doc.Pages {
		for _, rev := range page.Revisions {
			if rev.Text != nil && strings.TrimSpace(*rev.Text) != "" {
				return *rev.Text, nil
			}
		}
	}
	return "", services.Wrap(services.ErrStructural, "", op, "no page revision text element", nil)
}
