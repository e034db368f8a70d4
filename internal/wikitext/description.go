package wikitext

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"recitation/internal/job"
)

// Bot is the name used in provenance categories and edit summaries.
const Bot = "reCitation Bot"

var licenseTemplates = map[string]string{
	"creativecommons.org/licenses/by/2.0/":    "{{cc-by-2.0}}",
	"creativecommons.org/licenses/by-sa/2.0/": "{{cc-by-sa-2.0}}",
	"creativecommons.org/licenses/by/2.5/":    "{{cc-by-2.5}}",
	"creativecommons.org/licenses/by-sa/2.5/": "{{cc-by-sa-2.5}}",
	"creativecommons.org/licenses/by/3.0/":    "{{cc-by-3.0}}",
	"creativecommons.org/licenses/by-sa/3.0/": "{{cc-by-sa-3.0}}",
	"creativecommons.org/licenses/by/4.0/":    "{{cc-by-4.0}}",
	"creativecommons.org/licenses/by-sa/4.0/": "{{cc-by-sa-4.0}}",
}

// LicenseTemplate maps a license URL to its wiki template. Unknown URLs map
// to an empty string.
func LicenseTemplate(licenseURL string) string {
	key := strings.TrimSpace(licenseURL)
	key = strings.TrimPrefix(key, "https://")
	key = strings.TrimPrefix(key, "http://")
	key = strings.TrimPrefix(key, "www.")
	if key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}
	return licenseTemplates[key]
}

// DescriptionPage renders the description page for an uploaded file.
func DescriptionPage(meta job.Metadata, caption string) string {
	var b strings.Builder
	b.WriteString("=={{int:filedesc}}==\n\n")
	b.WriteString("{{Information\n")

	description := escape(strings.TrimSpace(caption))
	if description == "" {
		description = escape("Media belonging article cited on Wikipedia with DOI:") + " " + escape(meta.DOI)
	}
	b.WriteString("|Description=\n")
	fmt.Fprintf(&b, "{{en|1=%s}}\n", description)
	fmt.Fprintf(&b, "|Date= %s\n", dateString(meta.Year, meta.Month, meta.Day))
	fmt.Fprintf(&b, "|Source= [%s %s] from ", meta.ArticleURL, escape("Image file"))
	b.WriteString("{{Cite journal\n")
	fmt.Fprintf(&b, "| author = %s\n", escape(meta.Authors))
	fmt.Fprintf(&b, "| title = %s\n", escape(strings.Join(strings.Fields(meta.Title), " ")))
	fmt.Fprintf(&b, "| doi = %s\n", escape(meta.DOI))
	fmt.Fprintf(&b, "| journal = %s\n", escape(meta.JournalTitle))
	if meta.Year > 0 {
		fmt.Fprintf(&b, "| year = %d\n", meta.Year)
	}
	b.WriteString("}}\n")
	fmt.Fprintf(&b, "|Author= %s\n", escape(meta.Authors))
	fmt.Fprintf(&b, "|Permission= %s\n", LicenseTemplate(meta.LicenseURL))
	b.WriteString("|Other_fields={{Information field|name=Provenance|value= {{Open Access Media Importer}} }}\n")
	b.WriteString("}}\n\n")

	for _, category := range meta.Categories {
		category = categoryName(category)
		if len(strings.Fields(category)) < 2 {
			continue
		}
		fmt.Fprintf(&b, "[[Category:%s]]\n", escape(category))
	}
	if meta.JournalTitle != "" {
		fmt.Fprintf(&b, "[[Category:Media from %s]]\n", escape(meta.JournalTitle))
	}
	fmt.Fprintf(&b, "[[Category:Uploaded with %s]]\n", Bot)
	fmt.Fprintf(&b, "[[Category:Uploaded with %s and needing category review]]\n", Bot)
	return b.String()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "=", "{{=}}")
	return strings.ReplaceAll(s, "|", "{{!}}")
}

func dateString(year, month, day int) string {
	if year <= 0 {
		return ""
	}
	out := fmt.Sprintf("%04d", year)
	if month > 0 {
		out += fmt.Sprintf("-%02d", month)
		if day > 0 {
			out += fmt.Sprintf("-%02d", day)
		}
	}
	return out
}

// categoryName turns a subject heading into a category name. "Ecology,
// Marine (general)" becomes "Marine ecology"; acronyms and mixed-case words
// such as DNA or HeLa keep their case.
func categoryName(subject string) string {
	if idx := strings.Index(subject, "("); idx >= 0 {
		subject = subject[:idx]
	}
	if strings.Contains(subject, ",") {
		parts := strings.Split(subject, ",")
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
		subject = strings.Join(parts, " ")
	}
	words := strings.Fields(subject)
	for i, word := range words {
		pieces := strings.Split(word, "-")
		for k, piece := range pieces {
			pieces[k] = properCase(piece)
		}
		words[i] = strings.Join(pieces, "-")
	}
	out := strings.Join(words, " ")
	if out == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(out)
	return string(unicode.ToUpper(r)) + out[size:]
}

func properCase(word string) string {
	if utf8.RuneCountInString(word) <= 1 {
		return word
	}
	_, size := utf8.DecodeRuneInString(word)
	rest := word[size:]
	lower := cases.Lower(language.English)
	if rest == lower.String(rest) {
		return lower.String(word)
	}
	return word
}
