// Package wikitext builds and rewrites the wiki markup the publisher sends:
// media file names derived from article titles, page titles, file
// description pages, redirects, and the reference rewrites applied to the
// transformed article text.
package wikitext
