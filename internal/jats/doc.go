// Package jats extracts bibliographic metadata, licensing, and the media
// inventory from JATS (NLM journal archiving) XML documents.
package jats
