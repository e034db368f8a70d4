// Package xslt converts JATS source documents to MediaWiki export XML by
// running an XSLT processor, and reads the page text back out of the result.
package xslt
