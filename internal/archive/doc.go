// Package archive unpacks article packages and locates the source document
// inside them.
package archive
