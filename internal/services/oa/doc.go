// Package oa locates and downloads article packages from the PMC Open Access
// web service.
package oa
