// Package deps reports whether the external command-line tools the pipeline
// shells out to are installed.
package deps
