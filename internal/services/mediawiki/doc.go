// Package mediawiki is a minimal MediaWiki action API client covering the
// calls the publisher needs: bot login, file upload, page edit, and file
// lookup by prefix.
//
// A Client logs in lazily on the first write and caches the CSRF token for
// the life of the session. Upload and edit answers that mean "this already
// exists" are reported as services.ErrPublishConflict so callers can reuse
// the existing page or file.
package mediawiki
