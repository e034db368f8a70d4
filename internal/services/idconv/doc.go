// Package idconv resolves DOIs to PubMed Central identifiers using the PMC ID
// converter service.
//
// The client performs exactly one request per Resolve call. Callers decide
// whether to retry. Only responses that cannot be decoded are classified as
// transient; a decoded answer without records, a failed request, and an
// error status are final.
package idconv
