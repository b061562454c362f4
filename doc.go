// Package mtapi serves the station directory over HTTP.
//
// Responses wrap their payload in an envelope:
//
//	{"data": [...], "updated": "2026-03-02T08:00:00-05:00"}
//
// updated is the build time of the index that answered the request, or null
// when the answer merges several systems. Errors are returned as
//
//	{"error": "Missing or invalid lat/lon parameter", "details": {...}}
//
// with status 400 for invalid input, 404 for lookups that found nothing, 503
// for systems that have not been loaded yet and 500 otherwise.
package mtapi
