// Package http provides the HTTP client used for bulk data transfer:
// streaming downloads of signed export URLs and uploads to signed
// destination URLs.
//
// GET requests are retried with exponential backoff and jitter on
// transport errors and 5xx responses. PUT requests are not retried
// because the request body is a one-shot stream.
//
// This client is for moving bytes; the Maestro API itself is spoken
// by pkg/maestro.
package http
