// Package middleware provides the HTTP middleware chain of the gallery
// server: W3C-style request logging, Prometheus request metrics keyed by
// route template, and gzip compression of JSON responses.
package middleware
