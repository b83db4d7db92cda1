// Package handlers implements the HTTP API of the gallery server.
//
// Folder paths are passed as query parameters (root, path) and compared
// case-insensitively, so "C:\Photos" and "c:/photos/" address the same
// root. Responses are JSON.
package handlers
