// Package mediatypes holds the file type and extension tables shared by the
// indexer, the watcher and the HTTP handlers.
//
// The package has no dependencies beyond the standard library so any other
// package can import it without creating cycles.
//
//	ext := strings.ToLower(filepath.Ext(name))
//	if mediatypes.IsImage(ext) {
//	    mime := mediatypes.GetMimeType(ext) // e.g. "image/jpeg"
//	}
package mediatypes
