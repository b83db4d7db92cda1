// Package pathset canonicalizes absolute filesystem paths so that the rest of
// the gallery can compare, key and scope them consistently.
//
// Two spellings of the same folder (C:\Photos\2024 and c:/photos/2024/) map to
// one normalized form: separators are unified to '/', runs of separators are
// collapsed, a trailing separator is dropped and the result is lower-cased.
// Symlinks and relative segments are never resolved; the indexer hands over
// absolute, already-resolved paths.
//
// Folders are flat scopes: BelongsToFolder only matches direct children.
// IsAncestorOf covers the recursive relationship used by the folder tree.
//
// NaturalCompare orders names the way people expect ("img2" before "img10").
package pathset
