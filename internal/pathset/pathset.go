package pathset

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Separator is the canonical directory separator of normalized paths.
const Separator = "/"

// Path is a normalized path. It is safe to use as a map key.
type Path string

// String returns the normalized path as a plain string.
func (p Path) String() string {
	return string(p)
}

// MalformedPathError reports a path that cannot be normalized.
type MalformedPathError struct {
	Path   string
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("malformed path %q: %s", e.Path, e.Reason)
}

// Clean unifies directory separators to '/', collapses separator runs and
// drops a trailing separator. Case is preserved, so the result is suitable
// for display. A leading "//" (UNC share) is kept intact.
func Clean(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &MalformedPathError{Path: path, Reason: "empty path"}
	}
	if strings.IndexByte(path, 0) >= 0 {
		return "", &MalformedPathError{Path: path, Reason: "contains NUL byte"}
	}
	if !utf8.ValidString(path) {
		return "", &MalformedPathError{Path: path, Reason: "invalid UTF-8"}
	}

	var b strings.Builder
	b.Grow(len(path))
	prevSep := false
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '\\' {
			c = '/'
		}
		if c == '/' {
			if prevSep && b.Len() != 1 {
				continue
			}
			prevSep = true
		} else {
			prevSep = false
		}
		b.WriteByte(c)
	}

	cleaned := b.String()
	for len(cleaned) > 1 && strings.HasSuffix(cleaned, Separator) {
		cleaned = cleaned[:len(cleaned)-1]
	}
	return cleaned, nil
}

// Normalize returns the canonical comparison form of path: Clean plus
// lower-casing. Symlinks and relative segments are not resolved.
func Normalize(path string) (Path, error) {
	cleaned, err := Clean(path)
	if err != nil {
		return "", err
	}
	return Path(strings.ToLower(cleaned)), nil
}

// Equal reports whether a and b name the same path. Malformed input is
// never equal to anything.
func Equal(a, b string) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return na == nb
}

// Parent returns the directory part of a cleaned or normalized path.
// The parent of a top-level entry such as "/photos" is "/".
func Parent(path string) string {
	i := strings.LastIndex(path, Separator)
	switch {
	case i < 0:
		return ""
	case i == 0:
		return Separator
	default:
		return path[:i]
	}
}

// Base returns the last segment of a cleaned or normalized path.
func Base(path string) string {
	if i := strings.LastIndex(path, Separator); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Segments splits a cleaned or normalized path into its non-empty segments.
func Segments(path string) []string {
	parts := strings.Split(path, Separator)
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// BelongsToFolder reports whether filePath lives directly inside folderPath.
// Containment is flat: files in nested subfolders do not belong.
func BelongsToFolder(filePath, folderPath string) bool {
	file, err := Normalize(filePath)
	if err != nil {
		return false
	}
	folder, err := Normalize(folderPath)
	if err != nil {
		return false
	}
	if file == folder {
		return false
	}
	return Parent(string(file)) == string(folder)
}

// IsAncestorOf reports whether b lies strictly below a.
func IsAncestorOf(a, b string) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	prefix := string(na)
	if !strings.HasSuffix(prefix, Separator) {
		prefix += Separator
	}
	return len(nb) > len(prefix) && strings.HasPrefix(string(nb), prefix)
}
