package mediatypes

import (
	"path/filepath"
	"slices"
	"strings"
)

// FileType categorizes an indexed file. It is stored verbatim in
// FileRecord.FileType.
type FileType string

const (
	// FileTypeImage represents a supported image file.
	FileTypeImage FileType = "image"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".ico":  true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".ico":  "image/x-icon",
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
func GetFileType(ext string) FileType {
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsImage reports whether ext is a supported image extension.
func IsImage(ext string) bool {
	return ImageExtensions[ext]
}

// IsImagePath reports whether the file name at path has a supported image
// extension, ignoring case.
func IsImagePath(path string) bool {
	return IsImage(strings.ToLower(filepath.Ext(path)))
}

// SupportedExtensions returns the supported image extensions in sorted order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(ImageExtensions))
	for ext := range ImageExtensions {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
