package mediatypes

import (
	"slices"
	"testing"
)

func TestGetFileType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want FileType
	}{
		{name: "JPEG image", ext: ".jpg", want: FileTypeImage},
		{name: "WebP image", ext: ".webp", want: FileTypeImage},
		{name: "TIFF image", ext: ".tif", want: FileTypeImage},
		{name: "Video is not indexed", ext: ".mp4", want: FileTypeOther},
		{name: "Unknown extension", ext: ".xyz", want: FileTypeOther},
		{name: "Empty extension", ext: "", want: FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetFileType(tt.ext); got != tt.want {
				t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".jpg", "image/jpeg"},
		{".jpeg", "image/jpeg"},
		{".png", "image/png"},
		{".ico", "image/x-icon"},
		{".xyz", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := GetMimeType(tt.ext); got != tt.want {
			t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestIsImagePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/photos/a.jpg", true},
		{`C:\Photos\B.JPEG`, true},
		{"/photos/notes.txt", false},
		{"/photos/noext", false},
		{"/photos/a.jpg.json", false},
	}

	for _, tt := range tests {
		if got := IsImagePath(tt.path); got != tt.want {
			t.Errorf("IsImagePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSupportedExtensionsMatchMimeTable(t *testing.T) {
	exts := SupportedExtensions()
	if !slices.IsSorted(exts) {
		t.Errorf("SupportedExtensions not sorted: %v", exts)
	}
	for _, ext := range exts {
		if _, ok := MimeTypes[ext]; !ok {
			t.Errorf("extension %s has no MIME type", ext)
		}
	}
}
