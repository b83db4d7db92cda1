package media

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReadSidecar(t *testing.T) {
	tests := []struct {
		name        string
		files       map[string]string
		wantCaption string
		wantNoCap   bool
		wantMeta    string
	}{
		{
			name:      "no sidecars",
			files:     map[string]string{},
			wantNoCap: true,
		},
		{
			name:        "txt wins over md",
			files:       map[string]string{"img.txt": "plain", "img.md": "# md"},
			wantCaption: "plain",
		},
		{
			name:        "caption.txt before md",
			files:       map[string]string{"img.caption.txt": "cap", "img.md": "# md"},
			wantCaption: "cap",
		},
		{
			name:        "markdown fallback",
			files:       map[string]string{"img.md": "# md"},
			wantCaption: "# md",
		},
		{
			name:      "json metadata",
			files:     map[string]string{"img.json": `{"seed":42}`},
			wantNoCap: true,
			wantMeta:  `{"seed":42}`,
		},
		{
			name:      "invalid json ignored",
			files:     map[string]string{"img.json": `{broken`},
			wantNoCap: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, filepath.Join(dir, name), content)
			}

			sc := ReadSidecar(filepath.Join(dir, "img.png"))
			if tt.wantNoCap {
				if sc.Caption != nil {
					t.Errorf("caption = %q, want none", *sc.Caption)
				}
			} else if sc.Caption == nil || *sc.Caption != tt.wantCaption {
				t.Errorf("caption = %v, want %q", sc.Caption, tt.wantCaption)
			}
			if string(sc.Metadata) != tt.wantMeta {
				t.Errorf("metadata = %s, want %s", sc.Metadata, tt.wantMeta)
			}
			if got := sc.Empty(); got != (tt.wantNoCap && tt.wantMeta == "") {
				t.Errorf("Empty() = %v", got)
			}
		})
	}
}

func TestReadSidecarSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "img.txt"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "img.md"), "fallback")

	sc := ReadSidecar(filepath.Join(dir, "img.jpg"))
	if sc.Caption == nil || *sc.Caption != "fallback" {
		t.Errorf("caption = %v, want fallback", sc.Caption)
	}
}
