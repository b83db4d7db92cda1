package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"local-gallery/internal/foldertree"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestScanPrintsJSONWhenPiped(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"img10.png", "img2.png", "img1.png", ".hidden.png"} {
		writePNG(t, filepath.Join(dir, name), 8, 6)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "scan", dir)
	if err != nil {
		t.Fatalf("scan: %v\n%s", err, out)
	}

	var res scanResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	var names []string
	for _, rec := range res.Records {
		names = append(names, rec.Name)
	}
	if !slices.Equal(names, []string{"img1.png", "img2.png", "img10.png"}) {
		t.Errorf("records = %v", names)
	}
	if res.Summary.Total != 3 || res.Summary.Upserted != 3 {
		t.Errorf("summary = %+v", res.Summary)
	}
	if d := res.Records[0].Dimensions; d == nil || d.Width != 8 || d.Height != 6 {
		t.Errorf("dimensions = %+v", d)
	}
}

func TestScanWithThumbnails(t *testing.T) {
	dir := t.TempDir()
	thumbs := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 40, 40)

	out, err := run(t, "scan", dir, "--thumbnails", thumbs, "--thumbnail-size", "16")
	if err != nil {
		t.Fatalf("scan: %v\n%s", err, out)
	}
	var res scanResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 || res.Records[0].ThumbnailPath == "" {
		t.Fatalf("records = %+v", res.Records)
	}
	if _, err := os.Stat(res.Records[0].ThumbnailPath); err != nil {
		t.Errorf("thumbnail missing: %v", err)
	}
}

func TestScanMissingFolder(t *testing.T) {
	if _, err := run(t, "scan", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected an error for a missing folder")
	}
	if _, err := run(t, "scan"); err == nil {
		t.Error("expected an error without a folder")
	}
}

func TestPrintRecordsTable(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "photo.png"), 3, 2)
	res, err := scan(t.Context(), dir, scanOptions{BatchSize: 10})
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := printRecords(&out, res); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"NAME", "photo.png", "3x2", "1 images"} {
		if !strings.Contains(text, want) {
			t.Errorf("table missing %q:\n%s", want, text)
		}
	}
}

func TestTreeJSON(t *testing.T) {
	out, err := run(t, "tree", "--json", "/photos/2024", "/photos/2023/summer", "/PHOTOS/2024/")
	if err != nil {
		t.Fatal(err)
	}
	var forest []*foldertree.Node
	if err := json.Unmarshal([]byte(out), &forest); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	got := foldertree.RealPaths(forest)
	if !slices.Equal(got, []string{"/photos/2023/summer", "/photos/2024"}) {
		t.Errorf("real paths = %v", got)
	}
}

func TestPrintTree(t *testing.T) {
	forest := []*foldertree.Node{{
		DisplayName: "photos",
		IsVirtual:   true,
		Children: []*foldertree.Node{
			{DisplayName: "2023"},
			{DisplayName: "2024"},
		},
	}}
	var out bytes.Buffer
	if err := printTree(&out, forest); err != nil {
		t.Fatal(err)
	}
	want := "(photos)\n  2023\n  2024\n"
	if out.String() != want {
		t.Errorf("tree = %q, want %q", out.String(), want)
	}
}

func TestLayoutCommand(t *testing.T) {
	out, err := run(t, "layout", "--width", "1000", "--cell", "200", "--gap", "0",
		"--count", "50", "--height", "400", "--scroll-top", "0", "--overscan", "0")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"columns:   5", "rows:      10", "visible:   0-14 (15 cells)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "layout", "--width", "0")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "no cell fits") {
		t.Errorf("output = %q", out)
	}
}

func TestComputeLayoutJSON(t *testing.T) {
	res := computeLayout(layoutOptions{Width: 640, Cell: 100, Gap: 10, Count: 7, Height: 100, Overscan: 1})
	if res.Layout.Columns != 5 || res.Rows != 2 {
		t.Errorf("layout = %+v, rows %d", res.Layout, res.Rows)
	}
	if res.Range.First != 0 || res.Range.Last != 6 {
		t.Errorf("range = %+v", res.Range)
	}
}
