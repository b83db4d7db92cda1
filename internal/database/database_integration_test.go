package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"local-gallery/internal/library"
)

const testRoot = "/photos/trips"

func setupTestDB(t testing.TB) (*Database, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, dbPath
}

func record(name string, size int64) library.FileRecord {
	return library.FileRecord{
		Path:       testRoot + "/" + name,
		Size:       size,
		ModifiedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		FileType:   "image",
	}
}

func recordPaths(recs []library.FileRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Path
	}
	return out
}

func apply(t *testing.T, c *library.Cache, ev library.Event) {
	t.Helper()
	if _, err := c.Apply(ev); err != nil {
		t.Fatalf("Apply(%s): %v", ev.Kind(), err)
	}
}

func flush(t *testing.T, db *Database) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestNewDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	db, dbPath := setupTestDB(t)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", db.Path(), dbPath)
	}

	var version int
	if err := db.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != schemaVersion {
		t.Errorf("user_version = %d, want %d", version, schemaVersion)
	}
}

func TestNewDatabaseRejectsMissingDirectory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "missing", "test.db")
	if _, err := New(context.Background(), dbPath); err == nil {
		t.Error("expected error for missing parent directory")
	}
}

func TestPersistAndLoadLibrary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	db, dbPath := setupTestDB(t)
	cache := library.New(library.WithObserver(db))

	apply(t, cache, library.Started{Root: testRoot})
	apply(t, cache, library.RecordBatchUpsert{Root: testRoot, Records: []library.FileRecord{
		record("a.jpg", 1), record("b.jpg", 2), record("c.jpg", 3),
	}})
	apply(t, cache, library.RecordUpsert{Root: testRoot, Record: record("a.jpg", 10)})
	apply(t, cache, library.RecordRemove{Root: testRoot, Paths: []string{testRoot + "/b.jpg"}})
	apply(t, cache, library.RecordUpsert{Root: testRoot, Record: record("d.jpg", 4)})
	apply(t, cache, library.CompletedSummary{Root: testRoot, Summary: library.Summary{Total: 3, Upserted: 4, Deleted: 1}})
	flush(t, db)

	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	restored := library.New(library.WithObserver(reopened))
	roots, records, err := reopened.LoadLibrary(context.Background(), restored)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	if roots != 1 || records != 3 {
		t.Errorf("loaded %d roots / %d records, want 1 / 3", roots, records)
	}

	got := restored.RecordsForRoot(testRoot)
	want := []string{testRoot + "/a.jpg", testRoot + "/c.jpg", testRoot + "/d.jpg"}
	if !slices.Equal(recordPaths(got), want) {
		t.Errorf("restored order = %v, want %v", recordPaths(got), want)
	}
	if got[0].Size != 10 {
		t.Errorf("replacement lost: size = %d, want 10", got[0].Size)
	}
	if restored.SyncStateOf(testRoot) != library.Idle {
		t.Errorf("restored root state = %v, want idle", restored.SyncStateOf(testRoot))
	}
	summary, ok := restored.LastSummaryOf(testRoot)
	if !ok || summary.Deleted != 1 || summary.Upserted != 4 {
		t.Errorf("restored summary = %+v, %v", summary, ok)
	}
}

func TestLoadLibraryDoesNotWriteBack(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	db, _ := setupTestDB(t)
	cache := library.New(library.WithObserver(db))
	apply(t, cache, library.RecordBatchUpsert{Root: testRoot, Records: []library.FileRecord{record("a.jpg", 1)}})
	apply(t, cache, library.CompletedSummary{Root: testRoot})
	flush(t, db)

	restored := library.New(library.WithObserver(db))
	if _, _, err := db.LoadLibrary(context.Background(), restored); err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	flush(t, db)

	var seq int
	if err := db.db.QueryRow("SELECT MAX(seq) FROM records").Scan(&seq); err != nil {
		t.Fatal(err)
	}
	if seq != 1 {
		t.Errorf("max seq = %d after replay, want 1", seq)
	}
}

func TestResetRootClearsStoredState(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	db, _ := setupTestDB(t)
	ctx := context.Background()
	cache := library.New(library.WithObserver(db))

	apply(t, cache, library.RecordBatchUpsert{Root: testRoot, Records: []library.FileRecord{record("a.jpg", 1)}})
	apply(t, cache, library.RecordUpsert{Record: library.FileRecord{Path: "/other/x.jpg", Size: 5}})
	if err := db.SaveSnapshot(ctx, testRoot, FolderSnapshot{FileCount: 1, TotalMtime: 100}); err != nil {
		t.Fatal(err)
	}
	flush(t, db)

	if err := cache.ResetRoot(testRoot); err != nil {
		t.Fatal(err)
	}
	flush(t, db)

	if _, ok, err := db.GetSnapshot(ctx, testRoot); err != nil || ok {
		t.Errorf("snapshot after reset: ok=%v err=%v", ok, err)
	}

	restored := library.New()
	roots, records, err := db.LoadLibrary(ctx, restored)
	if err != nil {
		t.Fatal(err)
	}
	if roots != 1 || records != 1 {
		t.Errorf("after reset loaded %d roots / %d records, want 1 / 1", roots, records)
	}
	if restored.IsRootKnown(testRoot) {
		t.Error("reset root came back after reload")
	}
}

func TestSnapshots(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	db, _ := setupTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.GetSnapshot(ctx, testRoot); err != nil || ok {
		t.Fatalf("empty GetSnapshot: ok=%v err=%v", ok, err)
	}

	snap := FolderSnapshot{FileCount: 3, TotalMtime: 12345}
	if err := db.SaveSnapshot(ctx, testRoot, snap); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.GetSnapshot(ctx, `/PHOTOS/Trips/`)
	if err != nil || !ok {
		t.Fatalf("GetSnapshot: ok=%v err=%v", ok, err)
	}
	if !got.Matches(snap) {
		t.Errorf("snapshot = %+v, want %+v", got, snap)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	if err := db.DeleteSnapshot(ctx, testRoot); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.GetSnapshot(ctx, testRoot); ok {
		t.Error("snapshot still present after delete")
	}

	if _, _, err := db.GetSnapshot(ctx, ""); err == nil {
		t.Error("expected error for malformed root")
	}
}

func TestSettings(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	db, _ := setupTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.GetSetting(ctx, SettingLastSelectedFolder); err != nil || ok {
		t.Fatalf("unset setting: ok=%v err=%v", ok, err)
	}
	for _, v := range []string{"/photos/a", "/photos/b"} {
		if err := db.SetSetting(ctx, SettingLastSelectedFolder, v); err != nil {
			t.Fatal(err)
		}
		got, ok, err := db.GetSetting(ctx, SettingLastSelectedFolder)
		if err != nil || !ok || got != v {
			t.Errorf("GetSetting = %q, %v, %v; want %q", got, ok, err, v)
		}
	}
	if err := db.SetSetting(ctx, SettingLastSelectedFolder, ""); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.GetSetting(ctx, SettingLastSelectedFolder); ok {
		t.Error("empty value should delete the setting")
	}
}

func TestCloseIsIdempotentAndStopsQueue(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite integration test in short mode")
	}

	db, _ := setupTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := db.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush after close = %v, want ErrClosed", err)
	}
	db.Reset(testRoot) // must not panic
}
