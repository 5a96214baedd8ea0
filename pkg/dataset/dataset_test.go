package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func completeDataset(t *testing.T, datasetsDir, id string) string {
	t.Helper()
	dir := filepath.Join(datasetsDir, id)
	layout := NewLayout(dir, "mkv")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create dataset dir: %v", err)
	}
	if err := os.WriteFile(layout.VideoPath, []byte("container bytes"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	if err := os.WriteFile(layout.EventLogPath, nil, 0o644); err != nil {
		t.Fatalf("write event log: %v", err)
	}
	meta := Metadata{
		SessionID:  "session-" + id,
		StartedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		DurationMS: 5000,
		Monitor:    "0",
		FrameRate:  30,
	}
	if err := Finalize(layout, meta); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return dir
}

func TestResolveIDAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)

	first, err := ResolveID(dir, now)
	if err != nil {
		t.Fatalf("resolve id: %v", err)
	}
	if first != "20260829_103000" {
		t.Fatalf("unexpected id %q", first)
	}

	if err := os.MkdirAll(filepath.Join(dir, first), 0o755); err != nil {
		t.Fatalf("occupy id: %v", err)
	}
	second, err := ResolveID(dir, now)
	if err != nil {
		t.Fatalf("resolve second id: %v", err)
	}
	if second != "20260829_103000_01" {
		t.Fatalf("unexpected collision id %q", second)
	}
}

func TestFinalizeRequiresReadableVideo(t *testing.T) {
	dir := t.TempDir()
	layout := NewLayout(dir, "mkv")

	err := Finalize(layout, Metadata{SessionID: "s"})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence error for missing video, got %v", err)
	}

	if err := os.WriteFile(layout.VideoPath, nil, 0o644); err != nil {
		t.Fatalf("write empty video: %v", err)
	}
	err = Finalize(layout, Metadata{SessionID: "s"})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence error for empty video, got %v", err)
	}

	if _, statErr := os.Stat(layout.MetadataPath); statErr == nil {
		t.Fatalf("metadata must not exist after failed finalize")
	}
}

func TestOpenTreatsMissingMetadataAsAbsent(t *testing.T) {
	dir := t.TempDir()
	layout := NewLayout(dir, "mkv")
	if err := os.WriteFile(layout.VideoPath, []byte("bytes"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	if err := os.WriteFile(layout.EventLogPath, nil, 0o644); err != nil {
		t.Fatalf("write event log: %v", err)
	}

	if _, err := Open(dir); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without metadata, got %v", err)
	}
}

func TestOpenReportsCorruptMetadata(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, MetadataName), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	if _, err := Open(dir); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestOpenCompleteDataset(t *testing.T) {
	datasets := t.TempDir()
	dir := completeDataset(t, datasets, "20260829_120000")

	ds, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if ds.Meta.SchemaVersion != SchemaVersion {
		t.Fatalf("expected schema version %d, got %d", SchemaVersion, ds.Meta.SchemaVersion)
	}
	if ds.Meta.VideoFile != "recording.mkv" {
		t.Fatalf("unexpected video file %q", ds.Meta.VideoFile)
	}
	if !strings.HasSuffix(ds.Layout.VideoPath, "recording.mkv") {
		t.Fatalf("unexpected video path %q", ds.Layout.VideoPath)
	}
}

func TestMostRecentSkipsIncomplete(t *testing.T) {
	datasets := t.TempDir()
	completeDataset(t, datasets, "20260829_100000")
	newest := completeDataset(t, datasets, "20260829_110000")

	// Newer directory without metadata must not win.
	partial := filepath.Join(datasets, "20260829_120000")
	if err := os.MkdirAll(partial, 0o755); err != nil {
		t.Fatalf("create partial: %v", err)
	}

	got, err := MostRecent(datasets)
	if err != nil {
		t.Fatalf("most recent: %v", err)
	}
	if got != newest {
		t.Fatalf("expected %q, got %q", newest, got)
	}
}

func TestMostRecentEmpty(t *testing.T) {
	if _, err := MostRecent(t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSweepIncompleteMarksPartials(t *testing.T) {
	datasets := t.TempDir()
	kept := completeDataset(t, datasets, "20260829_100000")
	partial := filepath.Join(datasets, "20260829_110000")
	if err := os.MkdirAll(partial, 0o755); err != nil {
		t.Fatalf("create partial: %v", err)
	}

	marked, err := SweepIncomplete(datasets)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(marked) != 1 || marked[0] != partial+IncompleteSuffix {
		t.Fatalf("unexpected sweep result %v", marked)
	}
	if _, err := os.Stat(partial); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial directory should have been renamed")
	}
	if _, err := os.Stat(kept); err != nil {
		t.Fatalf("complete dataset must be untouched: %v", err)
	}
}
