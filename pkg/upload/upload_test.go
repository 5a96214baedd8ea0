package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/invisibility-inc/devent/pkg/dataset"
)

func completeDataset(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "20260829_120000")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	layout := dataset.NewLayout(dir, "mkv")
	if err := os.WriteFile(layout.VideoPath, []byte("frames"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	if err := os.WriteFile(layout.EventLogPath, []byte(`{"timestamp_ms":1,"kind":"key","key":"a","pressed":true}`+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	meta := dataset.Metadata{SessionID: "s-1", StartedAt: time.Now().UTC(), DurationMS: 1000, FrameRate: 30, EventCount: 1}
	if err := dataset.Finalize(layout, meta); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return dir
}

func TestPushStagesCompleteDataset(t *testing.T) {
	dir := completeDataset(t)
	staging := t.TempDir()

	name, err := Push(context.Background(), StagingRemote{Dir: staging}, dir, "")
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if name != filepath.Base(dir) {
		t.Fatalf("pushed name = %q, want %q", name, filepath.Base(dir))
	}

	staged, err := dataset.Open(filepath.Join(staging, name))
	if err != nil {
		t.Fatalf("staged copy is not a complete dataset: %v", err)
	}
	if staged.Meta.SessionID != "s-1" {
		t.Fatalf("staged metadata session = %q", staged.Meta.SessionID)
	}
}

func TestPushRefusesIncompleteDataset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "20260829_120100")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	layout := dataset.NewLayout(dir, "mkv")
	if err := os.WriteFile(layout.VideoPath, []byte("frames"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	// No metadata: the directory is not a dataset.

	staging := t.TempDir()
	if _, err := Push(context.Background(), StagingRemote{Dir: staging}, dir, ""); !errors.Is(err, dataset.ErrNotFound) {
		t.Fatalf("Push incomplete = %v, want ErrNotFound", err)
	}
	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatalf("read staging: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("refused upload still wrote %d entries", len(entries))
	}
}

func TestPushHonoursExplicitName(t *testing.T) {
	dir := completeDataset(t)
	staging := t.TempDir()

	name, err := Push(context.Background(), StagingRemote{Dir: staging}, dir, "session-alpha")
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if name != "session-alpha" {
		t.Fatalf("pushed name = %q", name)
	}
	if _, err := dataset.Open(filepath.Join(staging, "session-alpha")); err != nil {
		t.Fatalf("named copy unreadable: %v", err)
	}
}

func TestPushRefusesDuplicateName(t *testing.T) {
	dir := completeDataset(t)
	staging := t.TempDir()

	if _, err := Push(context.Background(), StagingRemote{Dir: staging}, dir, ""); err != nil {
		t.Fatalf("first Push: %v", err)
	}
	if _, err := Push(context.Background(), StagingRemote{Dir: staging}, dir, ""); !errors.Is(err, ErrRemoteExists) {
		t.Fatalf("second Push = %v, want ErrRemoteExists", err)
	}
}
