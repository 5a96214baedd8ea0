package analysis

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/invisibility-inc/devent/pkg/dataset"
	"github.com/invisibility-inc/devent/pkg/devent"
)

func writeDataset(t *testing.T, events []devent.Event, durationMS int64) string {
	t.Helper()
	dir := t.TempDir()
	layout := dataset.NewLayout(dir, "mkv")

	if err := os.WriteFile(layout.VideoPath, []byte("container bytes"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	file, err := os.Create(layout.EventLogPath)
	if err != nil {
		t.Fatalf("create event log: %v", err)
	}
	enc := devent.AppendEncoder(file)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			t.Fatalf("encode event: %v", err)
		}
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close event log: %v", err)
	}

	meta := dataset.Metadata{
		SessionID:  "test-session",
		StartedAt:  time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		DurationMS: durationMS,
		Monitor:    "0",
		FrameRate:  30,
		EventCount: len(events),
	}
	if err := dataset.Finalize(layout, meta); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return dir
}

func TestAnalyzePointerDistanceSkipsNonMoves(t *testing.T) {
	events := []devent.Event{
		devent.PointerMove(0, 0, 0),
		devent.PointerMove(10, 3, 4),
		devent.KeyEvent(20, "a", true, 3, 4),
		devent.PointerMove(30, 3, 4),
		devent.PointerMove(40, 0, 0),
	}
	dir := writeDataset(t, events, 5000)

	report, err := Analyze(dir)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	// 5 + 0 + 5: the repeated point contributes nothing and the key
	// event does not reset the move sequence.
	if report.PointerDistance != 10 {
		t.Fatalf("expected distance 10, got %v", report.PointerDistance)
	}
	if report.TotalEvents != 5 {
		t.Fatalf("expected 5 events, got %d", report.TotalEvents)
	}
	if report.EventsByKind[devent.KindPointerMove] != 4 {
		t.Fatalf("expected 4 moves, got %d", report.EventsByKind[devent.KindPointerMove])
	}
	if report.EventsByKind[devent.KindKey] != 1 {
		t.Fatalf("expected 1 key event, got %d", report.EventsByKind[devent.KindKey])
	}
	if report.TotalDurationSeconds != 5 {
		t.Fatalf("expected duration from metadata, got %v", report.TotalDurationSeconds)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	dir := writeDataset(t, []devent.Event{
		devent.PointerMove(0, 1, 1),
		devent.Scroll(5, 0, -2, 1, 1),
	}, 1500)

	first, err := Analyze(dir)
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	second, err := Analyze(dir)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reports differ across runs: %+v vs %+v", first, second)
	}
}

func TestAnalyzeEmptyLog(t *testing.T) {
	dir := writeDataset(t, nil, 2000)
	report, err := Analyze(dir)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.TotalEvents != 0 || report.PointerDistance != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestAnalyzeMissingDataset(t *testing.T) {
	_, err := Analyze(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, dataset.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnalyzeCorruptLog(t *testing.T) {
	dir := writeDataset(t, nil, 2000)
	if err := os.WriteFile(filepath.Join(dir, dataset.EventLogName), []byte("{broken\n"), 0o644); err != nil {
		t.Fatalf("corrupt log: %v", err)
	}
	if _, err := Analyze(dir); !errors.Is(err, dataset.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}
