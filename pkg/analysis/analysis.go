// Package analysis derives aggregate statistics from a completed
// dataset. Reports are a pure function of the dataset on disk: safe to
// recompute at any time and from any number of goroutines.
package analysis

import (
	"fmt"
	"math"
	"os"

	"github.com/invisibility-inc/devent/pkg/dataset"
	"github.com/invisibility-inc/devent/pkg/devent"
)

// Report summarises one completed dataset.
type Report struct {
	DatasetPath string `json:"dataset_path"`
	SessionID   string `json:"session_id"`

	// TotalDurationSeconds comes from metadata, not from the event
	// span: events undercount quiet periods.
	TotalDurationSeconds float64 `json:"total_duration_seconds"`

	TotalEvents  int                 `json:"total_events"`
	EventsByKind map[devent.Kind]int `json:"events_by_kind"`

	// PointerDistance is the summed Euclidean distance between
	// consecutive pointer moves, in screen units.
	PointerDistance float64 `json:"pointer_distance"`
}

// Analyze reads a completed dataset's event log fully and computes the
// aggregate report. It fails with dataset.ErrNotFound or
// dataset.ErrCorrupt for missing or malformed datasets.
func Analyze(dir string) (Report, error) {
	ds, err := dataset.Open(dir)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		DatasetPath:          ds.Dir,
		SessionID:            ds.Meta.SessionID,
		TotalDurationSeconds: float64(ds.Meta.DurationMS) / 1000.0,
		EventsByKind:         make(map[devent.Kind]int, len(devent.Kinds())),
	}
	for _, kind := range devent.Kinds() {
		report.EventsByKind[kind] = 0
	}

	file, err := os.Open(ds.Layout.EventLogPath)
	if err != nil {
		return Report{}, fmt.Errorf("%w: open event log: %v", dataset.ErrCorrupt, err)
	}
	defer file.Close()

	// Only pointer moves participate in the previous-point state, so a
	// key press between two moves does not break the travel sequence.
	var havePrev bool
	var prevX, prevY float64

	readErr := devent.ReadLog(file, func(event devent.Event) error {
		report.TotalEvents++
		report.EventsByKind[event.Kind]++

		if event.Kind == devent.KindPointerMove {
			if havePrev {
				report.PointerDistance += math.Hypot(event.X-prevX, event.Y-prevY)
			}
			prevX, prevY = event.X, event.Y
			havePrev = true
		}
		return nil
	})
	if readErr != nil {
		return Report{}, fmt.Errorf("%w: %v", dataset.ErrCorrupt, readErr)
	}

	return report, nil
}
