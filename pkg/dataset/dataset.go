// Package dataset defines the durable on-disk artifact of a recording
// session: a directory holding one video container, one append-only
// event log, and one metadata record. The metadata file is written
// last and its presence is the sole signal that the dataset is
// complete; readers treat a directory without it as garbage.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SchemaVersion captures the metadata version for compatibility checks.
const SchemaVersion = 1

const (
	// EventLogName is the append-only event log inside a dataset directory.
	EventLogName = "events.jsonl"
	// MetadataName is the completeness marker inside a dataset directory.
	MetadataName = "metadata.json"
	// VideoBaseName is the video container file name without extension.
	VideoBaseName = "recording"
	// IncompleteSuffix marks directories abandoned by a failed or crashed session.
	IncompleteSuffix = ".incomplete"
)

// Layout represents the absolute filesystem locations for one dataset.
type Layout struct {
	Root         string
	VideoPath    string
	EventLogPath string
	MetadataPath string
}

// NewLayout builds the layout for a dataset rooted at dir with the
// given video container format.
func NewLayout(dir, videoFormat string) Layout {
	return Layout{
		Root:         dir,
		VideoPath:    filepath.Join(dir, VideoBaseName+"."+videoFormat),
		EventLogPath: filepath.Join(dir, EventLogName),
		MetadataPath: filepath.Join(dir, MetadataName),
	}
}

// Metadata is the durable record describing a completed session.
type Metadata struct {
	SchemaVersion int       `json:"schema_version"`
	SessionID     string    `json:"session_id"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
	Monitor       string    `json:"monitor"`
	FrameRate     int       `json:"frame_rate"`
	Width         int       `json:"width,omitempty"`
	Height        int       `json:"height,omitempty"`
	EventCount    int       `json:"event_count"`
	VideoFile     string    `json:"video_file"`
	UncleanStop   bool      `json:"unclean_stop,omitempty"`
}

// Dataset is a read handle on a completed dataset directory.
type Dataset struct {
	Dir    string
	Layout Layout
	Meta   Metadata
}

// ResolveID chooses a dataset identifier derived from the timestamp and
// avoids collisions with existing directories.
func ResolveID(datasetsDir string, now time.Time) (string, error) {
	if strings.TrimSpace(datasetsDir) == "" {
		return "", errors.New("datasets directory must not be empty")
	}

	base := now.UTC().Format("20060102_150405")
	candidate := base
	suffix := 1
	for {
		_, err := os.Stat(filepath.Join(datasetsDir, candidate))
		if err == nil {
			candidate = fmt.Sprintf("%s_%02d", base, suffix)
			suffix++
			continue
		}
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		return "", fmt.Errorf("inspect datasets directory: %w", err)
	}
}

// Finalize confirms the video container is closed and readable, then
// writes the metadata record atomically. Only after Finalize returns
// does the directory count as a dataset.
func Finalize(layout Layout, meta Metadata) error {
	info, err := os.Stat(layout.VideoPath)
	if err != nil {
		return fmt.Errorf("%w: video container unreadable: %v", ErrPersistence, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: video container is empty", ErrPersistence)
	}
	file, err := os.Open(layout.VideoPath)
	if err != nil {
		return fmt.Errorf("%w: open video container: %v", ErrPersistence, err)
	}
	file.Close()

	meta.SchemaVersion = SchemaVersion
	meta.VideoFile = filepath.Base(layout.VideoPath)
	return saveMetadata(meta, layout.MetadataPath)
}

// saveMetadata writes metadata via a temp file and rename so the
// completeness marker appears atomically.
func saveMetadata(meta Metadata, path string) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal metadata: %v", ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "metadata-*.json.tmp")
	if err != nil {
		return fmt.Errorf("%w: create metadata temp file: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write metadata: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close metadata temp file: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: publish metadata: %v", ErrPersistence, err)
	}
	return nil
}

// LoadMetadata reads a metadata record from disk.
func LoadMetadata(path string) (Metadata, error) {
	var meta Metadata
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return meta, ErrNotFound
		}
		return meta, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("%w: decode metadata: %v", ErrCorrupt, err)
	}
	return meta, nil
}

// Open returns a read handle on a completed dataset directory. A
// directory without well-formed metadata is reported as ErrNotFound or
// ErrCorrupt; it is never surfaced as a usable dataset.
func Open(dir string) (*Dataset, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, ErrNotFound
	}

	meta, err := LoadMetadata(filepath.Join(dir, MetadataName))
	if err != nil {
		return nil, err
	}

	format := strings.TrimPrefix(filepath.Ext(meta.VideoFile), ".")
	if format == "" {
		return nil, fmt.Errorf("%w: metadata names no video container", ErrCorrupt)
	}
	layout := NewLayout(dir, format)
	if _, err := os.Stat(layout.VideoPath); err != nil {
		return nil, fmt.Errorf("%w: video container missing", ErrCorrupt)
	}
	if _, err := os.Stat(layout.EventLogPath); err != nil {
		return nil, fmt.Errorf("%w: event log missing", ErrCorrupt)
	}

	return &Dataset{Dir: dir, Layout: layout, Meta: meta}, nil
}

// MostRecent returns the path of the newest completed dataset under
// datasetsDir, or ErrNotFound when none exists.
func MostRecent(datasetsDir string) (string, error) {
	entries, err := os.ReadDir(datasetsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read datasets directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasSuffix(entry.Name(), IncompleteSuffix) {
			continue
		}
		candidate := filepath.Join(datasetsDir, entry.Name())
		if _, err := os.Stat(filepath.Join(candidate, MetadataName)); err != nil {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return "", ErrNotFound
	}

	// Dataset ids sort chronologically by construction.
	sort.Strings(names)
	return filepath.Join(datasetsDir, names[len(names)-1]), nil
}

// SweepIncomplete renames dataset directories abandoned without a
// metadata record, so crash leftovers are never mistaken for datasets.
// It returns the directories it marked.
func SweepIncomplete(datasetsDir string) ([]string, error) {
	entries, err := os.ReadDir(datasetsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read datasets directory: %w", err)
	}

	var marked []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasSuffix(entry.Name(), IncompleteSuffix) {
			continue
		}
		dir := filepath.Join(datasetsDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, MetadataName)); err == nil {
			continue
		}
		target := dir + IncompleteSuffix
		if err := os.Rename(dir, target); err != nil {
			return marked, fmt.Errorf("mark incomplete dataset %q: %w", dir, err)
		}
		marked = append(marked, target)
	}
	return marked, nil
}
