// Package display renders still frames from a recorded dataset, the
// read-side counterpart to screen capture. The external presentation
// layer is out of scope; this package only produces the frame file and
// reports where it landed.
package display

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/invisibility-inc/devent/pkg/dataset"
)

// Frame describes one extracted still.
type Frame struct {
	// Index is the zero-based frame number within the video.
	Index int
	// Total is the estimated frame count of the video.
	Total int
	// Path is the rendered JPEG on disk.
	Path string
}

// FrameRunner extracts a single frame from a video container. The
// exec-backed default drives ffmpeg; tests inject fakes.
type FrameRunner interface {
	ExtractFrame(ctx context.Context, videoPath string, index int, outPath string) error
}

// FFmpegRunner extracts frames with the ffmpeg select filter.
type FFmpegRunner struct {
	// Binary overrides the ffmpeg executable name.
	Binary string
}

// ExtractFrame renders frame index of videoPath to outPath as JPEG.
func (r FFmpegRunner) ExtractFrame(ctx context.Context, videoPath string, index int, outPath string) error {
	binary := r.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{
		"-i", videoPath,
		"-vf", "select=eq(n\\," + strconv.Itoa(index) + ")",
		"-vframes", "1",
		"-q:v", "3",
		"-y", outPath,
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("extract frame %d: %w: %s", index, err, stderr.String())
	}
	return nil
}

// Options configure frame selection and extraction.
type Options struct {
	Runner FrameRunner
	// Pick chooses a frame index in [0, total); nil means uniform random.
	Pick func(total int) int
}

// RandomFrame opens the dataset at dir, picks a frame, and renders it
// into the dataset directory. Incomplete directories are refused the
// same way every other reader refuses them.
func RandomFrame(ctx context.Context, dir string, opts Options) (Frame, error) {
	ds, err := dataset.Open(dir)
	if err != nil {
		return Frame{}, err
	}

	total := frameCount(ds.Meta)
	pick := opts.Pick
	if pick == nil {
		pick = rand.IntN
	}
	index := pick(total)
	if index < 0 || index >= total {
		return Frame{}, fmt.Errorf("frame index %d out of range [0, %d)", index, total)
	}

	runner := opts.Runner
	if runner == nil {
		runner = FFmpegRunner{}
	}
	outPath := filepath.Join(ds.Dir, fmt.Sprintf("frame_%06d.jpg", index))
	if err := runner.ExtractFrame(ctx, ds.Layout.VideoPath, index, outPath); err != nil {
		return Frame{}, err
	}
	return Frame{Index: index, Total: total, Path: outPath}, nil
}

// frameCount estimates the video's frame count from the recorded
// duration and frame rate. The estimate errs low so a picked index
// always lands inside the container.
func frameCount(meta dataset.Metadata) int {
	frames := int(meta.DurationMS) * meta.FrameRate / 1000
	if frames < 1 {
		frames = 1
	}
	return frames
}

// MostRecent resolves the newest completed dataset under datasetsDir,
// mirroring the analyze command's default.
func MostRecent(datasetsDir string) (string, error) {
	dir, err := dataset.MostRecent(datasetsDir)
	if errors.Is(err, dataset.ErrNotFound) {
		return "", fmt.Errorf("no completed dataset under %s: %w", datasetsDir, err)
	}
	return dir, err
}
