package screencap

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"syscall"
)

// LaunchSpec describes the capture process to spawn.
type LaunchSpec struct {
	Monitor    Monitor
	OutputPath string
	FrameRate  int
}

// Process is a handle on a live external capture process.
type Process interface {
	// Quit requests a graceful stop so the encoder can flush its container.
	Quit() error
	// Kill terminates the process immediately.
	Kill() error
	// Wait blocks until the process exits and reports its exit error.
	Wait() error
	// PID identifies the process for diagnostics.
	PID() int
}

// Launcher spawns the external capture process. The exec-backed
// default drives ffmpeg; tests inject fakes.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (Process, error)
}

// FFmpegLauncher spawns ffmpeg with the platform's native screen grab
// input. The concrete encoder stays swappable behind the Launcher
// interface; this is merely the default.
type FFmpegLauncher struct {
	// Binary overrides the ffmpeg executable name.
	Binary string
}

// Launch builds and starts the platform capture command.
func (l FFmpegLauncher) Launch(ctx context.Context, spec LaunchSpec) (Process, error) {
	binary := l.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	args := captureArgs(spec)
	cmd := exec.CommandContext(ctx, binary, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open encoder stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn capture process: %w", err)
	}

	return &execProcess{cmd: cmd, stdin: stdin}, nil
}

// captureArgs assembles the encoder invocation for the host platform.
func captureArgs(spec LaunchSpec) []string {
	frameRate := strconv.Itoa(spec.FrameRate)
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"-f", "avfoundation",
			"-capture_cursor", "1",
			"-capture_mouse_clicks", "1",
			"-framerate", frameRate,
			"-i", spec.Monitor.ID + ":none",
			"-vcodec", "libx264",
			"-preset", "ultrafast",
			"-crf", "23",
			"-pix_fmt", "yuv420p",
			"-y", spec.OutputPath,
		}
	default:
		return []string{
			"-f", "x11grab",
			"-framerate", frameRate,
			"-i", spec.Monitor.ID,
			"-vcodec", "libx264",
			"-preset", "ultrafast",
			"-crf", "23",
			"-pix_fmt", "yuv420p",
			"-y", spec.OutputPath,
		}
	}
}

// execProcess wraps an exec.Cmd as a Process.
type execProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// Quit asks ffmpeg to finish the container: the "q" keystroke on stdin
// triggers a clean flush, with SIGINT as a fallback for encoders that
// ignore stdin.
func (p *execProcess) Quit() error {
	if _, err := io.WriteString(p.stdin, "q\n"); err == nil {
		return nil
	}
	return p.cmd.Process.Signal(syscall.SIGINT)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	p.stdin.Close()
	return err
}

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}
