package screencap

import (
	"os"
	"runtime"
	"strings"
)

// Monitor identifies one attached display as the capture target.
type Monitor struct {
	ID   string
	Name string
}

// ListMonitors enumerates capturable displays. The DEVENT_MONITORS env
// variable ("id:name,id:name") overrides detection for hosts and tests
// where probing the display server is not possible; otherwise a single
// platform-default monitor is reported.
func ListMonitors() []Monitor {
	if raw, ok := os.LookupEnv("DEVENT_MONITORS"); ok {
		return parseMonitorList(raw)
	}

	switch runtime.GOOS {
	case "darwin":
		// avfoundation device index 1 is the first screen on most hosts.
		return []Monitor{{ID: "1", Name: "primary display"}}
	default:
		display := os.Getenv("DISPLAY")
		if display == "" {
			display = ":0"
		}
		return []Monitor{{ID: display, Name: "primary display"}}
	}
}

// FindMonitor resolves a monitor identifier against the enumeration.
func FindMonitor(id string) (Monitor, bool) {
	for _, monitor := range ListMonitors() {
		if monitor.ID == id {
			return monitor, true
		}
	}
	return Monitor{}, false
}

func parseMonitorList(raw string) []Monitor {
	var monitors []Monitor
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, name, found := strings.Cut(part, ":")
		if !found {
			name = "display " + id
		}
		monitors = append(monitors, Monitor{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}
	return monitors
}
