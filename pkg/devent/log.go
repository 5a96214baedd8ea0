package devent

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Each log record is one JSON document per line, so a reader can parse
// progressively without a trailing index and a half-written final line
// is detectable.

// AppendEncoder returns an encoder that writes one self-delimited
// record per line to w.
func AppendEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// ReadLog streams every record in an event log to fn, in file order.
// A record that fails to parse or validate aborts the read with a
// positional error.
func ReadLog(r io.Reader, fn func(Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return fmt.Errorf("line %d: decode event: %w", line, err)
		}
		if err := event.Validate(); err != nil {
			return fmt.Errorf("line %d: invalid event: %w", line, err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan event log: %w", err)
	}
	return nil
}
