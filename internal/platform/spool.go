package platform

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lifepulse/internal/infrastructure/logging"
	"lifepulse/internal/types"
)

// SystemUISurface is the app identifier whose foreground transitions are
// reported as screen unlocks rather than app usage
const SystemUISurface = "com.android.systemui"

// spoolEvent is the on-disk JSONL shape written by the OS-side hook
type spoolEvent struct {
	AppID       string `json:"appId"`
	Kind        string `json:"kind"`
	TimestampMs int64  `json:"timestamp"`
}

// SpoolEventSource reads usage-transition events from day-partitioned JSONL
// spool files written by an external OS hook. One file per calendar day,
// named events-YYYY-MM-DD.jsonl, with events appended in timestamp order.
type SpoolEventSource struct {
	dir    string
	logger logging.Logger
}

// NewSpoolEventSource creates an event source reading from the given spool directory
func NewSpoolEventSource(dir string, logger logging.Logger) *SpoolEventSource {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SpoolEventSource{dir: dir, logger: logger}
}

// QueryEvents returns all spooled events with start <= timestamp < end,
// in file order. The hook writes in timestamp order, so ordering is trusted.
func (s *SpoolEventSource) QueryEvents(ctx context.Context, start, end time.Time) ([]types.RawEvent, error) {
	var events []types.RawEvent

	startMs := start.UnixMilli()
	endMs := end.UnixMilli()

	// A window can straddle midnight; walk every day file the window touches.
	for day := start.Truncate(24 * time.Hour); day.Before(end); day = day.Add(24 * time.Hour) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(s.dir, fmt.Sprintf("events-%s.jsonl", day.Format("2006-01-02")))
		dayEvents, err := s.readSpoolFile(path, startMs, endMs)
		if err != nil {
			if os.IsNotExist(err) {
				// No spool file means no activity recorded for that day
				continue
			}
			return nil, fmt.Errorf("QueryEvents: reading spool file %s: %w", path, err)
		}
		events = append(events, dayEvents...)
	}

	return events, nil
}

// readSpoolFile parses one spool file, keeping events inside [startMs, endMs)
func (s *SpoolEventSource) readSpoolFile(path string, startMs, endMs int64) ([]types.RawEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []types.RawEvent
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var se spoolEvent
		if err := json.Unmarshal(line, &se); err != nil {
			// A torn final line from a crashed hook is expected; skip it
			s.logger.Warn("Skipping malformed spool line",
				"path", path, "line", lineNo, "error", err)
			continue
		}

		if se.TimestampMs < startMs || se.TimestampMs >= endMs {
			continue
		}

		event, ok := s.toRawEvent(se)
		if !ok {
			s.logger.Warn("Skipping spool event with unknown kind",
				"path", path, "line", lineNo, "kind", se.Kind)
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// toRawEvent maps a spool entry to a RawEvent. Foreground transitions of the
// system-UI surface become screen-unlock events.
func (s *SpoolEventSource) toRawEvent(se spoolEvent) (types.RawEvent, bool) {
	var kind types.EventKind
	switch se.Kind {
	case "FOREGROUND":
		kind = types.EventForeground
		if se.AppID == SystemUISurface {
			kind = types.EventScreenUnlock
		}
	case "BACKGROUND":
		kind = types.EventBackground
	case "SCREEN_UNLOCK":
		kind = types.EventScreenUnlock
	default:
		return types.RawEvent{}, false
	}

	return types.RawEvent{
		AppID:       se.AppID,
		Kind:        kind,
		TimestampMs: se.TimestampMs,
	}, true
}
