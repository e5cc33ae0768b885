package services

import (
	"time"

	"lifepulse/internal/infrastructure/logging"
	"lifepulse/internal/types"
)

const millisPerHour = 60 * 60 * 1000

// HourlyAggregator folds a day's raw usage-transition events into per-hour,
// per-app usage totals and launch counts, splitting sessions that cross hour
// boundaries with proportional time allocation.
//
// The aggregator holds no state between calls and no locks; the caller is
// expected to run at most one aggregation pass at a time.
type HourlyAggregator struct {
	logger logging.Logger
}

// NewHourlyAggregator creates an aggregator
func NewHourlyAggregator(logger logging.Logger) *HourlyAggregator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &HourlyAggregator{logger: logger}
}

// openSession tracks an app currently in the foreground
type openSession struct {
	startMs   int64
	startHour int
}

// Aggregate folds the given chronologically-ordered events into 24 hour
// buckets for the given day, and counts screen unlocks as a day-scoped total.
//
// Sessions still open when the event stream ends are dropped; their partial
// usage is not credited. BACKGROUND events with no matching FOREGROUND are
// boundary artifacts and are ignored.
func (a *HourlyAggregator) Aggregate(events []types.RawEvent, day time.Time) ([24]types.HourBucket, int) {
	var buckets [24]types.HourBucket
	loc := day.Location()

	// appID -> open foreground session
	sessions := make(map[string]openSession)
	screenUnlocks := 0

	for _, event := range events {
		switch event.Kind {
		case types.EventScreenUnlock:
			screenUnlocks++

		case types.EventForeground:
			// Overwrites any stale entry for the same app
			sessions[event.AppID] = openSession{
				startMs:   event.TimestampMs,
				startHour: hourOf(event.TimestampMs, loc),
			}

		case types.EventBackground:
			session, ok := sessions[event.AppID]
			if !ok {
				continue
			}
			a.closeSession(&buckets, event.AppID, session, event.TimestampMs, loc)
			delete(sessions, event.AppID)
		}
	}

	if len(sessions) > 0 {
		a.logger.Debug("Dropping sessions still open at window end",
			"date", day.Format("2006-01-02"), "count", len(sessions))
	}

	return buckets, screenUnlocks
}

// closeSession credits a finished session to the hour buckets it touched
func (a *HourlyAggregator) closeSession(buckets *[24]types.HourBucket, appID string, session openSession, endMs int64, loc *time.Location) {
	usageMillis := endMs - session.startMs
	if usageMillis < 0 {
		// Timestamps are non-decreasing by contract; a negative span means a
		// corrupt stream, so drop the session rather than credit garbage
		a.logger.Warn("Dropping session with negative duration",
			"app", appID, "durationMs", usageMillis)
		return
	}

	endHour := hourOf(endMs, loc)

	// Fast path: the whole session fits in one hour bucket
	if session.startHour == endHour {
		buckets[session.startHour].Add(appID, usageMillis, 1)
		return
	}

	// The session spans hour boundaries: allocate proportionally.
	// Fractional minutes keep the shares exact; totals stay in milliseconds
	// so rounding happens once, at assembly.
	startT := time.UnixMilli(session.startMs).In(loc)
	minutesInStartHour := 60.0 - float64(startT.Minute()) - float64(startT.Second())/60.0
	buckets[session.startHour].Add(appID, int64(minutesInStartHour/60.0*float64(usageMillis)), 1)

	// Every hour fully inside the session gets a flat 60 minutes and no
	// launch credit, wrapping past 23 back to 0
	for hour := (session.startHour + 1) % 24; hour != endHour; hour = (hour + 1) % 24 {
		buckets[hour].Add(appID, millisPerHour, 0)
	}

	endT := time.UnixMilli(endMs).In(loc)
	minutesInEndHour := float64(endT.Minute()) + float64(endT.Second())/60.0
	buckets[endHour].Add(appID, int64(minutesInEndHour/60.0*float64(usageMillis)), 0)
}

// hourOf returns the 0-23 hour of day for an epoch-millisecond timestamp
func hourOf(ms int64, loc *time.Location) int {
	return time.UnixMilli(ms).In(loc).Hour()
}
