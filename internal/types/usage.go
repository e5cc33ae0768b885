package types

// EventKind classifies a raw usage-transition event
type EventKind int

const (
	// EventForeground marks an app moving to the foreground
	EventForeground EventKind = iota
	// EventBackground marks an app moving to the background
	EventBackground
	// EventScreenUnlock marks a screen unlock (a foreground transition of
	// the system-UI surface, surfaced as its own kind by the event source)
	EventScreenUnlock
)

// String returns a string representation of the event kind
func (k EventKind) String() string {
	switch k {
	case EventForeground:
		return "FOREGROUND"
	case EventBackground:
		return "BACKGROUND"
	case EventScreenUnlock:
		return "SCREEN_UNLOCK"
	default:
		return "UNKNOWN"
	}
}

// RawEvent is a single usage-transition event as reported by the event source.
// Timestamps are epoch milliseconds and non-decreasing within a day's stream;
// the aggregator trusts the ordering and never sorts.
type RawEvent struct {
	AppID       string    `json:"appId"`
	Kind        EventKind `json:"kind"`
	TimestampMs int64     `json:"timestamp"`
}

// AppUsageInfo is the mutable per-(hour, app) accumulator owned by the
// aggregator during a single day's fold. Usage stays in milliseconds until
// assembly so repeated splits don't compound rounding error.
type AppUsageInfo struct {
	AppName     string
	UsageMillis int64
	OpenCount   int
}

// HourBucket accumulates per-app usage for one of the 24 hours of a day.
// Insertion order is preserved so that the assembler's stable sort can break
// ties by first appearance.
type HourBucket struct {
	apps  map[string]*AppUsageInfo
	order []string
}

// Add accumulates usage time and open count for an app within this bucket.
// Accumulation is additive across multiple sessions in the same hour.
func (b *HourBucket) Add(appName string, usageMillis int64, openCount int) {
	if b.apps == nil {
		b.apps = make(map[string]*AppUsageInfo)
	}
	if info, ok := b.apps[appName]; ok {
		info.UsageMillis += usageMillis
		info.OpenCount += openCount
		return
	}
	b.apps[appName] = &AppUsageInfo{
		AppName:     appName,
		UsageMillis: usageMillis,
		OpenCount:   openCount,
	}
	b.order = append(b.order, appName)
}

// Apps returns the accumulated entries in first-seen order
func (b *HourBucket) Apps() []*AppUsageInfo {
	result := make([]*AppUsageInfo, 0, len(b.order))
	for _, name := range b.order {
		result = append(result, b.apps[name])
	}
	return result
}

// Get returns the accumulator for an app, or nil if the app was never seen
func (b *HourBucket) Get(appName string) *AppUsageInfo {
	return b.apps[appName]
}

// Len returns the number of apps accumulated in this bucket
func (b *HourBucket) Len() int {
	return len(b.order)
}

// Empty reports whether no app usage was accumulated in this hour
func (b *HourBucket) Empty() bool {
	return len(b.order) == 0
}

// AppUsageItem is one app's share of an hourly record, in whole minutes
// (floored from milliseconds at assembly time)
type AppUsageItem struct {
	AppName      string `json:"appName"`
	UsageMinutes int    `json:"usageTime"`
	OpenCount    int    `json:"openCount"`
}

// HourlyUsageRecord is the immutable per-hour output of record assembly.
// ScreenUnlocks, Notifications, and BatteryLevel are populated only on the
// hour-0 record of a day; all other hours carry zero/nil.
type HourlyUsageRecord struct {
	Date              string         `json:"date"` // YYYY-MM-DD
	Hour              int            `json:"hour"` // 0-23
	AppUsage          []AppUsageItem `json:"app_usage"`
	TotalUsageMinutes int            `json:"total_usage_time"`
	ScreenUnlocks     int            `json:"screen_unlocks"`
	Notifications     int            `json:"notifications"`
	BatteryLevel      *int           `json:"battery_level,omitempty"`
	Timestamp         string         `json:"timestamp"` // ISO instant of assembly
}

// DailySummary collapses a day's hourly records into per-app day totals
type DailySummary struct {
	Date              string         `json:"date"`
	TotalUsageMinutes int            `json:"totalUsageTime"`
	AppUsage          []AppUsageItem `json:"appUsage"`
	ScreenUnlocks     int            `json:"screenUnlocks"`
	Notifications     int            `json:"notifications"`
	BatteryLevel      *int           `json:"batteryLevel,omitempty"`
	Timestamp         string         `json:"timestamp"`
}

// UploadOutcome is the resolved result of one upload invocation. Failures in
// the upload path never escape as errors; they are folded into this value.
type UploadOutcome struct {
	Success      bool
	SuccessCount int
	Attempted    int
}
