package services

import (
	"sort"
	"time"

	"lifepulse/internal/types"
)

// RecordAssembler converts aggregated hour buckets into immutable hourly
// usage records, attaching the day-scoped sensor readings only to the hour-0
// record
type RecordAssembler struct {
	// now is swappable so tests can pin the assembly instant
	now func() time.Time
}

// NewRecordAssembler creates an assembler stamping records with the wall clock
func NewRecordAssembler() *RecordAssembler {
	return &RecordAssembler{now: time.Now}
}

// Assemble converts the day's hour buckets into records, in ascending hour
// order. Hours with no usage, or whose usage floors to zero whole minutes,
// are skipped entirely. Screen unlocks, notifications, and battery level are
// carried only on the hour-0 record; every other emitted hour gets zero/nil.
func (ra *RecordAssembler) Assemble(buckets [24]types.HourBucket, day time.Time, screenUnlocks, notifications int, batteryLevel *int) []types.HourlyUsageRecord {
	dateStr := day.Format("2006-01-02")
	timestamp := ra.now().UTC().Format(time.RFC3339Nano)

	var records []types.HourlyUsageRecord
	for hour := 0; hour < 24; hour++ {
		bucket := &buckets[hour]
		if bucket.Empty() {
			continue
		}

		items := make([]types.AppUsageItem, 0, bucket.Len())
		for _, info := range bucket.Apps() {
			items = append(items, types.AppUsageItem{
				AppName:      info.AppName,
				UsageMinutes: int(info.UsageMillis / 60000),
				OpenCount:    info.OpenCount,
			})
		}

		// Stable sort keeps first-seen order between apps with equal minutes
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].UsageMinutes > items[j].UsageMinutes
		})

		total := 0
		for _, item := range items {
			total += item.UsageMinutes
		}
		if total == 0 {
			continue
		}

		record := types.HourlyUsageRecord{
			Date:              dateStr,
			Hour:              hour,
			AppUsage:          items,
			TotalUsageMinutes: total,
			Timestamp:         timestamp,
		}
		if hour == 0 {
			record.ScreenUnlocks = screenUnlocks
			record.Notifications = notifications
			record.BatteryLevel = batteryLevel
		}
		records = append(records, record)
	}

	return records
}
