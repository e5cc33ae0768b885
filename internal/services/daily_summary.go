package services

import (
	"sort"
	"time"

	"lifepulse/internal/types"
)

// SummarizeDay collapses one day's hourly records into per-app day totals.
// Screen unlocks sum across hours; notifications and battery level come from
// the hour-0 record when present. Returns nil for an empty input.
func SummarizeDay(records []types.HourlyUsageRecord) *types.DailySummary {
	if len(records) == 0 {
		return nil
	}

	totals := make(map[string]*types.AppUsageItem)
	var order []string
	summary := &types.DailySummary{
		Date:      records[0].Date,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	for _, record := range records {
		for _, app := range record.AppUsage {
			item, ok := totals[app.AppName]
			if !ok {
				item = &types.AppUsageItem{AppName: app.AppName}
				totals[app.AppName] = item
				order = append(order, app.AppName)
			}
			item.UsageMinutes += app.UsageMinutes
			item.OpenCount += app.OpenCount
		}

		summary.TotalUsageMinutes += record.TotalUsageMinutes
		summary.ScreenUnlocks += record.ScreenUnlocks

		if record.Notifications > 0 {
			summary.Notifications = record.Notifications
		}
		if summary.BatteryLevel == nil && record.BatteryLevel != nil {
			summary.BatteryLevel = record.BatteryLevel
		}
	}

	items := make([]types.AppUsageItem, 0, len(order))
	for _, name := range order {
		items = append(items, *totals[name])
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UsageMinutes > items[j].UsageMinutes
	})
	summary.AppUsage = items

	return summary
}
