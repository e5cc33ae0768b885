package services

import (
	"context"
	"fmt"
	"time"

	"lifepulse/internal/infrastructure/logging"
	"lifepulse/internal/platform"
	"lifepulse/internal/types"
)

// UsageCollector runs the collection pipeline for calendar days: query the
// event source, fold the events into hour buckets, and assemble the hourly
// records with the day-scoped sensor readings attached
type UsageCollector struct {
	source     platform.EventSource
	sensors    platform.DeviceSensors
	aggregator *HourlyAggregator
	assembler  *RecordAssembler
	logger     logging.Logger
}

// NewUsageCollector creates a collector with injected source and sensors
func NewUsageCollector(source platform.EventSource, sensors platform.DeviceSensors, logger logging.Logger) *UsageCollector {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &UsageCollector{
		source:     source,
		sensors:    sensors,
		aggregator: NewHourlyAggregator(logger),
		assembler:  NewRecordAssembler(),
		logger:     logger,
	}
}

// CollectDay produces the hourly usage records for one calendar day
func (c *UsageCollector) CollectDay(ctx context.Context, day time.Time) ([]types.HourlyUsageRecord, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := c.source.QueryEvents(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("CollectDay %s: %w", dayStart.Format("2006-01-02"), err)
	}

	buckets, screenUnlocks := c.aggregator.Aggregate(events, dayStart)

	notifications := 0
	var batteryLevel *int
	if c.sensors != nil {
		notifications = c.sensors.NotificationCount()
		batteryLevel = c.sensors.BatteryLevel()
	}

	records := c.assembler.Assemble(buckets, dayStart, screenUnlocks, notifications, batteryLevel)
	c.logger.Debug("Collected day",
		"date", dayStart.Format("2006-01-02"),
		"events", len(events), "records", len(records))
	return records, nil
}

// CollectRange produces records for the lookback window ending today: with
// lookbackDays=7 it covers today plus the six previous days, oldest first
func (c *UsageCollector) CollectRange(ctx context.Context, today time.Time, lookbackDays int) ([]types.HourlyUsageRecord, error) {
	if lookbackDays < 1 {
		lookbackDays = 1
	}

	var all []types.HourlyUsageRecord
	for daysAgo := lookbackDays - 1; daysAgo >= 0; daysAgo-- {
		records, err := c.CollectDay(ctx, today.AddDate(0, 0, -daysAgo))
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}

	c.logger.Info("Collected usage window",
		"days", lookbackDays, "records", len(all))
	return all, nil
}
