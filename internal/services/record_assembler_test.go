package services

import (
	"testing"
	"time"

	"lifepulse/internal/types"
)

func fixedAssembler(instant time.Time) *RecordAssembler {
	ra := NewRecordAssembler()
	ra.now = func() time.Time { return instant }
	return ra
}

func TestAssembleSkipsEmptyHours(t *testing.T) {
	var buckets [24]types.HourBucket
	buckets[9].Add("chrome", 10*60*1000, 1)
	buckets[21].Add("video", 25*60*1000, 2)

	ra := fixedAssembler(time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC))
	records := ra.Assemble(buckets, testDay, 0, 0, nil)

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Hour != 9 || records[1].Hour != 21 {
		t.Errorf("hours = %d, %d; want 9, 21", records[0].Hour, records[1].Hour)
	}
	for _, r := range records {
		if r.Date != "2025-04-01" {
			t.Errorf("date = %q, want 2025-04-01", r.Date)
		}
	}
}

func TestAssembleFloorsToWholeMinutes(t *testing.T) {
	var buckets [24]types.HourBucket
	buckets[9].Add("chrome", 10*60*1000+59*1000, 1) // 10m59s floors to 10

	ra := fixedAssembler(time.Now())
	records := ra.Assemble(buckets, testDay, 0, 0, nil)

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if got := records[0].AppUsage[0].UsageMinutes; got != 10 {
		t.Errorf("usage = %d minutes, want 10", got)
	}
	if records[0].TotalUsageMinutes != 10 {
		t.Errorf("total = %d, want 10", records[0].TotalUsageMinutes)
	}
}

func TestAssembleSkipsHoursFlooringToZero(t *testing.T) {
	var buckets [24]types.HourBucket
	buckets[9].Add("chrome", 30*1000, 1) // 30s floors to 0 minutes
	buckets[10].Add("maps", 90*1000, 1)  // 90s floors to 1

	ra := fixedAssembler(time.Now())
	records := ra.Assemble(buckets, testDay, 0, 0, nil)

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (zero-total hour skipped)", len(records))
	}
	if records[0].Hour != 10 {
		t.Errorf("hour = %d, want 10", records[0].Hour)
	}
}

func TestAssembleSortsByUsageDescending(t *testing.T) {
	var buckets [24]types.HourBucket
	buckets[14].Add("maps", 5*60*1000, 1)
	buckets[14].Add("chrome", 30*60*1000, 2)
	buckets[14].Add("mail", 12*60*1000, 1)

	ra := fixedAssembler(time.Now())
	records := ra.Assemble(buckets, testDay, 0, 0, nil)

	got := records[0].AppUsage
	want := []string{"chrome", "mail", "maps"}
	for i, name := range want {
		if got[i].AppName != name {
			t.Errorf("position %d = %q, want %q", i, got[i].AppName, name)
		}
	}
}

func TestAssembleBreaksTiesByFirstSeen(t *testing.T) {
	var buckets [24]types.HourBucket
	// Equal minutes: the stable sort must keep insertion order
	buckets[14].Add("first", 10*60*1000, 1)
	buckets[14].Add("second", 10*60*1000, 1)
	buckets[14].Add("third", 10*60*1000, 1)

	ra := fixedAssembler(time.Now())
	records := ra.Assemble(buckets, testDay, 0, 0, nil)

	got := records[0].AppUsage
	for i, name := range []string{"first", "second", "third"} {
		if got[i].AppName != name {
			t.Errorf("position %d = %q, want %q", i, got[i].AppName, name)
		}
	}
}

func TestAssembleHourZeroCarriesDayMetadata(t *testing.T) {
	var buckets [24]types.HourBucket
	buckets[0].Add("alarm", 3*60*1000, 1)
	buckets[8].Add("chrome", 20*60*1000, 1)

	battery := 76
	ra := fixedAssembler(time.Now())
	records := ra.Assemble(buckets, testDay, 14, 5, &battery)

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	hour0 := records[0]
	if hour0.ScreenUnlocks != 14 || hour0.Notifications != 5 {
		t.Errorf("hour 0 metadata = %d unlocks / %d notifications, want 14 / 5",
			hour0.ScreenUnlocks, hour0.Notifications)
	}
	if hour0.BatteryLevel == nil || *hour0.BatteryLevel != 76 {
		t.Errorf("hour 0 battery = %v, want 76", hour0.BatteryLevel)
	}

	hour8 := records[1]
	if hour8.ScreenUnlocks != 0 || hour8.Notifications != 0 || hour8.BatteryLevel != nil {
		t.Errorf("hour 8 should carry no day metadata: %+v", hour8)
	}
}

func TestAssembleMetadataLostWithoutHourZeroRecord(t *testing.T) {
	// No usage at hour 0 means no record to carry the day metadata
	var buckets [24]types.HourBucket
	buckets[15].Add("chrome", 20*60*1000, 1)

	battery := 50
	ra := fixedAssembler(time.Now())
	records := ra.Assemble(buckets, testDay, 9, 2, &battery)

	if len(records) != 1 || records[0].Hour != 15 {
		t.Fatalf("records = %+v", records)
	}
	if records[0].ScreenUnlocks != 0 || records[0].BatteryLevel != nil {
		t.Error("non-zero hours never carry day metadata")
	}
}

func TestAssembleTimestampIsPinnedUTC(t *testing.T) {
	var buckets [24]types.HourBucket
	buckets[9].Add("chrome", 10*60*1000, 1)

	instant := time.Date(2025, 4, 2, 1, 30, 45, 123456789, time.FixedZone("JST", 9*3600))
	ra := fixedAssembler(instant)
	records := ra.Assemble(buckets, testDay, 0, 0, nil)

	want := instant.UTC().Format(time.RFC3339Nano)
	if records[0].Timestamp != want {
		t.Errorf("timestamp = %q, want %q", records[0].Timestamp, want)
	}
}

func TestAssembleEmptyDay(t *testing.T) {
	var buckets [24]types.HourBucket
	ra := fixedAssembler(time.Now())
	if records := ra.Assemble(buckets, testDay, 3, 1, nil); len(records) != 0 {
		t.Errorf("got %d records for an empty day, want 0", len(records))
	}
}
