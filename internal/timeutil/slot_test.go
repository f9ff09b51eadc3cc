package timeutil

import (
	"testing"
	"time"

	"jubily/internal/models"
)

func TestNormalizeToHour(t *testing.T) {
	in := time.Date(2026, 3, 9, 9, 3, 27, 500, time.UTC)
	got := NormalizeToHour(in)

	want := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNormalizeToHourZeroFallsBackToNow(t *testing.T) {
	got := NormalizeToHour(time.Time{})

	if got.IsZero() {
		t.Fatal("expected non-zero time for zero input")
	}
	if got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Errorf("expected truncated time, got %v", got)
	}
}

func TestNormalizeToHourIdempotent(t *testing.T) {
	in := time.Date(2026, 3, 9, 14, 45, 0, 0, time.UTC)
	once := NormalizeToHour(in)
	twice := NormalizeToHour(once)

	if !once.Equal(twice) {
		t.Errorf("normalization should be idempotent: %v != %v", once, twice)
	}
}

func TestScheduledForSlot(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	// 2026-06-15 is EDT (UTC-4).
	now := time.Date(2026, 6, 15, 11, 30, 0, 0, ny)

	tests := []struct {
		slot     models.Slot
		wantUTCH int
	}{
		{models.SlotMorning, 13},   // 09:00 EDT
		{models.SlotAfternoon, 17}, // 13:00 EDT
		{models.SlotEvening, 22},   // 18:00 EDT
	}

	for _, tt := range tests {
		t.Run(string(tt.slot), func(t *testing.T) {
			got := ScheduledForSlot(tt.slot, nil, ny, now)

			if got.Location() != time.UTC {
				t.Errorf("expected UTC result, got %v", got.Location())
			}
			if got.Hour() != tt.wantUTCH {
				t.Errorf("expected hour %d UTC, got %d", tt.wantUTCH, got.Hour())
			}
			if got.Minute() != 0 || got.Second() != 0 {
				t.Errorf("expected whole hour, got %v", got)
			}
			if got.Day() != 15 || got.Month() != time.June {
				t.Errorf("expected same local day, got %v", got)
			}
		})
	}
}

func TestScheduledForSlotStableWithinHour(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")

	a := ScheduledForSlot(models.SlotMorning, nil, ny, time.Date(2026, 6, 15, 9, 0, 5, 0, ny))
	b := ScheduledForSlot(models.SlotMorning, nil, ny, time.Date(2026, 6, 15, 9, 59, 0, 0, ny))

	if !a.Equal(b) {
		t.Errorf("same slot and day must yield the same key: %v != %v", a, b)
	}
}

func TestScheduledForSlotCustomHours(t *testing.T) {
	hours := map[models.Slot]int{models.SlotMorning: 6}
	got := ScheduledForSlot(models.SlotMorning, hours, time.UTC, time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC))

	if got.Hour() != 6 {
		t.Errorf("expected hour 6, got %d", got.Hour())
	}
}
