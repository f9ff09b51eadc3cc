// Package timeutil computes the scheduling keys for slot-based production
// runs. All keys are truncated to the hour so the (slot, scheduledFor) pair
// stays stable no matter when inside the hour the trigger actually fires.
package timeutil

import (
	"time"

	"jubily/internal/models"
)

// DefaultSlotHours maps each slot to its wall-clock hour in the
// configured timezone.
var DefaultSlotHours = map[models.Slot]int{
	models.SlotMorning:   9,
	models.SlotAfternoon: 13,
	models.SlotEvening:   18,
}

// NormalizeToHour zeroes minutes, seconds and sub-second precision.
// A zero time falls back to now, mirroring the lenient parsing of
// unschedulable trigger payloads.
func NormalizeToHour(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Truncate(time.Hour)
}

// ScheduledForSlot returns "today at HH:00" for the slot in loc, expressed
// in UTC. This is the idempotency key component for a cron-triggered run.
func ScheduledForSlot(slot models.Slot, hours map[models.Slot]int, loc *time.Location, now time.Time) time.Time {
	if hours == nil {
		hours = DefaultSlotHours
	}
	hour, ok := hours[slot]
	if !ok {
		hour = DefaultSlotHours[models.SlotMorning]
	}

	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc).UTC()
}
