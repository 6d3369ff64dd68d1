package scheduling

import "time"

// Workday slot grid: half-hour candidates from 09:00 up to but excluding
// 17:00, giving 16 slots per day.
const (
	SlotInterval     = 30 * time.Minute
	workdayStartHour = 9
	workdayEndHour   = 17
)

// Slot is one free candidate time, with a display string for clients.
type Slot struct {
	Time    time.Time `json:"time"`
	Display string    `json:"display"`
}

// DayBounds returns the inclusive bounds of day's calendar date in day's
// location: 00:00:00 up to the last representable instant before midnight.
func DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

// daySlots enumerates the canonical slot grid for day's calendar date.
func daySlots(day time.Time) []time.Time {
	y, m, d := day.Date()
	first := time.Date(y, m, d, workdayStartHour, 0, 0, 0, day.Location())
	last := time.Date(y, m, d, workdayEndHour, 0, 0, 0, day.Location())

	var slots []time.Time
	for t := first; t.Before(last); t = t.Add(SlotInterval) {
		slots = append(slots, t)
	}
	return slots
}

// AvailableSlots filters the canonical grid for day against the booked
// times, in chronological order. A slot is taken when any booked time lies
// within SlotInterval of it in either direction, bounds included: a booking
// at 10:00 blocks 09:30, 10:00 and 10:30. This proximity rule is wider than
// the exact-timestamp uniqueness enforced at booking time, so near-duplicate
// bookings also block their neighbouring grid slots.
func AvailableSlots(day time.Time, booked []time.Time) []Slot {
	var free []Slot
	for _, t := range daySlots(day) {
		if slotTaken(t, booked) {
			continue
		}
		free = append(free, Slot{Time: t, Display: t.Format("3:04 PM")})
	}
	return free
}

func slotTaken(slot time.Time, booked []time.Time) bool {
	for _, b := range booked {
		diff := slot.Sub(b)
		if diff < 0 {
			diff = -diff
		}
		if diff <= SlotInterval {
			return true
		}
	}
	return false
}
