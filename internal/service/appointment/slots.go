package appointment

import "fmt"

// Clinic hours: half-hour slots from 08:00 to 18:30 inclusive.
const (
	firstSlotMinutes = 8 * 60
	lastSlotMinutes  = 18*60 + 30
	slotStep         = 30
)

var validSlots = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range GenerateDaySlots() {
		set[s] = struct{}{}
	}
	return set
}()

// GenerateDaySlots returns every bookable time of a day in ascending order.
func GenerateDaySlots() []string {
	slots := make([]string, 0, (lastSlotMinutes-firstSlotMinutes)/slotStep+1)
	for m := firstSlotMinutes; m <= lastSlotMinutes; m += slotStep {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// IsValidSlot reports whether t is one of the day slots.
func IsValidSlot(t string) bool {
	_, ok := validSlots[t]
	return ok
}

// IsSlotAvailable reports whether t can be booked given the unavailable
// times. The caller's own current slot never blocks itself.
func IsSlotAvailable(t string, unavailable []string, currentSlotException string) bool {
	if currentSlotException != "" && t == currentSlotException {
		return true
	}
	for _, u := range unavailable {
		if u == t {
			return false
		}
	}
	return true
}
