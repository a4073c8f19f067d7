package prompt

import "fmt"

// BuildScheduleSlots produces count HH:MM posting slots starting at
// startHour and spaced intervalMinutes apart, wrapping past midnight.
func BuildScheduleSlots(count, startHour, intervalMinutes int) []string {
	slots := make([]string, 0, count)
	for i := 0; i < count; i++ {
		minutes := startHour*60 + i*intervalMinutes
		hour := (minutes / 60) % 24
		minute := minutes % 60
		slots = append(slots, fmt.Sprintf("%02d:%02d", hour, minute))
	}
	return slots
}
