package complaint

import (
	"strings"
	"time"
)

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

const (
	highAfterDays   = 3
	urgentAfterDays = 7
)

// DaysElapsed counts whole days between createdAt and now (floor), never
// negative. It is the single day convention used for display, urgency and
// notifications.
func DaysElapsed(createdAt, now time.Time) int {
	if !now.After(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt) / (24 * time.Hour))
}

// Classify derives urgency. Only received complaints age into high or urgent.
func Classify(status Status, daysElapsed int) Urgency {
	if status != StatusReceived {
		return UrgencyNormal
	}
	switch {
	case daysElapsed > urgentAfterDays:
		return UrgencyUrgent
	case daysElapsed > highAfterDays:
		return UrgencyHigh
	default:
		return UrgencyNormal
	}
}

// ResolveImageURL makes a stored image reference absolute. Relative paths are
// prefixed with origin, absolute URLs pass through, and an empty value stays nil.
func ResolveImageURL(stored *string, origin string) *string {
	if stored == nil {
		return nil
	}
	value := strings.TrimSpace(*stored)
	if value == "" {
		return nil
	}
	lower := strings.ToLower(value)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return &value
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	resolved := strings.TrimRight(origin, "/") + value
	return &resolved
}
