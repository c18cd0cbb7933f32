package batch

import (
	"fmt"
	"strings"
)

// Priority orders requests within a single batch. It never decides whether a
// request is included in a batch.
type Priority int

// Priority levels.
const (
	PriorityMedium Priority = iota
	PriorityHigh
	PriorityLow
)

// String returns the lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority converts "high", "medium" or "low" (any case) to a Priority.
// An empty string is medium.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "medium", "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	default:
		return PriorityMedium, fmt.Errorf("unknown priority %q (want high, medium or low)", s)
	}
}
