package types

// Priority is the urgency tier of a unit of work. The numeric value is the
// sort key: lower values are served first.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
	PriorityBackground
)

// Priorities lists all tiers in urgency order.
var Priorities = []Priority{
	PriorityCritical,
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
	PriorityBackground,
}

// Valid reports whether p is one of the five defined tiers.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityBackground
}

// String returns the canonical tier name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	case PriorityBackground:
		return "BACKGROUND"
	default:
		return "UNKNOWN"
	}
}

// Promote returns the next more urgent tier. CRITICAL and HIGH are already
// at or above the promotion ceiling and are returned unchanged.
func (p Priority) Promote() Priority {
	if p > PriorityHigh {
		return p - 1
	}
	return p
}

// ParsePriority maps a tier name (as produced by String) back to a Priority.
func ParsePriority(name string) (Priority, bool) {
	for _, p := range Priorities {
		if p.String() == name {
			return p, true
		}
	}
	return 0, false
}
