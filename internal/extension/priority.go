package extension

import "strconv"

// Priority orders extensions inside a manager. Lower values run earlier:
// their plugins see DOM events first and their decorations sit underneath.
type Priority int

// Standard priorities.
const (
	PriorityCritical Priority = 0
	PriorityHighest  Priority = 10
	PriorityHigh     Priority = 50
	PriorityDefault  Priority = 100
	PriorityLow      Priority = 1000
	PriorityLowest   Priority = 10000
)

// String returns the name of a standard priority or its number.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHighest:
		return "highest"
	case PriorityHigh:
		return "high"
	case PriorityDefault:
		return "default"
	case PriorityLow:
		return "low"
	case PriorityLowest:
		return "lowest"
	default:
		return strconv.Itoa(int(p))
	}
}
