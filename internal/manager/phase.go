package manager

// Phase is the lifecycle phase of a Manager.
type Phase int

// Manager phases.
const (
	// PhaseUninitialized - Manager has not resolved its extensions.
	PhaseUninitialized Phase = iota

	// PhaseResolving - Extensions are resolved; Create has not run.
	PhaseResolving

	// PhaseActive - Schema and state exist.
	PhaseActive

	// PhaseDestroyed - Manager is torn down. Terminal.
	PhaseDestroyed
)

// String returns a string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseResolving:
		return "resolving"
	case PhaseActive:
		return "active"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
