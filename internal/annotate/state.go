package annotate

// State is the editor's position in the annotation lifecycle. The UI layer
// observes it (Editor.OnStateChange) rather than inferring it from widgets.
type State int

const (
	Idle      State = iota // No session
	Editing                // Session open, no gesture in progress
	Dragging               // Pointer held, live arrow follows it
	Labeling               // Arrow end fixed, waiting for label text
	Saved                  // Session committed into a finding
	Cancelled              // Session discarded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Dragging:
		return "dragging"
	case Labeling:
		return "labeling"
	case Saved:
		return "saved"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Open reports whether a session exists in this state.
func (s State) Open() bool {
	return s == Editing || s == Dragging || s == Labeling
}
