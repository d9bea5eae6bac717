package domain

// SetupState tracks the guided tube-loading flow.
// Invariant: 0 <= Index <= Total. The flow is over once Index reaches Total.
type SetupState struct {
	Active bool

	// Index is the tube currently being loaded
	Index int

	// Total is the number of distinct tubes in the schedule
	Total int

	// AwaitingConfirm is true while the current tube's path is open and the
	// user has yet to confirm it is loaded
	AwaitingConfirm bool

	// Tubes lists the tube identifiers in the order they are visited
	Tubes []string
}

// NewSetupState starts a flow over tubes. An empty list yields an inactive state.
func NewSetupState(tubes []string) SetupState {
	if len(tubes) == 0 {
		return SetupState{}
	}
	return SetupState{
		Active: true,
		Total:  len(tubes),
		Tubes:  append([]string(nil), tubes...),
	}
}

// Current returns the tube being loaded, or "" when inactive.
func (s SetupState) Current() string {
	if !s.Active || s.Index >= s.Total {
		return ""
	}
	return s.Tubes[s.Index]
}

// Advance moves to the next tube and deactivates the flow after the last one.
func (s *SetupState) Advance() {
	if !s.Active {
		return
	}
	s.AwaitingConfirm = false
	s.Index++
	if s.Index >= s.Total {
		s.Index = s.Total
		s.Active = false
	}
}
