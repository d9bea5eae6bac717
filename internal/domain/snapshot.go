package domain

// Mode is the coordinator's top-level state.
type Mode int

const (
	ModeBrowsing Mode = iota
	ModeNotifying
	ModeSettingUp
)

// String returns a human-readable representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBrowsing:
		return "Browsing"
	case ModeNotifying:
		return "Notifying"
	case ModeSettingUp:
		return "SettingUp"
	default:
		return "Unknown"
	}
}

// Snapshot is the read-only view of the coordinator handed to renderers.
type Snapshot struct {
	Mode Mode

	// Groups is a copy of the grouped table
	Groups []Group

	// Entries is the number of loaded entries
	Entries int

	// NextDose indexes Groups, or -1 when there is nothing scheduled
	NextDose int

	NotificationActive  bool
	NotificationMessage string

	Setup SetupState

	// StorageReady is false until a schedule has been loaded successfully
	StorageReady bool
}

// Equal reports whether two snapshots would render identically.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.Mode != o.Mode || s.Entries != o.Entries || s.NextDose != o.NextDose ||
		s.NotificationActive != o.NotificationActive || s.NotificationMessage != o.NotificationMessage ||
		s.StorageReady != o.StorageReady || len(s.Groups) != len(o.Groups) {
		return false
	}
	if s.Setup.Active != o.Setup.Active || s.Setup.Index != o.Setup.Index ||
		s.Setup.Total != o.Setup.Total || s.Setup.AwaitingConfirm != o.Setup.AwaitingConfirm {
		return false
	}
	for i := range s.Groups {
		if s.Groups[i] != o.Groups[i] {
			return false
		}
	}
	return true
}
