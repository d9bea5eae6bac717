package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Capacities of the schedule tables.
const (
	MaxEntries       = 12
	MaxGroups        = 12
	MaxDosesPerGroup = 3
	MaxTubes         = 10
)

// MinutesPerDay is the wrap-around modulus for time-of-day arithmetic.
const MinutesPerDay = 24 * 60

// Entry is a single dose of one medication at one time of day.
type Entry struct {
	// Time is the time of day as "HH:MM" (24h)
	Time string

	// Dosage is free text, e.g. "1 tab"
	Dosage string

	// Medication is the medication name (the "type" field of the payload)
	Medication string

	// Tube identifies the tube holding the medication
	Tube string

	// Amount is the stock count reported by the sender
	Amount int
}

// NewEntry builds an Entry with every text field clipped to its limit.
func NewEntry(time, dosage, medication, tube string, amount int) Entry {
	return Entry{
		Time:       Clip(time, MaxTimeLen),
		Dosage:     Clip(dosage, MaxDosageLen),
		Medication: Clip(medication, MaxMedicationLen),
		Tube:       Clip(tube, MaxTubeLen),
		Amount:     amount,
	}
}

// EntryTable is a fixed-capacity table of entries kept in source order.
type EntryTable struct {
	items [MaxEntries]Entry
	n     int
}

// Append adds e to the table. It returns false when the table is full.
func (t *EntryTable) Append(e Entry) bool {
	if t.n == len(t.items) {
		return false
	}
	t.items[t.n] = e
	t.n++
	return true
}

// Len returns the number of entries.
func (t EntryTable) Len() int { return t.n }

// At returns the i-th entry.
func (t EntryTable) At(i int) Entry { return t.items[i] }

// All returns a copy of the stored entries.
func (t EntryTable) All() []Entry {
	out := make([]Entry, t.n)
	copy(out, t.items[:t.n])
	return out
}

// Tubes returns the distinct tube identifiers in first-seen order, at most
// MaxTubes of them.
func (t EntryTable) Tubes() []string {
	tubes := make([]string, 0, MaxTubes)
	for i := 0; i < t.n && len(tubes) < MaxTubes; i++ {
		tube := t.items[i].Tube
		seen := false
		for _, known := range tubes {
			if known == tube {
				seen = true
				break
			}
		}
		if !seen {
			tubes = append(tubes, tube)
		}
	}
	return tubes
}

// Dose is one medication inside a Group.
type Dose struct {
	Medication string
	Dosage     string
	Tube       string
	Amount     int
}

// Group collects the doses due at the same time of day.
type Group struct {
	Time  string
	Doses [MaxDosesPerGroup]Dose
	Count int
}

// Add appends d unless the group is full. It returns false when d was dropped.
func (g *Group) Add(d Dose) bool {
	if g.Count == len(g.Doses) {
		return false
	}
	g.Doses[g.Count] = d
	g.Count++
	return true
}

// List returns a copy of the stored doses.
func (g Group) List() []Dose {
	out := make([]Dose, g.Count)
	copy(out, g.Doses[:g.Count])
	return out
}

// GroupTable is a fixed-capacity table of groups in first-seen order.
type GroupTable struct {
	items [MaxGroups]Group
	n     int
}

// Find returns the index of the group with the given time, or -1.
func (t GroupTable) Find(clock string) int {
	for i := 0; i < t.n; i++ {
		if t.items[i].Time == clock {
			return i
		}
	}
	return -1
}

// Insert appends an empty group for clock and returns its index, or -1 when
// the table is full.
func (t *GroupTable) Insert(clock string) int {
	if t.n == len(t.items) {
		return -1
	}
	t.items[t.n] = Group{Time: clock}
	t.n++
	return t.n - 1
}

// Len returns the number of groups.
func (t GroupTable) Len() int { return t.n }

// At returns the i-th group.
func (t GroupTable) At(i int) Group { return t.items[i] }

// Ref returns a pointer to the i-th group for in-place updates while building.
func (t *GroupTable) Ref(i int) *Group { return &t.items[i] }

// All returns a copy of the stored groups.
func (t GroupTable) All() []Group {
	out := make([]Group, t.n)
	copy(out, t.items[:t.n])
	return out
}

// Schedule is the compiled model: the entry table and the groups derived from it.
type Schedule struct {
	Entries EntryTable
	Groups  GroupTable
}

// Empty reports whether the schedule holds no entries.
func (s *Schedule) Empty() bool {
	return s == nil || s.Entries.Len() == 0
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders t as zero-padded "HH:MM".
func FormatClock(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MinuteOfDay returns minutes since midnight for t.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
