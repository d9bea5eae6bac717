package dispense

import (
	"fmt"
	"strings"

	"github.com/bft-labs/pillship/internal/domain"
)

// NextDose returns the index of the group due soonest at or after minute,
// wrapping around midnight. A group due at minute itself has distance zero.
// Ties go to the group inserted first; groups with unparseable times are
// skipped. ok is false when no group qualifies.
func NextDose(groups []domain.Group, minute int) (idx int, ok bool) {
	best := domain.MinutesPerDay
	idx = -1
	for i, g := range groups {
		at, err := domain.ParseClock(g.Time)
		if err != nil {
			continue
		}
		dist := (at - minute) % domain.MinutesPerDay
		if dist < 0 {
			dist += domain.MinutesPerDay
		}
		if dist < best {
			best = dist
			idx = i
		}
	}
	return idx, idx >= 0
}

// Message composes the notification text for a due group.
//
//	TIME TO TAKE: Aspirin - 1 tab
//	TIME TO TAKE 2 MEDS: Aspirin (1 tab) + Vitamin D (1 cap)
func Message(g domain.Group) string {
	doses := g.List()
	switch len(doses) {
	case 0:
		return "TIME TO TAKE: " + g.Time
	case 1:
		return fmt.Sprintf("TIME TO TAKE: %s - %s", doses[0].Medication, doses[0].Dosage)
	}

	parts := make([]string, len(doses))
	for i, d := range doses {
		parts[i] = fmt.Sprintf("%s (%s)", d.Medication, d.Dosage)
	}
	return fmt.Sprintf("TIME TO TAKE %d MEDS: %s", len(doses), strings.Join(parts, " + "))
}
