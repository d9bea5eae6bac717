package schedule

import "github.com/bft-labs/pillship/internal/domain"

// Group derives the grouped table from entries. Groups appear in the order
// their time is first seen, times match by exact text, and doses beyond a
// group's capacity are dropped.
func Group(entries *domain.EntryTable) domain.GroupTable {
	var groups domain.GroupTable
	for i := 0; i < entries.Len(); i++ {
		e := entries.At(i)
		idx := groups.Find(e.Time)
		if idx < 0 {
			if idx = groups.Insert(e.Time); idx < 0 {
				continue
			}
		}
		groups.Ref(idx).Add(domain.Dose{
			Medication: e.Medication,
			Dosage:     e.Dosage,
			Tube:       e.Tube,
			Amount:     e.Amount,
		})
	}
	return groups
}

// droppedDoses counts the entries Group would not place.
func droppedDoses(entries *domain.EntryTable, groups *domain.GroupTable) int {
	placed := 0
	for i := 0; i < groups.Len(); i++ {
		placed += groups.At(i).Count
	}
	return entries.Len() - placed
}
