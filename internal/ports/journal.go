package ports

import (
	"context"
	"time"
)

// JournalKind distinguishes journal rows.
type JournalKind string

const (
	JournalLoad     JournalKind = "load"
	JournalDispense JournalKind = "dispense"
)

// JournalRecord is one row of device history.
type JournalRecord struct {
	At     time.Time
	Kind   JournalKind
	Slot   string
	Detail string
}

// Journal is an append-only log of schedule loads and dispenses.
type Journal interface {
	Record(ctx context.Context, rec JournalRecord) error
	Recent(ctx context.Context, limit int) ([]JournalRecord, error)
	Close() error
}
