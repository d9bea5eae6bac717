package ports

import "github.com/bft-labs/pillship/internal/domain"

// Renderer presents coordinator snapshots to the user.
// Implementations must not retain or mutate the snapshot.
type Renderer interface {
	Render(snap domain.Snapshot)
}
