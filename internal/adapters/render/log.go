// Package render presents coordinator snapshots.
package render

import (
	"github.com/bft-labs/pillship/internal/domain"
	"github.com/bft-labs/pillship/internal/ports"
)

// LogRenderer implements ports.Renderer by writing each snapshot as one
// structured log line, standing in for the device display.
type LogRenderer struct {
	logger ports.Logger
}

// NewLogRenderer creates a renderer logging through logger.
func NewLogRenderer(logger ports.Logger) *LogRenderer {
	return &LogRenderer{logger: logger}
}

// Render implements ports.Renderer.
func (r *LogRenderer) Render(snap domain.Snapshot) {
	fields := []ports.Field{
		ports.String("mode", snap.Mode.String()),
		ports.Bool("storage_ready", snap.StorageReady),
		ports.Int("entries", snap.Entries),
		ports.Int("groups", len(snap.Groups)),
	}

	if !snap.StorageReady {
		r.logger.Info("display: no schedule data", fields...)
		return
	}

	if snap.NextDose >= 0 && snap.NextDose < len(snap.Groups) {
		next := snap.Groups[snap.NextDose]
		fields = append(fields,
			ports.String("next_time", next.Time),
			ports.Int("next_doses", next.Count),
		)
	}

	switch snap.Mode {
	case domain.ModeNotifying:
		fields = append(fields, ports.String("notification", snap.NotificationMessage))
	case domain.ModeSettingUp:
		step := "load tube, then press"
		if snap.Setup.AwaitingConfirm {
			step = "press when loaded"
		}
		fields = append(fields,
			ports.String("tube", snap.Setup.Current()),
			ports.Int("step", snap.Setup.Index+1),
			ports.Int("of", snap.Setup.Total),
			ports.String("prompt", step),
		)
	}

	r.logger.Info("display", fields...)
}
