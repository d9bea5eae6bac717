package render

import (
	"testing"

	"github.com/bft-labs/pillship/internal/domain"
	"github.com/bft-labs/pillship/internal/ports"
)

// recordingLogger captures Info calls.
type recordingLogger struct {
	msgs   []string
	fields [][]ports.Field
}

func (l *recordingLogger) Debug(msg string, fields ...ports.Field) {}
func (l *recordingLogger) Info(msg string, fields ...ports.Field) {
	l.msgs = append(l.msgs, msg)
	l.fields = append(l.fields, fields)
}
func (l *recordingLogger) Warn(msg string, fields ...ports.Field)  {}
func (l *recordingLogger) Error(msg string, fields ...ports.Field) {}

func field(fields []ports.Field, key string) (interface{}, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func TestLogRenderer_NoData(t *testing.T) {
	l := &recordingLogger{}
	NewLogRenderer(l).Render(domain.Snapshot{NextDose: -1})

	if len(l.msgs) != 1 || l.msgs[0] != "display: no schedule data" {
		t.Fatalf("msgs = %v", l.msgs)
	}
}

func TestLogRenderer_Notification(t *testing.T) {
	l := &recordingLogger{}
	NewLogRenderer(l).Render(domain.Snapshot{
		Mode:                domain.ModeNotifying,
		StorageReady:        true,
		Groups:              []domain.Group{{Time: "08:00", Count: 1}},
		NextDose:            0,
		NotificationActive:  true,
		NotificationMessage: "TIME TO TAKE: Aspirin - 1 tab",
	})

	if v, _ := field(l.fields[0], "notification"); v != "TIME TO TAKE: Aspirin - 1 tab" {
		t.Errorf("notification = %v", v)
	}
	if v, _ := field(l.fields[0], "next_time"); v != "08:00" {
		t.Errorf("next_time = %v", v)
	}
}

func TestLogRenderer_Setup(t *testing.T) {
	l := &recordingLogger{}
	setup := domain.NewSetupState([]string{"t1", "t2"})
	setup.AwaitingConfirm = true
	NewLogRenderer(l).Render(domain.Snapshot{
		Mode:         domain.ModeSettingUp,
		StorageReady: true,
		NextDose:     -1,
		Setup:        setup,
	})

	if v, _ := field(l.fields[0], "tube"); v != "t1" {
		t.Errorf("tube = %v", v)
	}
	if v, _ := field(l.fields[0], "prompt"); v != "press when loaded" {
		t.Errorf("prompt = %v", v)
	}
}
