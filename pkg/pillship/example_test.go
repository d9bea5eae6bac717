package pillship_test

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/bft-labs/pillship/pkg/pillship"
)

// ExampleNew demonstrates how to embed the dispenser in your application.
func ExampleNew() {
	cfg := pillship.DefaultConfig()
	cfg.DataDir = "/sd"
	cfg.Watch = false

	svc, err := pillship.New(cfg,
		pillship.WithFs(afero.NewMemMapFs()),
		pillship.WithTransport(&pipeTransport{}),
		pillship.WithJournal(&memJournal{}),
	)
	if err != nil {
		fmt.Printf("failed to create service: %v\n", err)
		return
	}

	if err := svc.Start(context.Background()); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}

	status := svc.Status()
	fmt.Printf("Status is valid: %v\n", status == pillship.StateStarting || status == pillship.StateRunning)

	_ = svc.Stop()
	fmt.Println(svc.Status())

	// Output:
	// Status is valid: true
	// Stopped
}

// doseLogger prints every dispense.
type doseLogger struct {
	pillship.BaseEventHandler
}

func (doseLogger) OnDispensed(event pillship.DispenseEvent) {
	fmt.Printf("%s: %s\n", event.Slot, event.Summary)
}

// Example_withEventHandler demonstrates how to observe dispenses.
func Example_withEventHandler() {
	cfg := pillship.DefaultConfig()
	cfg.DataDir = "/var/lib/pillship"

	svc, err := pillship.New(cfg, pillship.WithEventHandler(doseLogger{}))
	if err != nil {
		fmt.Printf("failed to create service: %v\n", err)
		return
	}

	_ = svc // Start and Stop as usual
}
