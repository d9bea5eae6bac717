// Package pillship provides an embeddable medication dispenser daemon.
//
// A Service receives framed schedules over a serial device or websocket,
// stores them durably, compiles them into a bounded schedule and drives
// the dispensing workflow through pluggable hardware adapters.
//
// # Basic Usage
//
//	cfg := pillship.DefaultConfig()
//	cfg.DataDir = "/var/lib/pillship"
//
//	svc, err := pillship.New(cfg, pillship.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := svc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	// ... run until shutdown signal ...
//	if err := svc.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Hardware
//
// Without options the Service uses a simulated actuator, no button and a
// renderer that logs every screen. Use [WithActuator], [WithButton] and
// [WithRenderer] to attach real devices.
//
// # Event Handling
//
// Implement [EventHandler] and pass it via [WithEventHandler] to observe
// lifecycle changes, schedule loads and dispenses. Events are called
// synchronously from the poll loop and should return quickly.
//
// # Lifecycle States
//
// A Service is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. Use [Service.Status] to query it.
package pillship
