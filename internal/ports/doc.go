// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundary between the dispenser core and the outside world:
// they say what the core needs from hardware, transport and storage without
// saying how those needs are met.
//
// # Port Interfaces
//
//   - [Transport]: non-blocking byte source carrying framed schedules
//   - [Actuator]: tube paths, feed motor and weight sensor
//   - [Clock]: wall clock used for due-time detection
//   - [Button]: the single user button
//   - [Renderer]: consumer of coordinator snapshots
//   - [StatusRepository]: persists device status
//   - [Journal]: append-only history of loads and dispenses
//   - [Logger]: structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) provide implementations backed by devices,
// websockets, SQLite, zerolog and so on, and tests substitute fakes.
package ports
