// Package domain contains the core schedule model and value objects for pillship.
//
// This package is the innermost layer of the application. It has no
// dependencies on infrastructure concerns (storage, transport, logging) and
// contains only data definitions and their invariants.
//
// # Entities
//
//   - [Entry]: one medication dose at one time of day, as parsed from the payload
//   - [EntryTable]: fixed-capacity, source-ordered table of entries
//   - [Group]: all doses sharing the same time of day
//   - [GroupTable]: fixed-capacity table of groups in first-seen order
//   - [Schedule]: the pair of tables swapped as a unit after each compile
//   - [SetupState]: progress of the guided tube-loading flow
//   - [Status]: persisted device status
//   - [Snapshot]: read-only view handed to renderers
//
// # Design Principles
//
// All tables are fixed-size arrays so memory use does not depend on payload
// size. Text fields are clipped on construction (see [Clip]). A Schedule is a
// value: callers replace it wholesale and never mutate a loaded one.
package domain
