package domain

import "errors"

// Domain errors represent error conditions in the pillship domain.
// They are wrapped with context by the packages that return them and can be
// checked with errors.Is.
var (
	// ErrTransportOverflow is reported when the frame buffer fills up without
	// a sentinel. It is informational: the receiver truncates and continues.
	ErrTransportOverflow = errors.New("pillship: transport buffer overflow")

	// ErrReceiveTimeout is returned when a frame is abandoned because the
	// sender went quiet or the frame took too long overall.
	ErrReceiveTimeout = errors.New("pillship: receive timeout")

	// ErrStorageBusy is returned when another storage operation holds the guard.
	ErrStorageBusy = errors.New("pillship: storage busy")

	// ErrStorageUnavailable is returned when the storage medium cannot be used.
	ErrStorageUnavailable = errors.New("pillship: storage unavailable")

	// ErrPartialWrite is returned when a chunk was not fully written.
	ErrPartialWrite = errors.New("pillship: partial write")

	// ErrCommitFailure is returned when neither rename nor copy could replace
	// the canonical schedule file.
	ErrCommitFailure = errors.New("pillship: commit failed")

	// ErrParse is returned for malformed schedule payloads.
	ErrParse = errors.New("pillship: schedule parse error")

	// ErrNoScheduleData is returned when the schedule file is missing, empty,
	// or yields no entries.
	ErrNoScheduleData = errors.New("pillship: no schedule data")

	// ErrCapacityExceeded marks silently truncated input. It is logged, never returned
	// from a successful compile.
	ErrCapacityExceeded = errors.New("pillship: capacity exceeded")

	// ErrAlreadyRunning is returned when Start() is called on a running service.
	ErrAlreadyRunning = errors.New("pillship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped service.
	ErrNotRunning = errors.New("pillship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("pillship: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("pillship: invalid configuration")
)
