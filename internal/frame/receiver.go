package frame

import (
	"fmt"
	"time"

	"github.com/bft-labs/pillship/internal/domain"
	"github.com/bft-labs/pillship/internal/ports"
)

// Sentinels delimiting a frame in the byte stream.
var (
	StartSentinel = []byte("#START#")
	EndSentinel   = []byte("#END#")
)

// MinBufferSize is the smallest buffer that can still match a sentinel split
// across a truncation or a flush.
const MinBufferSize = 16

// Sink receives the payload of a frame.
// Open is called on the start sentinel, WriteChunk for every flushed part of
// the payload, and exactly one of Commit or Abort ends the frame.
type Sink interface {
	Open() error
	WriteChunk(p []byte) error
	Commit() error
	Abort() error
}

// Acker emits flow-control acknowledgements to the sender.
type Acker interface {
	Ack() error
}

// Config holds receiver tuning.
type Config struct {
	// BufferSize bounds the bytes held in memory
	BufferSize int

	// IdleTimeout aborts a frame when no byte arrived for this long
	IdleTimeout time.Duration

	// TotalTimeout aborts a frame that takes longer than this overall
	TotalTimeout time.Duration

	// AckEvery emits an acknowledgement every N processed bytes; 0 disables
	AckEvery int
}

// DefaultConfig returns the receiver defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:   64,
		IdleTimeout:  5 * time.Second,
		TotalTimeout: 20 * time.Second,
		AckEvery:     32,
	}
}

// Result reports what a call to Feed did.
type Result int

const (
	// ResultNone means the byte was buffered with no state change.
	ResultNone Result = iota
	// ResultStarted means a start sentinel opened a new frame.
	ResultStarted
	// ResultCommitted means a frame was completed and committed.
	ResultCommitted
	// ResultFailed means the current frame was dropped.
	ResultFailed
)

// String returns a human-readable representation of the result.
func (r Result) String() string {
	switch r {
	case ResultNone:
		return "None"
	case ResultStarted:
		return "Started"
	case ResultCommitted:
		return "Committed"
	case ResultFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Receiver turns a byte stream into committed frames.
// It is not safe for concurrent use; the poll loop owns it.
type Receiver struct {
	cfg    Config
	buf    *Buffer
	sink   Sink
	acker  Acker
	logger ports.Logger

	receiving  bool
	startedAt  time.Time
	lastByteAt time.Time
	frameBytes int
	processed  uint64
}

// NewReceiver creates an idle receiver writing frames to sink.
// acker may be nil.
func NewReceiver(cfg Config, sink Sink, acker Acker, logger ports.Logger) *Receiver {
	if cfg.BufferSize < MinBufferSize {
		cfg.BufferSize = MinBufferSize
	}
	return &Receiver{
		cfg:    cfg,
		buf:    NewBuffer(cfg.BufferSize),
		sink:   sink,
		acker:  acker,
		logger: logger,
	}
}

// Receiving reports whether a frame is in progress.
func (r *Receiver) Receiving() bool { return r.receiving }

// Buffered returns the number of bytes currently held.
func (r *Receiver) Buffered() int { return r.buf.Len() }

// Feed processes one byte received at now.
// The returned error explains a ResultFailed, or a start sentinel the sink
// refused; the receiver is always ready for the next byte afterwards.
func (r *Receiver) Feed(c byte, now time.Time) (Result, error) {
	r.processed++
	if r.cfg.AckEvery > 0 && r.processed%uint64(r.cfg.AckEvery) == 0 {
		r.ack()
	}

	if r.receiving {
		if err := r.expired(now); err != nil {
			r.abort(err.Error())
			r.buf.Append(c)
			return ResultFailed, err
		}
		r.buf.Append(c)
		return r.feedReceiving(now)
	}

	r.buf.Append(c)
	return r.feedIdle(now)
}

// Tick aborts a frame whose idle or total time budget ran out.
// It returns a wrapped domain.ErrReceiveTimeout when it aborted.
func (r *Receiver) Tick(now time.Time) error {
	if !r.receiving {
		return nil
	}
	if err := r.expired(now); err != nil {
		r.abort(err.Error())
		return err
	}
	return nil
}

// Reset abandons any frame in progress, e.g. when the transport reconnects.
func (r *Receiver) Reset() {
	if r.receiving {
		r.abort("reset")
		return
	}
	r.buf.Reset()
}

func (r *Receiver) expired(now time.Time) error {
	if idle := now.Sub(r.lastByteAt); r.cfg.IdleTimeout > 0 && idle > r.cfg.IdleTimeout {
		return fmt.Errorf("%w: no data for %s", domain.ErrReceiveTimeout, idle.Round(time.Millisecond))
	}
	if total := now.Sub(r.startedAt); r.cfg.TotalTimeout > 0 && total > r.cfg.TotalTimeout {
		return fmt.Errorf("%w: frame open for %s", domain.ErrReceiveTimeout, total.Round(time.Millisecond))
	}
	return nil
}

func (r *Receiver) feedIdle(now time.Time) (Result, error) {
	if i := r.buf.Index(StartSentinel); i >= 0 {
		r.buf.DrainPrefix(i + len(StartSentinel))
		if err := r.sink.Open(); err != nil {
			r.buf.Reset()
			r.logger.Warn("frame start rejected", ports.Err(err))
			return ResultNone, fmt.Errorf("open frame: %w", err)
		}
		r.receiving = true
		r.startedAt = now
		r.lastByteAt = now
		r.frameBytes = 0
		r.logger.Debug("frame started")
		return ResultStarted, nil
	}

	if r.buf.Full() {
		dropped := r.buf.RetainTail(len(StartSentinel) - 1)
		r.logger.Debug("discarding unframed bytes",
			ports.Int("dropped", dropped),
			ports.Err(domain.ErrTransportOverflow),
		)
	}
	return ResultNone, nil
}

func (r *Receiver) feedReceiving(now time.Time) (Result, error) {
	r.lastByteAt = now

	if i := r.buf.Index(EndSentinel); i >= 0 {
		chunk := r.buf.DrainPrefix(i)
		r.buf.DrainPrefix(len(EndSentinel))
		if err := r.write(chunk); err != nil {
			return ResultFailed, err
		}

		r.receiving = false
		err := r.sink.Commit()
		r.ack()
		if err != nil {
			r.logger.Error("frame commit failed",
				ports.Int("bytes", r.frameBytes),
				ports.Err(err),
			)
			return ResultFailed, fmt.Errorf("commit frame: %w", err)
		}
		r.logger.Info("frame committed",
			ports.Int("bytes", r.frameBytes),
			ports.Duration("elapsed", now.Sub(r.startedAt)),
		)
		return ResultCommitted, nil
	}

	if r.buf.Full() {
		// Keep the newer half so a partially received end sentinel survives.
		if err := r.write(r.buf.DrainPrefix(r.buf.Len() / 2)); err != nil {
			return ResultFailed, err
		}
	}
	return ResultNone, nil
}

func (r *Receiver) write(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	if err := r.sink.WriteChunk(chunk); err != nil {
		r.abort("chunk write failed")
		return fmt.Errorf("write chunk: %w", err)
	}
	r.frameBytes += len(chunk)
	return nil
}

func (r *Receiver) abort(reason string) {
	if err := r.sink.Abort(); err != nil {
		r.logger.Warn("frame abort cleanup failed", ports.Err(err))
	}
	r.logger.Warn("frame aborted",
		ports.String("reason", reason),
		ports.Int("bytes", r.frameBytes),
	)
	r.receiving = false
	r.frameBytes = 0
	r.buf.Reset()
}

func (r *Receiver) ack() {
	if r.acker == nil {
		return
	}
	if err := r.acker.Ack(); err != nil {
		r.logger.Debug("ack failed", ports.Err(err))
	}
}
