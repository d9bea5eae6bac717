package ports

// AckByte is written back to the sender as flow-control acknowledgement.
const AckByte byte = 0x06

// Transport is the byte stream that carries framed schedules.
// It is polled: Read never blocks and returns 0, nil when no bytes are pending.
type Transport interface {
	// Read copies pending bytes into p.
	Read(p []byte) (int, error)

	// Ack sends a single acknowledgement byte to the sender.
	Ack() error

	// Close releases the underlying connection or device.
	Close() error
}
