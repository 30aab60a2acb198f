package wsframe

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors returned by the frame codec and the connection driver.
var (
	// ErrMessageTooLarge is matched by every *MessageTooLongError.
	ErrMessageTooLarge = errors.New("message too large")
	// ErrBufferFull is matched by every *WriteBufferFullError, and is also
	// returned by Conn.Write when the send channel is full.
	ErrBufferFull = errors.New("send buffer full")
	// ErrConnectionReset is returned when the stream accepts zero bytes of a
	// non-empty out buffer without reporting an error. No further writes
	// will succeed.
	ErrConnectionReset = errors.New("connection reset while sending")
	// ErrMalformedHeader reports a length field that violates the
	// minimal-encoding rule.
	ErrMalformedHeader = errors.New("malformed frame header")
	// ErrInvalidUTF8 is returned when a UTF-8 payload is built from bytes
	// that are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
	// ErrMalformedClose reports a close payload that cannot be decoded.
	ErrMalformedClose = errors.New("malformed close frame")
	// ErrConnectionClosed is returned when operating on a closed connection
	// or when the peer closes the stream.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrInvalidOnFrame is returned when no frame handler is provided.
	ErrInvalidOnFrame = errors.New("invalid on frame callback")
)

// MessageTooLongError is returned when a frame declares a payload larger
// than the configured ceiling, or larger than the platform can address.
// It is raised before any payload byte is buffered.
type MessageTooLongError struct {
	Size    uint64
	MaxSize uint64
}

func (e *MessageTooLongError) Error() string {
	return fmt.Sprintf("message too long: %d > %d", e.Size, e.MaxSize)
}

// Is makes errors.Is(err, ErrMessageTooLarge) hold.
func (e *MessageTooLongError) Is(target error) bool {
	return target == ErrMessageTooLarge
}

// WriteBufferFullError is returned when buffering a frame would push the out
// buffer past its ceiling. The frame was not buffered; it is handed back so
// the caller can flush and retry with it.
type WriteBufferFullError struct {
	Frame *Frame
}

func (e *WriteBufferFullError) Error() string {
	return fmt.Sprintf("write buffer full: frame of %d bytes rejected", e.Frame.Len())
}

// Is makes errors.Is(err, ErrBufferFull) hold.
func (e *WriteBufferFullError) Is(target error) bool {
	return target == ErrBufferFull
}
