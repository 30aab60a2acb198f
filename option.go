package wsframe

import (
	"time"

	"golang.org/x/time/rate"
)

// ErrorAction defines the action to take when an error occurs.
type ErrorAction int

const (
	// Disconnect closes the connection when an error occurs.
	Disconnect ErrorAction = iota
	// Continue suppresses the error and continues processing.
	Continue
)

// CodecOption configures a FrameCodec or FrameSocket.
type CodecOption func(*FrameCodec)

// CodecMaxOutBufferOption caps the number of formatted bytes the codec
// buffers before refusing new frames with a *WriteBufferFullError.
// The default is unlimited.
func CodecMaxOutBufferOption(n int) CodecOption {
	return func(c *FrameCodec) {
		c.SetMaxOutBufferLen(n)
	}
}

// CodecWriteThresholdOption sets how many bytes accumulate in the out buffer
// before a write hits the stream. The default, 0, writes every frame eagerly.
func CodecWriteThresholdOption(n int) CodecOption {
	return func(c *FrameCodec) {
		c.SetOutBufferWriteLen(n)
	}
}

// CodecLoggerOption sets the codec's logger.
func CodecLoggerOption(logger Logger) CodecOption {
	return func(c *FrameCodec) {
		c.logger = logger
	}
}

// options holds the configuration for a connection.
type options struct {
	logger Logger

	onFrame func(frame *Frame) error
	// onError is called when an I/O error occurs.
	// Returns Disconnect to close the connection, Continue to suppress the error.
	onError func(error) ErrorAction

	bufferSize     int           // size of buffered send channel
	maxFrameSize   uint64        // maximum payload of a single inbound frame
	maxOutBuffer   int           // codec out buffer ceiling, 0 for unlimited
	writeThreshold int           // codec write coalescing threshold
	idleTimeout    time.Duration // read/write deadline is idleTimeout * 2

	readLimit rate.Limit // inbound frames per second, 0 for unlimited
	readBurst int

	partial []byte // bytes already read from the stream before NewConn
}

// Option is a function that configures connection options.
type Option func(*options)

// OnFrameOption returns an Option that sets the frame handler callback.
// This callback is required and is invoked for each received frame, in
// arrival order. The payload shares memory with the codec's input buffer,
// which is never reused, so it may be retained.
func OnFrameOption(cb func(*Frame) error) Option {
	return func(o *options) {
		o.onFrame = cb
	}
}

// OnErrorOption returns an Option that sets the error callback.
// The callback is invoked when a read/write I/O error occurs.
// Return Disconnect to close the connection, or Continue to suppress the error.
// Protocol and size-limit errors always disconnect.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// BufferSizeOption returns an Option that sets the size of the send channel buffer.
// A larger buffer allows more frames to be queued before Write reports ErrBufferFull.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// IdleTimeoutOption returns an Option that sets the idle timeout.
// This determines the read/write deadline (idleTimeout * 2).
func IdleTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = timeout
	}
}

// MaxFrameSizeOption returns an Option that sets the largest inbound frame
// payload accepted. Larger frames close the connection.
func MaxFrameSizeOption(size uint64) Option {
	return func(o *options) {
		o.maxFrameSize = size
	}
}

// MaxOutBufferOption returns an Option that caps the codec's out buffer.
func MaxOutBufferOption(size int) Option {
	return func(o *options) {
		o.maxOutBuffer = size
	}
}

// WriteThresholdOption returns an Option that sets the codec's write
// coalescing threshold.
func WriteThresholdOption(size int) Option {
	return func(o *options) {
		o.writeThreshold = size
	}
}

// ReadRateLimitOption returns an Option that limits how many frames per
// second the read loop accepts, with the given burst.
func ReadRateLimitOption(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.readLimit = limit
		o.readBurst = burst
	}
}

// PartialReadOption returns an Option that seeds the codec with bytes that
// were read from the connection before it was handed over, for example the
// tail of a handshake read through a bufio.Reader.
func PartialReadOption(part []byte) Option {
	return func(o *options) {
		o.partial = part
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
