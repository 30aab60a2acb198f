// Package wsframe implements the frame layer of the WebSocket protocol
// (RFC 6455 section 5): a resumable frame codec, a frame socket binding the
// codec to a stream, and a connection driver that runs read and write loops
// over a net.Conn whose handshake has already completed.
package wsframe

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	// defaultBufferSize is the default size of the send channel buffer.
	defaultBufferSize = 1
	// defaultMaxFrameSize is the default maximum payload of a single inbound frame (1MB).
	defaultMaxFrameSize = 1024 * 1024
	// defaultIdleTimeout is the default idle timeout.
	defaultIdleTimeout = 30 * time.Second
)

// Conn drives a frame socket over a network connection.
//
// A read goroutine delivers frames to the OnFrame callback in arrival order
// and a write goroutine drains frames queued with Write. The frame codec
// itself stays single-threaded per direction.
type Conn struct {
	id      uuid.UUID
	rawConn net.Conn
	socket  *FrameSocket[net.Conn]
	limiter *rate.Limiter
	logger  Logger

	opts options

	sendFrame chan *Frame
	// pending holds frames taken from sendFrame that the codec has not
	// accepted yet. Only the write loop touches it.
	pending *queue.Queue

	closed   atomic.Bool
	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// NewConn creates a new connection wrapper around the given network connection.
// It applies the provided options and validates them before returning.
// Returns an error if the required OnFrame option is missing.
func NewConn(conn net.Conn, opt ...Option) (*Conn, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}

	err := checkOptions(&opts)
	if err != nil {
		return nil, err
	}

	return newConnWithOptions(conn, opts), nil
}

// checkOptions validates and sets default values for connection options.
func checkOptions(opts *options) error {
	if opts.onFrame == nil {
		return ErrInvalidOnFrame
	}

	if opts.bufferSize <= 0 {
		opts.bufferSize = defaultBufferSize
	}

	if opts.maxFrameSize == 0 {
		opts.maxFrameSize = defaultMaxFrameSize
	}

	if opts.idleTimeout <= 0 {
		opts.idleTimeout = defaultIdleTimeout
	}

	if opts.onError == nil {
		opts.onError = func(err error) ErrorAction { return Disconnect }
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}

// newConnWithOptions creates a new Conn with the given options.
func newConnWithOptions(conn net.Conn, opts options) *Conn {
	id := uuid.New()
	logger := withAttrs(opts.logger, "conn_id", id)

	codecOpts := []CodecOption{
		CodecLoggerOption(logger),
		CodecWriteThresholdOption(opts.writeThreshold),
	}
	if opts.maxOutBuffer > 0 {
		codecOpts = append(codecOpts, CodecMaxOutBufferOption(opts.maxOutBuffer))
	}

	c := &Conn{
		id:        id,
		rawConn:   conn,
		socket:    FromPartiallyRead(conn, opts.partial, codecOpts...),
		logger:    logger,
		opts:      opts,
		sendFrame: make(chan *Frame, opts.bufferSize),
		pending:   queue.New(),
	}

	if opts.readLimit > 0 {
		c.limiter = rate.NewLimiter(opts.readLimit, max(opts.readBurst, 1))
	}

	return c
}

// Run starts the connection's read and write loops.
// It blocks until an error occurs, the peer closes the stream or the
// context is canceled. The connection is closed when Run returns.
// A peer closing the stream is reported as ErrConnectionClosed.
func (c *Conn) Run(ctx context.Context) error {
	c.logger.Info("connection established", "addr", c.Addr())
	c.logger.Debug("connection options",
		"buffer_size", c.opts.bufferSize,
		"max_frame_size", c.opts.maxFrameSize,
		"max_out_buffer", c.opts.maxOutBuffer,
		"write_threshold", c.opts.writeThreshold,
		"idle_timeout", c.opts.idleTimeout)

	ctx, cancel := context.WithCancel(ctx)
	c.cancelMu.Lock()
	c.cancel = cancel
	c.cancelMu.Unlock()

	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop(child)
	})

	group.Go(func() error {
		return c.writeLoop(child)
	})

	// The read loop sits in a blocking read; closing the socket is what
	// wakes it up once the other loop or the caller gives up.
	group.Go(func() error {
		<-child.Done()
		c.closeConn()
		return nil
	})

	err := group.Wait()
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Info("connection closed with error", "addr", c.Addr(), "error", err)
	} else {
		c.logger.Info("connection closed", "addr", c.Addr())
	}

	return err
}

// Close closes the connection and stops Run.
// Safe to call multiple times.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	c.cancelMu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancelMu.Unlock()
	return c.rawConn.Close()
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// ID returns the identifier attached to the connection's log records.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// Addr returns the remote address of the connection.
func (c *Conn) Addr() net.Addr {
	return c.rawConn.RemoteAddr()
}

// Write queues a frame for sending without blocking.
//
// Returns:
//   - nil: frame was queued (not yet sent)
//   - ErrBufferFull: send channel is full, frame was NOT queued
//   - ErrConnectionClosed: connection is closed
//
// Frames are written in the order they were queued.
func (c *Conn) Write(frame *Frame) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	select {
	case c.sendFrame <- frame:
		return nil
	default:
		return ErrBufferFull
	}
}

// WriteBlocking queues a frame, blocking until there is room in the send
// channel or the context is canceled.
func (c *Conn) WriteBlocking(ctx context.Context, frame *Frame) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	select {
	case c.sendFrame <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WriteTimeout queues a frame, waiting at most timeout for room in the send
// channel. It returns ErrBufferFull if the timeout expires.
func (c *Conn) WriteTimeout(frame *Frame, timeout time.Duration) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c.sendFrame <- frame:
		return nil
	case <-timer.C:
		return ErrBufferFull
	}
}

// readLoop reads frames from the socket and hands them to the frame handler.
// Protocol violations and oversized frames always end the loop; other I/O
// errors are passed to onError. Because the codec resumes where it stopped,
// continuing after a timeout loses no data.
func (c *Conn) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		_ = c.rawConn.SetReadDeadline(time.Now().Add(c.opts.idleTimeout * 2))

		frame, err := c.socket.Read(c.opts.maxFrameSize)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Debug("read error", "error", err)
			if isFrameError(err) || c.opts.onError(err) == Disconnect {
				return err
			}
			continue
		}
		if frame == nil {
			return ErrConnectionClosed
		}

		if err = c.opts.onFrame(frame); err != nil {
			return err
		}
	}
}

// writeLoop moves queued frames into the socket and flushes them.
// Frames that arrive together are coalesced into one flush.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-c.sendFrame:
			c.pending.Add(frame)
			c.collectPending()
			if err := c.write(); err != nil {
				return err
			}
		}
	}
}

// collectPending moves every frame already waiting in the send channel to
// the pending queue.
func (c *Conn) collectPending() {
	for {
		select {
		case frame := <-c.sendFrame:
			c.pending.Add(frame)
		default:
			return
		}
	}
}

// write buffers pending frames in order and flushes the socket. A frame
// refused with WriteBufferFull stays at the head of the queue until a flush
// makes room for it.
func (c *Conn) write() error {
	_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.opts.idleTimeout * 2))

	for c.pending.Length() > 0 {
		frame := c.pending.Peek().(*Frame)

		err := c.socket.Write(frame)
		var full *WriteBufferFullError
		if errors.As(err, &full) {
			if c.socket.Codec().OutBuffered() == 0 {
				// Larger than the out buffer ceiling; it can never be sent.
				c.pending.Remove()
				c.logger.Warn("frame dropped", "size", frame.Len(), "error", err)
				return err
			}
			if err = c.socket.Flush(); err != nil {
				return c.writeFailed(err)
			}
			continue
		}

		c.pending.Remove()
		if err != nil {
			return c.writeFailed(err)
		}
	}

	return c.writeFailed(c.socket.Flush())
}

// writeFailed consults onError. Frames already accepted by the codec stay in
// its out buffer and go out with the next flush.
func (c *Conn) writeFailed(err error) error {
	if err == nil {
		return nil
	}
	c.logger.Debug("write error", "error", err)
	if c.opts.onError(err) == Disconnect {
		return err
	}
	return nil
}

// closeConn marks the connection as closed and closes the underlying connection.
func (c *Conn) closeConn() {
	c.closed.Store(true)
	_ = c.rawConn.Close()
}

// isFrameError reports whether err leaves the inbound stream unusable.
func isFrameError(err error) bool {
	return errors.Is(err, ErrMessageTooLarge) || errors.Is(err, ErrMalformedHeader)
}
