package wsframe

import (
	"io"
	"math"
	"slices"

	"github.com/pkg/errors"
)

// Unlimited disables the inbound frame size limit passed to ReadFrame.
const Unlimited uint64 = math.MaxUint64

const (
	// readBufferCap is the initial capacity of the input buffer.
	readBufferCap = 64 * 1024
	// maxReserve caps how much input buffer is reserved ahead of a single
	// read. Larger payloads grow the buffer as bytes actually arrive, so a
	// declared length on its own never triggers a large allocation.
	maxReserve = 1 << 20
	// headerReserve is reserved when no header has been parsed yet.
	headerReserve = 6
)

// inProgress is a parsed header whose payload has not fully arrived.
type inProgress struct {
	header FrameHeader
	length uint64
}

// FrameCodec turns a byte stream into frames and frames into a byte stream.
//
// The codec holds no reference to the stream; every call takes it as an
// argument and performs at most a bounded amount of I/O before returning,
// so it can be driven by blocking and non-blocking streams alike. Errors
// from the stream, including would-block signals, are returned unchanged
// and leave the codec ready for the same call to be repeated.
//
// A FrameCodec is not safe for concurrent use, except that the read path
// (ReadFrame) and the write path (BufferFrame, WriteOutBuffer) touch
// disjoint state and may each be driven by their own goroutine.
type FrameCodec struct {
	// in holds bytes read from the stream but not yet handed out as part
	// of a frame. Consumed bytes are sliced off the front and never reused.
	in []byte
	// out holds formatted frames not yet written to the stream.
	out []byte

	// maxOutBufferLen is the ceiling for len(out).
	maxOutBufferLen int
	// outBufferWriteLen is the size out must exceed before BufferFrame
	// writes to the stream. Zero writes every frame eagerly.
	outBufferWriteLen int

	// header is non-nil between parsing a header and returning its frame.
	header *inProgress

	logger Logger
}

// NewFrameCodec returns an empty codec.
func NewFrameCodec(opts ...CodecOption) *FrameCodec {
	return NewFrameCodecPartial(nil, opts...)
}

// NewFrameCodecPartial returns a codec whose input buffer is seeded with
// part, bytes already read from the stream by whoever owned it before.
func NewFrameCodecPartial(part []byte, opts ...CodecOption) *FrameCodec {
	in := make([]byte, len(part), max(len(part), readBufferCap))
	copy(in, part)

	c := &FrameCodec{
		in:              in,
		maxOutBufferLen: math.MaxInt,
		logger:          defaultLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetMaxOutBufferLen sets the ceiling for buffered outbound bytes.
func (c *FrameCodec) SetMaxOutBufferLen(n int) {
	c.maxOutBufferLen = n
}

// SetOutBufferWriteLen sets how many bytes BufferFrame accumulates before
// writing to the stream.
func (c *FrameCodec) SetOutBufferWriteLen(n int) {
	c.outBufferWriteLen = n
}

// Unconsumed returns the bytes read from the stream that are not part of
// any returned frame. The slice aliases the codec's buffer.
func (c *FrameCodec) Unconsumed() []byte {
	return c.in
}

// OutBuffered returns the number of formatted bytes waiting to be written.
func (c *FrameCodec) OutBuffered() int {
	return len(c.out)
}

// ReadFrame returns the next frame from r.
//
// A frame whose declared payload exceeds maxSize fails with a
// *MessageTooLongError before any of its payload is buffered; pass
// Unlimited for no limit. Lengths beyond what an int can hold fail the same
// way, reporting the smaller of maxSize and math.MaxInt as the limit. The returned payload is unmasked and shares
// memory with the codec's input buffer.
//
// ReadFrame returns (nil, nil) when r reports end of stream. Any other error
// from r is returned as is; calling ReadFrame again resumes where the
// previous call stopped.
func (c *FrameCodec) ReadFrame(r io.Reader, maxSize uint64) (*Frame, error) {
	for {
		if c.header == nil {
			h, length, n, err := ParseFrameHeader(c.in)
			var tooLong *MessageTooLongError
			if errors.As(err, &tooLong) {
				// The declared length exceeds any caller limit too.
				tooLong.MaxSize = min(tooLong.MaxSize, maxSize)
				c.logger.Warn("frame exceeds size limit", "size", tooLong.Size, "max_size", tooLong.MaxSize)
			}
			if err != nil {
				return nil, err
			}
			if n > 0 {
				c.in = c.in[n:]
				c.header = &inProgress{header: h, length: length}
			}
		}

		reserve := headerReserve
		if c.header != nil {
			length := c.header.length
			if length > maxSize {
				c.logger.Warn("frame exceeds size limit", "size", length, "max_size", maxSize)
				return nil, &MessageTooLongError{Size: length, MaxSize: maxSize}
			}

			// ParseFrameHeader guarantees length fits in an int.
			if int(length) <= len(c.in) {
				return c.takeFrame(int(length)), nil
			}
			reserve = int(length) - len(c.in)
		}

		c.reserve(min(reserve, maxReserve))
		n, err := r.Read(c.in[len(c.in):cap(c.in)])
		c.in = c.in[:len(c.in)+n]

		switch {
		case err == io.EOF && n == 0:
			c.logger.Debug("no frame received", "buffered", len(c.in))
			return nil, nil
		case err != nil && err != io.EOF:
			return nil, err
		case n == 0:
			c.logger.Debug("no frame received", "buffered", len(c.in))
			return nil, nil
		}
	}
}

// takeFrame slices the payload of the in-progress frame off the input
// buffer and clears the parse state.
func (c *FrameCodec) takeFrame(length int) *Frame {
	ip := c.header
	c.header = nil

	data := c.in[:length:length]
	c.in = c.in[length:]
	if ip.header.Masked {
		ApplyMask(data, ip.header.MaskKey)
	}

	f := NewFrame(ip.header, SharedPayload(data))
	c.logger.Debug("received frame", "frame", f)
	return f
}

// reserve makes sure at least n bytes of spare capacity follow c.in. When
// the buffer has to grow, only the unconsumed bytes move to the new array.
func (c *FrameCodec) reserve(n int) {
	if cap(c.in)-len(c.in) >= n {
		return
	}
	buf := make([]byte, len(c.in), max(2*cap(c.in), len(c.in)+n, readBufferCap))
	copy(buf, c.in)
	c.in = buf
}

// BufferFrame formats f into the out buffer, masking the payload if the
// header asks for it. Once the buffer holds more than the write threshold it
// is written to w.
//
// If f does not fit under the out buffer ceiling, BufferFrame returns a
// *WriteBufferFullError carrying f and leaves the buffer unchanged.
func (c *FrameCodec) BufferFrame(w io.Writer, f *Frame) error {
	size := f.Len()
	if size > c.maxOutBufferLen-len(c.out) {
		return &WriteBufferFullError{Frame: f}
	}

	c.logger.Debug("writing frame", "frame", f)

	c.out = slices.Grow(c.out, size)
	c.out = f.AppendFormat(c.out)

	if len(c.out) > c.outBufferWriteLen {
		return c.WriteOutBuffer(w)
	}
	return nil
}

// WriteOutBuffer writes the out buffer to w until it is empty or w fails.
// Bytes that were written are dropped from the buffer even when w also
// returns an error, so the call can be repeated. It does not flush w.
func (c *FrameCodec) WriteOutBuffer(w io.Writer) error {
	for len(c.out) > 0 {
		n, err := w.Write(c.out)
		if n > 0 {
			c.out = c.out[:copy(c.out, c.out[n:])]
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConnectionReset
		}
	}
	return nil
}
