package wsframe

import "io"

// FrameSocket reads and writes frames on a stream.
//
// It owns the stream and a FrameCodec and adds nothing but the pairing of
// the two. S is usually a net.Conn, but any io.ReadWriter works; if S also
// has a Flush() error method, Flush calls it after draining the out buffer.
type FrameSocket[S io.ReadWriter] struct {
	stream S
	codec  *FrameCodec
}

// NewFrameSocket creates a frame socket on stream.
func NewFrameSocket[S io.ReadWriter](stream S, opts ...CodecOption) *FrameSocket[S] {
	return &FrameSocket[S]{stream: stream, codec: NewFrameCodec(opts...)}
}

// FromPartiallyRead creates a frame socket on stream whose first bytes,
// part, were already read from it by a previous owner.
func FromPartiallyRead[S io.ReadWriter](stream S, part []byte, opts ...CodecOption) *FrameSocket[S] {
	return &FrameSocket[S]{stream: stream, codec: NewFrameCodecPartial(part, opts...)}
}

// IntoInner returns the stream together with any bytes read from it but
// not consumed as frames. The socket must not be used afterwards.
func (s *FrameSocket[S]) IntoInner() (S, []byte) {
	return s.stream, s.codec.Unconsumed()
}

// Stream returns the underlying stream.
func (s *FrameSocket[S]) Stream() S {
	return s.stream
}

// Codec returns the socket's codec.
func (s *FrameSocket[S]) Codec() *FrameCodec {
	return s.codec
}

// Buffered returns the number of formatted bytes not yet written to the
// stream.
func (s *FrameSocket[S]) Buffered() int {
	return s.codec.OutBuffered()
}

// SetMaxOutBufferLen sets the out buffer ceiling. See CodecMaxOutBufferOption.
func (s *FrameSocket[S]) SetMaxOutBufferLen(n int) {
	s.codec.SetMaxOutBufferLen(n)
}

// SetOutBufferWriteLen sets the write threshold. See CodecWriteThresholdOption.
func (s *FrameSocket[S]) SetOutBufferWriteLen(n int) {
	s.codec.SetOutBufferWriteLen(n)
}

// Read reads a frame from the stream. See FrameCodec.ReadFrame.
func (s *FrameSocket[S]) Read(maxSize uint64) (*Frame, error) {
	return s.codec.ReadFrame(s.stream, maxSize)
}

// Write queues a frame, writing to the stream only once the write threshold
// is exceeded. Call Flush to push queued frames out.
//
// The frame is guaranteed to be queued unless a *WriteBufferFullError is
// returned. Any other error (for example would-block) means the frame was
// queued but not all of the buffer could be written; call Flush later.
func (s *FrameSocket[S]) Write(f *Frame) error {
	return s.codec.BufferFrame(s.stream, f)
}

// Send writes a frame and flushes. It is Write followed by Flush.
func (s *FrameSocket[S]) Send(f *Frame) error {
	if err := s.Write(f); err != nil {
		return err
	}
	return s.Flush()
}

// Flush writes all queued frames and flushes the stream.
func (s *FrameSocket[S]) Flush() error {
	if err := s.codec.WriteOutBuffer(s.stream); err != nil {
		return err
	}
	if f, ok := any(s.stream).(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
