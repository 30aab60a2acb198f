package wsframe

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Frame is a single protocol frame: a header and its payload.
//
// Frames returned by the codec always carry an unmasked payload; the header
// still records whether the frame arrived masked and with which key.
type Frame struct {
	header  FrameHeader
	payload Payload
}

// NewFrame builds a frame from a header and payload.
func NewFrame(header FrameHeader, payload Payload) *Frame {
	return &Frame{header: header, payload: payload}
}

// MessageFrame builds an unmasked data frame.
func MessageFrame(opCode OpCode, data Payload, fin bool) *Frame {
	return NewFrame(FrameHeader{Fin: fin, OpCode: opCode}, data)
}

// TextFrame builds a text data frame.
func TextFrame(text Utf8Payload, fin bool) *Frame {
	return MessageFrame(OpText, text.Payload(), fin)
}

// BinaryFrame builds a binary data frame.
func BinaryFrame(data Payload, fin bool) *Frame {
	return MessageFrame(OpBinary, data, fin)
}

// PingFrame builds a ping control frame.
func PingFrame(data Payload) *Frame {
	return MessageFrame(OpPing, data, true)
}

// PongFrame builds a pong control frame.
func PongFrame(data Payload) *Frame {
	return MessageFrame(OpPong, data, true)
}

// CloseMessageFrame builds a close control frame. A nil close sends no
// status code.
func CloseMessageFrame(cf *CloseFrame) *Frame {
	if cf == nil {
		return MessageFrame(OpClose, Payload{}, true)
	}
	buf := make([]byte, 2, 2+cf.Reason.Len())
	binary.BigEndian.PutUint16(buf, uint16(cf.Code))
	buf = append(buf, cf.Reason.Payload().Bytes()...)
	return MessageFrame(OpClose, NewPayload(buf), true)
}

// Header returns the frame header. It may be modified before the frame is
// written, for example to set a mask key.
func (f *Frame) Header() *FrameHeader {
	return &f.header
}

// Payload returns the unmasked payload.
func (f *Frame) Payload() Payload {
	return f.payload
}

// PayloadLen returns the payload length in bytes.
func (f *Frame) PayloadLen() int {
	return f.payload.Len()
}

// Len returns the encoded length of the frame on the wire.
func (f *Frame) Len() int {
	length := uint64(f.payload.Len())
	return f.header.Len(length) + f.payload.Len()
}

// AppendFormat appends the wire encoding of the frame to dst. If the header
// is masked, the copied payload is masked inside dst; the frame is left
// untouched.
func (f *Frame) AppendFormat(dst []byte) []byte {
	dst = f.header.AppendFormat(dst, uint64(f.payload.Len()))
	start := len(dst)
	dst = append(dst, f.payload.Bytes()...)
	if f.header.Masked {
		ApplyMask(dst[start:], f.header.MaskKey)
	}
	return dst
}

// CloseFrame decodes the payload of a close frame. It returns nil when the
// payload is empty (close without status).
func (f *Frame) CloseFrame() (*CloseFrame, error) {
	data := f.payload.Bytes()
	switch len(data) {
	case 0:
		return nil, nil
	case 1:
		return nil, errors.Wrap(ErrMalformedClose, "one byte payload")
	}

	reason, err := NewUtf8Payload(f.payload.Slice(2, len(data)))
	if err != nil {
		return nil, errors.WithMessage(err, "close reason")
	}
	return &CloseFrame{
		Code:   CloseCode(binary.BigEndian.Uint16(data)),
		Reason: reason,
	}, nil
}

func (f *Frame) String() string {
	const maxShown = 32

	data := f.payload.Bytes()
	var b strings.Builder
	fmt.Fprintf(&b, "final: %t opcode: %s length: %d payload length: %d payload: 0x",
		f.header.Fin, f.header.OpCode, f.Len(), len(data))
	for i, c := range data {
		if i == maxShown {
			b.WriteString("...")
			break
		}
		fmt.Fprintf(&b, "%02x", c)
	}
	return b.String()
}

// CloseFrame is the structured payload of a close frame.
type CloseFrame struct {
	Code   CloseCode
	Reason Utf8Payload
}

func (c *CloseFrame) String() string {
	return fmt.Sprintf("%s (%d) %q", c.Code, uint16(c.Code), c.Reason.String())
}

// CloseCode is a close status code (RFC 6455 section 7.4).
type CloseCode uint16

const (
	CloseNormal      CloseCode = 1000
	CloseAway        CloseCode = 1001
	CloseProtocol    CloseCode = 1002
	CloseUnsupported CloseCode = 1003
	CloseStatus      CloseCode = 1005
	CloseAbnormal    CloseCode = 1006
	CloseInvalid     CloseCode = 1007
	ClosePolicy      CloseCode = 1008
	CloseSize        CloseCode = 1009
	CloseExtension   CloseCode = 1010
	CloseError       CloseCode = 1011
	CloseRestart     CloseCode = 1012
	CloseAgain       CloseCode = 1013
	CloseTLS         CloseCode = 1015
)

// IsAllowed reports whether the code may appear on the wire. 1005, 1006 and
// 1015 are reserved for local use only.
func (c CloseCode) IsAllowed() bool {
	switch {
	case c >= 1000 && c <= 1003, c >= 1007 && c <= 1011, c == CloseRestart, c == CloseAgain:
		return true
	case c >= 3000 && c <= 4999:
		return true
	}
	return false
}

func (c CloseCode) String() string {
	switch c {
	case CloseNormal:
		return "normal"
	case CloseAway:
		return "going away"
	case CloseProtocol:
		return "protocol error"
	case CloseUnsupported:
		return "unsupported data"
	case CloseStatus:
		return "no status"
	case CloseAbnormal:
		return "abnormal"
	case CloseInvalid:
		return "invalid payload"
	case ClosePolicy:
		return "policy violation"
	case CloseSize:
		return "message too big"
	case CloseExtension:
		return "missing extension"
	case CloseError:
		return "internal error"
	case CloseRestart:
		return "service restart"
	case CloseAgain:
		return "try again later"
	case CloseTLS:
		return "TLS handshake failure"
	}
	switch {
	case c >= 3000 && c <= 3999:
		return "library"
	case c >= 4000 && c <= 4999:
		return "application"
	}
	return "reserved"
}
