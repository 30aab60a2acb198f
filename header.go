package wsframe

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Wire layout of the first two header bytes (RFC 6455 section 5.2).
const (
	finBit     = 0x80
	rsv1Bit    = 0x40
	rsv2Bit    = 0x20
	rsv3Bit    = 0x10
	opCodeBits = 0x0F
	maskBit    = 0x80
	lengthBits = 0x7F

	len16Marker  = 126
	len64Marker  = 127
	maxInlineLen = 125

	minHeaderLen = 2
	maxHeaderLen = 14
)

// FrameHeader is the decoded form of a frame header.
//
// The reserved bits and reserved opcodes are kept as opaque data. MaskKey is
// only meaningful when Masked is set.
type FrameHeader struct {
	Fin    bool
	Rsv1   bool
	Rsv2   bool
	Rsv3   bool
	OpCode OpCode

	Masked  bool
	MaskKey [4]byte
}

// ParseFrameHeader decodes a header from the start of buf.
//
// It returns the header, the declared payload length and the number of bytes
// consumed. If buf does not yet hold the whole header, n is zero and err is
// nil: nothing has been consumed and the caller should retry with more bytes.
//
// A length field using a longer encoding than necessary fails with
// ErrMalformedHeader. A 64-bit length that does not fit in an int fails with
// a *MessageTooLongError.
func ParseFrameHeader(buf []byte) (h FrameHeader, length uint64, n int, err error) {
	if len(buf) < minHeaderLen {
		return FrameHeader{}, 0, 0, nil
	}

	b0, b1 := buf[0], buf[1]
	lenClass := b1 & lengthBits

	need := minHeaderLen
	switch lenClass {
	case len16Marker:
		need += 2
	case len64Marker:
		need += 8
	}
	if b1&maskBit != 0 {
		need += 4
	}
	if len(buf) < need {
		return FrameHeader{}, 0, 0, nil
	}

	h = FrameHeader{
		Fin:    b0&finBit != 0,
		Rsv1:   b0&rsv1Bit != 0,
		Rsv2:   b0&rsv2Bit != 0,
		Rsv3:   b0&rsv3Bit != 0,
		OpCode: OpCode(b0 & opCodeBits),
		Masked: b1&maskBit != 0,
	}

	n = minHeaderLen
	switch lenClass {
	case len16Marker:
		length = uint64(binary.BigEndian.Uint16(buf[n:]))
		n += 2
		if length <= maxInlineLen {
			return FrameHeader{}, 0, 0, errors.Wrapf(ErrMalformedHeader, "length %d in 16-bit field", length)
		}
	case len64Marker:
		length = binary.BigEndian.Uint64(buf[n:])
		n += 8
		if length <= math.MaxUint16 {
			return FrameHeader{}, 0, 0, errors.Wrapf(ErrMalformedHeader, "length %d in 64-bit field", length)
		}
		if length > math.MaxInt {
			return FrameHeader{}, 0, 0, &MessageTooLongError{Size: length, MaxSize: math.MaxInt}
		}
	default:
		length = uint64(lenClass)
	}

	if h.Masked {
		copy(h.MaskKey[:], buf[n:n+4])
		n += 4
	}

	return h, length, n, nil
}

// Len returns the encoded size of the header for a payload of the given
// length: between 2 and 14 bytes.
func (h FrameHeader) Len(length uint64) int {
	n := minHeaderLen
	switch {
	case length <= maxInlineLen:
	case length <= math.MaxUint16:
		n += 2
	default:
		n += 8
	}
	if h.Masked {
		n += 4
	}
	return n
}

// AppendFormat appends the encoded header to dst using the shortest length
// encoding for length.
func (h FrameHeader) AppendFormat(dst []byte, length uint64) []byte {
	b0 := byte(h.OpCode) & opCodeBits
	if h.Fin {
		b0 |= finBit
	}
	if h.Rsv1 {
		b0 |= rsv1Bit
	}
	if h.Rsv2 {
		b0 |= rsv2Bit
	}
	if h.Rsv3 {
		b0 |= rsv3Bit
	}

	var b1 byte
	if h.Masked {
		b1 = maskBit
	}

	switch {
	case length <= maxInlineLen:
		dst = append(dst, b0, b1|byte(length))
	case length <= math.MaxUint16:
		dst = append(dst, b0, b1|len16Marker)
		dst = binary.BigEndian.AppendUint16(dst, uint16(length))
	default:
		dst = append(dst, b0, b1|len64Marker)
		dst = binary.BigEndian.AppendUint64(dst, length)
	}

	if h.Masked {
		dst = append(dst, h.MaskKey[:]...)
	}
	return dst
}

// SetRandomMask marks the header as masked with a fresh random key, as
// required for frames sent by a client.
func (h *FrameHeader) SetRandomMask() error {
	if _, err := rand.Read(h.MaskKey[:]); err != nil {
		return errors.Wrap(err, "generate mask key")
	}
	h.Masked = true
	return nil
}

func (h FrameHeader) String() string {
	var rsv byte
	if h.Rsv1 {
		rsv |= 4
	}
	if h.Rsv2 {
		rsv |= 2
	}
	if h.Rsv3 {
		rsv |= 1
	}
	return fmt.Sprintf("fin=%t rsv=%03b opcode=%s masked=%t",
		h.Fin, rsv, h.OpCode, h.Masked)
}
