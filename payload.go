package wsframe

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Payload is the body of a frame.
//
// It either owns its bytes (built for an outbound frame) or is a shared
// view into a larger buffer (a frame parsed by the codec, which slices its
// input buffer instead of copying). Both kinds behave the same; slicing a
// Payload never copies.
//
// A Payload is immutable once built. Callers must not modify the slice
// returned by Bytes.
type Payload struct {
	data   []byte
	shared bool
}

// NewPayload returns an owned payload that takes b without copying. The
// caller gives up the right to modify b.
func NewPayload(b []byte) Payload {
	return Payload{data: b}
}

// PayloadCopy returns an owned payload holding a copy of b.
func PayloadCopy(b []byte) Payload {
	return Payload{data: append([]byte(nil), b...)}
}

// SharedPayload returns a zero-copy view of b, typically a region of a
// larger buffer. The capacity is clipped so that appending to Bytes can
// never write into the parent buffer.
func SharedPayload(b []byte) Payload {
	return Payload{data: b[:len(b):len(b)], shared: true}
}

// Bytes returns the payload data.
func (p Payload) Bytes() []byte {
	return p.data
}

// Len returns the number of payload bytes.
func (p Payload) Len() int {
	return len(p.data)
}

// IsShared reports whether the payload is a view into a larger buffer.
func (p Payload) IsShared() bool {
	return p.shared
}

// Slice returns the sub-payload [from, to) without copying. It panics if
// the bounds are out of range, like slicing does.
func (p Payload) Slice(from, to int) Payload {
	return SharedPayload(p.data[from:to])
}

// Clone returns an owned deep copy.
func (p Payload) Clone() Payload {
	return PayloadCopy(p.data)
}

func (p Payload) String() string {
	return string(p.data)
}

// Utf8Payload is a Payload that is known to hold valid UTF-8.
type Utf8Payload struct {
	p Payload
}

// NewUtf8Payload validates p and wraps it. On invalid input it returns an
// error wrapping ErrInvalidUTF8 and no value.
func NewUtf8Payload(p Payload) (Utf8Payload, error) {
	if !utf8.Valid(p.data) {
		return Utf8Payload{}, errors.Wrapf(ErrInvalidUTF8, "at byte %d", firstInvalidUTF8(p.data))
	}
	return Utf8Payload{p: p}, nil
}

// Utf8PayloadFromString builds a payload from s. Go strings may hold
// arbitrary bytes, so s is validated like any other input.
func Utf8PayloadFromString(s string) (Utf8Payload, error) {
	return NewUtf8Payload(NewPayload([]byte(s)))
}

// MustUtf8Payload is like Utf8PayloadFromString but panics on invalid
// input. It is meant for string literals.
func MustUtf8Payload(s string) Utf8Payload {
	u, err := Utf8PayloadFromString(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Payload returns the underlying bytes.
func (u Utf8Payload) Payload() Payload {
	return u.p
}

// Len returns the length in bytes.
func (u Utf8Payload) Len() int {
	return u.p.Len()
}

func (u Utf8Payload) String() string {
	return string(u.p.data)
}

func firstInvalidUTF8(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}
