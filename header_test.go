package wsframe

import (
	"bytes"
	"math"
	"testing"

	"github.com/pkg/errors"
)

func TestParseFrameHeader_Inline(t *testing.T) {
	h, length, n, err := ParseFrameHeader([]byte{0x82, 0x07, 0x01})
	if err != nil {
		t.Fatalf("ParseFrameHeader failed: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	if length != 7 {
		t.Errorf("length = %d, want 7", length)
	}
	if !h.Fin || h.OpCode != OpBinary || h.Masked {
		t.Errorf("unexpected header %s", h)
	}
}

func TestParseFrameHeader_Extended(t *testing.T) {
	tests := []struct {
		name   string
		raw    []byte
		length uint64
		n      int
	}{
		{"16-bit", []byte{0x81, 0x7e, 0x01, 0x00}, 256, 4},
		{"16-bit max", []byte{0x81, 0x7e, 0xff, 0xff}, 65535, 4},
		{"64-bit", []byte{0x82, 0x7f, 0, 0, 0, 0, 0, 0x01, 0x00, 0x00}, 65536, 10},
		{"16-bit masked", []byte{0x82, 0xfe, 0x00, 0x7e, 1, 2, 3, 4}, 126, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, length, n, err := ParseFrameHeader(tt.raw)
			if err != nil {
				t.Fatalf("ParseFrameHeader failed: %v", err)
			}
			if length != tt.length {
				t.Errorf("length = %d, want %d", length, tt.length)
			}
			if n != tt.n {
				t.Errorf("n = %d, want %d", n, tt.n)
			}
		})
	}
}

func TestParseFrameHeader_Masked(t *testing.T) {
	raw := []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f}
	h, length, n, err := ParseFrameHeader(raw)
	if err != nil {
		t.Fatalf("ParseFrameHeader failed: %v", err)
	}
	if !h.Masked {
		t.Fatal("expected masked header")
	}
	if h.MaskKey != [4]byte{0x37, 0xfa, 0x21, 0x3d} {
		t.Errorf("mask key = %x", h.MaskKey)
	}
	if length != 5 || n != 6 {
		t.Errorf("length = %d, n = %d, want 5, 6", length, n)
	}
}

func TestParseFrameHeader_Incomplete(t *testing.T) {
	full := []byte{0x82, 0xff, 0, 0, 0, 0, 0, 0x01, 0x00, 0x00, 0xaa, 0xbb, 0xcc, 0xdd}
	for i := 0; i < len(full); i++ {
		_, _, n, err := ParseFrameHeader(full[:i])
		if err != nil {
			t.Fatalf("prefix %d: unexpected error %v", i, err)
		}
		if n != 0 {
			t.Fatalf("prefix %d: consumed %d bytes of an incomplete header", i, n)
		}
	}

	_, length, n, err := ParseFrameHeader(full)
	if err != nil {
		t.Fatalf("ParseFrameHeader failed: %v", err)
	}
	if n != maxHeaderLen || length != 65536 {
		t.Errorf("n = %d, length = %d", n, length)
	}
}

func TestParseFrameHeader_NonMinimalLength(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"16-bit carrying 125", []byte{0x82, 0x7e, 0x00, 0x7d}},
		{"16-bit carrying 0", []byte{0x82, 0x7e, 0x00, 0x00}},
		{"64-bit carrying 65535", []byte{0x82, 0x7f, 0, 0, 0, 0, 0, 0, 0xff, 0xff}},
		{"64-bit carrying 5", []byte{0x82, 0x7f, 0, 0, 0, 0, 0, 0, 0, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, n, err := ParseFrameHeader(tt.raw)
			if !errors.Is(err, ErrMalformedHeader) {
				t.Fatalf("expected ErrMalformedHeader, got %v", err)
			}
			if errors.Is(err, ErrMessageTooLarge) {
				t.Error("malformed header must not be reported as a capacity error")
			}
			if n != 0 {
				t.Errorf("n = %d, want 0", n)
			}
		})
	}
}

func TestParseFrameHeader_LengthOverflow(t *testing.T) {
	raw := []byte{0x83, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0}

	_, _, _, err := ParseFrameHeader(raw)

	var tooLong *MessageTooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("expected *MessageTooLongError, got %v", err)
	}
	if tooLong.Size != math.MaxUint64 {
		t.Errorf("Size = %d, want %d", tooLong.Size, uint64(math.MaxUint64))
	}
	if tooLong.MaxSize != math.MaxInt {
		t.Errorf("MaxSize = %d, want %d", tooLong.MaxSize, math.MaxInt)
	}
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Error("expected errors.Is(err, ErrMessageTooLarge)")
	}
}

func TestParseFrameHeader_ReservedBitsPreserved(t *testing.T) {
	h, length, _, err := ParseFrameHeader([]byte{0xf3, 0x00})
	if err != nil {
		t.Fatalf("ParseFrameHeader failed: %v", err)
	}
	if !h.Fin || !h.Rsv1 || !h.Rsv2 || !h.Rsv3 {
		t.Errorf("flags lost: %s", h)
	}
	if h.OpCode != OpCode(0x3) {
		t.Errorf("opcode = %s, want reserved 0x3", h.OpCode)
	}
	if length != 0 {
		t.Errorf("length = %d, want 0", length)
	}

	if got := h.AppendFormat(nil, 0); !bytes.Equal(got, []byte{0xf3, 0x00}) {
		t.Errorf("AppendFormat = %x, want f300", got)
	}
}

func TestFrameHeader_FormatMinimalLength(t *testing.T) {
	tests := []struct {
		length uint64
		masked bool
		want   int
	}{
		{0, false, 2},
		{125, false, 2},
		{126, false, 4},
		{65535, false, 4},
		{65536, false, 10},
		{math.MaxInt, false, 10},
		{0, true, 6},
		{126, true, 8},
		{65536, true, 14},
	}

	for _, tt := range tests {
		h := FrameHeader{Fin: true, OpCode: OpBinary, Masked: tt.masked}
		if tt.masked {
			h.MaskKey = [4]byte{9, 8, 7, 6}
		}
		buf := h.AppendFormat(nil, tt.length)

		if len(buf) != tt.want {
			t.Errorf("length %d masked %t: encoded %d bytes, want %d", tt.length, tt.masked, len(buf), tt.want)
		}
		if h.Len(tt.length) != len(buf) {
			t.Errorf("length %d: Len() = %d, encoded %d", tt.length, h.Len(tt.length), len(buf))
		}

		parsed, length, n, err := ParseFrameHeader(buf)
		if err != nil {
			t.Fatalf("length %d: reparse failed: %v", tt.length, err)
		}
		if n != len(buf) || length != tt.length || parsed != h {
			t.Errorf("length %d: reparse = %s/%d/%d", tt.length, parsed, length, n)
		}
	}
}

func TestFrameHeader_AppendFormat_Appends(t *testing.T) {
	prefix := []byte{0xaa, 0xbb}
	buf := FrameHeader{Fin: true, OpCode: OpPing}.AppendFormat(prefix, 2)
	if !bytes.Equal(buf, []byte{0xaa, 0xbb, 0x89, 0x02}) {
		t.Errorf("buf = %x", buf)
	}
}

func TestFrameHeader_SetRandomMask(t *testing.T) {
	var h FrameHeader
	if err := h.SetRandomMask(); err != nil {
		t.Fatalf("SetRandomMask failed: %v", err)
	}
	if !h.Masked {
		t.Error("expected Masked after SetRandomMask")
	}
}

func TestOpCode(t *testing.T) {
	if !OpPing.IsControl() || OpPing.IsData() {
		t.Error("ping must be a control opcode")
	}
	if OpText.IsControl() || !OpText.IsData() {
		t.Error("text must be a data opcode")
	}
	if OpBinary.IsReserved() || !OpCode(0xb).IsReserved() || !OpCode(0x3).IsReserved() {
		t.Error("reserved classification wrong")
	}
	if OpClose.String() != "CLOSE" {
		t.Errorf("OpClose.String() = %s", OpClose)
	}
	if OpCode(0xb).String() != "RESERVED_CONTROL(0xb)" {
		t.Errorf("OpCode(0xb).String() = %s", OpCode(0xb))
	}
}

func TestFrameHeader_String(t *testing.T) {
	tests := []struct {
		h    FrameHeader
		want string
	}{
		{FrameHeader{Fin: true, OpCode: OpText}, "fin=true rsv=000 opcode=TEXT masked=false"},
		{FrameHeader{Rsv1: true, OpCode: OpBinary, Masked: true}, "fin=false rsv=100 opcode=BINARY masked=true"},
		{FrameHeader{Rsv2: true, Rsv3: true, OpCode: OpPing}, "fin=false rsv=011 opcode=PING masked=false"},
	}
	for _, tt := range tests {
		if got := tt.h.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
