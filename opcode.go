package wsframe

import "fmt"

// OpCode classifies a frame (RFC 6455 section 5.2).
//
// Values 0x3-0x7 and 0xB-0xF are reserved. The codec carries them through
// untouched; deciding whether they are acceptable is up to the layer above.
type OpCode byte

const (
	OpContinue OpCode = 0x0
	OpText     OpCode = 0x1
	OpBinary   OpCode = 0x2
	OpClose    OpCode = 0x8
	OpPing     OpCode = 0x9
	OpPong     OpCode = 0xA
)

// IsControl reports whether the opcode is in the control range (0x8-0xF).
func (o OpCode) IsControl() bool {
	return o&0x08 != 0
}

// IsData reports whether the opcode is in the data range (0x0-0x7).
func (o OpCode) IsData() bool {
	return !o.IsControl()
}

// IsReserved reports whether the opcode has no meaning assigned by RFC 6455.
func (o OpCode) IsReserved() bool {
	switch o {
	case OpContinue, OpText, OpBinary, OpClose, OpPing, OpPong:
		return false
	}
	return true
}

func (o OpCode) String() string {
	switch o {
	case OpContinue:
		return "CONTINUE"
	case OpText:
		return "TEXT"
	case OpBinary:
		return "BINARY"
	case OpClose:
		return "CLOSE"
	case OpPing:
		return "PING"
	case OpPong:
		return "PONG"
	}
	if o.IsControl() {
		return fmt.Sprintf("RESERVED_CONTROL(%#x)", byte(o))
	}
	return fmt.Sprintf("RESERVED_DATA(%#x)", byte(o))
}
