package wsframe

import "encoding/binary"

// ApplyMask XORs buf in place with the 4-byte masking key, as defined by
// RFC 6455 section 5.3. Applying the same key twice restores the original
// bytes, so it is used for both masking and unmasking.
func ApplyMask(buf []byte, key [4]byte) {
	applyMaskOffset(buf, key, 0)
}

// applyMaskOffset masks buf as if it started offset bytes into a payload.
func applyMaskOffset(buf []byte, key [4]byte, offset int) {
	if len(buf) == 0 {
		return
	}

	// Rotate the key so that buf[0] lines up with key[offset%4].
	var k [4]byte
	for i := range k {
		k[i] = key[(offset+i)&3]
	}

	i := 0
	if len(buf) >= 8 {
		k32 := uint64(binary.LittleEndian.Uint32(k[:]))
		k64 := k32 | k32<<32
		for ; i+8 <= len(buf); i += 8 {
			v := binary.LittleEndian.Uint64(buf[i:])
			binary.LittleEndian.PutUint64(buf[i:], v^k64)
		}
	}

	for ; i < len(buf); i++ {
		buf[i] ^= k[i&3]
	}
}
