// Package bin converts the 32-bit words of the Wayland wire format to
// and from bytes. The wire format uses the host's byte order, so no
// conversion is done beyond reinterpreting memory.
package bin

import (
	"io"
	"unsafe"
)

// Bytes returns the in-memory representation of v.
func Bytes[T ~int32 | ~uint32](v T) [4]byte {
	return *(*[4]byte)(unsafe.Pointer(&v))
}

// Value is the inverse of Bytes.
func Value[T ~int32 | ~uint32](data [4]byte) T {
	return *(*T)(unsafe.Pointer(&data))
}

// Read reads a single word from r.
func Read[T ~int32 | ~uint32](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return Value[T](data), nil
}

// Write writes a single word to w.
func Write[T ~int32 | ~uint32](w io.Writer, v T) error {
	data := Bytes(v)
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}

// SizeOp packs the second word of a message header: the total message
// size in the upper half and the opcode in the lower half.
func SizeOp(size, op uint16) uint32 {
	return uint32(size)<<16 | uint32(op)
}

// SplitSizeOp is the inverse of SizeOp.
func SplitSizeOp(v uint32) (size, op uint16) {
	return uint16(v >> 16), uint16(v & 0xFFFF)
}
