package deferlog

import (
	"encoding/binary"
	"math"
)

// Arg captures one call argument by value: a type tag plus up to 8 bytes of
// raw bits. Arg is trivially copyable and never references the heap, so a
// variadic ...Arg list does not escape on the hot path.
type Arg struct {
	tag  TypeTag
	bits uint64
}

func Int(v int) Arg     { return Int64(int64(v)) }
func Int8(v int8) Arg   { return Arg{tag: TagInt8, bits: uint64(uint8(v))} }
func Int16(v int16) Arg { return Arg{tag: TagInt16, bits: uint64(uint16(v))} }
func Int32(v int32) Arg { return Arg{tag: TagInt32, bits: uint64(uint32(v))} }
func Int64(v int64) Arg { return Arg{tag: TagInt64, bits: uint64(v)} }

func Uint(v uint) Arg     { return Uint64(uint64(v)) }
func Uint8(v uint8) Arg   { return Arg{tag: TagUint8, bits: uint64(v)} }
func Uint16(v uint16) Arg { return Arg{tag: TagUint16, bits: uint64(v)} }
func Uint32(v uint32) Arg { return Arg{tag: TagUint32, bits: uint64(v)} }
func Uint64(v uint64) Arg { return Arg{tag: TagUint64, bits: v} }

func Float32(v float32) Arg { return Arg{tag: TagFloat32, bits: uint64(math.Float32bits(v))} }
func Float64(v float64) Arg { return Arg{tag: TagFloat64, bits: math.Float64bits(v)} }

func Bool(v bool) Arg {
	if v {
		return Arg{tag: TagBool, bits: 1}
	}
	return Arg{tag: TagBool}
}

// Char captures a rune rendered as the character itself.
func Char(r rune) Arg { return Arg{tag: TagChar, bits: uint64(uint32(r))} }

// Tag returns the argument's type tag.
func (a Arg) Tag() TypeTag { return a.tag }

// argsSize is the exact payload size of the argument list.
func argsSize(args []Arg) int {
	size := 0
	for _, a := range args {
		size += a.tag.Size()
	}
	return size
}

// encodeArgs writes the raw little-endian representation of each argument
// into buf in declaration order. buf must hold argsSize(args) bytes; the
// caller has already verified capacity, so encodeArgs never partially writes.
func encodeArgs(buf []byte, args []Arg) {
	off := 0
	for _, a := range args {
		switch a.tag.Size() {
		case 1:
			buf[off] = byte(a.bits)
			off++
		case 2:
			binary.LittleEndian.PutUint16(buf[off:], uint16(a.bits))
			off += 2
		case 4:
			binary.LittleEndian.PutUint32(buf[off:], uint32(a.bits))
			off += 4
		case 8:
			binary.LittleEndian.PutUint64(buf[off:], a.bits)
			off += 8
		}
	}
}

// decodeBits reads one fixed-width value from the front of payload and
// returns the remaining bytes. The caller guarantees payload holds at least
// size bytes.
func decodeBits(payload []byte, size int) (uint64, []byte) {
	switch size {
	case 1:
		return uint64(payload[0]), payload[1:]
	case 2:
		return uint64(binary.LittleEndian.Uint16(payload)), payload[2:]
	case 4:
		return uint64(binary.LittleEndian.Uint32(payload)), payload[4:]
	case 8:
		return binary.LittleEndian.Uint64(payload), payload[8:]
	default:
		return 0, payload
	}
}
