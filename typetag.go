package deferlog

import (
	"math"
	"strconv"
	"unicode/utf8"
)

// TypeTag identifies one fixed-width argument kind. The tag sequence bound to
// a Stmt fixes the payload layout: each tag contributes exactly Size bytes at
// a fixed offset, in declaration order.
type TypeTag uint8

const (
	TagInt8 TypeTag = iota
	TagInt16
	TagInt32
	TagInt64
	TagUint8
	TagUint16
	TagUint32
	TagUint64
	TagFloat32
	TagFloat64
	TagBool
	// TagChar is a rune stored as 4 bytes and rendered as the character
	// itself rather than its code point.
	TagChar

	tagCount
)

var tagSizes = [tagCount]int{
	TagInt8:    1,
	TagInt16:   2,
	TagInt32:   4,
	TagInt64:   8,
	TagUint8:   1,
	TagUint16:  2,
	TagUint32:  4,
	TagUint64:  8,
	TagFloat32: 4,
	TagFloat64: 8,
	TagBool:    1,
	TagChar:    4,
}

var tagNames = [tagCount]string{
	TagInt8:    "int8",
	TagInt16:   "int16",
	TagInt32:   "int32",
	TagInt64:   "int64",
	TagUint8:   "uint8",
	TagUint16:  "uint16",
	TagUint32:  "uint32",
	TagUint64:  "uint64",
	TagFloat32: "float32",
	TagFloat64: "float64",
	TagBool:    "bool",
	TagChar:    "char",
}

// Size returns the number of payload bytes the tag occupies, or 0 for an
// unknown tag.
func (t TypeTag) Size() int {
	if !t.Valid() {
		return 0
	}
	return tagSizes[t]
}

// Valid reports whether t is one of the supported tags.
func (t TypeTag) Valid() bool {
	return t < tagCount
}

func (t TypeTag) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return tagNames[t]
}

// appendValue renders the value held in bits (as produced by an Arg
// constructor) in the tag's default textual form.
func appendValue(dst []byte, tag TypeTag, bits uint64) []byte {
	switch tag {
	case TagInt8:
		return strconv.AppendInt(dst, int64(int8(bits)), 10)
	case TagInt16:
		return strconv.AppendInt(dst, int64(int16(bits)), 10)
	case TagInt32:
		return strconv.AppendInt(dst, int64(int32(bits)), 10)
	case TagInt64:
		return strconv.AppendInt(dst, int64(bits), 10)
	case TagUint8:
		return strconv.AppendUint(dst, uint64(uint8(bits)), 10)
	case TagUint16:
		return strconv.AppendUint(dst, uint64(uint16(bits)), 10)
	case TagUint32:
		return strconv.AppendUint(dst, uint64(uint32(bits)), 10)
	case TagUint64:
		return strconv.AppendUint(dst, bits, 10)
	case TagFloat32:
		return strconv.AppendFloat(dst, float64(math.Float32frombits(uint32(bits))), 'g', -1, 32)
	case TagFloat64:
		return strconv.AppendFloat(dst, math.Float64frombits(bits), 'g', -1, 64)
	case TagBool:
		return strconv.AppendBool(dst, bits != 0)
	case TagChar:
		return utf8.AppendRune(dst, rune(int32(bits)))
	default:
		return dst
	}
}
