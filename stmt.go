package deferlog

import (
	"errors"
	"fmt"
	"strings"
)

// Placeholder is the marker consumed by one argument in a format string.
// Escaping is not supported: every occurrence is an argument slot.
const Placeholder = '%'

var (
	// ErrArityMismatch reports a format string whose placeholder count does
	// not equal the number of argument tags. Surfaced at construction, never
	// at record time.
	ErrArityMismatch = errors.New("deferlog: placeholder count does not match argument count")

	// ErrInvalidTag reports an unknown type tag in a statement's tag
	// sequence.
	ErrInvalidTag = errors.New("deferlog: invalid type tag")

	// ErrPayloadSize reports a payload whose length disagrees with the
	// statement's encoded size. It indicates a corrupted or foreign payload.
	ErrPayloadSize = errors.New("deferlog: payload length does not match statement")
)

// Stmt binds one logging statement's format string and argument type
// sequence to its rendering logic. A Stmt is immutable after construction
// and safe for concurrent use; it lives for the remainder of the process.
//
// The format string is split once, at construction, into the literal spans
// surrounding each placeholder so that Evaluate never re-scans it.
type Stmt struct {
	format   string
	tags     []TypeTag
	literals []string // len(tags)+1 spans around the placeholders
	size     int      // exact encoded payload size in bytes
}

// NewStmt parses format and binds it to the supplied tag sequence. It fails
// with ErrArityMismatch when the number of '%' markers differs from
// len(tags), and with ErrInvalidTag for an unknown tag. There is no way to
// escape a literal '%'.
func NewStmt(format string, tags ...TypeTag) (*Stmt, error) {
	count := strings.Count(format, string(Placeholder))
	if count != len(tags) {
		return nil, fmt.Errorf("%w: format %q has %d placeholders, got %d tags",
			ErrArityMismatch, format, count, len(tags))
	}
	size := 0
	for _, tag := range tags {
		if !tag.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrInvalidTag, uint8(tag))
		}
		size += tag.Size()
	}
	return &Stmt{
		format:   format,
		tags:     append([]TypeTag(nil), tags...),
		literals: strings.Split(format, string(Placeholder)),
		size:     size,
	}, nil
}

// MustStmt is NewStmt panicking on error. Intended for package-level
// statement variables, where a malformed format is a programming error that
// should fail loudly at startup.
func MustStmt(format string, tags ...TypeTag) *Stmt {
	s, err := NewStmt(format, tags...)
	if err != nil {
		panic(err)
	}
	return s
}

// Format returns the bound format string.
func (s *Stmt) Format() string { return s.format }

// Tags returns a copy of the bound tag sequence.
func (s *Stmt) Tags() []TypeTag {
	return append([]TypeTag(nil), s.tags...)
}

// Arity returns the number of placeholders the statement expects.
func (s *Stmt) Arity() int { return len(s.tags) }

// EncodedSize returns the exact payload size of one record for this
// statement. All supported kinds are fixed width, so the size does not
// depend on argument values.
func (s *Stmt) EncodedSize() int { return s.size }

// matches reports whether the argument list agrees with the bound tag
// sequence. Cheap enough for the hot path: one compare per argument.
func (s *Stmt) matches(args []Arg) bool {
	if len(args) != len(s.tags) {
		return false
	}
	for i, a := range args {
		if a.tag != s.tags[i] {
			return false
		}
	}
	return true
}

// Evaluate decodes payload against the statement's tag sequence and appends
// the rendered text to dst, returning the extended slice. It is a pure
// function of (s, payload): it never mutates the payload and two calls with
// the same payload append identical bytes.
func (s *Stmt) Evaluate(payload []byte, dst []byte) ([]byte, error) {
	if len(payload) != s.size {
		return dst, fmt.Errorf("%w: got %d bytes, want %d", ErrPayloadSize, len(payload), s.size)
	}
	for i, tag := range s.tags {
		dst = append(dst, s.literals[i]...)
		var bits uint64
		bits, payload = decodeBits(payload, tag.Size())
		dst = appendValue(dst, tag, bits)
	}
	return append(dst, s.literals[len(s.tags)]...), nil
}
