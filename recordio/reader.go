package recordio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/carlcook/deferlog"
)

var (
	// ErrBadPreamble reports a stream that does not start with a valid
	// capture preamble.
	ErrBadPreamble = errors.New("recordio: bad capture preamble")

	// ErrUnknownStatement reports a record referencing a statement ID the
	// stream never defined.
	ErrUnknownStatement = errors.New("recordio: record references undefined statement")
)

// Reader iterates a capture stream, reconstructing each record's statement
// from the definitions embedded in the stream.
type Reader struct {
	dec   *cbor.Decoder
	zr    *zstd.Decoder
	owned io.Closer
	stmts map[uint32]*deferlog.Stmt
}

// NewReader starts reading a capture stream from r. The compression mode is
// taken from the preamble; the caller retains ownership of r.
func NewReader(r io.Reader) (*Reader, error) {
	var preamble [preambleLen]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPreamble, err)
	}
	if string(preamble[:4]) != captureMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadPreamble, preamble[:4])
	}
	if preamble[4] != captureVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadPreamble, preamble[4])
	}
	cr := &Reader{stmts: make(map[uint32]*deferlog.Stmt)}
	switch Compression(preamble[5]) {
	case None:
		cr.dec = newDecoder(r)
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		cr.zr = zr
		cr.dec = newDecoder(zr)
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrBadPreamble, preamble[5])
	}
	return cr, nil
}

// OpenFile starts reading the capture file at path. The returned Reader
// owns the file and closes it on Close.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.owned = f
	return r, nil
}

// Next returns the next record's statement and payload. It returns io.EOF
// at the end of the stream. The payload is valid until the following Next
// call.
func (r *Reader) Next() (*deferlog.Stmt, []byte, error) {
	for {
		var e entry
		if err := r.dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil, io.EOF
			}
			return nil, nil, fmt.Errorf("recordio: decoding entry: %w", err)
		}
		switch {
		case e.Def != nil:
			tags := make([]deferlog.TypeTag, len(e.Def.Tags))
			for i, raw := range e.Def.Tags {
				tags[i] = deferlog.TypeTag(raw)
			}
			stmt, err := deferlog.NewStmt(e.Def.Format, tags...)
			if err != nil {
				return nil, nil, fmt.Errorf("recordio: statement %d: %w", e.Def.ID, err)
			}
			r.stmts[e.Def.ID] = stmt
		case e.Rec != nil:
			stmt, ok := r.stmts[e.Rec.Def]
			if !ok {
				return nil, nil, fmt.Errorf("%w: id %d", ErrUnknownStatement, e.Rec.Def)
			}
			if len(e.Rec.Payload) != stmt.EncodedSize() {
				return nil, nil, fmt.Errorf("recordio: statement %d: %w", e.Rec.Def, deferlog.ErrPayloadSize)
			}
			return stmt, e.Rec.Payload, nil
		default:
			return nil, nil, errors.New("recordio: malformed entry")
		}
	}
}

// Render returns the next record rendered to text, appended to dst.
func (r *Reader) Render(dst []byte) ([]byte, error) {
	stmt, payload, err := r.Next()
	if err != nil {
		return dst, err
	}
	return stmt.Evaluate(payload, dst)
}

// Close releases the decoder and closes the file when the Reader owns one.
func (r *Reader) Close() error {
	if r.zr != nil {
		r.zr.Close()
	}
	if r.owned != nil {
		return r.owned.Close()
	}
	return nil
}
