package recordio

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/carlcook/deferlog"
)

// Compression selects the capture stream's compression mode.
type Compression byte

const (
	None Compression = 0
	Zstd Compression = 1
)

const (
	captureMagic   = "DFLG"
	captureVersion = 1
	preambleLen    = 6
)

// ErrWriterClosed reports a Capture call after Close.
var ErrWriterClosed = errors.New("recordio: writer is closed")

// Writer persists records to a capture stream. It implements
// deferlog.RecordTap, so it can be handed to a pipeline via Options.Tap,
// and it is safe for concurrent use.
//
// Statement definitions are written lazily: the first record referencing a
// statement is preceded by its definition, keyed by a dense ID local to the
// stream.
type Writer struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	zw     *zstd.Encoder
	owned  io.Closer
	ids    map[*deferlog.Stmt]uint32
	next   uint32
	closed bool
}

// NewWriter starts a capture stream on w. The caller retains ownership of w.
func NewWriter(w io.Writer, compression Compression) (*Writer, error) {
	preamble := [preambleLen]byte{'D', 'F', 'L', 'G', captureVersion, byte(compression)}
	if _, err := w.Write(preamble[:]); err != nil {
		return nil, err
	}
	cw := &Writer{ids: make(map[*deferlog.Stmt]uint32)}
	switch compression {
	case None:
		cw.enc = newEncoder(w)
	case Zstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}
		cw.zw = zw
		cw.enc = newEncoder(zw)
	default:
		return nil, errors.New("recordio: unknown compression mode")
	}
	return cw, nil
}

// CreateFile starts a capture stream in a new file at path. The returned
// Writer owns the file and closes it on Close.
func CreateFile(path string, compression Compression) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, compression)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.owned = f
	return w, nil
}

// Capture appends one record, writing the statement's definition first when
// the stream has not seen it yet.
func (w *Writer) Capture(stmt *deferlog.Stmt, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	id, ok := w.ids[stmt]
	if !ok {
		id = w.next
		w.next++
		tags := stmt.Tags()
		raw := make([]uint8, len(tags))
		for i, tag := range tags {
			raw[i] = uint8(tag)
		}
		def := entry{Def: &statementDef{ID: id, Format: stmt.Format(), Tags: raw}}
		if err := w.enc.Encode(def); err != nil {
			return err
		}
		w.ids[stmt] = id
	}

	return w.enc.Encode(entry{Rec: &recordEntry{Def: id, Payload: payload}})
}

// Close flushes the stream and closes the file when the Writer owns one.
// It is safe to call Close multiple times.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	if w.zw != nil {
		err = w.zw.Close()
	}
	if w.owned != nil {
		if cerr := w.owned.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
