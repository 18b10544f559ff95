package deferlog

import (
	"bufio"
	"io"
	"os"
	"sync/atomic"
)

// Sink receives one complete rendered text line per record, without a
// trailing newline. The core imposes no further contract; console, file,
// and network shippers all live behind this interface. Sinks are invoked
// from the consumer only, one record at a time, so implementations do not
// need their own locking. A Sink that also implements io.Closer is closed
// by Pipeline.Close.
type Sink interface {
	Write(line []byte) error
}

// NopSink discards every record. Useful for benchmarks and for pipelines
// whose only output is a RecordTap.
type NopSink struct{}

func (NopSink) Write([]byte) error { return nil }

// WriterSink adapts an io.Writer, newline-terminating each record and
// issuing a single Write per line.
type WriterSink struct {
	w   io.Writer
	buf []byte
}

// NewWriterSink wraps w. A nil writer discards.
func NewWriterSink(w io.Writer) *WriterSink {
	if w == nil {
		w = io.Discard
	}
	return &WriterSink{w: w, buf: make([]byte, 0, 256)}
}

func (s *WriterSink) Write(line []byte) error {
	s.buf = append(s.buf[:0], line...)
	s.buf = append(s.buf, '\n')
	_, err := s.w.Write(s.buf)
	return err
}

// SinkFailure describes one failed delivery observed by ObservedSink.
type SinkFailure struct {
	Err    error
	Length int
}

// ObservedSinkStats captures aggregated failure counters for ObservedSink.
type ObservedSinkStats struct {
	Failures uint64
}

// ObservedSink wraps a Sink and records delivery failures so log loss past
// the ring can be observed without changing the pipeline surface.
type ObservedSink struct {
	dst       Sink
	onFailure func(SinkFailure)
	failures  atomic.Uint64
}

// NewObservedSink wraps dst with failure observation hooks.
func NewObservedSink(dst Sink, onFailure func(SinkFailure)) *ObservedSink {
	if dst == nil {
		dst = NopSink{}
	}
	return &ObservedSink{dst: dst, onFailure: onFailure}
}

func (s *ObservedSink) Write(line []byte) error {
	if s == nil || s.dst == nil {
		return nil
	}
	err := s.dst.Write(line)
	if err != nil {
		s.failures.Add(1)
		if s.onFailure != nil {
			s.onFailure(SinkFailure{Err: err, Length: len(line)})
		}
	}
	return err
}

// Stats returns cumulative delivery-failure counters.
func (s *ObservedSink) Stats() ObservedSinkStats {
	if s == nil {
		return ObservedSinkStats{}
	}
	return ObservedSinkStats{Failures: s.failures.Load()}
}

// Close delegates close semantics to the wrapped sink.
func (s *ObservedSink) Close() error {
	if s == nil {
		return nil
	}
	if c, ok := s.dst.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ConsoleSink writes records to a file descriptor. Interactive terminals
// get one unbuffered write per line so output appears immediately; pipes
// and regular files go through a buffer flushed on Flush and Close.
type ConsoleSink struct {
	f   *os.File
	bw  *bufio.Writer
	buf []byte
}

// NewConsoleSink wraps f, detecting whether it is a terminal.
func NewConsoleSink(f *os.File) *ConsoleSink {
	s := &ConsoleSink{f: f, buf: make([]byte, 0, 256)}
	if !isTerminal(f) {
		s.bw = bufio.NewWriterSize(f, 32<<10)
	}
	return s
}

func (s *ConsoleSink) Write(line []byte) error {
	s.buf = append(s.buf[:0], line...)
	s.buf = append(s.buf, '\n')
	if s.bw != nil {
		_, err := s.bw.Write(s.buf)
		return err
	}
	_, err := s.f.Write(s.buf)
	return err
}

// Flush forces buffered output to the underlying file.
func (s *ConsoleSink) Flush() error {
	if s == nil || s.bw == nil {
		return nil
	}
	return s.bw.Flush()
}

// Close flushes and closes the file. Stdout and stderr are flushed but
// never closed.
func (s *ConsoleSink) Close() error {
	if s == nil {
		return nil
	}
	err := s.Flush()
	if s.f == os.Stdout || s.f == os.Stderr {
		return err
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}
