package deferlog_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/carlcook/deferlog"
)

func TestWriterSinkNewlineTerminates(t *testing.T) {
	var buf bytes.Buffer
	sink := deferlog.NewWriterSink(&buf)

	if err := sink.Write([]byte("one")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Write([]byte("two")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "one\ntwo\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestWriterSinkNilWriterDiscards(t *testing.T) {
	sink := deferlog.NewWriterSink(nil)
	if err := sink.Write([]byte("dropped")); err != nil {
		t.Fatalf("nil-writer sink should discard, got %v", err)
	}
}

type failingSink struct {
	err error
}

func (s failingSink) Write([]byte) error { return s.err }

func TestObservedSinkCountsFailures(t *testing.T) {
	boom := errors.New("boom")
	var observed []deferlog.SinkFailure
	sink := deferlog.NewObservedSink(failingSink{err: boom}, func(f deferlog.SinkFailure) {
		observed = append(observed, f)
	})

	if err := sink.Write([]byte("lost line")); !errors.Is(err, boom) {
		t.Fatalf("expected the sink error back, got %v", err)
	}
	if stats := sink.Stats(); stats.Failures != 1 {
		t.Fatalf("expected 1 failure, got %d", stats.Failures)
	}
	if len(observed) != 1 || !errors.Is(observed[0].Err, boom) || observed[0].Length != len("lost line") {
		t.Fatalf("unexpected failure detail: %+v", observed)
	}
}

func TestObservedSinkPassThrough(t *testing.T) {
	var buf bytes.Buffer
	sink := deferlog.NewObservedSink(deferlog.NewWriterSink(&buf), nil)

	if err := sink.Write([]byte("ok")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if stats := sink.Stats(); stats.Failures != 0 {
		t.Fatalf("expected no failures, got %d", stats.Failures)
	}
	if got := buf.String(); got != "ok\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestConsoleSinkBuffersNonTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })

	sink := deferlog.NewConsoleSink(w)
	if err := sink.Write([]byte("buffered line")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(data); got != "buffered line\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestConsoleSinkFlush(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})

	sink := deferlog.NewConsoleSink(w)
	if err := sink.Write([]byte("pending")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	buf := make([]byte, 64)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "pending\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestPipelineClosesObservedSink(t *testing.T) {
	var buf bytes.Buffer
	sink := deferlog.NewObservedSink(deferlog.NewWriterSink(&buf), nil)
	pipe := deferlog.New(sink)
	stmt := deferlog.MustStmt("n=%", deferlog.TagInt64)

	pipe.Emit(stmt, deferlog.Int(42))
	if err := pipe.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !strings.Contains(buf.String(), "n=42") {
		t.Fatalf("record lost on close: %q", buf.String())
	}
}
