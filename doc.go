// Package deferlog is a low-overhead logging front end that separates
// recording a log event from rendering it to text. The producer-side hot
// path captures a statement reference plus the raw bytes of its arguments
// into a fixed-capacity ring; a single consumer decodes and formats records
// off the caller's critical path and forwards one text line per record to a
// pluggable sink.
//
// # Design overview
//
//   - Construction-time setup: a Stmt parses its format string once,
//     validates that the placeholder count matches the argument tags, and
//     precomputes the literal spans, so rendering never re-scans and arity
//     errors never reach record time.
//   - Hot path: Emit verifies the argument tags, reserves one ring slot
//     with a single CAS, copies the fixed-width argument bytes, and
//     publishes with a release store. No heap allocation, no formatting,
//     no I/O, no locks.
//   - Backpressure: a full ring drops the record and increments a counter;
//     producers never block. Options.Strict bounds an optional wait before
//     the drop. Dropped records are silent at the call site and observable
//     through Pipeline.Stats.
//   - Deferred rendering: the consumer decodes each payload against its
//     statement's tag sequence and appends text into a reused buffer, so
//     formatting cost is paid off the producer's thread.
//   - Ordering: records appear at the sink in reservation-cursor order,
//     which preserves each producer's program order.
//
// Only trivially-copyable fixed-width argument kinds are supported
// (integers, floats, bool, char); strings and variable-length data are out
// of scope. The placeholder marker '%' cannot be escaped.
//
// # Usage
//
// Statements are typically package-level variables, one per call site:
//
//	var readyStmt = deferlog.MustStmt("listening on port % tls=%",
//		deferlog.TagInt64, deferlog.TagBool)
//
//	pipe := deferlog.New(deferlog.NewConsoleSink(os.Stdout))
//	defer pipe.Close()
//
//	pipe.Emit(readyStmt, deferlog.Int(8080), deferlog.Bool(true))
//
// The Log convenience path binds a statement to the calling source line on
// first use:
//
//	pipe.Log("Hello int=% char=% float=%",
//		deferlog.Int(1), deferlog.Char('a'), deferlog.Float64(42.3))
//
// Close drains every published record before returning, so nothing logged
// before shutdown is lost. The recordio subpackage persists raw records
// together with their statement definitions for later re-rendering.
package deferlog
