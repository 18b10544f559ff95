// Package recordio persists deferlog records in their binary form for later
// re-rendering. A payload is only interpretable together with its statement,
// so the stream carries each statement's definition (format string and tag
// sequence) before the first record that references it, and versions the
// format in a fixed preamble.
//
// The stream is a 6-byte preamble (magic, version, compression) followed by
// a CBOR sequence of entries, each either a statement definition or a
// record. Compression, when enabled, is zstd over everything after the
// preamble, so a reader can sniff the preamble without decompressing.
//
//	w, _ := recordio.CreateFile("app.dlog", recordio.Zstd)
//	pipe := deferlog.NewWithOptions(sink, deferlog.Options{Tap: w})
//	...
//	pipe.Close() // closes the tap, flushing the capture
//
// Replaying:
//
//	r, _ := recordio.OpenFile("app.dlog")
//	for {
//		stmt, payload, err := r.Next()
//		if err == io.EOF {
//			break
//		}
//		line, _ := stmt.Evaluate(payload, nil)
//		...
//	}
package recordio
