package deferlog

import "testing"

func BenchmarkEmit(b *testing.B) {
	pipe := New(NopSink{})
	defer pipe.Close()
	stmt := MustStmt("a=% b=% c=%", TagInt64, TagChar, TagFloat64)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pipe.Emit(stmt, Int(i), Char('a'), Float64(42.3))
	}
}

func BenchmarkEmitParallel(b *testing.B) {
	pipe := New(NopSink{})
	defer pipe.Close()
	stmt := MustStmt("a=% b=%", TagInt64, TagInt64)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := int64(0)
		for pb.Next() {
			i++
			pipe.Emit(stmt, Int64(i), Int64(-i))
		}
	})
}

func BenchmarkLogSteadyState(b *testing.B) {
	pipe := New(NopSink{})
	defer pipe.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pipe.Log("a=% b=%", Int(i), Bool(i%2 == 0))
	}
}

func BenchmarkEvaluate(b *testing.B) {
	stmt := MustStmt("a=% b=% c=%", TagInt64, TagChar, TagFloat64)
	payload := make([]byte, stmt.EncodedSize())
	encodeArgs(payload, []Arg{Int(1), Char('a'), Float64(42.3)})
	dst := make([]byte, 0, 64)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out, err := stmt.Evaluate(payload, dst[:0])
		if err != nil {
			b.Fatal(err)
		}
		dst = out
	}
}
