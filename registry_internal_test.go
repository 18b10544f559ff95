package deferlog

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistryResolveOncePerSite(t *testing.T) {
	var r registry
	args := []Arg{Int(1)}

	first := r.resolve(0x1000, "v=%", args)
	if first.err != nil {
		t.Fatalf("unexpected error: %v", first.err)
	}
	second := r.resolve(0x1000, "v=%", args)
	if first != second {
		t.Fatalf("expected the same entry for the same site")
	}
	if first.stmt != second.stmt {
		t.Fatalf("expected the same statement for the same site")
	}
}

func TestRegistryDistinctSites(t *testing.T) {
	var r registry
	a := r.resolve(0x1000, "a=%", []Arg{Int(1)})
	b := r.resolve(0x2000, "b=%", []Arg{Int(1)})
	if a == b {
		t.Fatalf("distinct sites must not share an entry")
	}
	if a.stmt == b.stmt {
		t.Fatalf("different formats must not share a statement")
	}
}

func TestRegistryInternsByFormatAndTags(t *testing.T) {
	var r registry
	a := r.resolve(0x1000, "v=%", []Arg{Int(1)})
	b := r.resolve(0x2000, "v=%", []Arg{Int(2)})
	if a == b {
		t.Fatalf("distinct sites must have distinct entries")
	}
	if a.stmt != b.stmt {
		t.Fatalf("same (format, tags) pair must share one canonical statement")
	}

	// Same format, different tag sequence: distinct statements.
	c := r.resolve(0x3000, "v=%", []Arg{Bool(true)})
	if c.stmt == a.stmt {
		t.Fatalf("different tag sequences must not share a statement")
	}
}

func TestRegistryPoisonsArityMismatch(t *testing.T) {
	var r registry
	e := r.resolve(0x1000, "a=% b=%", []Arg{Int(1)})
	if e.stmt != nil {
		t.Fatalf("expected no statement for a poisoned site")
	}
	if !errors.Is(e.err, ErrArityMismatch) {
		t.Fatalf("expected ErrArityMismatch, got %v", e.err)
	}
	// The poisoned entry is cached like any other.
	if again := r.resolve(0x1000, "a=% b=%", []Arg{Int(1)}); again != e {
		t.Fatalf("expected the poisoned entry to be reused")
	}
}

func TestRegistryConcurrentFirstUse(t *testing.T) {
	var r registry
	const goroutines = 16

	var start sync.WaitGroup
	start.Add(1)
	entries := make([]*siteEntry, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start.Wait()
			entries[i] = r.resolve(0x4000, "n=%", []Arg{Int(i)})
		}(i)
	}
	start.Done()
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if entries[i] != entries[0] {
			t.Fatalf("racing first-use produced distinct entries")
		}
	}
	if entries[0].stmt == nil {
		t.Fatalf("winner produced no statement")
	}
	if races := r.races.Load(); races > goroutines-1 {
		t.Fatalf("implausible race count %d", races)
	}
}
