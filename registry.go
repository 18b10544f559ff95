package deferlog

import (
	"sync"
	"sync/atomic"
)

// registry resolves a call site to its statement exactly once. The site
// table is an immutable map swapped atomically, so the hot-path lookup is a
// single load plus a map read with no locking and no boxing of the key.
// Inserts are rare (one per call site for the process lifetime) and are
// serialized under mu, which also resolves first-use races: the loser of a
// race finds the winner's entry and discards its own work.
//
// Statements are additionally interned by (format, tag sequence) so at most
// one canonical Stmt exists per pair, even when distinct call sites use the
// same format.
type registry struct {
	mu    sync.Mutex
	sites atomic.Pointer[map[uintptr]*siteEntry]
	canon sync.Map // string key -> *Stmt
	races atomic.Uint64
}

// siteEntry is the per-call-site resolution result. A site whose format
// failed arity validation is poisoned: err is set, stmt is nil, and every
// subsequent record from that site is dropped and counted.
type siteEntry struct {
	stmt   *Stmt
	err    error
	report atomic.Bool // set once the error has been surfaced
}

func (r *registry) lookup(pc uintptr) (*siteEntry, bool) {
	m := r.sites.Load()
	if m == nil {
		return nil, false
	}
	e, ok := (*m)[pc]
	return e, ok
}

// resolve returns the site's entry, constructing and publishing it on first
// use. Construction is serialized; concurrent first-use from another
// goroutine is detected and counted, and exactly one entry wins.
func (r *registry) resolve(pc uintptr, format string, args []Arg) *siteEntry {
	if e, ok := r.lookup(pc); ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have published the site while we waited.
	if e, ok := r.lookup(pc); ok {
		r.races.Add(1)
		return e
	}

	entry := &siteEntry{}
	stmt, err := NewStmt(format, tagsOf(args)...)
	if err != nil {
		entry.err = err
	} else {
		entry.stmt = r.intern(stmt)
	}

	old := r.sites.Load()
	next := make(map[uintptr]*siteEntry, mapLen(old)+1)
	if old != nil {
		for k, v := range *old {
			next[k] = v
		}
	}
	next[pc] = entry
	r.sites.Store(&next)
	return entry
}

// intern canonicalizes stmt by its (format, tags) pair.
func (r *registry) intern(stmt *Stmt) *Stmt {
	key := internKey(stmt)
	if canonical, loaded := r.canon.LoadOrStore(key, stmt); loaded {
		return canonical.(*Stmt)
	}
	return stmt
}

func internKey(stmt *Stmt) string {
	tags := make([]byte, len(stmt.tags))
	for i, tag := range stmt.tags {
		tags[i] = byte(tag)
	}
	return stmt.format + "\x00" + string(tags)
}

func tagsOf(args []Arg) []TypeTag {
	tags := make([]TypeTag, len(args))
	for i, a := range args {
		tags[i] = a.tag
	}
	return tags
}

func mapLen(m *map[uintptr]*siteEntry) int {
	if m == nil {
		return 0
	}
	return len(*m)
}
