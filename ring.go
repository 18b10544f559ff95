package deferlog

import "sync/atomic"

// PayloadCapacity is the fixed payload size of one ring slot. Encoding that
// would exceed it is refused before any byte is written.
const PayloadCapacity = 128

// slot is one storage unit of the ring. Its lifecycle is expressed through
// seq relative to the slot's reservation cursor pos:
//
//	seq == pos     free, ready for reservation
//	(reserved)     producer owns the slot between CAS and publish
//	seq == pos+1   published, visible to the consumer
//	seq == pos+N   consumed, free for the next lap (N = slot count)
//
// The publish store is the release barrier that makes stmt/payload visible
// to the consumer as a unit; a partial record is never observable.
type slot struct {
	seq     atomic.Uint64
	stmt    *Stmt
	n       uint16
	payload [PayloadCapacity]byte
}

// record is a consumed slot's contents, copied out so the slot can be freed
// before rendering.
type record struct {
	stmt    *Stmt
	n       uint16
	payload [PayloadCapacity]byte
}

// ring is a bounded multi-producer/single-consumer queue over fixed slots.
// Producers contend only on the head cursor CAS; the consumer advances tail
// without synchronization beyond the per-slot sequence loads.
type ring struct {
	slots []slot
	mask  uint64

	head atomic.Uint64 // next reservation cursor, shared by producers
	tail uint64        // next consume cursor, consumer-owned
}

func newRing(capacity int) *ring {
	n := nextPow2(capacity)
	r := &ring{
		slots: make([]slot, n),
		mask:  uint64(n - 1),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}
	return r
}

func nextPow2(v int) int {
	if v < 2 {
		return 2
	}
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

// reserve claims the next slot for exclusive writing. It returns ok=false
// when the ring is full; it never blocks, and a producer losing the CAS
// simply retries against the advanced cursor.
func (r *ring) reserve() (*slot, uint64, bool) {
	for {
		pos := r.head.Load()
		s := &r.slots[pos&r.mask]
		seq := s.seq.Load()
		switch {
		case seq == pos:
			if r.head.CompareAndSwap(pos, pos+1) {
				return s, pos, true
			}
		case seq < pos:
			// The slot one lap behind has not been consumed yet.
			return nil, 0, false
		default:
			// Raced with another producer; reload the cursor.
		}
	}
}

// publish fills the reserved slot and makes it visible to the consumer. The
// caller has verified size <= PayloadCapacity.
func (r *ring) publish(s *slot, pos uint64, stmt *Stmt, args []Arg, size int) {
	encodeArgs(s.payload[:size], args)
	s.stmt = stmt
	s.n = uint16(size)
	s.seq.Store(pos + 1)
}

// consume copies the next published slot into rec and frees it. It returns
// false when the next slot in cursor order is not published yet, which
// keeps consumption in reservation order even while an earlier reservation
// is still being written.
func (r *ring) consume(rec *record) bool {
	pos := r.tail
	s := &r.slots[pos&r.mask]
	if s.seq.Load() != pos+1 {
		return false
	}
	rec.stmt = s.stmt
	rec.n = s.n
	copy(rec.payload[:s.n], s.payload[:s.n])
	s.stmt = nil
	s.seq.Store(pos + uint64(len(r.slots)))
	r.tail = pos + 1
	return true
}
