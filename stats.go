package deferlog

import "sync/atomic"

// Stats is a point-in-time snapshot of a pipeline's diagnostics counters.
// Dropped records are silent at the call site; these counters are the only
// place loss is observable.
type Stats struct {
	// Published counts records successfully reserved and published.
	Published uint64
	// Consumed counts records rendered and forwarded to the sink.
	Consumed uint64
	// DroppedFull counts records dropped because no slot was free (after
	// the bounded wait, in strict mode).
	DroppedFull uint64
	// DroppedOverflow counts records whose encoded size exceeded
	// PayloadCapacity. Nothing is written for these.
	DroppedOverflow uint64
	// DroppedArity counts records refused because the argument list did not
	// match the statement's tag sequence, including records from poisoned
	// Log call sites.
	DroppedArity uint64
	// DescriptorRaces counts concurrent first-use resolutions at a call
	// site. Resolved internally; exactly one statement wins.
	DescriptorRaces uint64
}

type counters struct {
	published       atomic.Uint64
	consumed        atomic.Uint64
	droppedFull     atomic.Uint64
	droppedOverflow atomic.Uint64
	droppedArity    atomic.Uint64
}

func (c *counters) snapshot(races uint64) Stats {
	return Stats{
		Published:       c.published.Load(),
		Consumed:        c.consumed.Load(),
		DroppedFull:     c.droppedFull.Load(),
		DroppedOverflow: c.droppedOverflow.Load(),
		DroppedArity:    c.droppedArity.Load(),
		DescriptorRaces: races,
	}
}
