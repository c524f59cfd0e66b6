package artnet

import "sync/atomic"

// Stats is a snapshot of the receive counters.
type Stats struct {
	Received uint64 // datagrams read from the socket
	Applied  uint64 // ArtDmx frames applied to a universe
	Dropped  uint64 // malformed or unknown frames
	Ignored  uint64 // valid but unhandled opcodes, disallowed universes, filtered senders
}

type counters struct {
	received atomic.Uint64
	applied  atomic.Uint64
	dropped  atomic.Uint64
	ignored  atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Received: c.received.Load(),
		Applied:  c.applied.Load(),
		Dropped:  c.dropped.Load(),
		Ignored:  c.ignored.Load(),
	}
}
