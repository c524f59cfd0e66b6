package artnet

import "sync/atomic"

// UniverseUpdate is delivered to universe observers once per applied frame,
// after every channel observer ran. Changes lists the changed channels in
// payload order.
type UniverseUpdate struct {
	Universe uint16
	Sequence uint64
	Length   int
	Changes  []ValueChangeEvent
}

// Universe owns 512 channels and applies incoming frames to them.
type Universe struct {
	id        uint16
	channels  [ChannelsPerUniverse]Channel
	seq       atomic.Uint64
	observers observerList[UniverseUpdate]
}

func newUniverse(id uint16) *Universe {
	u := &Universe{id: id}
	for i := range u.channels {
		u.channels[i].universe = id
		u.channels[i].index = uint16(i)
	}
	return u
}

// ID returns the 15-bit Port-Address of the universe.
func (u *Universe) ID() uint16 { return u.id }

// Sequence returns the sequence number the next update will carry.
func (u *Universe) Sequence() uint64 { return u.seq.Load() }

// Channel returns channel i, or nil if i is outside 0-511.
func (u *Universe) Channel(i int) *Channel {
	if i < 0 || i >= ChannelsPerUniverse {
		return nil
	}
	return &u.channels[i]
}

// Value returns the current value of channel i, or 0 if i is out of range.
func (u *Universe) Value(i int) uint8 {
	if c := u.Channel(i); c != nil {
		return c.Value()
	}
	return 0
}

// Values returns a snapshot of all channel values.
func (u *Universe) Values() [ChannelsPerUniverse]byte {
	var out [ChannelsPerUniverse]byte
	for i := range u.channels {
		out[i] = u.channels[i].Value()
	}
	return out
}

// Subscribe registers fn for completed updates. fn runs on the receive loop
// and must not block.
func (u *Universe) Subscribe(fn func(UniverseUpdate)) Subscription {
	return u.observers.subscribe(fn)
}

// ApplyBuffer writes length bytes of payload, starting at start, into
// channels 0..length-1. Channels past length keep their values. Every change
// is tagged with the current sequence number, which is then incremented by
// exactly one whether or not anything changed.
//
// Only the receive loop may call ApplyBuffer.
func (u *Universe) ApplyBuffer(payload []byte, start, length int) {
	if start < 0 {
		start = 0
	}
	if start > len(payload) {
		start = len(payload)
	}
	if length > len(payload)-start {
		length = len(payload) - start
	}
	if length > ChannelsPerUniverse {
		length = ChannelsPerUniverse
	}
	if length < 0 {
		length = 0
	}

	seq := u.seq.Load()
	collect := !u.observers.empty()
	var changes []ValueChangeEvent

	for i, v := range payload[start : start+length] {
		ev, changed := u.channels[i].apply(v, seq)
		if changed && collect {
			changes = append(changes, ev)
		}
	}

	u.seq.Store(seq + 1)

	if collect {
		u.observers.notify(UniverseUpdate{
			Universe: u.id,
			Sequence: seq,
			Length:   length,
			Changes:  changes,
		})
	}
}
