package artnet

import "sync/atomic"

// ValueChangeEvent is delivered to channel observers when a DMX value changes.
// Sequence is the update sequence number of the owning universe, shared by
// every change produced by the same frame.
type ValueChangeEvent struct {
	Universe uint16
	Channel  uint16
	OldValue uint8
	NewValue uint8
	Sequence uint64
}

// Channel holds one DMX slot of a universe.
type Channel struct {
	universe uint16
	index    uint16
	// state keeps the value in bits 0-7 and the value preceding the last
	// change in bits 8-15, so readers always see a consistent pair.
	state     atomic.Uint32
	observers observerList[ValueChangeEvent]
}

// Index returns the DMX channel number, 0-511.
func (c *Channel) Index() uint16 { return c.index }

// Universe returns the id of the owning universe.
func (c *Channel) Universe() uint16 { return c.universe }

// Value returns the current DMX value.
func (c *Channel) Value() uint8 { return uint8(c.state.Load()) }

// Previous returns the value the channel had before its last change.
func (c *Channel) Previous() uint8 { return uint8(c.state.Load() >> 8) }

// Subscribe registers fn for value changes. fn runs on the receive loop and
// must not block.
func (c *Channel) Subscribe(fn func(ValueChangeEvent)) Subscription {
	return c.observers.subscribe(fn)
}

// set stores v and reports the old value and whether it differed.
// Only the receive loop writes, so load and store need no CAS.
func (c *Channel) set(v uint8) (old uint8, changed bool) {
	s := c.state.Load()
	old = uint8(s)
	if old == v {
		return old, false
	}
	c.state.Store(uint32(old)<<8 | uint32(v))
	return old, true
}

// apply sets v and notifies observers when it changed.
func (c *Channel) apply(v uint8, seq uint64) (ValueChangeEvent, bool) {
	old, changed := c.set(v)
	if !changed {
		return ValueChangeEvent{}, false
	}
	ev := ValueChangeEvent{
		Universe: c.universe,
		Channel:  c.index,
		OldValue: old,
		NewValue: v,
		Sequence: seq,
	}
	c.observers.notify(ev)
	return ev, true
}
