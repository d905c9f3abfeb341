package handle

import "sync/atomic"

// CountingPinner counts pins. It is the default Pinner of a Registry and
// stands in for a host that has no unload lock of its own.
type CountingPinner struct {
	n atomic.Int64
}

// Pin increments the pin count.
func (p *CountingPinner) Pin() { p.n.Add(1) }

// Unpin decrements the pin count.
func (p *CountingPinner) Unpin() { p.n.Add(-1) }

// Count returns the current pin count.
func (p *CountingPinner) Count() int64 { return p.n.Load() }

// PinFuncs adapts a pair of host lock/unlock calls to Pinner.
type PinFuncs struct {
	OnPin   func()
	OnUnpin func()
}

// Pin calls OnPin if set.
func (p PinFuncs) Pin() {
	if p.OnPin != nil {
		p.OnPin()
	}
}

// Unpin calls OnUnpin if set.
func (p PinFuncs) Unpin() {
	if p.OnUnpin != nil {
		p.OnUnpin()
	}
}
