package param

import (
	"math"
	"sync/atomic"
)

const (
	dirty uint32 = 1 << iota
	mustNotify
	changed
)

// Slot stores a parameter value that is written by the render goroutine
// and read lock-free from any goroutine.
type Slot struct {
	Info  *Info
	value atomic.Uint64
	flags atomic.Uint32
}

// NewSlot returns a slot for info holding the constrained value v.
// A new slot is always dirty.
func NewSlot(info *Info, v float64) *Slot {
	s := &Slot{Info: info}
	s.value.Store(math.Float64bits(info.Constrain(v)))
	s.flags.Store(dirty)
	return s
}

// Load returns the current value.
func (s *Slot) Load() float64 {
	return math.Float64frombits(s.value.Load())
}

// Store constrains and assigns v. It returns true if the value changed,
// listeners are observing and no earlier change is still pending.
func (s *Slot) Store(v float64) bool {
	v = s.Info.Constrain(v)
	old := s.value.Swap(math.Float64bits(v))
	if old == math.Float64bits(v) {
		return false
	}
	if s.flags.Load()&mustNotify == 0 {
		s.flags.Or(dirty)
		return false
	}
	return s.flags.Or(dirty|changed)&changed == 0
}

// Dirty reports whether the value changed since the last ClearDirty.
func (s *Slot) Dirty() bool {
	return s.flags.Load()&dirty != 0
}

// ClearDirty resets the dirty flag and returns its previous state.
func (s *Slot) ClearDirty() bool {
	return s.flags.And(^dirty)&dirty != 0
}

// MustNotify reports whether changes are observed.
func (s *Slot) MustNotify() bool {
	return s.flags.Load()&mustNotify != 0
}

// SetMustNotify switches change notifications on or off.
func (s *Slot) SetMustNotify(on bool) {
	if on {
		s.flags.Or(mustNotify)
	} else {
		s.flags.And(^mustNotify)
	}
}

// ClearChanged resets the pending change of an observed value and reports
// whether one was pending.
func (s *Slot) ClearChanged() bool {
	return s.flags.And(^changed)&changed != 0
}
