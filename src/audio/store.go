package audio

import (
	"math"
	"sync"
	"sync/atomic"
)

// ----- Param Store ----- //

// paramStore hands parameters from the control goroutines to the render
// goroutine. Writers copy, modify and publish a fresh *params; the renderer
// only loads the pointer, so it never blocks and never sees a torn value.
// Published values must not be modified.
type paramStore struct {
	mu      sync.Mutex // serializes writers only
	current atomic.Pointer[params]
}

func newParamStore(initial *params) *paramStore {
	s := &paramStore{}
	p := *initial
	s.current.Store(&p)
	return s
}

func (s *paramStore) snapshot() *params {
	return s.current.Load()
}

func (s *paramStore) update(f func(p *params)) {
	s.tryUpdate(func(p *params) error {
		f(p)
		return nil
	})
}

// tryUpdate publishes the change only when f succeeds.
func (s *paramStore) tryUpdate(f func(p *params) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.current.Load()
	if err := f(&next); err != nil {
		return err
	}
	s.current.Store(&next)
	return nil
}

// ----- Envelope Report ----- //

// envelopeReport carries the envelope state from the renderer back to the
// control side. Phase and level are stored separately and may be one buffer
// apart from each other.
type envelopeReport struct {
	phase atomic.Int32
	level atomic.Uint64
}

func (r *envelopeReport) publish(phase int, level float64) {
	r.phase.Store(int32(phase))
	r.level.Store(math.Float64bits(level))
}

func (r *envelopeReport) load() (int, float64) {
	return int(r.phase.Load()), math.Float64frombits(r.level.Load())
}
