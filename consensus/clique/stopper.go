package clique

import "sync/atomic"

// Stopper is a one-shot cancellation flag shared between a caller and a
// long-running batch verify or seal call (§5). A false→true transition
// is observed at the callee's next suspension point or loop iteration.
// Setting an already-stopped Stopper is a no-op.
type Stopper struct {
	flag uint32
}

// NewStopper returns a fresh, unset Stopper.
func NewStopper() *Stopper { return &Stopper{} }

// Stop requests cancellation, returning true iff this call performed
// the false→true transition (i.e. it "won" the race to stop).
func (s *Stopper) Stop() bool {
	return atomic.CompareAndSwapUint32(&s.flag, 0, 1)
}

// Stopped reports whether cancellation has been requested.
func (s *Stopper) Stopped() bool {
	return atomic.LoadUint32(&s.flag) == 1
}
