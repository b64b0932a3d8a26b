package featurevector

import (
	"sync"
	"sync/atomic"
)

// Weights owns the decoder's shared weight vector. Readers take an immutable
// snapshot without locking; all writers go through Update, which serializes
// them and publishes a modified copy.
type Weights struct {
	mu      sync.Mutex
	current atomic.Pointer[Vector]
}

func NewWeights(initial *Vector) *Weights {
	if initial == nil {
		initial = NewVector()
	}
	w := &Weights{}
	w.current.Store(initial.Copy())
	return w
}

// Snapshot returns the current vector. Callers must not modify it.
func (w *Weights) Snapshot() *Vector {
	return w.current.Load()
}

// Update applies f to a private copy of the vector and publishes it if f
// succeeds.
func (w *Weights) Update(f func(v *Vector) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := w.current.Load().Copy()
	if err := f(next); err != nil {
		return err
	}
	w.current.Store(next)
	return nil
}

func (w *Weights) SetWeight(identity string, weight float64) error {
	return w.Update(func(v *Vector) error {
		return v.AssignOne(identity, weight)
	})
}

func (w *Weights) SetWeights(identity string, numScores int, weights []float64) error {
	return w.Update(func(v *Vector) error {
		return v.AssignScores(identity, numScores, weights)
	})
}
