package engine

// Loader provides indexed access to the batches of one pass over a
// dataset. Dataset construction and shuffling are out of scope; engines
// only need the epoch length and the i-th batch.
type Loader interface {
	// Len is the number of batches per epoch.
	Len() int
	// Batch returns the i-th batch, 0 <= i < Len().
	Batch(i int) Batch
}

// SliceLoader is a Loader backed by a fixed slice of batches.
type SliceLoader []Batch

// Len implements Loader.
func (l SliceLoader) Len() int { return len(l) }

// Batch implements Loader.
func (l SliceLoader) Batch(i int) Batch { return l[i] }
