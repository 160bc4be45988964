package graph

/*
BatchCursor is a finite, restartable sequence of fixed-size batches over a
snapshot taken when the cursor was created. Each call to one of the Store's
*Batches constructors starts a fresh pass; later mutations never show up in
an already-issued cursor.
*/
type BatchCursor[T any] struct {
	items  []T
	size   int
	offset int
}

func newBatchCursor[T any](items []T, size int) *BatchCursor[T] {
	if size <= 0 {
		size = 1
	}
	return &BatchCursor[T]{items: items, size: size}
}

// Next returns the next batch. The second return value is false once the
// pass is exhausted.
func (c *BatchCursor[T]) Next() ([]T, bool) {
	if c.offset >= len(c.items) {
		return nil, false
	}
	end := c.offset + c.size
	if end > len(c.items) {
		end = len(c.items)
	}
	batch := c.items[c.offset:end]
	c.offset = end
	return batch, true
}

// ThoughtBatches starts a fresh batched pass over the thought pool in
// ascending id order.
func (s *Store) ThoughtBatches(size int) *BatchCursor[Thought] {
	return newBatchCursor(s.AllThoughts(), size)
}

// BranchBatches starts a fresh batched pass over branches in creation order.
func (s *Store) BranchBatches(size int) *BatchCursor[*Branch] {
	return newBatchCursor(s.GetAllBranches(), size)
}

// EventBatches starts a fresh batched pass over the event log in index order.
func (s *Store) EventBatches(size int) *BatchCursor[Event] {
	return newBatchCursor(s.GetEventsSince(-1), size)
}
