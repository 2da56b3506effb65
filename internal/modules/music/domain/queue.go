package domain

// Queue is an ordered sequence of items for one guild. The head is the
// currently playing (or about to play) item; finished items are popped
// rather than indexed past.
type Queue struct {
	items []Item
}

// NewQueue creates a new empty Queue.
func NewQueue() Queue {
	return Queue{items: make([]Item, 0)}
}

// IsEmpty returns true if the queue has no items.
func (q *Queue) IsEmpty() bool {
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *Queue) Len() int {
	return len(q.items)
}

// Head returns the item at the front of the queue, or nil if empty.
func (q *Queue) Head() *Item {
	if q.IsEmpty() {
		return nil
	}
	return &q.items[0]
}

// PopHead removes and returns the front item. Popping an empty queue is a
// guarded no-op returning nil.
func (q *Queue) PopHead() *Item {
	if q.IsEmpty() {
		return nil
	}
	head := q.items[0]
	q.items = q.items[1:]
	return &head
}

// Append adds item(s) to the end of the queue.
func (q *Queue) Append(items ...Item) {
	q.items = append(q.items, items...)
}

// Clear removes all items from the queue.
func (q *Queue) Clear() {
	q.items = make([]Item, 0)
}

// Items returns a copy of all items in order.
func (q *Queue) Items() []Item {
	result := make([]Item, len(q.items))
	copy(result, q.items)
	return result
}

// Snapshot returns a deep copy of the queue contents, used to preserve the
// queue across a stop so that resume can restore it.
func (q *Queue) Snapshot() []Item {
	return q.Items()
}

// Restore replaces the queue contents with the given snapshot.
func (q *Queue) Restore(snapshot []Item) {
	q.items = make([]Item, len(snapshot))
	copy(q.items, snapshot)
}
