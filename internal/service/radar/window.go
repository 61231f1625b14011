package radar

const defaultWindowCapacity = 240

// Window is a fixed-capacity ring of snapshots for one symbol, oldest entries
// evicted first. Timestamps are strictly increasing. Not safe for concurrent
// use: each window is owned by a single scan loop.
type Window struct {
	data     []Snapshot
	capacity int
	index    int // next write position
	size     int
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = defaultWindowCapacity
	}
	return &Window{
		data:     make([]Snapshot, capacity),
		capacity: capacity,
	}
}

// Push appends s, evicting the oldest sample when full. A snapshot that is not
// strictly newer than the last one is rejected and the window stays unchanged.
func (w *Window) Push(s Snapshot) error {
	if last, ok := w.Last(); ok && !s.Timestamp.After(last.Timestamp) {
		return ErrOutOfOrderSnapshot
	}
	w.data[w.index] = s
	w.index = (w.index + 1) % w.capacity
	if w.size < w.capacity {
		w.size++
	}
	return nil
}

// Last returns the newest snapshot.
func (w *Window) Last() (Snapshot, bool) {
	if w.size == 0 {
		return Snapshot{}, false
	}
	return w.data[(w.index-1+w.capacity)%w.capacity], true
}

// Latest returns up to n of the newest snapshots, oldest first.
func (w *Window) Latest(n int) []Snapshot {
	if w.size == 0 || n <= 0 {
		return []Snapshot{}
	}
	count := n
	if count > w.size {
		count = w.size
	}
	result := make([]Snapshot, count)
	start := (w.index - count + w.capacity) % w.capacity
	for i := 0; i < count; i++ {
		result[i] = w.data[(start+i)%w.capacity]
	}
	return result
}

// All returns every snapshot in insertion order.
func (w *Window) All() []Snapshot {
	return w.Latest(w.size)
}

func (w *Window) Len() int {
	return w.size
}

func (w *Window) Cap() int {
	return w.capacity
}
