package recordlog

import (
	"errors"
)

const (
	// DefaultCapacity is the number of records retained when no capacity is configured
	DefaultCapacity = 10
)

var (
	// ErrNotFound is returned by Resolve if the offset lies beyond the retained content
	ErrNotFound = errors.New("recordlog: offset not found")
	// ErrOutOfRange is returned by Seek if the record index or the byte offset is not retained
	ErrOutOfRange = errors.New("recordlog: record index or byte offset out of range")
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Handle identifies one committed record.
// Seq is the logical insertion order (0 for the first record ever appended),
// Slot is the position of the record inside the ring.
type Handle struct {
	Seq  uint64
	Slot int
}

// slot is one entry of the ring. Occupancy is tracked explicitly so an
// empty slot is never confused with a zero length record.
type slot struct {
	data     []byte
	seq      uint64
	occupied bool
}

// --------------------------------------------------------------------------
// Record Log
// --------------------------------------------------------------------------

// Log is a fixed capacity ring of variable length records. When the ring is
// full the oldest record is evicted by the next append.
//
// Thread-safety: Log is NOT safe for concurrent use. Every call, and every
// compound operation such as append-then-read, must run while the caller holds
// the lock guarding the log.
type Log struct {
	slots     []slot
	in        int    // insert cursor
	out       int    // evict cursor (oldest retained record)
	full      bool   // distinguishes in == out because full from in == out because empty
	next      uint64 // sequence number of the next appended record
	evictions uint64
	total     uint64 // cached sum of the retained record lengths
	stats     *Stats
}

// New creates an empty log retaining at most capacity records.
// A capacity <= 0 falls back to DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		slots: make([]slot, capacity),
		stats: newStats(),
	}
}

// Append stores p as a new record and returns its handle. If the log was
// full, the oldest record is evicted first and evicted is true.
//
// The log takes ownership of p, the caller must not modify it afterwards.
// Slots are preallocated, so Append never allocates and never fails.
func (l *Log) Append(p []byte) (h Handle, evicted bool) {
	capacity := len(l.slots)

	if l.full {
		oldest := &l.slots[l.out]
		l.total -= uint64(len(oldest.data))
		*oldest = slot{}
		l.out = (l.out + 1) % capacity
		l.evictions++
		evicted = true
	}

	l.slots[l.in] = slot{data: p, seq: l.next, occupied: true}
	h = Handle{Seq: l.next, Slot: l.in}

	l.next++
	l.total += uint64(len(p))
	l.in = (l.in + 1) % capacity
	l.full = l.in == l.out

	l.stats.observe(len(p))
	return h, evicted
}

// Resolve maps a global offset into the concatenation of all retained records
// (oldest first) to the record containing it and the offset inside that record.
// ErrNotFound is returned if offset >= TotalLength().
func (l *Log) Resolve(offset uint64) (Handle, uint64, error) {
	if offset >= l.total {
		return Handle{}, 0, ErrNotFound
	}

	capacity := len(l.slots)
	for i := 0; i < l.Len(); i++ {
		idx := (l.out + i) % capacity
		size := uint64(len(l.slots[idx].data))
		if offset < size {
			return Handle{Seq: l.slots[idx].seq, Slot: idx}, offset, nil
		}
		offset -= size
	}

	// unreachable as long as total is consistent with the slots
	return Handle{}, 0, ErrNotFound
}

// Seek computes the absolute offset of byte byteOffset inside the retained
// record with index recordIndex (0 = oldest retained record).
// ErrOutOfRange is returned if either value is not retained; the log is never mutated.
func (l *Log) Seek(recordIndex, byteOffset uint64) (uint64, error) {
	if recordIndex >= uint64(l.Len()) {
		return 0, ErrOutOfRange
	}

	capacity := len(l.slots)
	var abs uint64
	for i := 0; i < int(recordIndex); i++ {
		abs += uint64(len(l.slots[(l.out+i)%capacity].data))
	}

	target := l.slots[(l.out+int(recordIndex))%capacity]
	if byteOffset >= uint64(len(target.data)) {
		return 0, ErrOutOfRange
	}

	return abs + byteOffset, nil
}

// TotalLength returns the sum of the lengths of all retained records.
func (l *Log) TotalLength() uint64 {
	return l.total
}

// Len returns the number of retained records.
func (l *Log) Len() int {
	if l.full {
		return len(l.slots)
	}
	return (l.in - l.out + len(l.slots)) % len(l.slots)
}

// Capacity returns the maximum number of retained records.
func (l *Log) Capacity() int {
	return len(l.slots)
}

// Appended returns the number of records appended since creation (or the last Reset).
func (l *Log) Appended() uint64 {
	return l.next
}

// Evictions returns the number of records evicted since creation (or the last Reset).
func (l *Log) Evictions() uint64 {
	return l.evictions
}

// Record returns the payload of the record identified by h.
// The boolean is false if the record has been evicted in the meantime.
// The returned slice must not be modified.
func (l *Log) Record(h Handle) ([]byte, bool) {
	if h.Slot < 0 || h.Slot >= len(l.slots) {
		return nil, false
	}
	s := l.slots[h.Slot]
	if !s.occupied || s.seq != h.Seq {
		return nil, false
	}
	return s.data, true
}

// Each calls fn for every retained record from oldest to newest until fn returns false.
// The passed slices must not be modified.
func (l *Log) Each(fn func(index int, data []byte) bool) {
	capacity := len(l.slots)
	for i := 0; i < l.Len(); i++ {
		if !fn(i, l.slots[(l.out+i)%capacity].data) {
			return
		}
	}
}

// Stats returns the record size statistics of the log.
func (l *Log) Stats() *Stats {
	return l.stats
}

// Reset releases all retained records and resets the cursors and counters.
func (l *Log) Reset() {
	for i := range l.slots {
		l.slots[i] = slot{}
	}
	l.in, l.out, l.full = 0, 0, false
	l.next, l.evictions, l.total = 0, 0, 0
	l.stats.clear()
}
