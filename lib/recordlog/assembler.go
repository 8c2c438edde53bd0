package recordlog

const (
	// Terminator marks the end of one record
	Terminator byte = '\n'
)

// State is the result of feeding bytes into an Assembler
type State int

const (
	// Pending means the current record is not complete yet
	Pending State = iota
	// Completed means a terminator was seen and a record is ready
	Completed
	// Abandoned means the current record exceeded the size limit and was dropped
	Abandoned
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Completed:
		return "Completed"
	case Abandoned:
		return "Abandoned"
	default:
		return "Unknown"
	}
}

// Assembler accumulates bytes until a terminator completes one record.
//
// Growth policy: with a limit of 0 the accumulator grows without bound.
// With a positive limit, a record that reaches limit bytes without a
// terminator is abandoned: its bytes are released and every following byte
// is discarded up to and including the next terminator. The assembler is then
// ready for the next record, so its owner can keep going.
//
// Thread-safety: an Assembler belongs to a single producer and is not safe for concurrent use.
type Assembler struct {
	buf        []byte
	limit      int
	discarding bool
}

// NewAssembler creates an assembler for records of at most limit bytes
// (terminator included). A limit <= 0 means unlimited.
func NewAssembler(limit int) *Assembler {
	if limit < 0 {
		limit = 0
	}
	return &Assembler{limit: limit}
}

// Feed appends one byte. On Completed the returned record includes the
// terminator and is owned by the caller; the assembler starts a fresh buffer.
func (a *Assembler) Feed(b byte) (State, []byte) {
	if a.discarding {
		if b == Terminator {
			a.discarding = false
		}
		return Pending, nil
	}

	a.buf = append(a.buf, b)

	if b == Terminator {
		record := a.buf
		a.buf = nil
		return Completed, record
	}

	if a.limit > 0 && len(a.buf) >= a.limit {
		a.buf = nil
		a.discarding = true
		return Abandoned, nil
	}

	return Pending, nil
}

// Scan feeds bytes from p until a record completes, a record is abandoned or
// p is exhausted. It returns the number of bytes consumed, so the caller can
// keep the remainder of p for the next record.
func (a *Assembler) Scan(p []byte) (int, State, []byte) {
	for i, b := range p {
		if state, record := a.Feed(b); state != Pending {
			return i + 1, state, record
		}
	}
	return len(p), Pending, nil
}

// Buffered returns the number of bytes held for the record under construction
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

// Reset drops the record under construction
func (a *Assembler) Reset() {
	a.buf = nil
	a.discarding = false
}

// Limit returns the maximum record size (0 = unlimited)
func (a *Assembler) Limit() int {
	return a.limit
}
