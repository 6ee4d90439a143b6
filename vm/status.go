package vm

// Status is the bitmask Eval returns, telling the caller what the
// program did with the current sample (spec.md §4.B "evaluation
// result bits").
type Status uint8

const (
	// Update means the output was assigned and the instance is alive.
	Update Status = 1 << iota
	// MutedUpdate means the output was assigned but the reserved
	// 'muted' variable was set, so the caller must not route it.
	MutedUpdate
	// ReleaseBeforeUpdate means 'alive' was cleared at or before the
	// statement that would have written the output; no output is sent
	// and the instance resets.
	ReleaseBeforeUpdate
	// ReleaseAfterUpdate means the output was written and 'alive' was
	// then cleared; the output is sent and the instance resets after.
	ReleaseAfterUpdate
	// Done accompanies every successful Eval return, a program with no
	// statements included; an Eval that fails returns the zero Status.
	Done
)

func (s Status) Has(bit Status) bool { return s&bit != 0 }
