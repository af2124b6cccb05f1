package flowgraph

import "fmt"

// Invariant names a structural rule that a block or graph violated.
type Invariant string

const (
	// InvariantNoLabels: a bare Label may not appear inside a basic block.
	InvariantNoLabels Invariant = "label inside block"

	// InvariantFinalLast: a control-transferring instruction may occupy
	// only the last position of a block.
	InvariantFinalLast Invariant = "control transfer before end of block"

	// InvariantLinkedTargets: a jump operand inside a block must
	// reference a basic block, never an unlinked label.
	InvariantLinkedTargets Invariant = "jump target is an unlinked label"
)

// StructuralError reports a block or graph invariant violated at
// traversal time. Mutation never raises it; only validating reads do.
type StructuralError struct {
	Invariant Invariant
	Pos       int    // element position inside the block, -1 if not positional
	Detail    string // offending element, human readable
}

func (e *StructuralError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("flowgraph: %s at position %d: %s", e.Invariant, e.Pos, e.Detail)
	}
	return fmt.Sprintf("flowgraph: %s: %s", e.Invariant, e.Detail)
}

// RangeError reports an index outside its valid bounds.
type RangeError struct {
	What      string
	Index     int
	Low, High int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("flowgraph: %s %d out of range %d..%d", e.What, e.Index, e.Low, e.High)
}

// LookupError reports a reference to a block or label that is foreign to
// the structure being queried. Membership is checked by identity, not by
// structural equality.
type LookupError struct {
	What string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("flowgraph: %s is foreign to this structure", e.What)
}
