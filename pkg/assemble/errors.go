package assemble

import "fmt"

// UnresolvedJumpError reports a jump whose operand was still an
// unlinked label (or not a label at all) when binary assembly began.
// This indicates a linker/unlinker ordering bug in the caller and is
// fatal.
type UnresolvedJumpError struct {
	Instr string
}

func (e *UnresolvedJumpError) Error() string {
	return fmt.Sprintf("assemble: unresolved jump operand in %s", e.Instr)
}

// WidthOverflowError reports an operand that exceeds the maximum
// representable width after full fixed-point widening, or a resolution
// loop that failed to converge within its bound. No retry happens.
type WidthOverflowError struct {
	Op  string
	Arg uint64
	Max uint64
}

func (e *WidthOverflowError) Error() string {
	return fmt.Sprintf("assemble: operand %d of %s exceeds maximum encodable value %d", e.Arg, e.Op, e.Max)
}
