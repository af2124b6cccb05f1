package flowgraph

import "fmt"

// BasicBlock owns an ordered run of instructions and line markers. At
// most the last element may transfer control, and no label may appear
// inside a block. The mutation API does not enforce this; the
// invariants are checked when the block is read through Elems or
// Instrs, so edits may pass through transient invalid states.
type BasicBlock struct {
	elems []Elem
}

// NewBasicBlock returns an empty block. Blocks that should be part of a
// graph are normally created through ControlFlowGraph.AddBlock or
// SplitBlock instead.
func NewBasicBlock() *BasicBlock {
	return &BasicBlock{}
}

// Append adds one element to the end of the block, unchecked.
func (b *BasicBlock) Append(e Elem) {
	b.elems = append(b.elems, e)
}

// Extend adds elements to the end of the block, unchecked.
func (b *BasicBlock) Extend(es ...Elem) {
	b.elems = append(b.elems, es...)
}

// Len returns the number of elements in the block.
func (b *BasicBlock) Len() int {
	return len(b.elems)
}

// At returns the element at position i, unchecked.
func (b *BasicBlock) At(i int) Elem {
	return b.elems[i]
}

// DeleteFrom removes every element from position i to the end.
func (b *BasicBlock) DeleteFrom(i int) error {
	return b.DeleteRange(i, len(b.elems))
}

// DeleteRange removes the elements in [i, j).
func (b *BasicBlock) DeleteRange(i, j int) error {
	if i < 0 || i > len(b.elems) {
		return &RangeError{What: "delete start", Index: i, Low: 0, High: len(b.elems)}
	}
	if j < i || j > len(b.elems) {
		return &RangeError{What: "delete end", Index: j, Low: i, High: len(b.elems)}
	}
	b.elems = append(b.elems[:i], b.elems[j:]...)
	return nil
}

// Elems returns the block's elements after checking the block
// invariants. The returned slice is a copy.
func (b *BasicBlock) Elems() ([]Elem, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	out := make([]Elem, len(b.elems))
	copy(out, b.elems)
	return out, nil
}

// Instrs returns the block's instructions, skipping line markers, after
// checking the block invariants.
func (b *BasicBlock) Instrs() ([]*Instr, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	var out []*Instr
	for _, e := range b.elems {
		if in, ok := e.(*Instr); ok {
			out = append(out, in)
		}
	}
	return out, nil
}

// JumpTarget returns the block this block's terminating jump references,
// or nil when the block does not end in a linked jump.
func (b *BasicBlock) JumpTarget() *BasicBlock {
	if len(b.elems) == 0 {
		return nil
	}
	in, ok := b.elems[len(b.elems)-1].(*Instr)
	if !ok || !in.HasJump() {
		return nil
	}
	target, _ := in.Arg().(*BasicBlock)
	return target
}

// check enforces the block invariants: no labels, control transfers
// only in last position, jump operands linked to blocks.
func (b *BasicBlock) check() error {
	last := len(b.elems) - 1
	for i, e := range b.elems {
		switch e := e.(type) {
		case *Label:
			return &StructuralError{Invariant: InvariantNoLabels, Pos: i, Detail: "bare label element"}
		case SetLineno:
			// line markers are allowed anywhere
		case *Instr:
			if e.HasJump() {
				if _, ok := e.Arg().(*BasicBlock); !ok {
					return &StructuralError{Invariant: InvariantLinkedTargets, Pos: i, Detail: e.String()}
				}
			}
			if e.endsBlock() && i != last {
				return &StructuralError{Invariant: InvariantFinalLast, Pos: i, Detail: e.String()}
			}
		default:
			return &StructuralError{Invariant: InvariantNoLabels, Pos: i,
				Detail: fmt.Sprintf("unexpected element %T", e)}
		}
	}
	return nil
}
