package flowgraph

import (
	"github.com/adamchainz/bytecode/pkg/isa"
)

// ControlFlowGraph owns an ordered arena of basic blocks; the first
// block is the entry point. Jump operands inside blocks reference other
// member blocks by pointer, never by ownership, so the arena is the
// single owner and reference cycles between blocks cannot leak.
//
// An identity→position table is maintained on every structural mutation
// so index lookups stay O(1) across inserts, removals, and splits.
type ControlFlowGraph struct {
	Meta
	Target *isa.Target

	// Stacksize is the declared stack-size hint. Assembly recomputes
	// the real maximum.
	Stacksize int

	blocks []*BasicBlock
	index  map[*BasicBlock]int
}

// New returns a graph with one implicit empty entry block.
func New(t *isa.Target) *ControlFlowGraph {
	g := &ControlFlowGraph{
		Meta:   newMeta(),
		Target: t,
		index:  make(map[*BasicBlock]int),
	}
	g.blocks = append(g.blocks, &BasicBlock{})
	g.index[g.blocks[0]] = 0
	return g
}

// Len returns the number of blocks.
func (g *ControlFlowGraph) Len() int {
	return len(g.blocks)
}

// Entry returns the entry block, nil if every block has been deleted.
func (g *ControlFlowGraph) Entry() *BasicBlock {
	if len(g.blocks) == 0 {
		return nil
	}
	return g.blocks[0]
}

// Block returns the block at position i.
func (g *ControlFlowGraph) Block(i int) (*BasicBlock, error) {
	if i < 0 || i >= len(g.blocks) {
		return nil, &RangeError{What: "block index", Index: i, Low: 0, High: len(g.blocks) - 1}
	}
	return g.blocks[i], nil
}

// Blocks returns the blocks in order. The slice is a copy; the blocks
// are the live members.
func (g *ControlFlowGraph) Blocks() []*BasicBlock {
	out := make([]*BasicBlock, len(g.blocks))
	copy(out, g.blocks)
	return out
}

// BlockIndex returns the position of a member block. Membership is an
// identity check: a structurally identical block that is not this
// graph's member fails with a LookupError.
func (g *ControlFlowGraph) BlockIndex(b *BasicBlock) (int, error) {
	i, ok := g.index[b]
	if !ok {
		return 0, &LookupError{What: "block"}
	}
	return i, nil
}

// AddBlock appends a new empty block and returns it.
func (g *ControlFlowGraph) AddBlock() *BasicBlock {
	b := &BasicBlock{}
	g.index[b] = len(g.blocks)
	g.blocks = append(g.blocks, b)
	return b
}

// Delete removes the block at position i. Jump operands elsewhere that
// still reference the removed block are left dangling; repairing them
// is the caller's responsibility.
func (g *ControlFlowGraph) Delete(i int) error {
	if i < 0 || i >= len(g.blocks) {
		return &RangeError{What: "block index", Index: i, Low: 0, High: len(g.blocks) - 1}
	}
	delete(g.index, g.blocks[i])
	g.blocks = append(g.blocks[:i], g.blocks[i+1:]...)
	g.renumber(i)
	return nil
}

// renumber refreshes the identity→position table for blocks at or
// after position from.
func (g *ControlFlowGraph) renumber(from int) {
	for i := from; i < len(g.blocks); i++ {
		g.index[g.blocks[i]] = i
	}
}

// SplitBlock splits a member block at the given element index, moving
// the elements from that index onward into a successor block inserted
// immediately after it, and returns the block that now starts at the
// split point:
//
//   - index 0: no split happens, the original block is returned.
//   - index == Len on the last block: a new empty block is appended and
//     returned.
//   - index == Len on a non-last block: no block is created; the
//     existing next block is returned. Callers must not assume the
//     result is freshly allocated.
//
// Jump operands elsewhere that reference the split block keep pointing
// at it; edges target block identity, not instruction offsets, so no
// inbound edge is retargeted.
func (g *ControlFlowGraph) SplitBlock(b *BasicBlock, index int) (*BasicBlock, error) {
	pos, err := g.BlockIndex(b)
	if err != nil {
		return nil, err
	}
	if index < 0 || index > b.Len() {
		return nil, &RangeError{What: "split index", Index: index, Low: 0, High: b.Len()}
	}
	if index == 0 {
		return b, nil
	}
	if index == b.Len() && pos != len(g.blocks)-1 {
		return g.blocks[pos+1], nil
	}

	next := &BasicBlock{elems: append([]Elem(nil), b.elems[index:]...)}
	b.elems = b.elems[:index]
	g.blocks = append(g.blocks, nil)
	copy(g.blocks[pos+2:], g.blocks[pos+1:])
	g.blocks[pos+1] = next
	g.renumber(pos + 1)
	return next, nil
}

// Validate checks every block's invariants and that every jump operand
// references a member block.
func (g *ControlFlowGraph) Validate() error {
	for _, b := range g.blocks {
		if err := b.check(); err != nil {
			return err
		}
		for _, e := range b.elems {
			in, ok := e.(*Instr)
			if !ok || !in.HasJump() {
				continue
			}
			if target, ok := in.Arg().(*BasicBlock); ok {
				if _, member := g.index[target]; !member {
					return &LookupError{What: "jump target block"}
				}
			}
		}
	}
	return nil
}

// Equal reports structural equality: same metadata, same block count,
// and blockwise equal element sequences where jump operands are
// compared by the position of the block they reference. Internal block
// and label identities never influence the result.
func (g *ControlFlowGraph) Equal(o *ControlFlowGraph) bool {
	if o == nil || !g.Meta.equal(&o.Meta) || len(g.blocks) != len(o.blocks) {
		return false
	}
	resG := func(arg any) (int, bool) {
		b, ok := arg.(*BasicBlock)
		if !ok {
			return 0, false
		}
		i, ok := g.index[b]
		return i, ok
	}
	resO := func(arg any) (int, bool) {
		b, ok := arg.(*BasicBlock)
		if !ok {
			return 0, false
		}
		i, ok := o.index[b]
		return i, ok
	}

	for bi := range g.blocks {
		ge, oe := g.blocks[bi].elems, o.blocks[bi].elems
		if len(ge) != len(oe) {
			return false
		}
		for i := range ge {
			switch a := ge[i].(type) {
			case SetLineno:
				if b, ok := oe[i].(SetLineno); !ok || a != b {
					return false
				}
			case *Instr:
				b, ok := oe[i].(*Instr)
				if !ok || !instrEqual(a, b, resG, resO) {
					return false
				}
			default:
				// labels in a block fail validation; they never
				// compare equal
				return false
			}
		}
	}
	return true
}
