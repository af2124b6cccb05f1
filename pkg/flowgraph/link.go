package flowgraph

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("flowgraph")

// FromBytecode partitions a pseudo-instruction stream into a
// control-flow graph.
//
// Block boundaries fall at the stream start, at every referenced label,
// and immediately after every control-transferring instruction. A
// terminator followed by more instructions before the next label still
// opens a fresh block, so dead code survives as its own block instead
// of being merged or dropped. Labels that no instruction references
// never become boundaries and are discarded. Line markers stay in
// whichever block they fall into.
//
// The scan runs in two passes: referencing can occur before or after a
// label's position, so the referenced-label set must be complete before
// any block is materialized.
//
// Instructions are copied into the graph; the input stream is not
// mutated. A jump operand referencing a label that never appears in the
// stream fails with a LookupError.
func FromBytecode(code *Bytecode) (*ControlFlowGraph, error) {
	// Pass 1: which labels are actually jump targets.
	referenced := make(map[*Label]bool)
	for _, e := range code.Elems {
		if in, ok := e.(*Instr); ok {
			if l, ok := in.Arg().(*Label); ok {
				referenced[l] = true
			}
		}
	}

	g := New(code.Target)
	g.Meta.copyFrom(&code.Meta)

	// Pass 2: partition and collect the label→block mapping.
	labels := make(map[*Label]*BasicBlock)
	var jumps []*Instr
	block := g.Entry()
	boundary := false // a control transfer was appended; next element opens a block

	for i, e := range code.Elems {
		if l, ok := e.(*Label); ok {
			if !referenced[l] {
				continue
			}
			if i != 0 {
				block = g.AddBlock()
				boundary = false
			}
			labels[l] = block
			continue
		}
		if boundary {
			block = g.AddBlock()
			boundary = false
		}
		switch e := e.(type) {
		case SetLineno:
			block.Append(e)
		case *Instr:
			c := e.Copy()
			if _, ok := c.Arg().(*Label); ok {
				jumps = append(jumps, c)
			}
			block.Append(c)
			if c.endsBlock() {
				boundary = true
			}
		}
	}

	// Rewrite jump operands from labels to the blocks that start there.
	for _, in := range jumps {
		target, ok := labels[in.Arg().(*Label)]
		if !ok {
			return nil, &LookupError{What: "jump target label"}
		}
		if err := in.SetArg(target); err != nil {
			return nil, err
		}
	}

	log.Debugf("linked %d stream elements into %d blocks (%d jump targets)",
		len(code.Elems), g.Len(), len(labels))
	return g, nil
}
