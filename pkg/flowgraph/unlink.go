package flowgraph

// ToBytecode flattens the graph back into a pseudo-instruction stream
// in block order. One fresh label is synthesized per block that some
// jump references, emitted immediately before that block's first
// element, and every jump operand targeting the block is rewritten to
// that shared label. Blocks referenced by nothing get no label. No
// reordering or optimization happens here.
//
// Instructions are copied into the stream; the graph is not mutated.
// The graph is validated first, so unlinked labels or foreign block
// references surface here as StructuralError or LookupError.
func (g *ControlFlowGraph) ToBytecode() (*Bytecode, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	labels := make(map[*BasicBlock]*Label)
	for _, b := range g.blocks {
		for _, e := range b.elems {
			if in, ok := e.(*Instr); ok && in.HasJump() {
				target := in.Arg().(*BasicBlock)
				if _, seen := labels[target]; !seen {
					labels[target] = NewLabel()
				}
			}
		}
	}

	out := NewBytecode(g.Target)
	out.Meta.copyFrom(&g.Meta)
	for _, b := range g.blocks {
		if l, ok := labels[b]; ok {
			out.Append(l)
		}
		for _, e := range b.elems {
			switch e := e.(type) {
			case SetLineno:
				out.Append(e)
			case *Instr:
				c := e.Copy()
				if target, ok := c.Arg().(*BasicBlock); ok {
					if err := c.SetArg(labels[target]); err != nil {
						return nil, err
					}
				}
				out.Append(c)
			}
		}
	}
	return out, nil
}
