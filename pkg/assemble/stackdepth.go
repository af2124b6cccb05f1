package assemble

import (
	"github.com/adamchainz/bytecode/pkg/flowgraph"
)

const (
	invariantStackBalance = flowgraph.Invariant("stack underflow")
	invariantStackGrowth  = flowgraph.Invariant("unbounded stack growth")
)

// maxStackDepth computes the maximum abstract stack depth reachable
// along any path from the entry block. Blocks can have multiple
// predecessors, so a work-list fixed point propagates the maximum
// entry depth: a block is re-simulated whenever a predecessor offers a
// deeper entry. On an acyclic path the depth cannot exceed the total
// push count of the graph, so a depth beyond that bound means a cycle
// with net stack gain and the analysis fails rather than diverge.
// Blocks unreachable from the entry contribute nothing.
func maxStackDepth(g *flowgraph.ControlFlowGraph) (int, error) {
	n := g.Len()
	if n == 0 {
		return 0, nil
	}

	totalPush := 0
	for bi := 0; bi < n; bi++ {
		blk, err := g.Block(bi)
		if err != nil {
			return 0, err
		}
		elems, err := blk.Elems()
		if err != nil {
			return 0, err
		}
		for _, e := range elems {
			in, ok := e.(*flowgraph.Instr)
			if !ok {
				continue
			}
			operand := 0
			if v, ok := in.Arg().(int); ok {
				operand = v
			}
			_, push := in.Spec().StackEffect(operand)
			totalPush += push
		}
	}

	depthIn := make([]int, n)
	for i := range depthIn {
		depthIn[i] = -1
	}
	depthIn[0] = 0
	work := []int{0}
	maxDepth := 0

	propagate := func(to, d int) {
		if d > depthIn[to] {
			depthIn[to] = d
			work = append(work, to)
		}
	}

	for len(work) > 0 {
		bi := work[len(work)-1]
		work = work[:len(work)-1]
		d := depthIn[bi]

		blk, err := g.Block(bi)
		if err != nil {
			return 0, err
		}
		elems, err := blk.Elems()
		if err != nil {
			return 0, err
		}

		fallsThrough := true
		for _, e := range elems {
			in, ok := e.(*flowgraph.Instr)
			if !ok {
				continue
			}
			operand := 0
			if v, ok := in.Arg().(int); ok {
				operand = v
			}
			pop, push := in.Spec().StackEffect(operand)
			d -= pop
			if d < 0 {
				return 0, &flowgraph.StructuralError{
					Invariant: invariantStackBalance,
					Pos:       -1,
					Detail:    in.String(),
				}
			}
			d += push
			if d > totalPush {
				return 0, &flowgraph.StructuralError{
					Invariant: invariantStackGrowth,
					Pos:       -1,
					Detail:    in.String(),
				}
			}
			if d > maxDepth {
				maxDepth = d
			}
			if in.HasJump() {
				target := in.Arg().(*flowgraph.BasicBlock)
				ti, err := g.BlockIndex(target)
				if err != nil {
					return 0, err
				}
				propagate(ti, d)
			}
			if in.IsFinal() {
				fallsThrough = false
			}
		}
		if fallsThrough && bi+1 < n {
			propagate(bi+1, d)
		}
	}
	return maxDepth, nil
}
