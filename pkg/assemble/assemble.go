// Package assemble converts a control-flow graph (or its flattened
// pseudo-instruction stream) into a concrete binary artifact: an
// offset-resolved byte sequence plus the auxiliary tables the consuming
// runtime expects (locals, constants, names, line numbers, computed
// stack depth).
//
// Operand encodings are variable width: a jump whose resolved offset
// does not fit in one operand unit grows an extension prefix, which
// shifts the byte positions of everything after it. Offset resolution
// is therefore a fixed-point process with an explicit iteration bound.
package assemble

import (
	"slices"

	"github.com/tliron/commonlog"

	"github.com/adamchainz/bytecode/pkg/flowgraph"
	"github.com/adamchainz/bytecode/pkg/isa"
)

var log = commonlog.GetLogger("assemble")

// Assemble converts a finalized graph into a binary artifact. The
// graph is flattened through the unlinker, so block invariants are
// validated first; the computed stack depth comes from a work-list
// traversal of the block graph itself.
func Assemble(g *flowgraph.ControlFlowGraph) (*Artifact, error) {
	depth, err := maxStackDepth(g)
	if err != nil {
		return nil, err
	}
	code, err := g.ToBytecode()
	if err != nil {
		return nil, err
	}
	return assemble(code, depth)
}

// AssembleBytecode converts a pseudo-instruction stream into a binary
// artifact. The stream is linked into a graph once, only to compute the
// stack depth over the block structure; emission works directly on the
// stream's own label positions.
func AssembleBytecode(code *flowgraph.Bytecode) (*Artifact, error) {
	g, err := flowgraph.FromBytecode(code)
	if err != nil {
		return nil, err
	}
	depth, err := maxStackDepth(g)
	if err != nil {
		return nil, err
	}
	return assemble(code, depth)
}

type jumpRef struct {
	idx      int // position in instrs
	label    *flowgraph.Label
	relative bool
	instr    string // for error reporting
}

type assembler struct {
	tgt  *isa.Target
	code *flowgraph.Bytecode

	varnames  []string
	varindex  map[string]int
	names     []string
	nameindex map[string]int
	consts    []any
	constidx  map[any]int
	cellvars  []string
	cellidx   map[string]int
	freevars  []string
	freeidx   map[string]int

	instrs   []*ConcreteInstr
	jumps    []jumpRef
	labelPos map[*flowgraph.Label]int // instruction index the label precedes
}

func assemble(code *flowgraph.Bytecode, stackDepth int) (*Artifact, error) {
	a := &assembler{
		tgt:       code.Target,
		code:      code,
		varindex:  make(map[string]int),
		nameindex: make(map[string]int),
		constidx:  make(map[any]int),
		cellidx:   make(map[string]int),
		freeidx:   make(map[string]int),
		labelPos:  make(map[*flowgraph.Label]int),
	}

	// Declared parameters occupy the leading local slots in declaration
	// order; locally assigned names follow in first-use order.
	for _, name := range code.Argnames {
		a.localIndex(name)
	}
	for _, name := range code.Cellvars {
		a.cellvarIndex(name)
	}
	for _, name := range code.Freevars {
		a.freevarIndex(name)
	}
	if code.Docstring != nil {
		a.constIndex(*code.Docstring)
	}

	if err := a.resolveOperands(); err != nil {
		return nil, err
	}
	if err := a.resolveOffsets(); err != nil {
		return nil, err
	}

	var encoded []byte
	for _, ci := range a.instrs {
		encoded = ci.Encode(a.tgt, encoded)
	}

	return &Artifact{
		Name:           code.Name,
		Filename:       code.Filename,
		Flags:          code.Flags,
		Argcount:       code.Argcount,
		Kwonlyargcount: code.Kwonlyargcount,
		Nlocals:        len(a.varnames),
		Stacksize:      stackDepth,
		FirstLineno:    code.FirstLineno,
		Code:           encoded,
		Consts:         a.consts,
		Names:          a.names,
		Varnames:       a.varnames,
		Freevars:       a.freevars,
		Cellvars:       a.cellvars,
		Docstring:      cloneDocstring(code.Docstring),
		Lnotab:         buildLnotab(a.instrs, code.FirstLineno),
	}, nil
}

func cloneDocstring(d *string) *string {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func (a *assembler) localIndex(name string) int {
	if i, ok := a.varindex[name]; ok {
		return i
	}
	i := len(a.varnames)
	a.varnames = append(a.varnames, name)
	a.varindex[name] = i
	return i
}

func (a *assembler) nameIndex(name string) int {
	if i, ok := a.nameindex[name]; ok {
		return i
	}
	i := len(a.names)
	a.names = append(a.names, name)
	a.nameindex[name] = i
	return i
}

func (a *assembler) constIndex(v any) int {
	key := flowgraph.ConstKey(v)
	if i, ok := a.constidx[key]; ok {
		return i
	}
	i := len(a.consts)
	a.consts = append(a.consts, v)
	a.constidx[key] = i
	return i
}

func (a *assembler) cellvarIndex(name string) int {
	if i, ok := a.cellidx[name]; ok {
		return i
	}
	i := len(a.cellvars)
	a.cellvars = append(a.cellvars, name)
	a.cellidx[name] = i
	return i
}

func (a *assembler) freevarIndex(name string) int {
	if i, ok := a.freeidx[name]; ok {
		return i
	}
	i := len(a.freevars)
	a.freevars = append(a.freevars, name)
	a.freeidx[name] = i
	return i
}

// resolveOperands walks the stream once, recording label positions,
// tracking the current source line, building the auxiliary tables, and
// producing one ConcreteInstr per real instruction. Jump operands are
// left as placeholders for resolveOffsets.
func (a *assembler) resolveOperands() error {
	curline := a.code.FirstLineno
	for _, e := range a.code.Elems {
		switch e := e.(type) {
		case *flowgraph.Label:
			a.labelPos[e] = len(a.instrs)
		case flowgraph.SetLineno:
			curline = int(e)
		case *flowgraph.Instr:
			if e.Lineno() > 0 {
				curline = e.Lineno()
			}
			ci := &ConcreteInstr{Op: e.Spec().Code, Lineno: curline}
			spec := e.Spec()
			switch spec.Operand {
			case isa.OperandNone:
			case isa.OperandInt:
				ci.Arg = uint32(e.Arg().(int))
			case isa.OperandCompare:
				ci.Arg = uint32(e.Arg().(isa.Compare))
			case isa.OperandConst:
				ci.Arg = uint32(a.constIndex(e.Arg()))
			case isa.OperandLocal:
				ci.Arg = uint32(a.localIndex(e.Arg().(string)))
			case isa.OperandName:
				ci.Arg = uint32(a.nameIndex(e.Arg().(string)))
			case isa.OperandFree:
				// cell slots come first, free slots follow them
				switch v := e.Arg().(type) {
				case flowgraph.CellVar:
					ci.Arg = uint32(a.cellvarIndex(string(v)))
				case flowgraph.FreeVar:
					ci.Arg = uint32(len(a.cellvars) + a.freevarIndex(string(v)))
				}
			case isa.OperandJumpRel, isa.OperandJumpAbs:
				l, ok := e.Arg().(*flowgraph.Label)
				if !ok {
					return &UnresolvedJumpError{Instr: e.String()}
				}
				a.jumps = append(a.jumps, jumpRef{
					idx:      len(a.instrs),
					label:    l,
					relative: spec.Operand == isa.OperandJumpRel,
					instr:    e.String(),
				})
			}
			size := a.tgt.SizeFor(uint64(ci.Arg))
			if size == 0 {
				return &WidthOverflowError{Op: spec.Name, Arg: uint64(ci.Arg), Max: a.tgt.MaxArg()}
			}
			ci.Size = size
			a.instrs = append(a.instrs, ci)
		}
	}

	for _, j := range a.jumps {
		if _, ok := a.labelPos[j.label]; !ok {
			return &UnresolvedJumpError{Instr: j.instr}
		}
	}
	return nil
}

// resolveOffsets assigns byte positions and converts jump operands to
// numeric offsets. Widening an operand shifts every later position, so
// the loop reassigns positions until no instruction grows. Widths only
// grow and each is bounded by the target's maximum encoding, which
// bounds the iteration count; exceeding the bound means the widening
// logic is broken and fails hard rather than spinning.
func (a *assembler) resolveOffsets() error {
	maxIter := len(a.instrs)*a.tgt.MaxExtensions() + 1
	pos := make([]int, len(a.instrs)+1)

	for iter := 1; ; iter++ {
		if iter > maxIter {
			return &WidthOverflowError{Op: "offset resolution", Arg: uint64(iter), Max: uint64(maxIter)}
		}
		for i, ci := range a.instrs {
			pos[i+1] = pos[i] + ci.Size
		}

		grew := false
		for _, j := range a.jumps {
			ci := a.instrs[j.idx]
			target := pos[a.labelPos[j.label]]
			var off int
			if j.relative {
				off = target - (pos[j.idx] + ci.Size)
				if off < 0 {
					return &flowgraph.RangeError{What: "relative jump offset", Index: off, Low: 0,
						High: int(a.tgt.MaxArg())}
				}
			} else {
				off = target
			}
			if uint64(off) > a.tgt.MaxArg() {
				return &WidthOverflowError{Op: opName(a.tgt, ci.Op), Arg: uint64(off), Max: a.tgt.MaxArg()}
			}
			ci.Arg = uint32(off)
			if need := a.tgt.SizeFor(uint64(off)); need > ci.Size {
				ci.Size = need
				grew = true
			}
		}
		if !grew {
			log.Debugf("offset resolution converged after %d iteration(s), %d bytes",
				iter, pos[len(a.instrs)])
			return nil
		}
	}
}

func opName(t *isa.Target, code byte) string {
	if spec, ok := t.OpByCode(code); ok {
		return spec.Name
	}
	return "?"
}

// buildLnotab emits the line-number table: (byte delta, line delta)
// pairs from one line change to the next, splitting deltas that do not
// fit in one byte. Consecutive instructions on the same line coalesce
// into a single entry.
func buildLnotab(instrs []*ConcreteInstr, firstLine int) []byte {
	var tab []byte
	lastLine := firstLine
	lastPos := 0
	pos := 0
	for _, ci := range instrs {
		if ci.Lineno > 0 && ci.Lineno != lastLine {
			bdelta := pos - lastPos
			ldelta := ci.Lineno - lastLine
			for bdelta > 255 {
				tab = append(tab, 255, 0)
				bdelta -= 255
			}
			for ldelta > 127 {
				tab = append(tab, byte(bdelta), 127)
				bdelta = 0
				ldelta -= 127
			}
			for ldelta < -128 {
				tab = append(tab, byte(bdelta), 0x80)
				bdelta = 0
				ldelta += 128
			}
			tab = append(tab, byte(bdelta), byte(int8(ldelta)))
			lastPos = pos
			lastLine = ci.Lineno
		}
		pos += ci.Size
	}
	return slices.Clip(tab)
}
