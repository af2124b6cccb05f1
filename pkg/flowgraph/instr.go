package flowgraph

import (
	"fmt"

	"github.com/adamchainz/bytecode/pkg/isa"
)

// Elem is one element of a pseudo-instruction stream: an *Instr, a
// *Label, or a SetLineno marker.
type Elem interface {
	elem()
}

// Label marks a position in an instruction stream before block structure
// exists. Labels carry no payload and compare by identity; the linker
// consumes them and the unlinker allocates fresh ones.
type Label struct {
	_ byte // non-zero size so every allocation is a distinct identity
}

// NewLabel allocates a fresh label.
func NewLabel() *Label { return new(Label) }

func (*Label) elem() {}

// SetLineno is a line-number marker. It emits no code; it changes the
// source line applied to subsequent instructions that carry none of
// their own.
type SetLineno int

func (SetLineno) elem() {}

// CellVar names a variable held in a cell for capture by inner scopes.
type CellVar string

// FreeVar names a variable captured from an enclosing scope.
type FreeVar string

// Instr is one abstract instruction: an operation token, an optional
// operand, and an optional source line (0 means unset). The operand of a
// jump instruction is a *Label before linking and a *BasicBlock after.
type Instr struct {
	target *isa.Target
	spec   *isa.OpSpec
	arg    any
	lineno int
}

func (*Instr) elem() {}

// NewInstr builds an instruction, validating the operation name against
// the target and the operand against the operation's operand kind.
func NewInstr(t *isa.Target, name string, arg any) (*Instr, error) {
	spec, ok := t.Op(name)
	if !ok {
		return nil, fmt.Errorf("flowgraph: target %s has no operation %q", t.Name(), name)
	}
	if err := checkArg(spec, arg); err != nil {
		return nil, err
	}
	return &Instr{target: t, spec: spec, arg: arg}, nil
}

// MustInstr is NewInstr that panics on error, for statically known
// instructions.
func MustInstr(t *isa.Target, name string, arg any) *Instr {
	in, err := NewInstr(t, name, arg)
	if err != nil {
		panic(err)
	}
	return in
}

// Name returns the operation mnemonic.
func (in *Instr) Name() string { return in.spec.Name }

// Spec returns the target's description of the operation.
func (in *Instr) Spec() *isa.OpSpec { return in.spec }

// Arg returns the operand, nil for operations without one.
func (in *Instr) Arg() any { return in.arg }

// Lineno returns the source line, 0 if unset.
func (in *Instr) Lineno() int { return in.lineno }

// Set replaces the operation and operand in place, keeping the line.
func (in *Instr) Set(name string, arg any) error {
	spec, ok := in.target.Op(name)
	if !ok {
		return fmt.Errorf("flowgraph: target %s has no operation %q", in.target.Name(), name)
	}
	if err := checkArg(spec, arg); err != nil {
		return err
	}
	in.spec = spec
	in.arg = arg
	return nil
}

// SetArg replaces the operand in place.
func (in *Instr) SetArg(arg any) error {
	if err := checkArg(in.spec, arg); err != nil {
		return err
	}
	in.arg = arg
	return nil
}

// SetLine sets the source line. Lines are 1-based.
func (in *Instr) SetLine(n int) error {
	if n < 1 {
		return fmt.Errorf("flowgraph: invalid line number %d", n)
	}
	in.lineno = n
	return nil
}

// WithLine sets the source line and returns the instruction, for
// fluent construction. Panics on an invalid line.
func (in *Instr) WithLine(n int) *Instr {
	if err := in.SetLine(n); err != nil {
		panic(err)
	}
	return in
}

// Copy returns an independent instruction with the same operation,
// operand, and line.
func (in *Instr) Copy() *Instr {
	c := *in
	return &c
}

// HasJump reports whether the operation's operand is a jump target.
func (in *Instr) HasJump() bool { return in.spec.IsJump() }

// IsUncondJump reports an unconditional jump.
func (in *Instr) IsUncondJump() bool { return in.spec.Uncond }

// IsCondJump reports a conditional jump.
func (in *Instr) IsCondJump() bool { return in.spec.IsJump() && !in.spec.Uncond }

// IsFinal reports whether the operation terminates control flow.
func (in *Instr) IsFinal() bool { return in.spec.Final }

// endsBlock reports whether a basic block must end after this
// instruction.
func (in *Instr) endsBlock() bool { return in.spec.Final || in.spec.IsJump() }

func (in *Instr) String() string {
	if in.spec.HasOperand() {
		return fmt.Sprintf("<%s arg=%v line=%d>", in.spec.Name, in.arg, in.lineno)
	}
	return fmt.Sprintf("<%s line=%d>", in.spec.Name, in.lineno)
}

// checkArg validates an operand against an operation's operand kind.
func checkArg(spec *isa.OpSpec, arg any) error {
	switch spec.Operand {
	case isa.OperandNone:
		if arg != nil {
			return fmt.Errorf("flowgraph: operation %s takes no operand, got %v", spec.Name, arg)
		}
	case isa.OperandJumpRel, isa.OperandJumpAbs:
		switch arg.(type) {
		case *Label, *BasicBlock:
		default:
			return fmt.Errorf("flowgraph: operation %s operand must be a label or basic block, got %T",
				spec.Name, arg)
		}
	case isa.OperandFree:
		switch arg.(type) {
		case CellVar, FreeVar:
		default:
			return fmt.Errorf("flowgraph: operation %s operand must be a cell or free variable, got %T",
				spec.Name, arg)
		}
	case isa.OperandLocal, isa.OperandName:
		if _, ok := arg.(string); !ok {
			return fmt.Errorf("flowgraph: operation %s operand must be a string, got %T", spec.Name, arg)
		}
	case isa.OperandCompare:
		if _, ok := arg.(isa.Compare); !ok {
			return fmt.Errorf("flowgraph: operation %s operand must be a comparison, got %T", spec.Name, arg)
		}
	case isa.OperandConst:
		switch arg.(type) {
		case *Label:
			return fmt.Errorf("flowgraph: label operand cannot be used in %s operation", spec.Name)
		case *BasicBlock:
			return fmt.Errorf("flowgraph: block operand cannot be used in %s operation", spec.Name)
		}
	case isa.OperandInt:
		n, ok := arg.(int)
		if !ok {
			return fmt.Errorf("flowgraph: operation %s operand must be an int, got %T", spec.Name, arg)
		}
		if n < 0 || n > 2147483647 {
			return fmt.Errorf("flowgraph: operation %s operand %d out of range 0..2147483647", spec.Name, n)
		}
	}
	return nil
}

// argEqual compares two operands of the same operand kind. Jump operands
// are translated to positions through the resolvers when possible, so
// label and block identities do not influence equality.
func argEqual(spec *isa.OpSpec, a, b any, resA, resB func(any) (int, bool)) bool {
	switch spec.Operand {
	case isa.OperandConst:
		return ConstKey(a) == ConstKey(b)
	case isa.OperandJumpRel, isa.OperandJumpAbs:
		ai, aok := resA(a)
		bi, bok := resB(b)
		if aok && bok {
			return ai == bi
		}
		if !aok && !bok {
			return a == b
		}
		return false
	default:
		return a == b
	}
}

// instrEqual compares two instructions positionally, translating jump
// operands through the given resolvers.
func instrEqual(a, b *Instr, resA, resB func(any) (int, bool)) bool {
	if a.spec.Name != b.spec.Name || a.lineno != b.lineno {
		return false
	}
	return argEqual(a.spec, a.arg, b.arg, resA, resB)
}
