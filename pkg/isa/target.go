// Package isa describes instruction-set targets for the flowgraph core.
//
// A Target is the pluggable piece of the assembly pipeline: it carries the
// opcode numbering, the structural classification of each operation (does
// it jump, does it terminate control flow, what kind of operand it takes,
// how it moves the abstract stack), and the encoding geometry (operand
// width, extension prefix, byte order). The flowgraph and assemble
// packages treat operation names as opaque tokens and consult the Target
// for everything else, so the same graph machinery can be retargeted by
// swapping in a different opcode table.
package isa

import (
	"fmt"
	"math"
)

// OperandKind classifies the operand an operation takes.
type OperandKind int

const (
	OperandNone    OperandKind = iota // no operand
	OperandInt                        // plain non-negative integer
	OperandConst                      // constant-pool value
	OperandLocal                      // local variable name
	OperandName                       // global/name-table entry
	OperandFree                       // cell or free variable
	OperandCompare                    // comparison operator
	OperandJumpRel                    // jump, relative byte offset
	OperandJumpAbs                    // jump, absolute byte offset
)

// String returns the name used for the kind in target definition files.
func (k OperandKind) String() string {
	switch k {
	case OperandNone:
		return "none"
	case OperandInt:
		return "int"
	case OperandConst:
		return "const"
	case OperandLocal:
		return "local"
	case OperandName:
		return "name"
	case OperandFree:
		return "free"
	case OperandCompare:
		return "compare"
	case OperandJumpRel:
		return "jumprel"
	case OperandJumpAbs:
		return "jumpabs"
	default:
		return fmt.Sprintf("OperandKind(%d)", int(k))
	}
}

// ParseOperandKind is the inverse of OperandKind.String.
func ParseOperandKind(s string) (OperandKind, error) {
	switch s {
	case "", "none":
		return OperandNone, nil
	case "int":
		return OperandInt, nil
	case "const":
		return OperandConst, nil
	case "local":
		return OperandLocal, nil
	case "name":
		return OperandName, nil
	case "free":
		return OperandFree, nil
	case "compare":
		return OperandCompare, nil
	case "jumprel":
		return OperandJumpRel, nil
	case "jumpabs":
		return OperandJumpAbs, nil
	default:
		return 0, fmt.Errorf("isa: unknown operand kind %q", s)
	}
}

// VariablePop marks operations whose pop count depends on their integer
// operand. The effective pop count is PopBase plus the operand value.
const VariablePop = -1

// OpSpec describes one operation of a target.
type OpSpec struct {
	Name    string      // mnemonic, unique within the target
	Code    byte        // encoded opcode, unique within the target
	Operand OperandKind // operand classification
	Final   bool        // terminates control flow (return, raise, unconditional jump)
	Uncond  bool        // unconditional jump
	Pop     int         // values popped, or VariablePop
	PopBase int         // fixed part of the pop count when Pop == VariablePop
	Push    int         // values pushed
}

// IsJump reports whether the operation's operand is a jump target.
func (s *OpSpec) IsJump() bool {
	return s.Operand == OperandJumpRel || s.Operand == OperandJumpAbs
}

// HasOperand reports whether the operation takes an operand.
func (s *OpSpec) HasOperand() bool {
	return s.Operand != OperandNone
}

// StackEffect returns the pop and push counts for the operation given
// its integer operand (ignored unless Pop is VariablePop).
func (s *OpSpec) StackEffect(operand int) (pop, push int) {
	if s.Pop == VariablePop {
		return s.PopBase + operand, s.Push
	}
	return s.Pop, s.Push
}

// TargetConfig is the raw material for NewTarget.
type TargetConfig struct {
	Name          string
	OperandWidth  int    // operand bytes per instruction unit (default 1)
	MaxExtensions int    // extension prefixes allowed per instruction (default 3)
	BigEndian     bool   // byte order within a multi-byte operand unit
	ExtendOp      string // mnemonic of the extension prefix operation
	Ops           []OpSpec
}

// Target is a validated, immutable instruction-set description.
type Target struct {
	name          string
	operandWidth  int
	maxExtensions int
	bigEndian     bool
	extend        *OpSpec
	byName        map[string]*OpSpec
	byCode        [256]*OpSpec
}

// NewTarget validates a TargetConfig and builds a Target from it.
func NewTarget(cfg TargetConfig) (*Target, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("isa: target needs a name")
	}
	width := cfg.OperandWidth
	if width == 0 {
		width = 1
	}
	if width < 1 || width > 4 {
		return nil, fmt.Errorf("isa: target %s: operand width %d out of range 1..4", cfg.Name, width)
	}
	maxExt := cfg.MaxExtensions
	if maxExt == 0 {
		maxExt = 3
	}
	if maxExt < 0 || (width*(maxExt+1)) > 8 {
		return nil, fmt.Errorf("isa: target %s: %d extensions of %d-byte operands exceed 64-bit arguments",
			cfg.Name, maxExt, width)
	}
	if len(cfg.Ops) == 0 {
		return nil, fmt.Errorf("isa: target %s defines no operations", cfg.Name)
	}

	t := &Target{
		name:          cfg.Name,
		operandWidth:  width,
		maxExtensions: maxExt,
		bigEndian:     cfg.BigEndian,
		byName:        make(map[string]*OpSpec, len(cfg.Ops)),
	}
	for i := range cfg.Ops {
		op := cfg.Ops[i]
		if op.Name == "" {
			return nil, fmt.Errorf("isa: target %s: operation %d has no name", cfg.Name, i)
		}
		if _, dup := t.byName[op.Name]; dup {
			return nil, fmt.Errorf("isa: target %s: duplicate operation name %s", cfg.Name, op.Name)
		}
		if prev := t.byCode[op.Code]; prev != nil {
			return nil, fmt.Errorf("isa: target %s: operations %s and %s share code 0x%02X",
				cfg.Name, prev.Name, op.Name, op.Code)
		}
		if op.Pop < VariablePop {
			return nil, fmt.Errorf("isa: target %s: operation %s has invalid pop count %d", cfg.Name, op.Name, op.Pop)
		}
		spec := op
		t.byName[op.Name] = &spec
		t.byCode[op.Code] = &spec
	}
	if maxExt > 0 {
		ext, ok := t.byName[cfg.ExtendOp]
		if !ok {
			return nil, fmt.Errorf("isa: target %s: extension prefix %q is not a defined operation",
				cfg.Name, cfg.ExtendOp)
		}
		if ext.Operand != OperandInt {
			return nil, fmt.Errorf("isa: target %s: extension prefix %s must take an int operand",
				cfg.Name, ext.Name)
		}
		t.extend = ext
	}
	return t, nil
}

// Name returns the target's declared name.
func (t *Target) Name() string { return t.name }

// OperandWidth returns the operand bytes carried by one instruction unit.
func (t *Target) OperandWidth() int { return t.operandWidth }

// MaxExtensions returns how many extension prefixes one instruction may carry.
func (t *Target) MaxExtensions() int { return t.maxExtensions }

// BigEndian reports the byte order inside a multi-byte operand unit.
func (t *Target) BigEndian() bool { return t.bigEndian }

// ExtendOp returns the extension prefix operation, or nil if the target
// has no widened encoding.
func (t *Target) ExtendOp() *OpSpec { return t.extend }

// Op looks up an operation by mnemonic.
func (t *Target) Op(name string) (*OpSpec, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// OpByCode looks up an operation by encoded opcode.
func (t *Target) OpByCode(code byte) (*OpSpec, bool) {
	s := t.byCode[code]
	return s, s != nil
}

// UnitLen returns the encoded size of one instruction unit: the opcode
// byte plus the operand bytes. Every instruction occupies at least one
// unit; operations without an operand encode a zero operand.
func (t *Target) UnitLen() int {
	return 1 + t.operandWidth
}

// MaxArg returns the largest operand value encodable with the maximum
// number of extension prefixes.
func (t *Target) MaxArg() uint64 {
	bits := uint(8 * t.operandWidth * (t.maxExtensions + 1))
	if bits >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << bits) - 1
}

// ArgUnits returns the number of instruction units needed to encode the
// operand value: one for the instruction itself plus one per extension
// prefix. Returns 0 if the value exceeds MaxArg.
func (t *Target) ArgUnits(arg uint64) int {
	unitBits := uint(8 * t.operandWidth)
	units := 1
	for arg >>= unitBits; arg != 0; arg >>= unitBits {
		units++
	}
	if units > t.maxExtensions+1 {
		return 0
	}
	return units
}

// SizeFor returns the encoded byte size of an instruction whose operand
// is arg. Returns 0 if the operand cannot be encoded at maximum width.
func (t *Target) SizeFor(arg uint64) int {
	units := t.ArgUnits(arg)
	if units == 0 {
		return 0
	}
	return units * t.UnitLen()
}
