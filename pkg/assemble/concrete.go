package assemble

import (
	"github.com/adamchainz/bytecode/pkg/isa"
)

// ConcreteInstr is a fully resolved instruction: a numeric opcode, a
// numeric operand (jump operands already converted to byte offsets),
// and a fixed encoded size. Only the assembler produces these.
type ConcreteInstr struct {
	Op     byte
	Arg    uint32
	Size   int // encoded bytes, including extension prefixes
	Lineno int
}

// Encode appends the instruction's encoding to dst. Extension prefixes
// carry the higher operand byte groups and precede the instruction
// unit, most significant group first.
func (ci *ConcreteInstr) Encode(t *isa.Target, dst []byte) []byte {
	w := t.OperandWidth()
	units := ci.Size / t.UnitLen()
	for u := units - 1; u >= 1; u-- {
		dst = append(dst, t.ExtendOp().Code)
		dst = appendOperand(dst, operandGroup(ci.Arg, u, w), w, t.BigEndian())
	}
	dst = append(dst, ci.Op)
	return appendOperand(dst, operandGroup(ci.Arg, 0, w), w, t.BigEndian())
}

// operandGroup extracts the u-th group of w operand bytes from arg,
// counting from the least significant.
func operandGroup(arg uint32, u, w int) uint32 {
	mask := uint32(1)<<(8*w) - 1
	return (arg >> (8 * w * u)) & mask
}

func appendOperand(dst []byte, group uint32, w int, bigEndian bool) []byte {
	if bigEndian {
		for i := w - 1; i >= 0; i-- {
			dst = append(dst, byte(group>>(8*i)))
		}
		return dst
	}
	for i := 0; i < w; i++ {
		dst = append(dst, byte(group>>(8*i)))
	}
	return dst
}
