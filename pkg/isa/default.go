package isa

// Mnemonics of the built-in "stackvm" target. Operation names are plain
// string tokens everywhere in the pipeline; these constants just keep
// call sites typo-safe.
const (
	OpNop      = "NOP"
	OpPopTop   = "POP_TOP"
	OpDupTop   = "DUP_TOP"
	OpRotTwo   = "ROT_TWO"
	OpRotThree = "ROT_THREE"
	OpUnaryNot = "UNARY_NOT"
	OpUnaryNeg = "UNARY_NEG"
	OpGetIter  = "GET_ITER"
	OpPopBlock = "POP_BLOCK"

	OpBinaryAdd = "BINARY_ADD"
	OpBinarySub = "BINARY_SUB"
	OpBinaryMul = "BINARY_MUL"
	OpBinaryDiv = "BINARY_DIV"
	OpBinaryMod = "BINARY_MOD"

	OpCompareOp = "COMPARE_OP"

	OpLoadConst  = "LOAD_CONST"
	OpLoadName   = "LOAD_NAME"
	OpStoreName  = "STORE_NAME"
	OpLoadFast   = "LOAD_FAST"
	OpStoreFast  = "STORE_FAST"
	OpLoadDeref  = "LOAD_DEREF"
	OpStoreDeref = "STORE_DEREF"
	OpLoadGlobal = "LOAD_GLOBAL"

	OpBuildList    = "BUILD_LIST"
	OpCallFunction = "CALL_FUNCTION"

	OpJumpForward    = "JUMP_FORWARD"
	OpJumpAbsolute   = "JUMP_ABSOLUTE"
	OpPopJumpIfFalse = "POP_JUMP_IF_FALSE"
	OpPopJumpIfTrue  = "POP_JUMP_IF_TRUE"
	OpForIter        = "FOR_ITER"
	OpSetupLoop      = "SETUP_LOOP"
	OpBreakLoop      = "BREAK_LOOP"
	OpContinueLoop   = "CONTINUE_LOOP"

	OpReturnValue = "RETURN_VALUE"
	OpRaise       = "RAISE"

	OpExtendedArg = "EXTENDED_ARG"
)

// defaultOps is the opcode table of the built-in target. Codes are
// organized into ranges by category.
var defaultOps = []OpSpec{
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	{Name: OpNop, Code: 0x00},
	{Name: OpPopTop, Code: 0x01, Pop: 1},
	{Name: OpDupTop, Code: 0x02, Pop: 1, Push: 2},
	{Name: OpRotTwo, Code: 0x03, Pop: 2, Push: 2},
	{Name: OpRotThree, Code: 0x04, Pop: 3, Push: 3},
	{Name: OpUnaryNot, Code: 0x05, Pop: 1, Push: 1},
	{Name: OpUnaryNeg, Code: 0x06, Pop: 1, Push: 1},
	{Name: OpGetIter, Code: 0x07, Pop: 1, Push: 1},
	{Name: OpPopBlock, Code: 0x08},

	// ========================================================================
	// Binary operations (0x10-0x1F)
	// ========================================================================

	{Name: OpBinaryAdd, Code: 0x10, Pop: 2, Push: 1},
	{Name: OpBinarySub, Code: 0x11, Pop: 2, Push: 1},
	{Name: OpBinaryMul, Code: 0x12, Pop: 2, Push: 1},
	{Name: OpBinaryDiv, Code: 0x13, Pop: 2, Push: 1},
	{Name: OpBinaryMod, Code: 0x14, Pop: 2, Push: 1},

	// ========================================================================
	// Comparison (0x20-0x2F)
	// ========================================================================

	{Name: OpCompareOp, Code: 0x20, Operand: OperandCompare, Pop: 2, Push: 1},

	// ========================================================================
	// Variable and constant access (0x30-0x3F)
	// ========================================================================

	{Name: OpLoadConst, Code: 0x30, Operand: OperandConst, Push: 1},
	{Name: OpLoadName, Code: 0x31, Operand: OperandName, Push: 1},
	{Name: OpStoreName, Code: 0x32, Operand: OperandName, Pop: 1},
	{Name: OpLoadFast, Code: 0x33, Operand: OperandLocal, Push: 1},
	{Name: OpStoreFast, Code: 0x34, Operand: OperandLocal, Pop: 1},
	{Name: OpLoadDeref, Code: 0x35, Operand: OperandFree, Push: 1},
	{Name: OpStoreDeref, Code: 0x36, Operand: OperandFree, Pop: 1},
	{Name: OpLoadGlobal, Code: 0x37, Operand: OperandName, Push: 1},

	// ========================================================================
	// Aggregates and calls (0x40-0x4F)
	// ========================================================================

	{Name: OpBuildList, Code: 0x40, Operand: OperandInt, Pop: VariablePop, Push: 1},
	{Name: OpCallFunction, Code: 0x41, Operand: OperandInt, Pop: VariablePop, PopBase: 1, Push: 1},

	// ========================================================================
	// Control flow (0x50-0x5F)
	// ========================================================================

	{Name: OpJumpForward, Code: 0x50, Operand: OperandJumpRel, Final: true, Uncond: true},
	{Name: OpJumpAbsolute, Code: 0x51, Operand: OperandJumpAbs, Final: true, Uncond: true},
	{Name: OpPopJumpIfFalse, Code: 0x52, Operand: OperandJumpAbs, Pop: 1},
	{Name: OpPopJumpIfTrue, Code: 0x53, Operand: OperandJumpAbs, Pop: 1},
	{Name: OpForIter, Code: 0x54, Operand: OperandJumpRel, Pop: 1, Push: 2},
	{Name: OpSetupLoop, Code: 0x55, Operand: OperandJumpRel},
	{Name: OpBreakLoop, Code: 0x56, Final: true},
	{Name: OpContinueLoop, Code: 0x57, Operand: OperandJumpAbs, Final: true},

	// ========================================================================
	// Termination (0xF0-0xFF)
	// ========================================================================

	{Name: OpReturnValue, Code: 0xF0, Pop: 1, Final: true},
	{Name: OpRaise, Code: 0xF1, Pop: 1, Final: true},
	{Name: OpExtendedArg, Code: 0xFF, Operand: OperandInt},
}

var defaultTarget *Target

func init() {
	t, err := NewTarget(TargetConfig{
		Name:     "stackvm",
		ExtendOp: OpExtendedArg,
		Ops:      defaultOps,
	})
	if err != nil {
		panic("isa: invalid built-in target: " + err.Error())
	}
	defaultTarget = t
}

// Default returns the built-in stack-VM target: one operand byte per
// unit, up to three EXTENDED_ARG prefixes, little-endian operands.
func Default() *Target {
	return defaultTarget
}
