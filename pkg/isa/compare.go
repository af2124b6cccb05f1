package isa

import "fmt"

// Compare is the operand of comparison operations.
type Compare int

const (
	CompareLT Compare = iota
	CompareLE
	CompareEQ
	CompareNE
	CompareGT
	CompareGE
	CompareIn
	CompareNotIn
	CompareIs
	CompareIsNot
	CompareExcMatch
)

func (c Compare) String() string {
	switch c {
	case CompareLT:
		return "<"
	case CompareLE:
		return "<="
	case CompareEQ:
		return "=="
	case CompareNE:
		return "!="
	case CompareGT:
		return ">"
	case CompareGE:
		return ">="
	case CompareIn:
		return "in"
	case CompareNotIn:
		return "not in"
	case CompareIs:
		return "is"
	case CompareIsNot:
		return "is not"
	case CompareExcMatch:
		return "exc match"
	default:
		return fmt.Sprintf("Compare(%d)", int(c))
	}
}
