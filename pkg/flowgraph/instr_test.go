package flowgraph

import (
	"strings"
	"testing"

	"github.com/adamchainz/bytecode/pkg/isa"
)

func TestNewInstr(t *testing.T) {
	tgt := isa.Default()

	in, err := NewInstr(tgt, isa.OpLoadConst, 7)
	if err != nil {
		t.Fatalf("NewInstr error: %v", err)
	}
	if in.Name() != isa.OpLoadConst {
		t.Errorf("Name() = %q, want %q", in.Name(), isa.OpLoadConst)
	}
	if in.Arg() != 7 {
		t.Errorf("Arg() = %v, want 7", in.Arg())
	}
	if in.Lineno() != 0 {
		t.Errorf("Lineno() = %d, want 0", in.Lineno())
	}

	if _, err := NewInstr(tgt, "NO_SUCH_OP", nil); err == nil {
		t.Error("Expected error for unknown operation")
	}
}

func TestInstrOperandValidation(t *testing.T) {
	tgt := isa.Default()
	label := NewLabel()
	block := NewBasicBlock()

	valid := []struct {
		name string
		op   string
		arg  any
	}{
		{"no operand", isa.OpNop, nil},
		{"const int", isa.OpLoadConst, 42},
		{"const string", isa.OpLoadConst, "hello"},
		{"const nil", isa.OpLoadConst, nil},
		{"local", isa.OpLoadFast, "x"},
		{"name", isa.OpLoadName, "print"},
		{"cell var", isa.OpLoadDeref, CellVar("captured")},
		{"free var", isa.OpLoadDeref, FreeVar("outer")},
		{"compare", isa.OpCompareOp, isa.CompareLT},
		{"jump to label", isa.OpJumpForward, label},
		{"jump to block", isa.OpJumpAbsolute, block},
		{"int", isa.OpCallFunction, 2},
		{"int max", isa.OpCallFunction, 2147483647},
	}
	for _, tt := range valid {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewInstr(tgt, tt.op, tt.arg); err != nil {
				t.Errorf("NewInstr(%s, %v) error: %v", tt.op, tt.arg, err)
			}
		})
	}

	invalid := []struct {
		name string
		op   string
		arg  any
	}{
		{"operand on nullary", isa.OpNop, 1},
		{"label as const", isa.OpLoadConst, label},
		{"block as const", isa.OpLoadConst, block},
		{"jump without target", isa.OpJumpForward, nil},
		{"jump to int", isa.OpJumpForward, 3},
		{"local not string", isa.OpLoadFast, 5},
		{"free plain string", isa.OpLoadDeref, "x"},
		{"compare not compare", isa.OpCompareOp, 0},
		{"int negative", isa.OpCallFunction, -1},
		{"int too large", isa.OpCallFunction, 2147483648},
		{"int not int", isa.OpCallFunction, "2"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewInstr(tgt, tt.op, tt.arg); err == nil {
				t.Errorf("NewInstr(%s, %v) accepted invalid operand", tt.op, tt.arg)
			}
		})
	}
}

func TestInstrMutation(t *testing.T) {
	tgt := isa.Default()
	in := MustInstr(tgt, isa.OpLoadConst, 1).WithLine(10)

	if err := in.Set(isa.OpStoreName, "x"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if in.Name() != isa.OpStoreName || in.Arg() != "x" {
		t.Errorf("After Set: %s %v", in.Name(), in.Arg())
	}
	if in.Lineno() != 10 {
		t.Errorf("Set dropped line: %d", in.Lineno())
	}

	if err := in.Set(isa.OpStoreName, 7); err == nil {
		t.Error("Set accepted invalid operand")
	}
	if err := in.SetArg(9); err == nil {
		t.Error("SetArg accepted invalid operand")
	}
	if err := in.SetArg("y"); err != nil {
		t.Errorf("SetArg error: %v", err)
	}

	if err := in.SetLine(0); err == nil {
		t.Error("SetLine accepted line 0")
	}
}

func TestInstrCopy(t *testing.T) {
	tgt := isa.Default()
	in := MustInstr(tgt, isa.OpLoadFast, "x").WithLine(3)

	c := in.Copy()
	if err := c.SetArg("y"); err != nil {
		t.Fatal(err)
	}
	if in.Arg() != "x" {
		t.Errorf("Copy shares operand: original arg = %v", in.Arg())
	}
	if c.Lineno() != 3 {
		t.Errorf("Copy dropped line: %d", c.Lineno())
	}
}

func TestInstrClassification(t *testing.T) {
	tgt := isa.Default()
	label := NewLabel()

	jf := MustInstr(tgt, isa.OpJumpForward, label)
	if !jf.HasJump() || !jf.IsUncondJump() || jf.IsCondJump() || !jf.IsFinal() {
		t.Errorf("JUMP_FORWARD: jump=%v uncond=%v cond=%v final=%v",
			jf.HasJump(), jf.IsUncondJump(), jf.IsCondJump(), jf.IsFinal())
	}

	pjf := MustInstr(tgt, isa.OpPopJumpIfFalse, label)
	if !pjf.HasJump() || pjf.IsUncondJump() || !pjf.IsCondJump() || pjf.IsFinal() {
		t.Errorf("POP_JUMP_IF_FALSE: jump=%v uncond=%v cond=%v final=%v",
			pjf.HasJump(), pjf.IsUncondJump(), pjf.IsCondJump(), pjf.IsFinal())
	}

	ret := MustInstr(tgt, isa.OpReturnValue, nil)
	if ret.HasJump() || !ret.IsFinal() {
		t.Errorf("RETURN_VALUE: jump=%v final=%v", ret.HasJump(), ret.IsFinal())
	}
}

func TestInstrString(t *testing.T) {
	tgt := isa.Default()

	s := MustInstr(tgt, isa.OpLoadFast, "x").WithLine(2).String()
	if !strings.Contains(s, "LOAD_FAST") || !strings.Contains(s, "x") {
		t.Errorf("String() = %q", s)
	}
	s = MustInstr(tgt, isa.OpNop, nil).String()
	if !strings.Contains(s, "NOP") || strings.Contains(s, "arg") {
		t.Errorf("String() = %q", s)
	}
}

func TestLabelIdentity(t *testing.T) {
	a, b := NewLabel(), NewLabel()
	if a == b {
		t.Error("Distinct labels share identity")
	}
}
