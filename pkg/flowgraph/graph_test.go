package flowgraph

import (
	"errors"
	"testing"

	"github.com/adamchainz/bytecode/pkg/isa"
)

func TestNewGraph(t *testing.T) {
	g := New(isa.Default())

	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
	entry := g.Entry()
	if entry == nil {
		t.Fatal("Entry() is nil")
	}
	if entry.Len() != 0 {
		t.Errorf("Entry block has %d elements, want 0", entry.Len())
	}
	if g.Name != "<module>" || g.Filename != "<string>" || g.FirstLineno != 1 {
		t.Errorf("Default metadata: name=%q filename=%q firstline=%d", g.Name, g.Filename, g.FirstLineno)
	}

	i, err := g.BlockIndex(entry)
	if err != nil || i != 0 {
		t.Errorf("BlockIndex(entry) = %d, %v, want 0, nil", i, err)
	}
}

func TestGraphAddAndDelete(t *testing.T) {
	g := New(isa.Default())
	b1 := g.AddBlock()
	b2 := g.AddBlock()

	if g.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", g.Len())
	}
	if i, _ := g.BlockIndex(b2); i != 2 {
		t.Errorf("BlockIndex(b2) = %d, want 2", i)
	}

	if err := g.Delete(1); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}

	// Positions after the removal shift down and the index table follows.
	if i, _ := g.BlockIndex(b2); i != 1 {
		t.Errorf("BlockIndex(b2) after delete = %d, want 1", i)
	}

	// The removed block is no longer a member.
	var lerr *LookupError
	if _, err := g.BlockIndex(b1); !errors.As(err, &lerr) {
		t.Errorf("BlockIndex(removed) error = %v, want LookupError", err)
	}

	var rerr *RangeError
	if err := g.Delete(5); !errors.As(err, &rerr) {
		t.Errorf("Delete(5) error = %v, want RangeError", err)
	}
}

func TestBlockIndexForeignBlock(t *testing.T) {
	g := New(isa.Default())

	// A structurally identical block from elsewhere is not a member;
	// membership is identity.
	foreign := NewBasicBlock()
	var lerr *LookupError
	if _, err := g.BlockIndex(foreign); !errors.As(err, &lerr) {
		t.Errorf("BlockIndex(foreign) error = %v, want LookupError", err)
	}
	if _, err := g.SplitBlock(foreign, 0); !errors.As(err, &lerr) {
		t.Errorf("SplitBlock(foreign) error = %v, want LookupError", err)
	}
}

func TestSplitBlockMiddle(t *testing.T) {
	tgt := isa.Default()
	g := New(tgt)
	entry := g.Entry()
	entry.Append(MustInstr(tgt, isa.OpLoadConst, 1))
	entry.Append(MustInstr(tgt, isa.OpLoadConst, 2))
	entry.Append(MustInstr(tgt, isa.OpBinaryAdd, nil))
	entry.Append(MustInstr(tgt, isa.OpReturnValue, nil))

	tail, err := g.SplitBlock(entry, 2)
	if err != nil {
		t.Fatalf("SplitBlock error: %v", err)
	}

	if entry.Len() != 2 {
		t.Errorf("Head length = %d, want 2", entry.Len())
	}
	if tail.Len() != 2 {
		t.Errorf("Tail length = %d, want 2", tail.Len())
	}
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
	if i, _ := g.BlockIndex(tail); i != 1 {
		t.Errorf("BlockIndex(tail) = %d, want 1", i)
	}
	if in := tail.At(0).(*Instr); in.Name() != isa.OpBinaryAdd {
		t.Errorf("Tail starts with %s, want BINARY_ADD", in.Name())
	}
}

func TestSplitBlockAtZeroIsNoop(t *testing.T) {
	tgt := isa.Default()
	g := New(tgt)
	entry := g.Entry()
	entry.Append(MustInstr(tgt, isa.OpReturnValue, nil))

	got, err := g.SplitBlock(entry, 0)
	if err != nil {
		t.Fatalf("SplitBlock error: %v", err)
	}
	if got != entry {
		t.Error("Split at 0 should return the original block")
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
}

func TestSplitBlockAtEnd(t *testing.T) {
	tgt := isa.Default()
	g := New(tgt)
	entry := g.Entry()
	entry.Append(MustInstr(tgt, isa.OpNop, nil))

	t.Run("last block appends empty", func(t *testing.T) {
		tail, err := g.SplitBlock(entry, entry.Len())
		if err != nil {
			t.Fatalf("SplitBlock error: %v", err)
		}
		if tail == entry {
			t.Error("Expected a distinct block")
		}
		if tail.Len() != 0 {
			t.Errorf("New tail length = %d, want 0", tail.Len())
		}
		if g.Len() != 2 {
			t.Errorf("Len() = %d, want 2", g.Len())
		}
	})

	t.Run("non-last block aliases successor", func(t *testing.T) {
		next, _ := g.Block(1)
		got, err := g.SplitBlock(entry, entry.Len())
		if err != nil {
			t.Fatalf("SplitBlock error: %v", err)
		}
		if got != next {
			t.Error("Split at end of non-last block should return the existing successor")
		}
		if g.Len() != 2 {
			t.Errorf("Len() = %d, want 2 (no block created)", g.Len())
		}
	})
}

func TestSplitBlockOutOfRange(t *testing.T) {
	tgt := isa.Default()
	g := New(tgt)
	entry := g.Entry()
	entry.Append(MustInstr(tgt, isa.OpNop, nil))

	var rerr *RangeError
	if _, err := g.SplitBlock(entry, -1); !errors.As(err, &rerr) {
		t.Errorf("SplitBlock(-1) error = %v, want RangeError", err)
	}
	if _, err := g.SplitBlock(entry, 2); !errors.As(err, &rerr) {
		t.Errorf("SplitBlock(2) error = %v, want RangeError", err)
	}
}

func TestSplitBlockPreservesInboundEdges(t *testing.T) {
	// Jumps target block identity, so splitting the target must not
	// retarget anything: the jump still lands at the head.
	tgt := isa.Default()
	g := New(tgt)
	entry := g.Entry()
	entry.Append(MustInstr(tgt, isa.OpLoadConst, 1))
	entry.Append(MustInstr(tgt, isa.OpReturnValue, nil))

	looper := g.AddBlock()
	looper.Append(MustInstr(tgt, isa.OpJumpAbsolute, entry))

	if _, err := g.SplitBlock(entry, 1); err != nil {
		t.Fatalf("SplitBlock error: %v", err)
	}

	if looper.JumpTarget() != entry {
		t.Error("Inbound edge no longer targets the head of the split block")
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tgt := isa.Default()

	t.Run("ok", func(t *testing.T) {
		g := New(tgt)
		b := g.AddBlock()
		g.Entry().Append(MustInstr(tgt, isa.OpJumpAbsolute, b))
		b.Append(MustInstr(tgt, isa.OpReturnValue, nil))
		if err := g.Validate(); err != nil {
			t.Errorf("Validate error: %v", err)
		}
	})

	t.Run("foreign jump target", func(t *testing.T) {
		g := New(tgt)
		g.Entry().Append(MustInstr(tgt, isa.OpJumpAbsolute, NewBasicBlock()))
		var lerr *LookupError
		if err := g.Validate(); !errors.As(err, &lerr) {
			t.Errorf("Validate error = %v, want LookupError", err)
		}
	})

	t.Run("deleted jump target", func(t *testing.T) {
		g := New(tgt)
		b := g.AddBlock()
		g.Entry().Append(MustInstr(tgt, isa.OpJumpAbsolute, b))
		if err := g.Delete(1); err != nil {
			t.Fatal(err)
		}
		var lerr *LookupError
		if err := g.Validate(); !errors.As(err, &lerr) {
			t.Errorf("Validate error = %v, want LookupError", err)
		}
	})

	t.Run("invalid block", func(t *testing.T) {
		g := New(tgt)
		g.Entry().Append(MustInstr(tgt, isa.OpReturnValue, nil))
		g.Entry().Append(MustInstr(tgt, isa.OpNop, nil))
		var serr *StructuralError
		if err := g.Validate(); !errors.As(err, &serr) {
			t.Errorf("Validate error = %v, want StructuralError", err)
		}
	})
}

func TestGraphEqual(t *testing.T) {
	tgt := isa.Default()

	build := func() *ControlFlowGraph {
		g := New(tgt)
		body := g.AddBlock()
		exit := g.AddBlock()
		g.Entry().Append(MustInstr(tgt, isa.OpLoadConst, 1))
		g.Entry().Append(MustInstr(tgt, isa.OpPopJumpIfFalse, exit))
		body.Append(MustInstr(tgt, isa.OpJumpAbsolute, g.Entry()))
		exit.Append(MustInstr(tgt, isa.OpReturnValue, nil))
		return g
	}

	a, b := build(), build()
	if !a.Equal(b) {
		t.Error("Independently built identical graphs should compare equal")
	}

	// Block identity differs between the two; equality is positional.
	if a.Entry() == b.Entry() {
		t.Fatal("Test graphs share blocks")
	}

	b.Name = "other"
	if a.Equal(b) {
		t.Error("Metadata difference should break equality")
	}
	b.Name = a.Name

	exit, _ := b.Block(2)
	exit.Append(SetLineno(4))
	if a.Equal(b) {
		t.Error("Element difference should break equality")
	}
}
