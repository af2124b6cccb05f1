package flowgraph

import (
	"slices"

	"github.com/adamchainz/bytecode/pkg/isa"
)

// Meta carries the code-object attributes shared by linear streams and
// control-flow graphs: declared name, origin file, flags bitmask,
// parameter counts and names, cell/free variable names, the first
// source line, and the optional documentation string.
type Meta struct {
	Name           string
	Filename       string
	Flags          uint32
	Argcount       int
	Kwonlyargcount int
	Argnames       []string
	Cellvars       []string
	Freevars       []string
	FirstLineno    int
	Docstring      *string
}

func newMeta() Meta {
	return Meta{
		Name:        "<module>",
		Filename:    "<string>",
		FirstLineno: 1,
	}
}

func (m *Meta) copyFrom(o *Meta) {
	*m = *o
	m.Argnames = slices.Clone(o.Argnames)
	m.Cellvars = slices.Clone(o.Cellvars)
	m.Freevars = slices.Clone(o.Freevars)
	if o.Docstring != nil {
		d := *o.Docstring
		m.Docstring = &d
	}
}

func (m *Meta) equal(o *Meta) bool {
	if m.Name != o.Name || m.Filename != o.Filename || m.Flags != o.Flags ||
		m.Argcount != o.Argcount || m.Kwonlyargcount != o.Kwonlyargcount ||
		m.FirstLineno != o.FirstLineno {
		return false
	}
	if !slices.Equal(m.Argnames, o.Argnames) ||
		!slices.Equal(m.Cellvars, o.Cellvars) ||
		!slices.Equal(m.Freevars, o.Freevars) {
		return false
	}
	if (m.Docstring == nil) != (o.Docstring == nil) {
		return false
	}
	return m.Docstring == nil || *m.Docstring == *o.Docstring
}

// Bytecode is the pseudo-instruction stream: an ordered sequence of
// instructions, labels, and line markers, plus code-object metadata.
type Bytecode struct {
	Meta
	Target *isa.Target
	Elems  []Elem
}

// NewBytecode returns an empty stream for the given target.
func NewBytecode(t *isa.Target) *Bytecode {
	return &Bytecode{Meta: newMeta(), Target: t}
}

// Append adds one element to the end of the stream.
func (b *Bytecode) Append(e Elem) {
	b.Elems = append(b.Elems, e)
}

// Extend adds elements to the end of the stream.
func (b *Bytecode) Extend(es ...Elem) {
	b.Elems = append(b.Elems, es...)
}

// Len returns the number of stream elements.
func (b *Bytecode) Len() int {
	return len(b.Elems)
}

// labelOrdinals numbers each label element by order of appearance.
func labelOrdinals(elems []Elem) map[*Label]int {
	ords := make(map[*Label]int)
	for _, e := range elems {
		if l, ok := e.(*Label); ok {
			if _, seen := ords[l]; !seen {
				ords[l] = len(ords)
			}
		}
	}
	return ords
}

// Equal reports structural equality of two streams: same metadata and
// elementwise equal sequences, where label operands are compared by the
// position of the label they reference rather than by identity. Streams
// built independently from the same source compare equal even though
// their labels are distinct objects.
func (b *Bytecode) Equal(o *Bytecode) bool {
	if o == nil || !b.Meta.equal(&o.Meta) || len(b.Elems) != len(o.Elems) {
		return false
	}
	bOrds := labelOrdinals(b.Elems)
	oOrds := labelOrdinals(o.Elems)
	resB := func(arg any) (int, bool) {
		l, ok := arg.(*Label)
		if !ok {
			return 0, false
		}
		i, ok := bOrds[l]
		return i, ok
	}
	resO := func(arg any) (int, bool) {
		l, ok := arg.(*Label)
		if !ok {
			return 0, false
		}
		i, ok := oOrds[l]
		return i, ok
	}

	for i, be := range b.Elems {
		switch be := be.(type) {
		case *Label:
			oe, ok := o.Elems[i].(*Label)
			if !ok || bOrds[be] != oOrds[oe] {
				return false
			}
		case SetLineno:
			if oe, ok := o.Elems[i].(SetLineno); !ok || be != oe {
				return false
			}
		case *Instr:
			oe, ok := o.Elems[i].(*Instr)
			if !ok || !instrEqual(be, oe, resB, resO) {
				return false
			}
		}
	}
	return true
}
