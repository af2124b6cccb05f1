package assemble

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ArtifactVersion is the current binary artifact format version.
// Increment when making incompatible changes to the format.
const ArtifactVersion uint16 = 1

// Magic bytes for serialized artifacts: "SVBC" (Stack VM ByteCode).
var ArtifactMagic = []byte{'S', 'V', 'B', 'C'}

// Artifact is the concrete output of assembly: the offset-resolved code
// bytes plus every auxiliary table the consuming runtime needs.
type Artifact struct {
	Name           string   `cbor:"1,keyasint"`
	Filename       string   `cbor:"2,keyasint"`
	Flags          uint32   `cbor:"3,keyasint"`
	Argcount       int      `cbor:"4,keyasint"`
	Kwonlyargcount int      `cbor:"5,keyasint"`
	Nlocals        int      `cbor:"6,keyasint"`
	Stacksize      int      `cbor:"7,keyasint"`
	FirstLineno    int      `cbor:"8,keyasint"`
	Code           []byte   `cbor:"9,keyasint"`
	Consts         []any    `cbor:"10,keyasint,omitempty"`
	Names          []string `cbor:"11,keyasint,omitempty"`
	Varnames       []string `cbor:"12,keyasint,omitempty"`
	Freevars       []string `cbor:"13,keyasint,omitempty"`
	Cellvars       []string `cbor:"14,keyasint,omitempty"`
	Docstring      *string  `cbor:"15,keyasint,omitempty"`
	Lnotab         []byte   `cbor:"16,keyasint,omitempty"`
}

// Constant tags of the binary serialization.
const (
	constNil    = 0
	constFalse  = 1
	constTrue   = 2
	constInt    = 3
	constFloat  = 4
	constString = 5
	constBytes  = 6
)

// Serialize encodes the artifact to bytes for storage/transport.
// Format:
//
//	[magic:4] [version:2] [flags:4]
//	[argcount:2] [kwonlyargcount:2] [nlocals:2] [stacksize:2] [first_lineno:4]
//	[name] [filename]                      (u16-length-prefixed strings)
//	[doc_present:1] [docstring]            (u32-length-prefixed, if present)
//	[code_len:4] [code:...]
//	[const_count:2] [tagged constants:...]
//	[names] [varnames] [freevars] [cellvars]  (u16 count + strings each)
//	[lnotab_len:4] [lnotab:...]
//
// The binary form carries scalar constants only (nil, bool, int64,
// float64, string, []byte); richer values need the CBOR wire form.
func (a *Artifact) Serialize() ([]byte, error) {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"argcount", a.Argcount},
		{"kwonlyargcount", a.Kwonlyargcount},
		{"nlocals", a.Nlocals},
		{"stacksize", a.Stacksize},
		{"constant count", len(a.Consts)},
	} {
		if f.v < 0 || f.v > math.MaxUint16 {
			return nil, fmt.Errorf("assemble: %s %d does not fit in 16 bits", f.name, f.v)
		}
	}

	buf := make([]byte, 0, 64+len(a.Code)+len(a.Lnotab)+len(a.Consts)*16)

	buf = append(buf, ArtifactMagic...)
	buf = binary.BigEndian.AppendUint16(buf, ArtifactVersion)
	buf = binary.BigEndian.AppendUint32(buf, a.Flags)

	buf = binary.BigEndian.AppendUint16(buf, uint16(a.Argcount))
	buf = binary.BigEndian.AppendUint16(buf, uint16(a.Kwonlyargcount))
	buf = binary.BigEndian.AppendUint16(buf, uint16(a.Nlocals))
	buf = binary.BigEndian.AppendUint16(buf, uint16(a.Stacksize))
	buf = binary.BigEndian.AppendUint32(buf, uint32(a.FirstLineno))

	buf = appendString16(buf, a.Name)
	buf = appendString16(buf, a.Filename)

	if a.Docstring != nil {
		buf = append(buf, 1)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(*a.Docstring)))
		buf = append(buf, *a.Docstring...)
	} else {
		buf = append(buf, 0)
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(a.Code)))
	buf = append(buf, a.Code...)

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(a.Consts)))
	for _, c := range a.Consts {
		var err error
		buf, err = appendConst(buf, c)
		if err != nil {
			return nil, err
		}
	}

	for _, table := range [][]string{a.Names, a.Varnames, a.Freevars, a.Cellvars} {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(table)))
		for _, s := range table {
			buf = appendString16(buf, s)
		}
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(a.Lnotab)))
	buf = append(buf, a.Lnotab...)

	return buf, nil
}

func appendString16(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func appendConst(buf []byte, c any) ([]byte, error) {
	switch c := c.(type) {
	case nil:
		return append(buf, constNil), nil
	case bool:
		if c {
			return append(buf, constTrue), nil
		}
		return append(buf, constFalse), nil
	case int:
		buf = append(buf, constInt)
		return binary.BigEndian.AppendUint64(buf, uint64(int64(c))), nil
	case int64:
		buf = append(buf, constInt)
		return binary.BigEndian.AppendUint64(buf, uint64(c)), nil
	case float64:
		buf = append(buf, constFloat)
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(c)), nil
	case string:
		buf = append(buf, constString)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(c)))
		return append(buf, c...), nil
	case []byte:
		buf = append(buf, constBytes)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(c)))
		return append(buf, c...), nil
	default:
		return nil, fmt.Errorf("assemble: constant type %T has no binary encoding", c)
	}
}

// Deserialize decodes an artifact from bytes.
func Deserialize(data []byte) (*Artifact, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("assemble: artifact too short: need at least 10 bytes, got %d", len(data))
	}
	if string(data[0:4]) != string(ArtifactMagic) {
		return nil, fmt.Errorf("assemble: invalid artifact magic: expected %q, got %q", ArtifactMagic, data[0:4])
	}
	version := binary.BigEndian.Uint16(data[4:6])
	if version > ArtifactVersion {
		return nil, fmt.Errorf("assemble: artifact version %d is newer than supported version %d",
			version, ArtifactVersion)
	}

	a := &Artifact{Flags: binary.BigEndian.Uint32(data[6:10])}
	r := reader{data: data, pos: 10}

	a.Argcount = int(r.u16("argcount"))
	a.Kwonlyargcount = int(r.u16("kwonlyargcount"))
	a.Nlocals = int(r.u16("nlocals"))
	a.Stacksize = int(r.u16("stacksize"))
	a.FirstLineno = int(r.u32("first lineno"))

	a.Name = r.string16("name")
	a.Filename = r.string16("filename")

	if r.u8("docstring marker") != 0 {
		doc := string(r.bytes(int(r.u32("docstring length")), "docstring"))
		a.Docstring = &doc
	}

	a.Code = append([]byte(nil), r.bytes(int(r.u32("code length")), "code")...)

	constCount := int(r.u16("constant count"))
	for i := 0; i < constCount && r.err == nil; i++ {
		a.Consts = append(a.Consts, r.constant(i))
	}

	for _, table := range []*[]string{&a.Names, &a.Varnames, &a.Freevars, &a.Cellvars} {
		count := int(r.u16("name table count"))
		for i := 0; i < count && r.err == nil; i++ {
			*table = append(*table, r.string16("name table entry"))
		}
	}

	a.Lnotab = append([]byte(nil), r.bytes(int(r.u32("lnotab length")), "lnotab")...)

	if r.err != nil {
		return nil, r.err
	}
	return a, nil
}

// reader is a cursor over serialized bytes that records the first
// error and turns every later read into a no-op.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("assemble: unexpected end of artifact reading %s at pos %d", what, r.pos)
	}
}

func (r *reader) u8(what string) byte {
	if r.err != nil {
		return 0
	}
	if r.pos >= len(r.data) {
		r.fail(what)
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) u16(what string) uint16 {
	if r.err != nil {
		return 0
	}
	if r.pos+2 > len(r.data) {
		r.fail(what)
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u32(what string) uint32 {
	if r.err != nil {
		return 0
	}
	if r.pos+4 > len(r.data) {
		r.fail(what)
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) u64(what string) uint64 {
	if r.err != nil {
		return 0
	}
	if r.pos+8 > len(r.data) {
		r.fail(what)
		return 0
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

func (r *reader) bytes(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.fail(what)
		return nil
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v
}

func (r *reader) string16(what string) string {
	n := int(r.u16(what))
	return string(r.bytes(n, what))
}

func (r *reader) constant(i int) any {
	tag := r.u8("constant tag")
	if r.err != nil {
		return nil
	}
	switch tag {
	case constNil:
		return nil
	case constFalse:
		return false
	case constTrue:
		return true
	case constInt:
		return int64(r.u64("int constant"))
	case constFloat:
		return math.Float64frombits(r.u64("float constant"))
	case constString:
		return string(r.bytes(int(r.u32("string constant length")), "string constant"))
	case constBytes:
		return append([]byte(nil), r.bytes(int(r.u32("bytes constant length")), "bytes constant")...)
	default:
		if r.err == nil {
			r.err = fmt.Errorf("assemble: unknown constant tag %d for constant %d", tag, i)
		}
		return nil
	}
}
