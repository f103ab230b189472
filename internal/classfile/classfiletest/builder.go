// Package classfiletest builds class files byte by byte for tests.
package classfiletest

import (
	"encoding/binary"
	"math"
)

// Constant pool tags used by the builder.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
)

// Builder assembles a class file. Every method body gets one exception
// table entry and a LineNumberTable attribute, fields with a constant get a
// Synthetic attribute first, and the class gets a SourceFile attribute, so
// decoders have to skip attributes they do not interpret.
type Builder struct {
	pool    []byte
	next    uint16
	utf8s   map[string]uint16
	this    uint16
	super   uint16
	fields  [][]byte
	methods [][]byte

	// bootstraps are encoded BootstrapMethods entries
	bootstraps [][]byte
}

// New starts a class file for the class with internal name name.
func New(name string) *Builder {
	b := &Builder{next: 1, utf8s: map[string]uint16{}}
	b.this = b.Class(name)
	b.super = b.Class("java/lang/Object")
	b.Utf8("SourceFile")
	b.Utf8("Test.java")
	return b
}

// Entry appends a raw constant pool entry occupying slots indices and
// returns its index.
func (b *Builder) Entry(slots uint16, data ...byte) uint16 {
	idx := b.next
	b.pool = append(b.pool, data...)
	b.next += slots
	return idx
}

// Utf8 returns the index of a Utf8 entry holding s, adding it if needed.
// s is stored as given, so tests can embed modified UTF-8 sequences.
func (b *Builder) Utf8(s string) uint16 {
	if idx, ok := b.utf8s[s]; ok {
		return idx
	}
	data := []byte{TagUtf8}
	data = binary.BigEndian.AppendUint16(data, uint16(len(s)))
	data = append(data, s...)
	idx := b.Entry(1, data...)
	b.utf8s[s] = idx
	return idx
}

// Ref appends an entry with one u2 reference (Class, String, MethodType).
func (b *Builder) Ref(tag byte, target uint16) uint16 {
	return b.Entry(1, tag, byte(target>>8), byte(target))
}

// Ref2 appends an entry with two u2 references (member refs, NameAndType,
// Dynamic).
func (b *Builder) Ref2(tag byte, r1, r2 uint16) uint16 {
	return b.Entry(1, tag, byte(r1>>8), byte(r1), byte(r2>>8), byte(r2))
}

func (b *Builder) Class(name string) uint16 { return b.Ref(TagClass, b.Utf8(name)) }
func (b *Builder) Str(s string) uint16   { return b.Ref(TagString, b.Utf8(s)) }
func (b *Builder) MethodType(desc string) uint16 {
	return b.Ref(TagMethodType, b.Utf8(desc))
}

func (b *Builder) Integer(v int32) uint16 {
	return b.Entry(1, binary.BigEndian.AppendUint32([]byte{TagInteger}, uint32(v))...)
}

func (b *Builder) Float(v float32) uint16 {
	return b.Entry(1, binary.BigEndian.AppendUint32([]byte{TagFloat}, math.Float32bits(v))...)
}

func (b *Builder) Long(v int64) uint16 {
	return b.Entry(2, binary.BigEndian.AppendUint64([]byte{TagLong}, uint64(v))...)
}

func (b *Builder) Double(v float64) uint16 {
	return b.Entry(2, binary.BigEndian.AppendUint64([]byte{TagDouble}, math.Float64bits(v))...)
}

// MethodHandle appends a MethodHandle of kind referring to owner.name desc
// through a member ref tagged refTag.
func (b *Builder) MethodHandle(kind uint8, refTag byte, owner, name, desc string) uint16 {
	nat := b.Ref2(TagNameAndType, b.Utf8(name), b.Utf8(desc))
	ref := b.Ref2(refTag, b.Class(owner), nat)
	return b.Entry(1, TagMethodHandle, kind, byte(ref>>8), byte(ref))
}

// BootstrapMethod adds a BootstrapMethods entry and returns its index.
func (b *Builder) BootstrapMethod(handle uint16, args ...uint16) uint16 {
	out := binary.BigEndian.AppendUint16(nil, handle)
	out = binary.BigEndian.AppendUint16(out, uint16(len(args)))
	for _, a := range args {
		out = binary.BigEndian.AppendUint16(out, a)
	}
	b.bootstraps = append(b.bootstraps, out)
	return uint16(len(b.bootstraps) - 1)
}

// Dynamic appends a Dynamic constant name:desc produced by bootstrap
// method bsm.
func (b *Builder) Dynamic(bsm uint16, name, desc string) uint16 {
	return b.Ref2(TagDynamic, bsm, b.Ref2(TagNameAndType, b.Utf8(name), b.Utf8(desc)))
}

// Attribute encodes an attribute.
func Attribute(nameIndex uint16, body []byte) []byte {
	out := binary.BigEndian.AppendUint16(nil, nameIndex)
	out = binary.BigEndian.AppendUint32(out, uint32(len(body)))
	return append(out, body...)
}

// Field adds a field; constIndex 0 means no ConstantValue attribute.
func (b *Builder) Field(name, desc string, constIndex uint16) {
	out := binary.BigEndian.AppendUint16(nil, 0x0019) // public static final
	out = binary.BigEndian.AppendUint16(out, b.Utf8(name))
	out = binary.BigEndian.AppendUint16(out, b.Utf8(desc))
	if constIndex == 0 {
		out = binary.BigEndian.AppendUint16(out, 0)
	} else {
		out = binary.BigEndian.AppendUint16(out, 2)
		out = append(out, Attribute(b.Utf8("Synthetic"), nil)...)
		out = append(out, Attribute(b.Utf8("ConstantValue"), binary.BigEndian.AppendUint16(nil, constIndex))...)
	}
	b.fields = append(b.fields, out)
}

// RawField adds a field carrying the given encoded attributes.
func (b *Builder) RawField(name, desc string, attrs ...[]byte) {
	out := binary.BigEndian.AppendUint16(nil, 0x0019)
	out = binary.BigEndian.AppendUint16(out, b.Utf8(name))
	out = binary.BigEndian.AppendUint16(out, b.Utf8(desc))
	out = binary.BigEndian.AppendUint16(out, uint16(len(attrs)))
	for _, a := range attrs {
		out = append(out, a...)
	}
	b.fields = append(b.fields, out)
}

// Method adds a method; nil code means no Code attribute.
func (b *Builder) Method(name, desc string, code []byte) {
	out := binary.BigEndian.AppendUint16(nil, 0x0001)
	out = binary.BigEndian.AppendUint16(out, b.Utf8(name))
	out = binary.BigEndian.AppendUint16(out, b.Utf8(desc))
	if code == nil {
		out = binary.BigEndian.AppendUint16(out, 0)
	} else {
		body := []byte{0, 4, 0, 2} // max_stack, max_locals
		body = binary.BigEndian.AppendUint32(body, uint32(len(code)))
		body = append(body, code...)
		body = append(body, 0, 1, 0, 0, 0, 1, 0, 1, 0, 0) // one exception table entry
		lines := []byte{0, 1, 0, 0, 0, 7}
		body = append(body, 0, 1)
		body = append(body, Attribute(b.Utf8("LineNumberTable"), lines)...)
		out = binary.BigEndian.AppendUint16(out, 1)
		out = append(out, Attribute(b.Utf8("Code"), body)...)
	}
	b.methods = append(b.methods, out)
}

// Bytes returns the encoded class file.
func (b *Builder) Bytes() []byte {
	sourceFile := b.Utf8("SourceFile")
	sourceName := b.Utf8("Test.java")
	attrs := [][]byte{Attribute(sourceFile, binary.BigEndian.AppendUint16(nil, sourceName))}
	if len(b.bootstraps) > 0 {
		body := binary.BigEndian.AppendUint16(nil, uint16(len(b.bootstraps)))
		for _, bsm := range b.bootstraps {
			body = append(body, bsm...)
		}
		attrs = append(attrs, Attribute(b.Utf8("BootstrapMethods"), body))
	}

	out := binary.BigEndian.AppendUint32(nil, 0xCAFEBABE)
	out = append(out, 0, 0, 0, 52) // Java 8
	out = binary.BigEndian.AppendUint16(out, b.next)
	out = append(out, b.pool...)
	out = append(out, 0x00, 0x21) // public super
	out = binary.BigEndian.AppendUint16(out, b.this)
	out = binary.BigEndian.AppendUint16(out, b.super)
	out = append(out, 0, 0) // interfaces
	out = binary.BigEndian.AppendUint16(out, uint16(len(b.fields)))
	for _, f := range b.fields {
		out = append(out, f...)
	}
	out = binary.BigEndian.AppendUint16(out, uint16(len(b.methods)))
	for _, m := range b.methods {
		out = append(out, m...)
	}
	out = binary.BigEndian.AppendUint16(out, uint16(len(attrs)))
	for _, a := range attrs {
		out = append(out, a...)
	}
	return out
}
