package classfile

import (
	"math"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// Tag identifies the kind of a constant pool entry.
type Tag uint8

// Constant pool tags.
const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

var tagNames = map[Tag]string{
	TagUtf8:               "Utf8",
	TagInteger:            "Integer",
	TagFloat:              "Float",
	TagLong:               "Long",
	TagDouble:             "Double",
	TagClass:              "Class",
	TagString:             "String",
	TagFieldref:           "Fieldref",
	TagMethodref:          "Methodref",
	TagInterfaceMethodref: "InterfaceMethodref",
	TagNameAndType:        "NameAndType",
	TagMethodHandle:       "MethodHandle",
	TagMethodType:         "MethodType",
	TagDynamic:            "Dynamic",
	TagInvokeDynamic:      "InvokeDynamic",
	TagModule:             "Module",
	TagPackage:            "Package",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	if t == 0 {
		return "unusable"
	}
	return "tag(" + strconv.Itoa(int(t)) + ")"
}

// Constant is one decoded constant pool entry.
//
// Only the fields relevant to Tag are set. Ref1/Ref2 hold pool indices:
//
//	Class, String, MethodType, Module, Package: Ref1 = Utf8 index
//	Fieldref, Methodref, InterfaceMethodref:    Ref1 = Class, Ref2 = NameAndType
//	NameAndType:                                Ref1 = name, Ref2 = descriptor
//	Dynamic, InvokeDynamic:                     Ref1 = bootstrap method, Ref2 = NameAndType
//	MethodHandle:                               RefKind = reference kind, Ref1 = member ref
type Constant struct {
	Tag     Tag
	Utf8    string
	Int     int32
	Float   float32
	Long    int64
	Double  float64
	Ref1    uint16
	Ref2    uint16
	RefKind uint8
}

// Pool is the constant pool, indexed 1..len-1. Slot 0 and the slot after
// every Long or Double have a zero Tag and are unusable.
type Pool []Constant

// readPool decodes count-1 entries following the count field.
func readPool(r *reader, count uint16) (Pool, error) {
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, malformed("constant pool count is zero")
	}

	pool := make(Pool, count)
	for i := 1; i < int(count); i++ {
		tag := Tag(r.u1())
		if r.err != nil {
			return nil, r.err
		}

		c := Constant{Tag: tag}
		switch tag {
		case TagUtf8:
			n := int(r.u2())
			c.Utf8 = decodeModifiedUTF8(r.bytes(n))
		case TagInteger:
			c.Int = int32(r.u4())
		case TagFloat:
			c.Float = math.Float32frombits(r.u4())
		case TagLong:
			c.Long = int64(r.u8())
		case TagDouble:
			c.Double = math.Float64frombits(r.u8())
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.Ref1 = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			c.Ref1 = r.u2()
			c.Ref2 = r.u2()
		case TagMethodHandle:
			c.RefKind = r.u1()
			c.Ref1 = r.u2()
		default:
			return nil, malformed("unknown constant pool tag %d at index %d", tag, i)
		}
		if r.err != nil {
			return nil, r.err
		}

		pool[i] = c
		if tag == TagLong || tag == TagDouble {
			// The next index is the phantom slot; it must exist.
			i++
			if i >= int(count) {
				return nil, malformed("%s at index %d overflows the constant pool", tag, i-1)
			}
		}
	}

	return pool, nil
}

// get returns the entry at index, checking that it is usable and, when
// wanted is non-empty, that its tag is one of wanted.
func (p Pool) get(index uint16, wanted ...Tag) (*Constant, error) {
	if index == 0 || int(index) >= len(p) {
		return nil, malformed("constant pool index %d out of range [1,%d)", index, len(p))
	}
	c := &p[index]
	if c.Tag == 0 {
		return nil, malformed("constant pool index %d is unusable", index)
	}
	if len(wanted) == 0 {
		return c, nil
	}
	for _, t := range wanted {
		if c.Tag == t {
			return c, nil
		}
	}
	return nil, malformed("constant pool index %d is %s, want %v", index, c.Tag, wanted)
}

// Utf8 resolves a Utf8 entry.
func (p Pool) Utf8(index uint16) (string, error) {
	c, err := p.get(index, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Utf8, nil
}

// ClassName resolves a Class entry to its internal name.
func (p Pool) ClassName(index uint16) (string, error) {
	c, err := p.get(index, TagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(c.Ref1)
}

// nameAndType resolves a NameAndType entry.
func (p Pool) nameAndType(index uint16) (name, desc string, err error) {
	c, err := p.get(index, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.Utf8(c.Ref1); err != nil {
		return "", "", err
	}
	if desc, err = p.Utf8(c.Ref2); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// Literal resolves a loadable constant into a Literal. Dynamic constants
// render as "name : descriptor" only; Class.Literal adds their bootstrap
// method and arguments.
func (p Pool) Literal(index uint16) (Literal, error) {
	c, err := p.get(index)
	if err != nil {
		return Literal{}, err
	}

	switch c.Tag {
	case TagInteger:
		return Literal{Kind: LiteralInt, Int: int64(c.Int)}, nil
	case TagFloat:
		return Literal{Kind: LiteralFloat, Float: float64(c.Float)}, nil
	case TagLong:
		return Literal{Kind: LiteralLong, Int: c.Long}, nil
	case TagDouble:
		return Literal{Kind: LiteralDouble, Float: c.Double}, nil
	case TagString:
		s, err := p.Utf8(c.Ref1)
		if err != nil {
			return Literal{}, err
		}
		return Literal{Kind: LiteralString, Text: s}, nil
	case TagClass:
		name, err := p.Utf8(c.Ref1)
		if err != nil {
			return Literal{}, err
		}
		return Literal{Kind: LiteralClass, Text: objectDescriptor(name)}, nil
	case TagMethodType:
		desc, err := p.Utf8(c.Ref1)
		if err != nil {
			return Literal{}, err
		}
		return Literal{Kind: LiteralMethodType, Text: desc}, nil
	case TagMethodHandle:
		return p.methodHandle(c)
	case TagDynamic:
		name, desc, err := p.nameAndType(c.Ref2)
		if err != nil {
			return Literal{}, err
		}
		return Literal{Kind: LiteralDynamic, Text: name + " : " + desc}, nil
	default:
		return Literal{}, malformed("constant pool index %d (%s) is not loadable", index, c.Tag)
	}
}

// methodHandle renders a MethodHandle as "owner.name<descriptor> (kind)", with
// " itf" appended to the kind for interface members.
func (p Pool) methodHandle(c *Constant) (Literal, error) {
	if c.RefKind < 1 || c.RefKind > 9 {
		return Literal{}, malformed("method handle kind %d out of range", c.RefKind)
	}
	ref, err := p.get(c.Ref1, TagFieldref, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return Literal{}, err
	}
	owner, err := p.ClassName(ref.Ref1)
	if err != nil {
		return Literal{}, err
	}
	name, desc, err := p.nameAndType(ref.Ref2)
	if err != nil {
		return Literal{}, err
	}

	kind := strconv.Itoa(int(c.RefKind))
	if ref.Tag == TagInterfaceMethodref {
		kind += " itf"
	}
	return Literal{Kind: LiteralMethodHandle, Text: owner + "." + name + desc + " (" + kind + ")"}, nil
}

// objectDescriptor turns an internal class name into a type descriptor.
// Array class names are already descriptors.
func objectDescriptor(internalName string) string {
	if len(internalName) > 0 && internalName[0] == '[' {
		return internalName
	}
	return "L" + internalName + ";"
}

// decodeModifiedUTF8 decodes the class file string encoding: NUL is two
// bytes and supplementary characters are encoded as surrogate pairs.
// Invalid sequences decode to U+FFFD.
func decodeModifiedUTF8(b []byte) string {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b) && b[i+1]&0xC0 == 0x80:
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b) && b[i+1]&0xC0 == 0x80 && b[i+2]&0xC0 == 0x80:
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, utf8.RuneError)
			i++
		}
	}
	return string(utf16.Decode(units))
}
