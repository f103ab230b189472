// Package classfile decodes the JVM class file format far enough to search
// it: the constant pool, the field and method tables, ConstantValue
// attributes, and the ldc-family instructions inside Code attributes.
//
// Decoding is strict and forward-only. Anything that does not parse as a
// well-formed class file is reported as ErrMalformed; nothing is repaired.
package classfile

// Magic is the first four bytes of every class file.
const Magic uint32 = 0xCAFEBABE

// minMajorVersion is the oldest class file format (JDK 1.0.2).
const minMajorVersion = 45

const (
	attrConstantValue    = "ConstantValue"
	attrCode             = "Code"
	attrBootstrapMethods = "BootstrapMethods"
)

// Class is a decoded class file.
type Class struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         Pool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []Field
	Methods      []Method
	// Bootstraps is the BootstrapMethods attribute, indexed by the
	// bootstrap operand of Dynamic and InvokeDynamic constants.
	Bootstraps []Bootstrap
}

// Bootstrap is one entry of the BootstrapMethods attribute.
type Bootstrap struct {
	Method uint16 // MethodHandle index
	Args   []uint16
}

// Field is one entry of the field table.
type Field struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	// Value is the resolved ConstantValue attribute, nil when absent.
	Value *Literal
}

// Method is one entry of the method table.
type Method struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	// Code is the instruction array of the Code attribute, nil for
	// abstract and native methods.
	Code []byte
}

// Name returns the internal name of the class (e.g. "java/lang/String").
func (c *Class) Name() string {
	// Decode has already checked ThisClass.
	name, _ := c.Pool.ClassName(c.ThisClass)
	return name
}

// Decode parses data as a class file.
func Decode(data []byte) (*Class, error) {
	r := newReader(data)

	if magic := r.u4(); r.err == nil && magic != Magic {
		return nil, malformed("bad magic 0x%08X", magic)
	}
	c := &Class{}
	c.MinorVersion = r.u2()
	c.MajorVersion = r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if c.MajorVersion < minMajorVersion {
		return nil, malformed("unsupported major version %d", c.MajorVersion)
	}

	pool, err := readPool(r, r.u2())
	if err != nil {
		return nil, err
	}
	c.Pool = pool

	c.AccessFlags = r.u2()
	c.ThisClass = r.u2()
	c.SuperClass = r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if _, err := pool.ClassName(c.ThisClass); err != nil {
		return nil, err
	}
	if c.SuperClass != 0 {
		if _, err := pool.ClassName(c.SuperClass); err != nil {
			return nil, err
		}
	}

	interfaceCount := int(r.u2())
	c.Interfaces = make([]uint16, 0, interfaceCount)
	for i := 0; i < interfaceCount; i++ {
		c.Interfaces = append(c.Interfaces, r.u2())
	}
	if r.err != nil {
		return nil, r.err
	}

	fieldCount := int(r.u2())
	for i := 0; i < fieldCount; i++ {
		f, err := readField(r, pool)
		if err != nil {
			return nil, err
		}
		c.Fields = append(c.Fields, f)
	}

	methodCount := int(r.u2())
	for i := 0; i < methodCount; i++ {
		m, err := readMethod(r, pool)
		if err != nil {
			return nil, err
		}
		c.Methods = append(c.Methods, m)
	}

	_, err = readAttributes(r, pool, func(attrName string, body []byte) error {
		if attrName != attrBootstrapMethods {
			return nil
		}
		bootstraps, err := readBootstraps(body)
		c.Bootstraps = bootstraps
		return err
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// memberHeader reads access flags, name and descriptor shared by fields and
// methods.
func memberHeader(r *reader, pool Pool) (access uint16, name, desc string, err error) {
	access = r.u2()
	nameIndex := r.u2()
	descIndex := r.u2()
	if r.err != nil {
		return 0, "", "", r.err
	}
	if name, err = pool.Utf8(nameIndex); err != nil {
		return 0, "", "", err
	}
	if desc, err = pool.Utf8(descIndex); err != nil {
		return 0, "", "", err
	}
	return access, name, desc, nil
}

func readField(r *reader, pool Pool) (Field, error) {
	access, name, desc, err := memberHeader(r, pool)
	if err != nil {
		return Field{}, err
	}
	f := Field{AccessFlags: access, Name: name, Descriptor: desc}

	_, err = readAttributes(r, pool, func(attrName string, body []byte) error {
		if attrName != attrConstantValue {
			return nil
		}
		if len(body) != 2 {
			return malformed("ConstantValue attribute of field %s has length %d", name, len(body))
		}
		lit, err := pool.constantValue(uint16(body[0])<<8 | uint16(body[1]))
		if err != nil {
			return err
		}
		f.Value = &lit
		return nil
	})
	return f, err
}

func readMethod(r *reader, pool Pool) (Method, error) {
	access, name, desc, err := memberHeader(r, pool)
	if err != nil {
		return Method{}, err
	}
	m := Method{AccessFlags: access, Name: name, Descriptor: desc}

	_, err = readAttributes(r, pool, func(attrName string, body []byte) error {
		if attrName != attrCode {
			return nil
		}
		code, err := codeArray(body)
		if err != nil {
			return malformed("Code attribute of method %s%s: %v", name, desc, err)
		}
		m.Code = code
		return nil
	})
	return m, err
}

// readAttributes walks an attribute table, calling visit (if non-nil) with
// each attribute's name and body. It returns the number of attributes.
func readAttributes(r *reader, pool Pool, visit func(name string, body []byte) error) (int, error) {
	count := int(r.u2())
	for i := 0; i < count; i++ {
		nameIndex := r.u2()
		length := r.u4()
		if r.err != nil {
			return i, r.err
		}
		if uint64(length) > uint64(len(r.buf)-r.pos) {
			return i, malformed("attribute length %d exceeds remaining %d bytes", length, len(r.buf)-r.pos)
		}
		body := r.bytes(int(length))

		name, err := pool.Utf8(nameIndex)
		if err != nil {
			return i, err
		}
		if visit != nil {
			if err := visit(name, body); err != nil {
				return i, err
			}
		}
	}
	return count, r.err
}

// codeArray extracts the instruction bytes from a Code attribute body.
// max_stack, max_locals, the exception table and nested attributes are
// skipped structurally.
func codeArray(body []byte) ([]byte, error) {
	r := newReader(body)
	r.skip(4) // max_stack, max_locals
	codeLength := r.u4()
	if r.err != nil {
		return nil, r.err
	}
	if codeLength == 0 || uint64(codeLength) > uint64(len(body)-r.pos) {
		return nil, malformed("code length %d out of range", codeLength)
	}
	code := r.bytes(int(codeLength))

	exceptions := int(r.u2())
	r.skip(exceptions * 8)

	attrs := int(r.u2())
	for i := 0; i < attrs; i++ {
		r.skip(2)
		r.skip(int(r.u4()))
	}
	if r.err != nil {
		return nil, r.err
	}
	return code, nil
}

func readBootstraps(body []byte) ([]Bootstrap, error) {
	r := newReader(body)
	count := int(r.u2())
	out := make([]Bootstrap, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		b := Bootstrap{Method: r.u2()}
		nargs := int(r.u2())
		for j := 0; j < nargs && r.err == nil; j++ {
			b.Args = append(b.Args, r.u2())
		}
		out = append(out, b)
	}
	if r.err != nil {
		return nil, r.err
	}
	return out, nil
}

// constantValue resolves the index of a ConstantValue attribute.
func (p Pool) constantValue(index uint16) (Literal, error) {
	if _, err := p.get(index, TagInteger, TagFloat, TagLong, TagDouble, TagString); err != nil {
		return Literal{}, err
	}
	return p.Literal(index)
}
