package classfile

import (
	"errors"
	"math"
	"testing"

	"github.com/harrison/jargrep/internal/classfile/classfiletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMinimal(t *testing.T) {
	b := classfiletest.New("com/example/Empty")
	c, err := Decode(b.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "com/example/Empty", c.Name())
	assert.Equal(t, uint16(52), c.MajorVersion)
	assert.Empty(t, c.Fields)
	assert.Empty(t, c.Methods)
}

func TestDecodeFields(t *testing.T) {
	b := classfiletest.New("com/example/Constants")
	b.Field("ANSWER", "I", b.Integer(42))
	b.Field("FLAG", "Z", b.Integer(1))
	b.Field("RATIO", "F", b.Float(0.5))
	b.Field("BIG", "J", b.Long(1<<40))
	b.Field("PI", "D", b.Double(math.Pi))
	b.Field("GREETING", "Ljava/lang/String;", b.Str("hello"))
	b.Field("plain", "Ljava/util/List;", 0)

	c, err := Decode(b.Bytes())
	require.NoError(t, err)
	require.Len(t, c.Fields, 7)

	want := []struct {
		name  string
		value string
	}{
		{"ANSWER", "42"},
		{"FLAG", "1"},
		{"RATIO", "0.5"},
		{"BIG", "1099511627776"},
		{"PI", "3.141592653589793"},
		{"GREETING", "hello"},
	}
	for i, w := range want {
		f := c.Fields[i]
		assert.Equal(t, w.name, f.Name)
		require.NotNil(t, f.Value, f.Name)
		assert.Equal(t, w.value, f.Value.String(), f.Name)

		kind, ok := DescriptorKind(f.Descriptor)
		require.True(t, ok, f.Descriptor)
		assert.Equal(t, kind, f.Value.Kind, "%s: value kind must agree with descriptor %s", f.Name, f.Descriptor)
	}

	assert.Equal(t, "plain", c.Fields[6].Name)
	assert.Nil(t, c.Fields[6].Value)
}

func TestDecodeMethods(t *testing.T) {
	b := classfiletest.New("com/example/Methods")
	b.Method("run", "()V", []byte{0xB1})
	b.Method("abstractOne", "()I", nil)

	c, err := Decode(b.Bytes())
	require.NoError(t, err)
	require.Len(t, c.Methods, 2)

	assert.Equal(t, "run", c.Methods[0].Name)
	assert.Equal(t, "()V", c.Methods[0].Descriptor)
	assert.Equal(t, []byte{0xB1}, c.Methods[0].Code)
	assert.Equal(t, "abstractOne", c.Methods[1].Name)
	assert.Nil(t, c.Methods[1].Code)
}

func TestDecodeEveryTruncationFails(t *testing.T) {
	b := classfiletest.New("com/example/Full")
	b.Field("X", "J", b.Long(7))
	b.Field("S", "Ljava/lang/String;", b.Str("text"))
	idx := b.Str("needle")
	b.Method("m", "()V", []byte{byte(OpLdc), byte(idx), 0x57, 0xB1})
	data := b.Bytes()

	_, err := Decode(data)
	require.NoError(t, err)

	for n := 0; n < len(data); n++ {
		_, err := Decode(data[:n])
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(prefix %d of %d) error = %v, want ErrMalformed", n, len(data), err)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	valid := classfiletest.New("A").Bytes()

	tests := []struct {
		name  string
		build func() []byte
	}{
		{
			name: "bad magic",
			build: func() []byte {
				data := append([]byte(nil), valid...)
				data[0] = 0xCA
				data[3] = 0xFF
				return data
			},
		},
		{
			name: "major version too old",
			build: func() []byte {
				data := append([]byte(nil), valid...)
				data[6], data[7] = 0, 44
				return data
			},
		},
		{
			name: "unknown constant tag",
			build: func() []byte {
				b := classfiletest.New("A")
				b.Entry(1, 2, 0, 0) // tag 2 is not assigned
				return b.Bytes()
			},
		},
		{
			name: "long in last pool slot",
			build: func() []byte {
				b := classfiletest.New("A")
				b.Long(1)
				data := b.Bytes()
				// Shrink the pool count by one so the phantom slot falls outside.
				data[9]--
				return data
			},
		},
		{
			name: "field references phantom slot",
			build: func() []byte {
				b := classfiletest.New("A")
				long := b.Long(9)
				b.Field("X", "J", long+1)
				return b.Bytes()
			},
		},
		{
			name: "constant value index zero",
			build: func() []byte {
				b := classfiletest.New("A")
				b.RawField("X", "I", classfiletest.Attribute(b.Utf8("ConstantValue"), []byte{0, 0}))
				return b.Bytes()
			},
		},
		{
			name: "constant value attribute too long",
			build: func() []byte {
				b := classfiletest.New("A")
				v := b.Integer(3)
				b.RawField("X", "I", classfiletest.Attribute(b.Utf8("ConstantValue"), []byte{0, byte(v), 0}))
				return b.Bytes()
			},
		},
		{
			name: "constant value of wrong tag",
			build: func() []byte {
				b := classfiletest.New("A")
				b.Field("X", "I", b.MethodType("()V"))
				return b.Bytes()
			},
		},
		{
			name: "code length zero",
			build: func() []byte {
				b := classfiletest.New("A")
				b.Method("m", "()V", []byte{})
				return b.Bytes()
			},
		},
		{
			name: "trailing attribute overruns",
			build: func() []byte {
				data := append([]byte(nil), valid...)
				// The SourceFile attribute's u4 length ends three bytes from the end.
				data[len(data)-3] = 0x10
				return data
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.build())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestPoolLiteralRendering(t *testing.T) {
	b := classfiletest.New("A")
	cls := b.Class("java/util/Map")
	arr := b.Class("[Ljava/lang/String;")
	mt := b.MethodType("(I)Ljava/lang/String;")
	mh := b.MethodHandle(6, byte(TagMethodref), "java/lang/Integer", "valueOf", "(I)Ljava/lang/Integer;")
	mhItf := b.MethodHandle(9, byte(TagInterfaceMethodref), "java/util/List", "size", "()I")
	nat := b.Ref2(byte(TagNameAndType), b.Utf8("CONST"), b.Utf8("Ljava/lang/Object;"))
	dyn := b.Ref2(byte(TagDynamic), 0, nat)
	nul := b.Ref(byte(TagString), b.Utf8("a\xC0\x80b"))
	emoji := b.Ref(byte(TagString), b.Utf8("\xED\xA0\xBD\xED\xB8\x80"))

	c, err := Decode(b.Bytes())
	require.NoError(t, err)

	tests := []struct {
		index uint16
		kind  LiteralKind
		want  string
	}{
		{cls, LiteralClass, "Ljava/util/Map;"},
		{arr, LiteralClass, "[Ljava/lang/String;"},
		{mt, LiteralMethodType, "(I)Ljava/lang/String;"},
		{mh, LiteralMethodHandle, "java/lang/Integer.valueOf(I)Ljava/lang/Integer; (6)"},
		{mhItf, LiteralMethodHandle, "java/util/List.size()I (9 itf)"},
		{dyn, LiteralDynamic, "CONST : Ljava/lang/Object;"},
		{nul, LiteralString, "a\x00b"},
		{emoji, LiteralString, "\U0001F600"},
	}
	for _, tt := range tests {
		lit, err := c.Pool.Literal(tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.kind, lit.Kind)
		assert.Equal(t, tt.want, lit.String())
	}

	_, err = c.Pool.Literal(nat)
	assert.ErrorIs(t, err, ErrMalformed, "NameAndType is not loadable")
	_, err = c.Pool.Literal(0)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = c.Pool.Literal(uint16(len(c.Pool)))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDynamicLiteralWithBootstrap(t *testing.T) {
	b := classfiletest.New("A")
	handle := b.MethodHandle(6, byte(TagMethodref), "java/lang/invoke/ConstantBootstraps", "invoke", "()Ljava/lang/Object;")
	inner := b.Dynamic(b.BootstrapMethod(handle), "INNER", "I")
	outer := b.Dynamic(b.BootstrapMethod(handle, b.Integer(42), b.Str("x"), b.Class("java/util/List"), inner), "CONST", "Ljava/lang/Object;")
	b.Method("get", "()Ljava/lang/Object;", []byte{0x13, byte(outer >> 8), byte(outer), 0xB0})

	c, err := Decode(b.Bytes())
	require.NoError(t, err)
	require.Len(t, c.Bootstraps, 2)

	bsm := "java/lang/invoke/ConstantBootstraps.invoke()Ljava/lang/Object; (6)"
	want := "CONST : Ljava/lang/Object; " + bsm + " [42, x, Ljava/util/List;, INNER : I " + bsm + " []]"

	lit, err := c.Literal(outer)
	require.NoError(t, err)
	assert.Equal(t, LiteralDynamic, lit.Kind)
	assert.Equal(t, want, lit.String())

	var got []string
	require.NoError(t, c.Literals(c.Methods[0].Code, func(_ int, lit Literal) bool {
		got = append(got, lit.String())
		return true
	}))
	assert.Equal(t, []string{want}, got)

	poolOnly, err := c.Pool.Literal(outer)
	require.NoError(t, err)
	assert.Equal(t, "CONST : Ljava/lang/Object;", poolOnly.String())
}

func TestDynamicLiteralMalformed(t *testing.T) {
	t.Run("missing bootstrap method", func(t *testing.T) {
		b := classfiletest.New("A")
		dyn := b.Dynamic(3, "X", "I")
		c, err := Decode(b.Bytes())
		require.NoError(t, err)
		_, err = c.Literal(dyn)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("bootstrap method is not a handle", func(t *testing.T) {
		b := classfiletest.New("A")
		dyn := b.Dynamic(b.BootstrapMethod(b.Str("nope")), "X", "I")
		c, err := Decode(b.Bytes())
		require.NoError(t, err)
		_, err = c.Literal(dyn)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("self reference", func(t *testing.T) {
		b := classfiletest.New("A")
		handle := b.MethodHandle(6, byte(TagMethodref), "B", "bsm", "()I")
		dyn := b.Dynamic(0, "X", "I")
		b.BootstrapMethod(handle, dyn)
		c, err := Decode(b.Bytes())
		require.NoError(t, err)
		_, err = c.Literal(dyn)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("truncated attribute", func(t *testing.T) {
		b := classfiletest.New("A")
		b.BootstrapMethod(b.Str("x"), 1, 2)
		data := b.Bytes()
		// Claim one more argument than the entry holds. The attribute ends
		// the file: count(2) method(2) nargs(2) args(4).
		data[len(data)-5]++
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "Utf8", TagUtf8.String())
	assert.Equal(t, "MethodHandle", TagMethodHandle.String())
	assert.Equal(t, "unusable", Tag(0).String())
	assert.Equal(t, "tag(2)", Tag(2).String())
}
