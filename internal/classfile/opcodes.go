package classfile

// Opcode is a JVM instruction opcode.
type Opcode uint8

// Opcodes the instruction walker treats specially.
const (
	OpLdc          Opcode = 0x12
	OpLdcW         Opcode = 0x13
	OpLdc2W        Opcode = 0x14
	OpIinc         Opcode = 0x84
	OpTableswitch  Opcode = 0xAA
	OpLookupswitch Opcode = 0xAB
	OpWide         Opcode = 0xC4
)

// widthVariable marks opcodes whose length depends on their operands.
const widthVariable = -1

// opcodeWidth is the total instruction length (opcode plus operands) for
// every opcode. Zero means the opcode is undefined.
var opcodeWidth = func() [256]int8 {
	var w [256]int8

	set := func(from, to Opcode, width int8) {
		for op := int(from); op <= int(to); op++ {
			w[op] = width
		}
	}

	set(0x00, 0x0F, 1) // nop, aconst_null, iconst_*, lconst_*, fconst_*, dconst_*
	set(0x10, 0x10, 2) // bipush
	set(0x11, 0x11, 3) // sipush
	set(OpLdc, OpLdc, 2)
	set(OpLdcW, OpLdc2W, 3)
	set(0x15, 0x19, 2) // iload .. aload
	set(0x1A, 0x35, 1) // *load_<n>, *aload
	set(0x36, 0x3A, 2) // istore .. astore
	set(0x3B, 0x83, 1) // *store_<n>, *astore, stack ops, arithmetic
	set(OpIinc, OpIinc, 3)
	set(0x85, 0x98, 1) // conversions, comparisons
	set(0x99, 0xA8, 3) // if*, goto, jsr
	set(0xA9, 0xA9, 2) // ret
	set(OpTableswitch, OpLookupswitch, widthVariable)
	set(0xAC, 0xB1, 1) // *return
	set(0xB2, 0xB8, 3) // field access, invokevirtual/special/static
	set(0xB9, 0xBA, 5) // invokeinterface, invokedynamic
	set(0xBB, 0xBB, 3) // new
	set(0xBC, 0xBC, 2) // newarray
	set(0xBD, 0xBD, 3) // anewarray
	set(0xBE, 0xBF, 1) // arraylength, athrow
	set(0xC0, 0xC1, 3) // checkcast, instanceof
	set(0xC2, 0xC3, 1) // monitorenter, monitorexit
	set(OpWide, OpWide, widthVariable)
	set(0xC5, 0xC5, 4) // multianewarray
	set(0xC6, 0xC7, 3) // ifnull, ifnonnull
	set(0xC8, 0xC9, 5) // goto_w, jsr_w
	set(0xCA, 0xCA, 1) // breakpoint
	set(0xFE, 0xFF, 1) // impdep1, impdep2

	return w
}()

// wideTarget reports whether op may follow the wide prefix.
func wideTarget(op Opcode) bool {
	switch {
	case op >= 0x15 && op <= 0x19: // iload .. aload
		return true
	case op >= 0x36 && op <= 0x3A: // istore .. astore
		return true
	case op == 0xA9, op == OpIinc: // ret, iinc
		return true
	}
	return false
}
