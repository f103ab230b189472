package classfile

import "encoding/binary"

// LiteralFunc receives each literal loaded by an ldc-family instruction
// together with the instruction's offset in the code array. Returning false
// stops the walk.
type LiteralFunc func(offset int, lit Literal) bool

// Literals walks code one instruction at a time and calls fn for every
// ldc, ldc_w and ldc2_w. Operand bytes are skipped using the opcode width
// table, so they are never mistaken for opcodes.
func (c *Class) Literals(code []byte, fn LiteralFunc) error {
	for pc := 0; pc < len(code); {
		op := Opcode(code[pc])

		width, err := instructionWidth(code, pc)
		if err != nil {
			return err
		}
		if pc+width > len(code) {
			return malformed("instruction 0x%02X at offset %d overruns code (%d bytes)", byte(op), pc, len(code))
		}

		switch op {
		case OpLdc, OpLdcW, OpLdc2W:
			index := uint16(code[pc+1])
			if op != OpLdc {
				index = binary.BigEndian.Uint16(code[pc+1:])
			}
			lit, err := c.Literal(index)
			if err != nil {
				return err
			}
			if !fn(pc, lit) {
				return nil
			}
		}

		pc += width
	}
	return nil
}

// instructionWidth returns the total length of the instruction at pc.
func instructionWidth(code []byte, pc int) (int, error) {
	op := Opcode(code[pc])
	width := int(opcodeWidth[op])

	switch width {
	case 0:
		return 0, malformed("undefined opcode 0x%02X at offset %d", byte(op), pc)
	case widthVariable:
	default:
		return width, nil
	}

	switch op {
	case OpWide:
		if pc+1 >= len(code) {
			return 0, malformed("truncated wide instruction at offset %d", pc)
		}
		target := Opcode(code[pc+1])
		if !wideTarget(target) {
			return 0, malformed("opcode 0x%02X cannot be widened (offset %d)", byte(target), pc)
		}
		if target == OpIinc {
			return 6, nil
		}
		return 4, nil

	case OpTableswitch, OpLookupswitch:
		// Operands start at the next 4-byte boundary of the code array.
		base := (pc + 4) &^ 3
		header := 12 // default, low, high
		if op == OpLookupswitch {
			header = 8 // default, npairs
		}
		if base+header > len(code) {
			return 0, malformed("truncated switch at offset %d", pc)
		}
		if op == OpTableswitch {
			low := int64(int32(binary.BigEndian.Uint32(code[base+4:])))
			high := int64(int32(binary.BigEndian.Uint32(code[base+8:])))
			if high < low {
				return 0, malformed("tableswitch at offset %d has high %d < low %d", pc, high, low)
			}
			end := int64(base) + 12 + (high-low+1)*4
			if end > int64(len(code)) {
				return 0, malformed("tableswitch at offset %d overruns code", pc)
			}
			return int(end) - pc, nil
		}
		npairs := int64(int32(binary.BigEndian.Uint32(code[base+4:])))
		if npairs < 0 {
			return 0, malformed("lookupswitch at offset %d has %d pairs", pc, npairs)
		}
		end := int64(base) + 8 + npairs*8
		if end > int64(len(code)) {
			return 0, malformed("lookupswitch at offset %d overruns code", pc)
		}
		return int(end) - pc, nil
	}

	return 0, malformed("unhandled variable-width opcode 0x%02X", byte(op))
}
