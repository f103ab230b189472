package classfile

import (
	"math"
	"strconv"
	"strings"
)

// LiteralKind classifies a loadable constant.
type LiteralKind int

const (
	LiteralInt LiteralKind = iota + 1
	LiteralFloat
	LiteralLong
	LiteralDouble
	LiteralString
	LiteralClass
	LiteralMethodType
	LiteralMethodHandle
	LiteralDynamic
)

var literalKindNames = [...]string{
	LiteralInt:          "int",
	LiteralFloat:        "float",
	LiteralLong:         "long",
	LiteralDouble:       "double",
	LiteralString:       "String",
	LiteralClass:        "Class",
	LiteralMethodType:   "MethodType",
	LiteralMethodHandle: "MethodHandle",
	LiteralDynamic:      "Dynamic",
}

func (k LiteralKind) String() string {
	if k > 0 && int(k) < len(literalKindNames) {
		return literalKindNames[k]
	}
	return "unknown"
}

// Literal is a constant value loaded by an ldc-family instruction or
// declared by a ConstantValue attribute.
//
// Int holds LiteralInt and LiteralLong values, Float holds LiteralFloat and
// LiteralDouble values, Text holds everything else already rendered.
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Text  string
}

// String renders the literal the way the JVM's toString does, so that
// patterns written against Java output (e.g. "1.0E10") match.
func (l Literal) String() string {
	switch l.Kind {
	case LiteralInt, LiteralLong:
		return strconv.FormatInt(l.Int, 10)
	case LiteralFloat:
		return formatJavaFloat(l.Float, 32)
	case LiteralDouble:
		return formatJavaFloat(l.Float, 64)
	default:
		return l.Text
	}
}

// formatJavaFloat formats v using the shortest representation that round
// trips at bitSize, laid out like Double.toString/Float.toString: plain
// decimal with at least one fractional digit for 1e-3 <= |v| < 1e7,
// otherwise "d.dddE±n".
func formatJavaFloat(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	abs := math.Abs(v)
	if abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(v, 'f', -1, bitSize)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}

	s := strconv.FormatFloat(v, 'e', -1, bitSize)
	mantissa, exp, _ := strings.Cut(s, "e")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	n, err := strconv.Atoi(exp)
	if err != nil {
		return s
	}
	return mantissa + "E" + strconv.Itoa(n)
}

// DescriptorKind returns the literal kind a ConstantValue attribute must
// have for a field with descriptor desc. ok is false for descriptors that
// cannot carry a constant value.
func DescriptorKind(desc string) (kind LiteralKind, ok bool) {
	switch desc {
	case "I", "S", "C", "B", "Z":
		return LiteralInt, true
	case "F":
		return LiteralFloat, true
	case "J":
		return LiteralLong, true
	case "D":
		return LiteralDouble, true
	case "Ljava/lang/String;":
		return LiteralString, true
	default:
		return 0, false
	}
}

// maxDynamicDepth bounds Dynamic constants nested in bootstrap arguments.
const maxDynamicDepth = 16

// Literal resolves a loadable constant like Pool.Literal. A Dynamic
// constant is rendered with its bootstrap method and arguments:
// "name : descriptor owner.bsm(...) (6) [arg, arg]".
func (c *Class) Literal(index uint16) (Literal, error) {
	return c.literal(index, 0)
}

func (c *Class) literal(index uint16, depth int) (Literal, error) {
	lit, err := c.Pool.Literal(index)
	if err != nil || lit.Kind != LiteralDynamic {
		return lit, err
	}
	if depth >= maxDynamicDepth {
		return Literal{}, malformed("dynamic constant %d nested deeper than %d", index, maxDynamicDepth)
	}

	bsmIndex := c.Pool[index].Ref1
	if int(bsmIndex) >= len(c.Bootstraps) {
		return Literal{}, malformed("dynamic constant %d refers to bootstrap method %d of %d", index, bsmIndex, len(c.Bootstraps))
	}
	bsm := c.Bootstraps[bsmIndex]
	handle, err := c.Pool.Literal(bsm.Method)
	if err != nil {
		return Literal{}, err
	}
	if handle.Kind != LiteralMethodHandle {
		return Literal{}, malformed("bootstrap method %d is a %s, want a method handle", bsmIndex, handle.Kind)
	}

	args := make([]string, len(bsm.Args))
	for i, argIndex := range bsm.Args {
		arg, err := c.literal(argIndex, depth+1)
		if err != nil {
			return Literal{}, err
		}
		args[i] = arg.String()
	}
	lit.Text += " " + handle.Text + " [" + strings.Join(args, ", ") + "]"
	return lit, nil
}
