package interpreter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ram"
)

// ErrDivisionByZero is returned when integer division or modulo by zero
// is evaluated
var ErrDivisionByZero = errors.New("division by zero")

// intrinsic applies a built-in operator; ty is the operand type the
// overload was resolved to
func (e *Engine) intrinsic(op ram.FunctorOp, ty datalog.TypeAttribute, args []datalog.RamDomain) (datalog.RamDomain, error) {
	switch op {
	case ram.OpCat:
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(e.symbols.Decode(a))
		}
		return e.symbols.Encode(sb.String()), nil

	case ram.OpStrlen:
		return datalog.Signed(int64(len(e.symbols.Decode(args[0])))), nil

	case ram.OpToString:
		return e.symbols.Encode(datalog.FormatValue(args[0], ty, e.symbols)), nil

	case ram.OpToNumber:
		s := e.symbols.Decode(args[0])
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("to_number(%q): %w", s, err)
		}
		return datalog.Signed(v), nil

	case ram.OpToFloat:
		switch ty {
		case datalog.TypeUnsigned:
			return datalog.Float(float64(datalog.AsUnsigned(args[0]))), nil
		case datalog.TypeFloat:
			return args[0], nil
		default:
			return datalog.Float(float64(datalog.AsSigned(args[0]))), nil
		}

	case ram.OpToUnsigned:
		switch ty {
		case datalog.TypeFloat:
			return datalog.Unsigned(uint64(datalog.AsFloat(args[0]))), nil
		default:
			return datalog.Unsigned(uint64(args[0])), nil
		}
	}

	switch ty {
	case datalog.TypeUnsigned:
		return unsignedOp(op, args)
	case datalog.TypeFloat:
		return floatOp(op, args)
	default:
		return signedOp(op, args)
	}
}

func signedOp(op ram.FunctorOp, args []datalog.RamDomain) (datalog.RamDomain, error) {
	a := datalog.AsSigned(args[0])
	if op == ram.OpNeg {
		return datalog.Signed(-a), nil
	}
	if op == ram.OpMin || op == ram.OpMax {
		return fold(args, func(x, y datalog.RamDomain) datalog.RamDomain {
			if (op == ram.OpMin) == (datalog.AsSigned(y) < datalog.AsSigned(x)) {
				return y
			}
			return x
		}), nil
	}
	b := datalog.AsSigned(args[1])
	switch op {
	case ram.OpAdd:
		return datalog.Signed(a + b), nil
	case ram.OpSub:
		return datalog.Signed(a - b), nil
	case ram.OpMul:
		return datalog.Signed(a * b), nil
	case ram.OpDiv:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return datalog.Signed(a / b), nil
	case ram.OpMod:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return datalog.Signed(a % b), nil
	case ram.OpBAnd:
		return datalog.Signed(a & b), nil
	case ram.OpBOr:
		return datalog.Signed(a | b), nil
	case ram.OpBXor:
		return datalog.Signed(a ^ b), nil
	}
	return 0, fmt.Errorf("operator %s is not defined on signed values", op)
}

func unsignedOp(op ram.FunctorOp, args []datalog.RamDomain) (datalog.RamDomain, error) {
	a := datalog.AsUnsigned(args[0])
	if op == ram.OpNeg {
		return datalog.Unsigned(-a), nil
	}
	if op == ram.OpMin || op == ram.OpMax {
		return fold(args, func(x, y datalog.RamDomain) datalog.RamDomain {
			if (op == ram.OpMin) == (datalog.AsUnsigned(y) < datalog.AsUnsigned(x)) {
				return y
			}
			return x
		}), nil
	}
	b := datalog.AsUnsigned(args[1])
	switch op {
	case ram.OpAdd:
		return datalog.Unsigned(a + b), nil
	case ram.OpSub:
		return datalog.Unsigned(a - b), nil
	case ram.OpMul:
		return datalog.Unsigned(a * b), nil
	case ram.OpDiv:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return datalog.Unsigned(a / b), nil
	case ram.OpMod:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return datalog.Unsigned(a % b), nil
	case ram.OpBAnd:
		return datalog.Unsigned(a & b), nil
	case ram.OpBOr:
		return datalog.Unsigned(a | b), nil
	case ram.OpBXor:
		return datalog.Unsigned(a ^ b), nil
	}
	return 0, fmt.Errorf("operator %s is not defined on unsigned values", op)
}

func floatOp(op ram.FunctorOp, args []datalog.RamDomain) (datalog.RamDomain, error) {
	a := datalog.AsFloat(args[0])
	if op == ram.OpNeg {
		return datalog.Float(-a), nil
	}
	if op == ram.OpMin || op == ram.OpMax {
		return fold(args, func(x, y datalog.RamDomain) datalog.RamDomain {
			if (op == ram.OpMin) == (datalog.AsFloat(y) < datalog.AsFloat(x)) {
				return y
			}
			return x
		}), nil
	}
	b := datalog.AsFloat(args[1])
	switch op {
	case ram.OpAdd:
		return datalog.Float(a + b), nil
	case ram.OpSub:
		return datalog.Float(a - b), nil
	case ram.OpMul:
		return datalog.Float(a * b), nil
	case ram.OpDiv:
		return datalog.Float(a / b), nil
	case ram.OpMod:
		return datalog.Float(math.Mod(a, b)), nil
	}
	return 0, fmt.Errorf("operator %s is not defined on float values", op)
}

// fold reduces min/max over any number of arguments
func fold(args []datalog.RamDomain, pick func(x, y datalog.RamDomain) datalog.RamDomain) datalog.RamDomain {
	acc := args[0]
	for _, a := range args[1:] {
		acc = pick(acc, a)
	}
	return acc
}
