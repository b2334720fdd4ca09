package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ram"
)

func TestIntrinsics(t *testing.T) {
	e := &Engine{symbols: datalog.NewSymbolTable()}
	s := e.symbols.Encode
	i := datalog.Signed
	u := datalog.Unsigned
	f := datalog.Float

	tests := []struct {
		name string
		op   ram.FunctorOp
		ty   datalog.TypeAttribute
		args []datalog.RamDomain
		want datalog.RamDomain
	}{
		{"signed add", ram.OpAdd, datalog.TypeSigned, []datalog.RamDomain{i(2), i(-5)}, i(-3)},
		{"signed div truncates", ram.OpDiv, datalog.TypeSigned, []datalog.RamDomain{i(-7), i(2)}, i(-3)},
		{"signed mod", ram.OpMod, datalog.TypeSigned, []datalog.RamDomain{i(7), i(3)}, i(1)},
		{"signed min", ram.OpMin, datalog.TypeSigned, []datalog.RamDomain{i(4), i(-1), i(9)}, i(-1)},
		{"signed max", ram.OpMax, datalog.TypeSigned, []datalog.RamDomain{i(4), i(-1), i(9)}, i(9)},
		{"neg", ram.OpNeg, datalog.TypeSigned, []datalog.RamDomain{i(4)}, i(-4)},
		{"bxor", ram.OpBXor, datalog.TypeSigned, []datalog.RamDomain{i(6), i(3)}, i(5)},
		{"unsigned wraps", ram.OpSub, datalog.TypeUnsigned, []datalog.RamDomain{u(1), u(2)}, u(^uint64(0))},
		{"unsigned max", ram.OpMax, datalog.TypeUnsigned, []datalog.RamDomain{u(1), u(^uint64(0))}, u(^uint64(0))},
		{"float mul", ram.OpMul, datalog.TypeFloat, []datalog.RamDomain{f(1.5), f(4)}, f(6)},
		{"float div by zero", ram.OpDiv, datalog.TypeFloat, []datalog.RamDomain{f(1), f(0)}, f(1 / zero())},
		{"cat", ram.OpCat, datalog.TypeSymbol, []datalog.RamDomain{s("ab"), s("cd"), s("e")}, s("abcde")},
		{"strlen counts bytes", ram.OpStrlen, datalog.TypeSymbol, []datalog.RamDomain{s("héllo")}, i(6)},
		{"to_string", ram.OpToString, datalog.TypeSigned, []datalog.RamDomain{i(-12)}, s("-12")},
		{"to_number", ram.OpToNumber, datalog.TypeSymbol, []datalog.RamDomain{s(" 42 ")}, i(42)},
		{"to_float", ram.OpToFloat, datalog.TypeSigned, []datalog.RamDomain{i(3)}, f(3)},
		{"to_unsigned", ram.OpToUnsigned, datalog.TypeFloat, []datalog.RamDomain{f(3.9)}, u(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.intrinsic(tt.op, tt.ty, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func zero() float64 { return 0 }

func TestIntrinsicErrors(t *testing.T) {
	e := &Engine{symbols: datalog.NewSymbolTable()}

	_, err := e.intrinsic(ram.OpDiv, datalog.TypeSigned, []datalog.RamDomain{1, 0})
	assert.ErrorIs(t, err, ErrDivisionByZero)
	_, err = e.intrinsic(ram.OpMod, datalog.TypeUnsigned, []datalog.RamDomain{1, 0})
	assert.ErrorIs(t, err, ErrDivisionByZero)
	_, err = e.intrinsic(ram.OpToNumber, datalog.TypeSymbol, []datalog.RamDomain{e.symbols.Encode("x1")})
	assert.ErrorContains(t, err, `to_number("x1")`)
	_, err = e.intrinsic(ram.OpBAnd, datalog.TypeFloat, []datalog.RamDomain{0, 0})
	assert.Error(t, err)
}
