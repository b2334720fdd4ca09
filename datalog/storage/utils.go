package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/interpreter"
)

// concatBytes efficiently concatenates byte slices
func concatBytes(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}

	result := make([]byte, size)
	offset := 0
	for _, p := range parts {
		copy(result[offset:], p)
		offset += len(p)
	}

	return result
}

// prefixEnd returns the smallest key greater than every key with the
// given prefix
func prefixEnd(start []byte) []byte {
	end := make([]byte, len(start))
	copy(end, start)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	// all bytes are 0xFF
	return append(end, 0x00)
}

// orderedWord maps a numeric value to 8 bytes whose byte order matches
// the value order of its type
func orderedWord(d datalog.RamDomain, t datalog.TypeAttribute) []byte {
	var u uint64
	switch t {
	case datalog.TypeUnsigned:
		u = datalog.AsUnsigned(d)
	case datalog.TypeFloat:
		u = math.Float64bits(datalog.AsFloat(d))
		if u&(1<<63) != 0 {
			u = ^u
		} else {
			u |= 1 << 63
		}
	default:
		u = uint64(d) ^ 1<<63
	}
	return binary.BigEndian.AppendUint64(nil, u)
}

func wordFromOrdered(b []byte, t datalog.TypeAttribute) (datalog.RamDomain, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("numeric field has %d bytes, want 8", len(b))
	}
	u := binary.BigEndian.Uint64(b)
	switch t {
	case datalog.TypeUnsigned:
		return datalog.Unsigned(u), nil
	case datalog.TypeFloat:
		if u&(1<<63) != 0 {
			u &^= 1 << 63
		} else {
			u = ^u
		}
		return datalog.Float(math.Float64frombits(u)), nil
	}
	return datalog.RamDomain(u ^ 1<<63), nil
}

func checkStorable(t datalog.TypeAttribute) error {
	if t == datalog.TypeRecord || t == datalog.TypeADT {
		return fmt.Errorf("%w: %s", interpreter.ErrUnsupportedAttribute, t)
	}
	return nil
}
