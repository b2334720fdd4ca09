// Package codec implements L85, a Base85 variant whose alphabet is in
// ASCII order so encoded strings sort like their inputs when the inputs
// have equal length.
package codec

import (
	"errors"
	"fmt"
	"math"
)

// L85Alphabet lists the 85 digits in ascending byte order
const L85Alphabet = "!$%&()+,-./" +
	"0123456789:;<=>@" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ[]_`" +
	"abcdefghijklmnopqrstuvwxyz{}"

var (
	// digit value plus one; zero marks bytes outside the alphabet
	l85Decode [256]byte

	// ErrInvalidCharacter indicates an invalid character in input
	ErrInvalidCharacter = errors.New("invalid L85 character")
	// ErrIncompleteGroup indicates a trailing group of a single character
	ErrIncompleteGroup = errors.New("invalid L85 encoding: incomplete group")
)

func init() {
	for i := 0; i < len(L85Alphabet); i++ {
		l85Decode[L85Alphabet[i]] = byte(i + 1)
	}
}

// EncodedLen returns the length of the encoding of n bytes
func EncodedLen(n int) int {
	full, rest := n/4, n%4
	if rest == 0 {
		return full * 5
	}
	return full*5 + rest + 1
}

// AppendL85 appends the encoding of src to dst. A trailing group of k
// bytes is zero padded and emitted as its k+1 most significant digits.
func AppendL85(dst, src []byte) []byte {
	for len(src) > 0 {
		var group [4]byte
		n := copy(group[:], src)
		src = src[n:]

		v := uint32(group[0])<<24 | uint32(group[1])<<16 | uint32(group[2])<<8 | uint32(group[3])
		var digits [5]byte
		for j := 4; j >= 0; j-- {
			digits[j] = L85Alphabet[v%85]
			v /= 85
		}
		if n == 4 {
			dst = append(dst, digits[:]...)
		} else {
			dst = append(dst, digits[:n+1]...)
		}
	}
	return dst
}

// EncodeL85 encodes bytes to L85
func EncodeL85(src []byte) string {
	return string(AppendL85(make([]byte, 0, EncodedLen(len(src))), src))
}

// DecodeL85 decodes an L85 string
func DecodeL85(src string) ([]byte, error) {
	out := make([]byte, 0, len(src)*4/5+4)
	for i := 0; i < len(src); i += 5 {
		end := min(i+5, len(src))
		chunk := src[i:end]
		if len(chunk) == 1 {
			return nil, ErrIncompleteGroup
		}

		// a short group is padded with the highest digit so the
		// truncated low digits round up to the encoded bytes
		var v uint64
		for j := 0; j < 5; j++ {
			d := byte(85)
			if j < len(chunk) {
				d = l85Decode[chunk[j]]
				if d == 0 {
					return nil, fmt.Errorf("%w at position %d: %q", ErrInvalidCharacter, i+j, chunk[j])
				}
			}
			v = v*85 + uint64(d-1)
		}
		if v > math.MaxUint32 {
			return nil, fmt.Errorf("%w: group %q overflows", ErrInvalidCharacter, chunk)
		}
		group := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		out = append(out, group[:len(chunk)-1]...)
	}
	return out, nil
}
