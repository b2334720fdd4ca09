package codec

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"sort"
	"testing"
)

func TestL85RoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0},
		{0xff},
		{1, 2},
		{1, 2, 3},
		{1, 2, 3, 4},
		{0xff, 0xff, 0xff, 0xff, 0xff},
		[]byte("relation tuples"),
	}
	for _, in := range inputs {
		enc := EncodeL85(in)
		if len(enc) != EncodedLen(len(in)) {
			t.Errorf("EncodedLen(%d) = %d, encoding has %d chars", len(in), EncodedLen(len(in)), len(enc))
		}
		out, err := DecodeL85(enc)
		if err != nil {
			t.Fatalf("decode %q: %v", enc, err)
		}
		if !bytes.Equal(in, out) {
			t.Errorf("round trip of %x gave %x", in, out)
		}
	}
}

func TestL85HashRoundTrip(t *testing.T) {
	for _, s := range []string{"hello", "world", "datalog"} {
		hash := sha1.Sum([]byte(s))
		enc := EncodeL85(hash[:])
		if len(enc) != 25 {
			t.Errorf("Wrong length for %q: got %d chars", s, len(enc))
		}
		dec, err := DecodeL85(enc)
		if err != nil || !bytes.Equal(dec, hash[:]) {
			t.Errorf("Round trip failed for %q: %v", s, err)
		}
	}
}

func TestL85PreservesOrder(t *testing.T) {
	var keys [][]byte
	for _, v := range []uint64{0, 1, 84, 85, 255, 256, 1 << 20, 1 << 40, 1<<63 - 1, 1 << 63, ^uint64(0)} {
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, v)
		keys = append(keys, b)
	}
	encoded := make([]string, len(keys))
	for i, k := range keys {
		encoded[i] = EncodeL85(k)
	}
	if !sort.StringsAreSorted(encoded) {
		t.Errorf("encodings of ascending keys are not sorted: %v", encoded)
	}
}

func TestL85Invalid(t *testing.T) {
	if _, err := DecodeL85("ab#de"); !errors.Is(err, ErrInvalidCharacter) {
		t.Errorf("expected ErrInvalidCharacter, got %v", err)
	}
	if _, err := DecodeL85("abcde1"); !errors.Is(err, ErrIncompleteGroup) {
		t.Errorf("expected ErrIncompleteGroup, got %v", err)
	}
}
