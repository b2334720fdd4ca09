package datalog

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestNumericRoundTrip(t *testing.T) {
	if AsSigned(Signed(-42)) != -42 {
		t.Error("signed round trip failed")
	}
	if AsUnsigned(Unsigned(1<<63)) != 1<<63 {
		t.Error("unsigned round trip failed")
	}
	if AsFloat(Float(3.25)) != 3.25 {
		t.Error("float round trip failed")
	}
}

func TestParseConstant(t *testing.T) {
	d, err := ParseConstant("0x10", TypeSigned)
	if err != nil || AsSigned(d) != 16 {
		t.Fatalf("ParseConstant hex = %d, %v", d, err)
	}
	d, err = ParseConstant("2.5", TypeFloat)
	if err != nil || AsFloat(d) != 2.5 {
		t.Fatalf("ParseConstant float = %v, %v", AsFloat(d), err)
	}
	if _, err := ParseConstant("1", TypeSymbol); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestSymbolTableConcurrentEncode(t *testing.T) {
	st := NewSymbolTable()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				st.Encode(fmt.Sprintf("s%d", i%50))
			}
		}()
	}
	wg.Wait()

	if st.Size() != 50 {
		t.Fatalf("expected 50 symbols, got %d", st.Size())
	}
	// Every id decodes back to the symbol that produced it
	for i := 0; i < 50; i++ {
		s := fmt.Sprintf("s%d", i)
		if got := st.Decode(st.Encode(s)); got != s {
			t.Errorf("Decode(Encode(%q)) = %q", s, got)
		}
	}
}

func TestRecordTablePackUnpack(t *testing.T) {
	rt := NewRecordTable()
	a := rt.Pack([]RamDomain{1, 2})
	b := rt.Pack([]RamDomain{1, 2})
	c := rt.Pack([]RamDomain{1, 2, 0})

	if a != b {
		t.Error("expected identical records to share an id")
	}
	if a == c {
		t.Error("expected records of different arity to differ")
	}
	if a == 0 {
		t.Error("id 0 is reserved for nil")
	}
	if got := rt.Unpack(c, 3); got[2] != 0 || len(got) != 3 {
		t.Errorf("Unpack = %v", got)
	}
}

func TestQualifier(t *testing.T) {
	got := Qualifier([]TypeAttribute{TypeSigned, TypeSymbol, TypeFloat})
	if got != "i:s:f" {
		t.Errorf("Qualifier = %q", got)
	}
}
