package utils

import "testing"

func TestAlignTo(t *testing.T) {
	cases := []struct{ val, align, want uint64 }{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{5, 1, 5},
		{5, 0, 5},
	}
	for _, c := range cases {
		if got := AlignTo(c.val, c.align); got != c.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", c.val, c.align, got, c.want)
		}
	}
}

func TestCountTrailingZeros(t *testing.T) {
	cases := []struct {
		v    uint64
		want uint8
	}{
		{0, 63},
		{1, 0},
		{2, 1},
		{4, 2},
		{6, 1},
		{8, 3},
	}
	for _, c := range cases {
		if got := CountTrailingZeros(c.v); got != c.want {
			t.Errorf("CountTrailingZeros(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestReadULEB128(t *testing.T) {
	// 300 encoded as ULEB128: 0xAC 0x02
	buf := []byte{0xAC, 0x02, 0xFF}
	val, n := ReadULEB128(buf)
	if val != 300 || n != 2 {
		t.Fatalf("ReadULEB128 = (%d, %d), want (300, 2)", val, n)
	}

	// single-byte value
	val, n = ReadULEB128([]byte{0x7f})
	if val != 127 || n != 1 {
		t.Fatalf("ReadULEB128(0x7f) = (%d, %d), want (127, 1)", val, n)
	}
}

func TestMapSet(t *testing.T) {
	s := NewMapSet[string]()
	if !s.Insert("a") {
		t.Fatal("first insert of a should report true")
	}
	if s.Insert("a") {
		t.Fatal("second insert of a should report false")
	}
	if !s.Contains("a") {
		t.Fatal("set should contain a")
	}
	if s.Contains("b") {
		t.Fatal("set should not contain b")
	}
	s.Insert("b")
	keys := s.Keys()
	if len(keys) != 2 {
		t.Fatalf("Keys() returned %d elements, want 2", len(keys))
	}
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("Keys() = %v, missing a or b", keys)
	}
}

func TestRemoveIf(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6}
	out := RemoveIf(in, func(v int) bool { return v%2 == 0 })
	want := []int{1, 3, 5}
	if len(out) != len(want) {
		t.Fatalf("RemoveIf = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("RemoveIf = %v, want %v", out, want)
		}
	}
}

func TestRemovePrefix(t *testing.T) {
	if rest, ok := RemovePrefix("foobar", "foo"); !ok || rest != "bar" {
		t.Fatalf("RemovePrefix(foobar, foo) = (%q, %v), want (bar, true)", rest, ok)
	}
	if rest, ok := RemovePrefix("foobar", "baz"); ok || rest != "foobar" {
		t.Fatalf("RemovePrefix(foobar, baz) = (%q, %v), want (foobar, false)", rest, ok)
	}
}

func TestReadStruct(t *testing.T) {
	type pair struct {
		A uint32
		B uint32
	}
	data := []byte{1, 0, 0, 0, 2, 0, 0, 0}
	got := Read[pair](data)
	if got.A != 1 || got.B != 2 {
		t.Fatalf("Read[pair] = %+v, want {1 2}", got)
	}
}
