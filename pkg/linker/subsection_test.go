package linker

import "testing"

// TestFixupRegionsAltEntryCollision pins the literal, non-obvious
// mutating-loop-index semantics of the three-way alt-entry collision:
// only the middle symbol of three colliding offsets gets promoted,
// because the loop advances an extra step after a match instead of
// normalizing every pair.
func TestFixupRegionsAltEntryCollision(t *testing.T) {
	info := &splitInfo{
		isec: &InputSection{Hdr: MachSection{Size: 100}},
		regions: []splitRegion{
			{offset: 0, symidx: 0},
			{offset: 10, symidx: 1},
			{offset: 10, symidx: 2},
			{offset: 10, symidx: 3},
			{offset: 20, symidx: 4},
		},
	}

	fixupRegions(info)
	r := info.regions

	if len(r) != 5 {
		t.Fatalf("got %d regions, want 5", len(r))
	}
	if r[0].isAltEntry || r[1].isAltEntry || r[3].isAltEntry || r[4].isAltEntry {
		t.Fatalf("only r[2] should be promoted to alt-entry: %+v", r)
	}
	if !r[2].isAltEntry {
		t.Fatalf("middle of the three-way collision must be promoted: %+v", r)
	}

	if r[0].size != 10 {
		t.Errorf("r[0].size = %d, want 10", r[0].size)
	}
	if r[1].size != 0 {
		t.Errorf("r[1].size = %d, want 0 (immediately followed by a promoted alt-entry)", r[1].size)
	}
	if r[3].size != 10 {
		t.Errorf("r[3].size = %d, want 10", r[3].size)
	}
	if r[4].size != 80 {
		t.Errorf("r[4].size = %d, want 80 (closes out the section)", r[4].size)
	}
}

func TestFixupRegionsNoSymbols(t *testing.T) {
	info := &splitInfo{isec: &InputSection{Hdr: MachSection{Size: 42}}}
	fixupRegions(info)
	if len(info.regions) != 1 {
		t.Fatalf("got %d regions, want 1 whole-section sentinel", len(info.regions))
	}
	if info.regions[0].offset != 0 || info.regions[0].size != 42 || info.regions[0].symidx != -1 {
		t.Fatalf("sentinel region = %+v, want {0 42 -1 false}", info.regions[0])
	}
}

func TestFixupRegionsLeadingGap(t *testing.T) {
	info := &splitInfo{
		isec: &InputSection{Hdr: MachSection{Size: 50}},
		regions: []splitRegion{
			{offset: 20, symidx: 0},
		},
	}
	fixupRegions(info)
	r := info.regions
	if len(r) != 2 {
		t.Fatalf("got %d regions, want 2 (gap sentinel + symbol region)", len(r))
	}
	if r[0].offset != 0 || r[0].size != 20 || r[0].symidx != -1 {
		t.Errorf("gap sentinel = %+v, want {0 20 -1 false}", r[0])
	}
	if r[1].offset != 20 || r[1].size != 30 {
		t.Errorf("symbol region = %+v, want offset 20 size 30", r[1])
	}
}

func TestSplitCstring(t *testing.T) {
	isec := &InputSection{
		Hdr:      MachSection{},
		Contents: []byte("foo\x00bar\x00"),
		P2Align:  4,
	}
	obj := &ObjectFile{}

	type got struct {
		offset, size uint32
		p2align      uint8
	}
	var subs []got
	add := func(_ *InputSection, offset, size uint32, p2align uint8) *Subsection {
		subs = append(subs, got{offset, size, p2align})
		return &Subsection{}
	}

	if err := splitCstring(obj, isec, add); err != nil {
		t.Fatalf("splitCstring: %v", err)
	}

	if len(subs) != 2 {
		t.Fatalf("got %d subsections, want 2: %+v", len(subs), subs)
	}
	if subs[0] != (got{0, 4, 4}) {
		t.Errorf("subs[0] = %+v, want {0 4 4}", subs[0])
	}
	if subs[1] != (got{4, 4, 2}) {
		t.Errorf("subs[1] = %+v, want {4 4 2} (alignment capped by trailing-zero count of offset 4)", subs[1])
	}
}

func TestSplitCstringUnterminated(t *testing.T) {
	isec := &InputSection{Contents: []byte("no-nul-here")}
	obj := &ObjectFile{}
	obj.file = &File{Name: "cstring.o"}
	add := func(*InputSection, uint32, uint32, uint8) *Subsection { return &Subsection{} }

	if err := splitCstring(obj, isec, add); err == nil {
		t.Fatal("expected an error for a __cstring section missing its terminating NUL")
	}
}

func TestFindSubsection(t *testing.T) {
	o := &ObjectFile{
		Subsections: []*Subsection{
			{InputAddr: 0},
			{InputAddr: 10},
			{InputAddr: 20},
		},
	}

	if sub := o.FindSubsection(5); sub == nil || sub.InputAddr != 0 {
		t.Errorf("FindSubsection(5) should land in the [0,10) subsection")
	}
	if sub := o.FindSubsection(10); sub == nil || sub.InputAddr != 10 {
		t.Errorf("FindSubsection(10) should land exactly on the second subsection")
	}
	if sub := o.FindSubsection(25); sub == nil || sub.InputAddr != 20 {
		t.Errorf("FindSubsection(25) should land in the last, open-ended subsection")
	}
	if sub := o.FindSubsection(0); sub == nil || sub.InputAddr != 0 {
		t.Errorf("FindSubsection(0) should land on the first subsection")
	}
}

func TestFindSubsectionEmpty(t *testing.T) {
	o := &ObjectFile{}
	if sub := o.FindSubsection(100); sub != nil {
		t.Errorf("FindSubsection on an object with no subsections must return nil, got %+v", sub)
	}
}
