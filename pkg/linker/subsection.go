package linker

import (
	"fmt"
	"sort"

	"machold/pkg/utils"
)

// Subsection is the atomic relocation/dead-strip unit this linker
// works in (spec §3, GLOSSARY). Grounded directly on mold's
// Subsection<E> in input-files.cc; nothing in the teacher's ELF model
// corresponds to it (ELF relocates/dead-strips whole sections), so
// this is a straight semantic port rather than an ELF-to-Mach-O
// translation.
type Subsection struct {
	Isec        *InputSection
	InputOffset uint32
	InputSize   uint32
	InputAddr   uint64
	P2Align     uint8

	UnwindOffset int
	NUnwind      int
}

func newSubsection(isec *InputSection, offset, size uint32, p2align uint8) *Subsection {
	return &Subsection{
		Isec:        isec,
		InputOffset: offset,
		InputSize:   size,
		InputAddr:   isec.Hdr.Addr + uint64(offset),
		P2Align:     p2align,
	}
}

type splitRegion struct {
	offset     uint32
	size       uint32
	symidx     int // -1 is the "no symbol" sentinel (spec §4.2 step 2)
	isAltEntry bool
}

type splitInfo struct {
	isec    *InputSection
	regions []splitRegion
}

// splitRegularSections implements spec §4.2 Mode A steps 1-5 for every
// section except __TEXT,__cstring. Grounded directly on mold's
// split_regular_sections.
func splitRegularSections(obj *ObjectFile) []*splitInfo {
	infos := make([]*splitInfo, len(obj.Sections))
	for i, isec := range obj.Sections {
		if isec != nil && !isec.Match("__TEXT", "__cstring") {
			infos[i] = &splitInfo{isec: isec}
		}
	}

	for i := range obj.machSyms {
		msym := &obj.machSyms[i]
		if msym.baseType() != NSect {
			continue
		}
		sect := int(msym.Sect) - 1
		if sect < 0 || sect >= len(infos) || infos[sect] == nil {
			continue
		}
		infos[sect].regions = append(infos[sect].regions, splitRegion{
			offset:     uint32(msym.Value - infos[sect].isec.Hdr.Addr),
			symidx:     i,
			isAltEntry: msym.IsAltEntry(),
		})
	}

	var out []*splitInfo
	for _, info := range infos {
		if info != nil {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].isec.Hdr.Addr < out[j].isec.Hdr.Addr
	})

	for _, info := range out {
		fixupRegions(info)
	}
	return out
}

// fixupRegions implements spec §4.2 steps 2-5: synthesize a whole-
// section sentinel region when there are no symbols, prepend a gap
// sentinel, promote alt-entry collisions, and close region sizes.
//
// The alt-entry promotion loop is implemented exactly as mold writes
// it (spec §9 third Open Question): `for i := 1; i < len(r); i++ { if
// r[i-1].offset == r[i].offset { r[i].isAltEntry = true; i++ } }` —
// this promotes the *second* of each colliding pair and then skips the
// next comparison by advancing i an extra step, rather than a general
// "normalize every collision" pass.
func fixupRegions(info *splitInfo) {
	r := info.regions

	if len(r) == 0 {
		info.regions = []splitRegion{{offset: 0, size: uint32(info.isec.Hdr.Size), symidx: -1}}
		return
	}

	sort.SliceStable(r, func(i, j int) bool { return r[i].offset < r[j].offset })

	if r[0].offset > 0 {
		r = append([]splitRegion{{offset: 0, size: r[0].offset, symidx: -1}}, r...)
	}

	for i := 1; i < len(r); i++ {
		if r[i-1].offset == r[i].offset {
			r[i].isAltEntry = true
			i++
		}
	}

	last := -1
	for i := range r {
		if !r[i].isAltEntry {
			if last != -1 {
				r[last].size = r[i].offset - r[last].offset
			}
			last = i
		}
	}
	if last != -1 {
		r[last].size = uint32(info.isec.Hdr.Size) - r[last].offset
	}

	info.regions = r
}

// splitSubsectionsViaSymbols implements spec §4.2 Mode A in full,
// including the independent __TEXT,__cstring path. Grounded directly
// on mold's split_subsections_via_symbols.
func splitSubsectionsViaSymbols(ctx *Context, obj *ObjectFile) error {
	obj.symToSubsec = make([]*Subsection, len(obj.machSyms))

	add := func(isec *InputSection, offset, size uint32, p2align uint8) *Subsection {
		sub := newSubsection(isec, offset, size, p2align)
		obj.Subsections = append(obj.Subsections, sub)
		return sub
	}

	for _, info := range splitRegularSections(obj) {
		for _, r := range info.regions {
			if !r.isAltEntry {
				add(info.isec, r.offset, r.size, info.isec.P2Align)
			}
			// An alt-entry region shares its predecessor's subsection:
			// since add() is skipped above, the last appended
			// subsection is still that predecessor's.
			if r.symidx != -1 && len(obj.Subsections) > 0 {
				obj.symToSubsec[r.symidx] = obj.Subsections[len(obj.Subsections)-1]
			}
		}
	}

	for _, isec := range obj.Sections {
		if isec != nil && isec.Match("__TEXT", "__cstring") {
			if err := splitCstring(obj, isec, add); err != nil {
				return err
			}
		}
	}
	return nil
}

// splitCstring implements spec §4.2's __TEXT,__cstring splitting,
// independent of subsections-via-symbols mode. Grounded directly on
// mold's inline loop in split_subsections_via_symbols.
func splitCstring(obj *ObjectFile, isec *InputSection, add func(*InputSection, uint32, uint32, uint8) *Subsection) error {
	str := isec.Contents
	pos := 0

	for pos < len(str) {
		end := indexByte(str, pos, 0)
		if end == -1 {
			return fmt.Errorf("%s: %w: corrupted __TEXT,__cstring", obj.DisplayName(), ErrMalformedInput)
		}

		for end < len(str) && str[end] == 0 {
			end++
		}

		p2align := isec.P2Align
		if ctz := utils.CountTrailingZeros(uint64(pos)); ctz < p2align {
			p2align = ctz
		}

		add(isec, uint32(pos), uint32(end-pos), p2align)
		pos = end
	}
	return nil
}

func indexByte(b []byte, start int, c byte) int {
	for i := start; i < len(b); i++ {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// initSubsections implements spec §4.2 Mode B: one subsection per
// parsed section. Empty sections are not skipped; each gets a
// zero-size subsection. Grounded directly on mold's init_subsections.
func initSubsections(obj *ObjectFile) {
	obj.Subsections = make([]*Subsection, 0, len(obj.Sections))
	obj.symToSubsec = make([]*Subsection, len(obj.machSyms))

	perSection := make([]*Subsection, len(obj.Sections))
	for i, isec := range obj.Sections {
		if isec == nil {
			continue
		}
		sub := newSubsection(isec, 0, uint32(isec.Hdr.Size), isec.P2Align)
		perSection[i] = sub
		obj.Subsections = append(obj.Subsections, sub)
	}

	for i := range obj.machSyms {
		msym := &obj.machSyms[i]
		if msym.baseType() == NSect {
			sect := int(msym.Sect) - 1
			if sect >= 0 && sect < len(perSection) {
				obj.symToSubsec[i] = perSection[sect]
			}
		}
	}
}

// sortSubsections orders the final subsection list by ascending
// input_addr (spec §4.2, after either mode).
func sortSubsections(obj *ObjectFile) {
	sort.Slice(obj.Subsections, func(i, j int) bool {
		return obj.Subsections[i].InputAddr < obj.Subsections[j].InputAddr
	})
}

// FindSubsection implements spec §6's find_subsection(addr) query: a
// binary search for the subsection whose start is the greatest one at
// or below addr. Grounded directly on mold's ObjectFile<E>::find_subsection.
func (o *ObjectFile) FindSubsection(addr uint64) *Subsection {
	subs := o.Subsections
	idx := sort.Search(len(subs), func(i int) bool {
		return subs[i].InputAddr > addr
	})
	if idx == 0 {
		return nil
	}
	return subs[idx-1]
}

// FindSymbol implements spec §6's find_symbol(addr) query: the extern
// symbol defined at exactly addr, used by the compact-unwind
// local-personality fallback. Grounded directly on mold's
// ObjectFile<E>::find_symbol.
func (o *ObjectFile) FindSymbol(addr uint64) *Symbol {
	for i := range o.machSyms {
		msym := &o.machSyms[i]
		if msym.IsExtern() && msym.baseType() != NUndf && msym.Value == addr {
			return o.Syms[i]
		}
	}
	return nil
}

// fixSubsecMembers implements spec §4.2's "Finalize local symbols"
// step, setting sym.subsec/value for every local (non-extern) N_SECT
// symbol: the splitter's symToSubsec entry is used when present, and
// FindSubsection otherwise. Extern symbols are left to the resolver.
// Grounded directly on mold's
// ObjectFile<E>::fix_subsec_members.
func fixSubsecMembers(obj *ObjectFile) {
	for i := range obj.machSyms {
		msym := &obj.machSyms[i]
		if msym.IsExtern() || msym.baseType() != NSect {
			continue
		}
		sym := obj.Syms[i]

		sub := obj.symToSubsec[i]
		if sub == nil {
			sub = obj.FindSubsection(msym.Value)
		}

		if sub != nil {
			sym.Subsec = sub
			sym.Value = msym.Value - sub.InputAddr
		} else {
			sym.Subsec = nil
			sym.Value = msym.Value
		}
	}
}
