package linker

// InputSection is a typed view over one Mach-O section (spec §4.1):
// its raw header plus the byte range it covers in the mapped file.
// Grounded on the teacher's InputSection (File/Contents/Shndx shape),
// generalized from an ELF section-header index to a Mach-O MachSection
// plus p2align/compact-unwind awareness.
type InputSection struct {
	File     *ObjectFile
	Hdr      MachSection
	Contents []byte
	P2Align  uint8

	// Synthetic is true for the lazily created __DATA,__common section
	// materialized by convert_common_symbols (spec §4.7), which has no
	// backing bytes in the mapped file.
	Synthetic bool
}

func NewInputSection(ctx *Context, file *ObjectFile, hdr MachSection) *InputSection {
	isec := &InputSection{
		File:    file,
		Hdr:     hdr,
		P2Align: uint8(hdr.P2Align),
	}
	if hdr.Flags&SZeroFill == 0 && hdr.Offset != 0 {
		end := uint64(hdr.Offset) + hdr.Size
		isec.Contents = file.file.Contents[hdr.Offset:end]
	}
	return isec
}

func (i *InputSection) SegName() string  { return i.Hdr.segname() }
func (i *InputSection) SectName() string { return i.Hdr.sectname() }

func (i *InputSection) Match(seg, sect string) bool {
	return i.Hdr.match(seg, sect)
}

// readMachRel decodes one relocation entry. Only __compact_unwind's
// relocations are walked (directly in unwind.go); regular sections
// don't need relocations applied for this core's scope (relocation
// application is out of scope per spec §1).
func readMachRel(b []byte) MachRel {
	var r MachRel
	r.Offset = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	r.packed = uint32(b[4]) | uint32(b[5])<<8 | uint32(b[6])<<16 | uint32(b[7])<<24
	return r
}
