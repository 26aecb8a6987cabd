package linker

import "unsafe"

// Raw Mach-O on-disk layouts. Field names follow mold's input-files.cc/
// mold.h naming (MachHeader, LoadCommand, SegmentCommand, MachSection,
// MachSym, ...) so the parsing code below reads the same as the source
// it's grounded on; struct shapes cross-checked against
// NSEcho-gdylib__macho.go and blacktop-go-macho__commands.go.

const (
	MagicMachO64 uint32 = 0xfeedfacf
	MagicFat     uint32 = 0xcafebabe

	MHSubsectionsViaSymbols uint32 = 0x2000
)

// Load command types consumed by this reader (spec §6).
const (
	LCSegment64       uint32 = 0x19
	LCSymtab          uint32 = 0x2
	LCDysymtab        uint32 = 0xb
	LCDataInCode      uint32 = 0x29
	LCLinkerOption    uint32 = 0x2d
	LCIDDylib         uint32 = 0xd
	LCDyldInfo        uint32 = 0x22
	LCDyldInfoOnly    uint32 = 0x80000022
	LCDyldExportsTrie uint32 = 0x80000033
	LCReexportDylib   uint32 = 0x8000001f
)

// Section attributes/types.
const (
	SAttrDebug uint32 = 0x02000000
	SZeroFill  uint32 = 0x1
)

// Symbol types and descriptor bits (debug/macho carries these too, but
// as enum constants only — this reader needs the raw bit layout to
// decode MachSym directly off the mapped file, the same trade-off the
// teacher makes importing debug/elf for enum values while hand-rolling
// its own Header64/SectionHeader/Sym64 structs).
const (
	NUndf uint8 = 0x0
	NAbs  uint8 = 0x2
	NSect uint8 = 0xe

	NTypeMask  uint8 = 0x0e
	NExtMask   uint8 = 0x01
	NPextMask  uint8 = 0x10

	NAltEntry uint16 = 0x0200
	NWeakDef  uint16 = 0x0080
	NWeakRef  uint16 = 0x0040
)

type MachHeader struct {
	Magic      uint32
	CPUType    uint32
	CPUSubtype uint32
	FileType   uint32
	NCmds      uint32
	SizeOfCmds uint32
	Flags      uint32
	Reserved   uint32
}

type LoadCommand struct {
	Cmd     uint32
	CmdSize uint32
}

type SegmentCommand struct {
	LoadCommand
	SegName  [16]byte
	VMAddr   uint64
	VMSize   uint64
	FileOff  uint64
	FileSize uint64
	MaxProt  int32
	InitProt int32
	NSects   uint32
	Flags    uint32
}

type MachSection struct {
	SectName  [16]byte
	SegName   [16]byte
	Addr      uint64
	Size      uint64
	Offset    uint32
	P2Align   uint32
	RelOff    uint32
	NReloc    uint32
	Flags     uint32
	Reserved1 uint32
	Reserved2 uint32
	Reserved3 uint32
}

func (s *MachSection) segname() string { return cstr(s.SegName[:]) }
func (s *MachSection) sectname() string { return cstr(s.SectName[:]) }

func (s *MachSection) match(seg, sect string) bool {
	return s.segname() == seg && s.sectname() == sect
}

type SymtabCommand struct {
	LoadCommand
	SymOff  uint32
	NSyms   uint32
	StrOff  uint32
	StrSize uint32
}

type DysymtabCommand struct {
	LoadCommand
	ILocalSym      uint32
	NLocalSym      uint32
	IExtDefSym     uint32
	NExtDefSym     uint32
	IUndefSym      uint32
	NUndefSym      uint32
	TocOff         uint32
	NToc           uint32
	ModTabOff      uint32
	NModTab        uint32
	ExtRefSymOff   uint32
	NExtRefSyms    uint32
	IndirectSymOff uint32
	NIndirectSyms  uint32
	ExtRelOff      uint32
	NExtRel        uint32
	LocRelOff      uint32
	NLocRel        uint32
}

// MachSym mirrors mold's MachSym: a 64-bit nlist entry plus the
// convenience accessors the resolver needs (is_extern, is_common, ...).
type MachSym struct {
	StrOff uint32
	Type   uint8
	Sect   uint8
	Desc   uint16
	Value  uint64
}

func (s *MachSym) IsExtern() bool        { return s.Type&NExtMask != 0 }
func (s *MachSym) IsPrivateExtern() bool { return s.Type&NPextMask != 0 }
func (s *MachSym) baseType() uint8       { return s.Type & NTypeMask }
func (s *MachSym) IsUndef() bool         { return s.baseType() == NUndf && s.Sect == 0 && s.Value == 0 }
func (s *MachSym) IsCommon() bool        { return s.baseType() == NUndf && s.Sect == 0 && s.Value != 0 }
func (s *MachSym) IsWeakDef() bool       { return s.Desc&NWeakDef != 0 }
func (s *MachSym) IsWeakRef() bool       { return s.Desc&NWeakRef != 0 }
func (s *MachSym) IsAltEntry() bool      { return s.Desc&NAltEntry != 0 }
func (s *MachSym) P2Align() uint8        { return uint8(s.Desc & 0xf) }

type DataInCodeEntry struct {
	Offset uint32
	Length uint16
	Kind   uint16
}

type LinkerOptionCommand struct {
	LoadCommand
	Count uint32
}

type LinkEditDataCommand struct {
	LoadCommand
	DataOff  uint32
	DataSize uint32
}

type DylibCommand struct {
	LoadCommand
	NameOff              uint32
	Timestamp            uint32
	CurrentVersion       uint32
	CompatibilityVersion uint32
}

type DyldInfoCommand struct {
	LoadCommand
	RebaseOff    uint32
	RebaseSize   uint32
	BindOff      uint32
	BindSize     uint32
	WeakBindOff  uint32
	WeakBindSize uint32
	LazyBindOff  uint32
	LazyBindSize uint32
	ExportOff    uint32
	ExportSize   uint32
}

// CompactUnwindEntry is the fixed-size on-disk record in
// __LD,__compact_unwind (spec §4.3).
type CompactUnwindEntry struct {
	CodeStart   uint64
	CodeLen     uint32
	Encoding    uint32
	Personality uint64
	Lsda        uint64
}

// MachRel is a local (non-scattered) Mach-O relocation entry.
type MachRel struct {
	Offset  uint32
	packed  uint32 // symbolnum:24 pcrel:1 length:2 extern:1 type:4
}

func (r *MachRel) SymbolNum() uint32 { return r.packed & 0xffffff }
func (r *MachRel) IsPCRel() bool     { return r.packed&(1<<24) != 0 }
func (r *MachRel) P2Size() uint8     { return uint8((r.packed >> 25) & 0x3) }
func (r *MachRel) IsExtern() bool    { return r.packed&(1<<27) != 0 }
func (r *MachRel) Type() uint8       { return uint8((r.packed >> 28) & 0xf) }

var (
	headerSize64 = unsafe.Sizeof(MachHeader{})
	lcSize       = unsafe.Sizeof(LoadCommand{})
	segSize64    = unsafe.Sizeof(SegmentCommand{})
	sectSize64   = unsafe.Sizeof(MachSection{})
	symSize64    = unsafe.Sizeof(MachSym{})
	cueSize      = unsafe.Sizeof(CompactUnwindEntry{})
	relSize      = unsafe.Sizeof(MachRel{})
)

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
