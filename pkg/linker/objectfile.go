package linker

import (
	"fmt"
	"strings"

	"machold/pkg/utils"
)

// ObjectFile is a parsed relocatable object or LLVM bitcode module
// (spec §3). Grounded on the teacher's objectfile.go (Parse/
// SymtabSection shape) and mold's ObjectFile<E> in input-files.cc for
// the full field set and parse sequence.
type ObjectFile struct {
	InputFile

	Sections  []*InputSection
	unwindSec *MachSection

	machSyms  []MachSym
	symStrTab []byte

	Subsections   []*Subsection
	symToSubsec   []*Subsection
	UnwindRecords []UnwindRecord

	DataInCodeEntries []DataInCodeEntry

	commonSec *InputSection

	// LTOModule is non-nil iff this object is an LLVM bitcode file
	// (spec §3 ObjectFile.lto_module); its symbols are synthesized by
	// parseLTOSymbols (pkg/linker/lto.go) instead of parseSymbols.
	LTOModule LTOModule
}

func NewObjectFile(file *File, archiveName string, alive bool, priority int64) *ObjectFile {
	file.ArchiveName = archiveName
	o := &ObjectFile{}
	o.file = file
	o.Priority = priority
	o.SetAlive(alive)
	return o
}

func (o *ObjectFile) IsDylibFile() bool { return false }

// Parse implements spec §4's top-level ObjectFile control flow:
// bitcode takes the LTO shim path, otherwise sections, symbols,
// subsection splitting, local-symbol finalization, data-in-code
// extraction and compact-unwind attachment run in sequence. Grounded directly on mold's
// ObjectFile<E>::parse.
func (o *ObjectFile) Parse(ctx *Context, plugin LTOPlugin) error {
	if GetFileType(o.file.Contents) == FileTypeBitcode {
		mod, err := plugin.ModuleCreateFromMemory(o.file.Contents)
		if err != nil {
			return fmt.Errorf("%s: %w: %v", o.DisplayName(), ErrLtoPluginFailure, err)
		}
		o.LTOModule = mod
		return o.parseLTOSymbols(ctx, plugin)
	}

	if err := o.parseSections(ctx); err != nil {
		return err
	}
	o.parseSymbols(ctx)

	hdr := o.header()
	if hdr.Flags&MHSubsectionsViaSymbols != 0 {
		if err := splitSubsectionsViaSymbols(ctx, o); err != nil {
			return err
		}
	} else {
		initSubsections(o)
	}

	sortSubsections(o)
	fixSubsecMembers(o)

	o.parseDataInCode(ctx)

	if o.unwindSec != nil {
		if err := o.parseCompactUnwind(ctx, *o.unwindSec); err != nil {
			return err
		}
	}
	return nil
}

func (o *ObjectFile) header() MachHeader {
	return utils.Read[MachHeader](o.file.Contents)
}

// parseSections implements spec §4.1's load-command walk for
// LC_SEGMENT_64, skipping S_ATTR_DEBUG sections and diverting
// __LD,__compact_unwind into unwindSec rather than Sections. Grounded
// directly on mold's ObjectFile<E>::parse_sections.
func (o *ObjectFile) parseSections(ctx *Context) error {
	data := o.file.Contents
	if uint64(len(data)) < uint64(headerSize64) {
		return fmt.Errorf("%s: %w: file too small for a Mach-O header", o.DisplayName(), ErrMalformedInput)
	}
	hdr := o.header()
	p := uint64(headerSize64)

	for i := uint32(0); i < hdr.NCmds; i++ {
		if p+uint64(lcSize) > uint64(len(data)) {
			return fmt.Errorf("%s: %w: load command table truncated", o.DisplayName(), ErrMalformedInput)
		}
		lc := utils.Read[LoadCommand](data[p:])
		if lc.CmdSize == 0 || p+uint64(lc.CmdSize) > uint64(len(data)) {
			return fmt.Errorf("%s: %w: load command size out of range", o.DisplayName(), ErrMalformedInput)
		}

		if lc.Cmd == LCSegment64 {
			seg := utils.Read[SegmentCommand](data[p:])
			secBase := p + uint64(segSize64)

			for s := uint32(0); s < seg.NSects; s++ {
				off := secBase + uint64(s)*uint64(sectSize64)
				if off+uint64(sectSize64) > uint64(len(data)) {
					return fmt.Errorf("%s: %w: section table out of range", o.DisplayName(), ErrMalformedInput)
				}
				msec := utils.Read[MachSection](data[off:])

				o.Sections = append(o.Sections, nil)

				if msec.match("__LD", "__compact_unwind") {
					sec := msec
					o.unwindSec = &sec
					continue
				}
				if msec.Flags&SAttrDebug != 0 {
					continue
				}
				if msec.Offset != 0 && uint64(msec.Offset)+msec.Size > uint64(len(data)) {
					return fmt.Errorf("%s: %w: section %s,%s out of range",
						o.DisplayName(), ErrMalformedInput, msec.segname(), msec.sectname())
				}

				o.Sections[len(o.Sections)-1] = NewInputSection(ctx, o, msec)
			}
		}

		p += uint64(lc.CmdSize)
	}
	return nil
}

// parseSymbols implements spec §4.4. Grounded directly on mold's
// ObjectFile<E>::parse_symbols.
func (o *ObjectFile) parseSymbols(ctx *Context) {
	cmd := o.findLoadCommand(LCSymtab)
	if cmd == nil {
		return
	}
	symtab := utils.Read[SymtabCommand](cmd)

	data := o.file.Contents
	o.machSyms = make([]MachSym, symtab.NSyms)
	for i := uint32(0); i < symtab.NSyms; i++ {
		off := uint64(symtab.SymOff) + uint64(i)*uint64(symSize64)
		o.machSyms[i] = utils.Read[MachSym](data[off:])
	}
	o.symStrTab = data[symtab.StrOff : symtab.StrOff+symtab.StrSize]

	o.Syms = make([]*Symbol, len(o.machSyms))

	for i := range o.machSyms {
		msym := &o.machSyms[i]
		name := cstrAt(o.symStrTab, msym.StrOff)

		if msym.IsExtern() {
			sym := ctx.Symbols.Get(name)
			o.Syms[i] = sym
			continue
		}

		sym := NewSymbol(name)
		sym.File = o

		switch msym.baseType() {
		case NUndf:
			utils.Fatal(fmt.Sprintf("%s: %s: %s", o.DisplayName(), name, ErrLocalUndefined))
		case NAbs:
			sym.Value = msym.Value
		case NSect:
			// value/subsec filled in by the subsection splitter.
		default:
			utils.Fatal(fmt.Sprintf("%s: %s: %s: %d", o.DisplayName(), name, ErrUnknownSymbolType, msym.Type))
		}

		o.Syms[i] = sym
	}
}

func cstrAt(strtab []byte, off uint32) string {
	end := off
	for end < uint32(len(strtab)) && strtab[end] != 0 {
		end++
	}
	return string(strtab[off:end])
}

// parseDataInCode implements spec §3's data_in_code_entries extraction
// (get_linker_options/data-in-code are both §4.8/§3 auxiliary readers
// dropped from the distilled spec's component table but present in
// mold). Grounded directly on mold's ObjectFile<E>::parse_data_in_code.
func (o *ObjectFile) parseDataInCode(ctx *Context) {
	cmd := o.findLoadCommand(LCDataInCode)
	if cmd == nil {
		return
	}
	dic := utils.Read[LinkEditDataCommand](cmd)
	n := dic.DataSize / uint32(unsafeSizeofDataInCodeEntry)
	data := o.file.Contents[dic.DataOff:]
	o.DataInCodeEntries = make([]DataInCodeEntry, n)
	for i := uint32(0); i < n; i++ {
		o.DataInCodeEntries[i] = utils.Read[DataInCodeEntry](data[i*uint32(unsafeSizeofDataInCodeEntry):])
	}
}

const unsafeSizeofDataInCodeEntry = 8

// GetLinkerOptions implements spec §4.8's get_linker_options: the
// NUL-separated string list from LC_LINKER_OPTION, empty for bitcode.
// Grounded directly on mold's ObjectFile<E>::get_linker_options.
func (o *ObjectFile) GetLinkerOptions(ctx *Context) []string {
	if o.LTOModule != nil {
		return nil
	}
	cmd := o.findLoadCommand(LCLinkerOption)
	if cmd == nil {
		return nil
	}
	lo := utils.Read[LinkerOptionCommand](cmd)
	buf := cmd[lcSize+4:]

	var out []string
	for i := uint32(0); i < lo.Count; i++ {
		end := 0
		for end < len(buf) && buf[end] != 0 {
			end++
		}
		out = append(out, string(buf[:end]))
		buf = buf[end+1:]
	}
	return out
}

// findLoadCommand returns the raw bytes of the first load command of
// the given type, starting at its own header. Grounded directly on
// mold's ObjectFile<E>::find_load_command.
func (o *ObjectFile) findLoadCommand(cmdType uint32) []byte {
	data := o.file.Contents
	hdr := o.header()
	p := uint64(headerSize64)

	for i := uint32(0); i < hdr.NCmds; i++ {
		lc := utils.Read[LoadCommand](data[p:])
		if lc.Cmd == cmdType {
			return data[p : p+uint64(lc.CmdSize)]
		}
		p += uint64(lc.CmdSize)
	}
	return nil
}

// IsObjcObject implements spec §4.8's is_objc_object predicate.
// Grounded directly on mold's ObjectFile<E>::is_objc_object.
func (o *ObjectFile) IsObjcObject() bool {
	for _, isec := range o.Sections {
		if isec == nil {
			continue
		}
		if isec.Match("__DATA", "__objc_catlist") || isec.Match("__TEXT", "__swift") {
			return true
		}
	}

	for i := range o.machSyms {
		msym := &o.machSyms[i]
		if !msym.IsUndef() && msym.IsExtern() &&
			strings.HasPrefix(o.Syms[i].Name, "_OBJC_CLASS_$_") {
			return true
		}
	}
	return false
}
