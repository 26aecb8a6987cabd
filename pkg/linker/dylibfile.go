package linker

import (
	"fmt"

	"machold/pkg/utils"
)

// DylibFile is a parsed dynamic library or TAPI/TBD text stub (spec
// §3). Grounded directly on mold's DylibFile<E>; nothing in the
// teacher's ELF-only model has an analog (ELF's shared-object handling
// lives entirely outside the teacher's retrieved snapshot), so this is
// a straight port of mold's shape rather than a generalization of
// teacher code.
type DylibFile struct {
	InputFile

	InstallName    string
	ReexportedLibs []string

	exports     utils.MapSet[string]
	weakExports utils.MapSet[string]

	isWeakSymbol []bool
}

func NewDylibFile(file *File, needed, weakL, reexportL, deadStripDylibs bool) *DylibFile {
	d := &DylibFile{}
	d.file = file
	d.exports = utils.NewMapSet[string]()
	d.weakExports = utils.NewMapSet[string]()
	d.IsDylib = true
	d.IsWeak = weakL
	d.IsReexported = reexportL
	d.SetAlive(needed || !deadStripDylibs)
	return d
}

func (d *DylibFile) IsDylibFile() bool { return true }

// CreateDylib implements spec §4.5/§6's top-level dylib ingestion,
// including the recursive reexport-chain resolution: parse this
// dylib (TBD or binary, per file-type probe), then recursively open
// and merge every reexported library's exports before materializing
// this dylib's own Syms. Grounded directly on mold's
// DylibFile<E>::create.
func CreateDylib(ctx *Context, file *File, needed bool) (*DylibFile, error) {
	d := NewDylibFile(file, needed, ctx.Args.WeakL, ctx.Args.ReexportL, ctx.Args.DeadStripDylibs)

	switch GetFileType(file.Contents) {
	case FileTypeTbd:
		d.parseTapi()
	case FileTypeDylib:
		if err := d.parseDylib(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%s: %w: is not a dylib", file.DisplayName(), ErrMalformedInput)
	}

	for _, path := range d.ReexportedLibs {
		mf, err := findExternalLib(ctx, d.InstallName, path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: cannot open reexported library %s: %v",
				d.InstallName, ErrUnresolvedReexport, path, err)
		}

		child, err := CreateDylib(ctx, mf, needed)
		if err != nil {
			return nil, err
		}
		for _, name := range child.exportNames() {
			d.exports.Insert(name)
		}
		for _, name := range child.weakExportNames() {
			d.weakExports.Insert(name)
		}
	}

	for _, name := range d.exportNames() {
		d.Syms = append(d.Syms, ctx.Symbols.Get(name))
		d.isWeakSymbol = append(d.isWeakSymbol, false)
	}
	for _, name := range d.weakExportNames() {
		if !d.exports.Contains(name) {
			d.Syms = append(d.Syms, ctx.Symbols.Get(name))
			d.isWeakSymbol = append(d.isWeakSymbol, true)
		}
	}

	return d, nil
}

func (d *DylibFile) exportNames() []string     { return mapSetKeys(d.exports) }
func (d *DylibFile) weakExportNames() []string { return mapSetKeys(d.weakExports) }

// mapSetKeys returns the members of s via utils.MapSet.Keys, in
// unspecified order.
func mapSetKeys(s utils.MapSet[string]) []string {
	return s.Keys()
}

func (d *DylibFile) parseTapi() {
	tbd := parseTBD(d.file.Contents)
	d.InstallName = tbd.InstallName
	d.ReexportedLibs = tbd.ReexportedLibs
	for _, name := range tbd.Exports {
		d.exports.Insert(name)
	}
	for _, name := range tbd.WeakExports {
		d.weakExports.Insert(name)
	}
}

// parseDylib implements spec §4.5's binary-dylib load-command walk.
// Grounded directly on mold's DylibFile<E>::parse_dylib.
func (d *DylibFile) parseDylib() error {
	data := d.file.Contents
	if uint64(len(data)) < uint64(headerSize64) {
		return fmt.Errorf("%s: %w: file too small for a Mach-O header", d.DisplayName(), ErrMalformedInput)
	}
	hdr := utils.Read[MachHeader](data)
	p := uint64(headerSize64)

	for i := uint32(0); i < hdr.NCmds; i++ {
		lc := utils.Read[LoadCommand](data[p:])

		switch lc.Cmd {
		case LCIDDylib:
			cmd := utils.Read[DylibCommand](data[p:])
			d.InstallName = cstr(data[p+uint64(cmd.NameOff):])

		case LCDyldInfoOnly:
			cmd := utils.Read[DyldInfoCommand](data[p:])
			if cmd.ExportOff != 0 {
				readTrie(data[cmd.ExportOff:cmd.ExportOff+cmd.ExportSize], 0, "", &d.exports, &d.weakExports)
			}

		case LCDyldExportsTrie:
			cmd := utils.Read[LinkEditDataCommand](data[p:])
			readTrie(data[cmd.DataOff:cmd.DataOff+cmd.DataSize], 0, "", &d.exports, &d.weakExports)

		case LCReexportDylib:
			cmd := utils.Read[DylibCommand](data[p:])
			d.ReexportedLibs = append(d.ReexportedLibs, cstr(data[p+uint64(cmd.NameOff):]))
		}

		p += uint64(lc.CmdSize)
	}
	return nil
}
