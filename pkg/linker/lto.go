package linker

import "fmt"

// Real llvm-c/lto.h bit layouts, named to match the constants
// input-files.cc switches on directly.
const (
	ltoSymbolAlignmentMask uint32 = 0x0000001f

	ltoSymbolDefinitionMask      uint32 = 0x00000700
	ltoSymbolDefinitionRegular   uint32 = 0x00000100
	ltoSymbolDefinitionTentative uint32 = 0x00000200
	ltoSymbolDefinitionWeak      uint32 = 0x00000300
	ltoSymbolDefinitionUndefined uint32 = 0x00000400
	ltoSymbolDefinitionWeakUndef uint32 = 0x00000500

	ltoSymbolScopeMask                 uint32 = 0x00003800
	ltoSymbolScopeInternal             uint32 = 0x00000800
	ltoSymbolScopeHidden               uint32 = 0x00001000
	ltoSymbolScopeDefault              uint32 = 0x00001800
	ltoSymbolScopeProtected            uint32 = 0x00002000
	ltoSymbolScopeDefaultCanBeHidden   uint32 = 0x00002800
)

// LTOModule is an opaque handle to a bitcode translation unit, owned
// by whatever plugin created it (spec GLOSSARY: "LTO module").
type LTOModule interface{}

// LTOPlugin is the collaborator spec §6 names: "LTO plugin exposing
// module_create_from_memory, module_get_num_symbols,
// module_get_symbol_name, module_get_symbol_attribute." Grounded
// directly on mold's ctx.lto call sites in parse_lto_symbols.
type LTOPlugin interface {
	ModuleCreateFromMemory(data []byte) (LTOModule, error)
	ModuleGetNumSymbols(mod LTOModule) int
	ModuleGetSymbolName(mod LTOModule, i int) string
	ModuleGetSymbolAttribute(mod LTOModule, i int) uint32
}

// parseLTOSymbols implements spec §4.6 in full: synthesize a
// Mach-O-shaped symbol table from the plugin's symbol attributes so
// the rest of the pipeline (resolver, subsection splitter) never needs
// to know a file came from bitcode. Grounded directly on mold's
// ObjectFile<E>::parse_lto_symbols.
func (o *ObjectFile) parseLTOSymbols(ctx *Context, plugin LTOPlugin) error {
	n := plugin.ModuleGetNumSymbols(o.LTOModule)

	o.Syms = make([]*Symbol, 0, n)
	o.machSyms = make([]MachSym, 0, n)

	for i := 0; i < n; i++ {
		name := plugin.ModuleGetSymbolName(o.LTOModule, i)
		o.Syms = append(o.Syms, ctx.Symbols.Get(name))

		attr := plugin.ModuleGetSymbolAttribute(o.LTOModule, i)

		var msym MachSym
		msym.Desc = uint16(attr & ltoSymbolAlignmentMask)

		switch attr & ltoSymbolDefinitionMask {
		case ltoSymbolDefinitionRegular, ltoSymbolDefinitionTentative, ltoSymbolDefinitionWeak:
			msym.Type = NAbs
		case ltoSymbolDefinitionUndefined, ltoSymbolDefinitionWeakUndef:
			msym.Type = NUndf
		default:
			return fmt.Errorf("%s: %w: unrecognized LTO symbol definition for %s",
				o.DisplayName(), ErrLtoPluginFailure, name)
		}

		switch attr & ltoSymbolScopeMask {
		case 0, ltoSymbolScopeInternal, ltoSymbolScopeHidden:
			// not extern
		case ltoSymbolScopeDefault, ltoSymbolScopeProtected, ltoSymbolScopeDefaultCanBeHidden:
			msym.Type |= NExtMask
		default:
			return fmt.Errorf("%s: %w: unrecognized LTO symbol scope for %s",
				o.DisplayName(), ErrLtoPluginFailure, name)
		}

		o.machSyms = append(o.machSyms, msym)
	}

	return nil
}

// nullLTOPlugin is a test double satisfying LTOPlugin for unit tests
// that need to drive ObjectFile.Parse over synthetic bitcode without
// a real LLVM toolchain present.
type nullLTOPlugin struct {
	symbols []nullLTOSymbol
}

type nullLTOSymbol struct {
	name string
	attr uint32
}

func (p *nullLTOPlugin) ModuleCreateFromMemory(data []byte) (LTOModule, error) {
	return p, nil
}

func (p *nullLTOPlugin) ModuleGetNumSymbols(mod LTOModule) int {
	return len(p.symbols)
}

func (p *nullLTOPlugin) ModuleGetSymbolName(mod LTOModule, i int) string {
	return p.symbols[i].name
}

func (p *nullLTOPlugin) ModuleGetSymbolAttribute(mod LTOModule, i int) uint32 {
	return p.symbols[i].attr
}
