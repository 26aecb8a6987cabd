package linker

// ContextArgs is the command-line configuration the driver hands to
// this core. Output and LibraryPaths are carried along but not read by
// any code in pkg/linker. Grounded on the teacher's ContextArgs,
// generalized to Mach-O's sysroot/hidden-l/dead-strip-dylibs knobs
// referenced by mold's find_external_lib and DylibFile::create.
type ContextArgs struct {
	Output          string
	SysLibRoot      []string
	LibraryPaths    []string
	HiddenL         bool
	NeededL         bool
	WeakL           bool
	ReexportL       bool
	AllLoad         bool
	DeadStripDylibs bool
}

// Context is the top-level state shared across every input file:
// parsed file pools, the interned symbol table, and the running
// diagnostics list. Grounded on the teacher's context.go, expanded per
// dongAxis-rvld__context.go's richer Context (file pools, FilePriority
// counter) and generalized from a single ELF Objs slice to the
// object/dylib split spec §3 draws.
type Context struct {
	Args ContextArgs

	Objs    []*ObjectFile
	Dylibs  []*DylibFile
	Symbols *SymbolTable

	// NextPriority hands out strictly increasing InputFile priorities
	// as files are read off the command line; archive members receive
	// a priority strictly greater than their enclosing archive
	// reference (spec §3 invariant on InputFile.priority).
	NextPriority int64

	// Diagnostics accumulates non-fatal reports (duplicate symbols)
	// so they can be surfaced together at the end of the link, per
	// spec §7's policy.
	Diagnostics []error
}

func NewContext() *Context {
	return &Context{
		Args: ContextArgs{
			Output:  "a.out",
			NeededL: true,
		},
		Symbols:      NewSymbolTable(),
		NextPriority: 1,
	}
}

func (ctx *Context) takePriority() int64 {
	p := ctx.NextPriority
	ctx.NextPriority++
	return p
}

func (ctx *Context) AddDiagnostic(err error) {
	ctx.Diagnostics = append(ctx.Diagnostics, err)
}
