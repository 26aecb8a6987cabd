package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"machold/pkg/linker"
	"machold/pkg/utils"
)

// nullLTOPlugin has no exported constructor outside pkg/linker (it's a
// test double); the CLI driver instead fails fast on bitcode input
// until a real plugin is wired, matching spec §1's "the LTO compiler
// plugin ... is an external collaborator."
type noLTOPlugin struct{}

func (noLTOPlugin) ModuleCreateFromMemory(data []byte) (linker.LTOModule, error) {
	return nil, fmt.Errorf("LTO plugin not configured")
}
func (noLTOPlugin) ModuleGetNumSymbols(mod linker.LTOModule) int       { return 0 }
func (noLTOPlugin) ModuleGetSymbolName(mod linker.LTOModule, i int) string { return "" }
func (noLTOPlugin) ModuleGetSymbolAttribute(mod linker.LTOModule, i int) uint32 { return 0 }

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	ctx := linker.NewContext()

	var syslibroot, libpaths stringList
	flag.Var(&syslibroot, "syslibroot", "prepend a system library root (repeatable)")
	flag.Var(&libpaths, "L", "record a library search path (repeatable; no lookup reads these paths)")
	output := flag.String("o", "a.out", "output file name")
	hiddenL := flag.Bool("hidden-l", false, "mark loaded object files' extern symbols private (spec §4.7 is_hidden)")
	weakL := flag.Bool("weak-l", false, "mark subsequently loaded dylibs weak")
	reexportL := flag.Bool("reexport-l", false, "mark subsequently loaded dylibs reexported")
	allLoad := flag.Bool("all_load", false, "force-load every archive member")
	deadStripDylibs := flag.Bool("dead_strip_dylibs", false, "recorded only: every dylib is loaded as needed, so no dylib is dropped")
	flag.Parse()

	if flag.NArg() == 0 {
		utils.Fatal("no input files")
	}

	ctx.Args = linker.ContextArgs{
		Output:          *output,
		SysLibRoot:      syslibroot,
		LibraryPaths:    libpaths,
		HiddenL:         *hiddenL,
		NeededL:         true,
		WeakL:           *weakL,
		ReexportL:       *reexportL,
		AllLoad:         *allLoad,
		DeadStripDylibs: *deadStripDylibs,
	}

	plugin := noLTOPlugin{}

	for _, path := range flag.Args() {
		f := linker.MustOpenFile(path)
		if err := linker.LoadInputFile(ctx, f, plugin); err != nil {
			utils.Fatal(err)
		}
	}

	if err := linker.Link(ctx, plugin); err != nil {
		for _, d := range ctx.Diagnostics {
			fmt.Fprintln(os.Stderr, d)
		}
		utils.Fatal(err)
	}

	fmt.Printf("resolved %d object file(s), %d dylib(s)\n", len(ctx.Objs), len(ctx.Dylibs))

	if undefs := linker.UndefinedSymbols(ctx); len(undefs) > 0 {
		fmt.Printf("%d undefined symbol(s):\n", len(undefs))
		for _, name := range undefs {
			fmt.Printf("  %s\n", name)
		}
	}
}
