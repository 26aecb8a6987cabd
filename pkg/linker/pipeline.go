package linker

import "fmt"

// LoadInputFile implements the per-command-line-argument entry point
// into this core (spec §1's "given a set of relocatable object files,
// dynamic libraries, text stub libraries, and LLVM bitcode files, the
// core parses each"): it sniffs the container format, expands
// archives into their member objects, and otherwise constructs and
// parses exactly one ObjectFile or DylibFile. Grounded on mold's
// driver-level dispatch referenced from ObjectFile<E>::create/
// DylibFile<E>::create call sites, reconstructed here since the
// top-level driver lives in main.cc rather than input-files.cc.
func LoadInputFile(ctx *Context, f *File, plugin LTOPlugin) error {
	switch GetFileType(f.Contents) {
	case FileTypeArchive:
		for _, member := range ReadArchiveMembers(f) {
			obj := NewObjectFile(member, f.Name, ctx.Args.AllLoad, ctx.takePriority())
			obj.IsHidden = ctx.Args.HiddenL
			if err := obj.Parse(ctx, plugin); err != nil {
				return err
			}
			ctx.Objs = append(ctx.Objs, obj)
		}
		return nil

	case FileTypeObject, FileTypeBitcode:
		obj := NewObjectFile(f, "", true, ctx.takePriority())
		obj.IsHidden = ctx.Args.HiddenL
		if err := obj.Parse(ctx, plugin); err != nil {
			return err
		}
		ctx.Objs = append(ctx.Objs, obj)
		return nil

	case FileTypeDylib, FileTypeTbd:
		dylib, err := CreateDylib(ctx, f, ctx.Args.NeededL)
		if err != nil {
			return err
		}
		dylib.Priority = ctx.takePriority()
		ctx.Dylibs = append(ctx.Dylibs, dylib)
		return nil

	default:
		return fmt.Errorf("%s: %w: unrecognized input file format", f.DisplayName(), ErrMalformedInput)
	}
}

// Link runs every loaded file through symbol resolution, matching the
// control flow spec §2 describes: "a barrier precedes resolution;
// resolution itself is parallel over files ... after a round of
// resolution ... mark-live, looping until a fixed point."
func Link(ctx *Context, plugin LTOPlugin) error {
	return resolveAllSymbols(ctx)
}
