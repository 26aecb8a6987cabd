package linker

import "strings"

// findExternalLib implements spec §6's library-search collaborator:
// given a parent install name (unused beyond error messages — kept
// for parity with mold's signature) and a path, resolve it against
// the configured sysroots, preferring `.tbd` stubs over `.dylib`
// binaries. Grounded directly on mold's free function
// find_external_lib in input-files.cc.
func findExternalLib(ctx *Context, parent, path string) (*File, error) {
	if !strings.HasPrefix(path, "/") {
		return MustOpenFileSoft(path)
	}

	for _, root := range ctx.Args.SysLibRoot {
		if strings.HasSuffix(path, ".tbd") {
			if f, err := OpenFile(root + path); err == nil {
				return f, nil
			}
			continue
		}

		if strings.HasSuffix(path, ".dylib") {
			stem := path[:len(path)-len(".dylib")]
			if f, err := OpenFile(root + stem + ".tbd"); err == nil {
				return f, nil
			}
			if f, err := OpenFile(root + path); err == nil {
				return f, nil
			}
			continue
		}

		for _, extn := range []string{".tbd", ".dylib"} {
			if f, err := OpenFile(root + path + extn); err == nil {
				return f, nil
			}
		}
	}

	return nil, errLibraryNotFound(parent, path)
}

func errLibraryNotFound(parent, path string) error {
	return &libraryNotFoundError{parent: parent, path: path}
}

type libraryNotFoundError struct {
	parent string
	path   string
}

func (e *libraryNotFoundError) Error() string {
	return "cannot find library " + e.path + " (wanted by " + e.parent + ")"
}

// MustOpenFileSoft opens a relative path directly (spec §6: "if the
// path is not absolute, open it directly"), returning an error rather
// than fataling so the caller can report ErrUnresolvedReexport with
// context.
func MustOpenFileSoft(path string) (*File, error) {
	return OpenFile(path)
}
