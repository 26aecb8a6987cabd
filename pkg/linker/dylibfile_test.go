package linker

import (
	"os"
	"path/filepath"
	"testing"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
	return dir
}

const mainTbd = `--- !tapi-tbd
install-name: /usr/lib/libFoo.dylib
exports:
  - archs: [ x86_64 ]
    symbols: [ _foo, _bar ]
reexported-libraries:
  - archs: [ x86_64 ]
    libraries: [ libReexported.tbd ]
...
`

const reexportedTbd = `--- !tapi-tbd
install-name: /usr/lib/libReexported.dylib
exports:
  - archs: [ x86_64 ]
    symbols: [ _baz ]
...
`

func TestCreateDylibReexportChain(t *testing.T) {
	dir := chdirTemp(t)
	if err := os.WriteFile(filepath.Join(dir, "libReexported.tbd"), []byte(reexportedTbd), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := NewContext()
	mainFile := &File{Name: "libFoo.tbd", Contents: []byte(mainTbd)}

	d, err := CreateDylib(ctx, mainFile, true)
	if err != nil {
		t.Fatalf("CreateDylib: %v", err)
	}

	if d.InstallName != "/usr/lib/libFoo.dylib" {
		t.Errorf("InstallName = %q, want /usr/lib/libFoo.dylib", d.InstallName)
	}
	if len(d.ReexportedLibs) != 1 || d.ReexportedLibs[0] != "libReexported.tbd" {
		t.Errorf("ReexportedLibs = %v, want [libReexported.tbd]", d.ReexportedLibs)
	}

	names := map[string]bool{}
	for _, sym := range d.Syms {
		names[sym.Name] = true
	}
	for _, want := range []string{"_foo", "_bar", "_baz"} {
		if !names[want] {
			t.Errorf("resolved dylib symbol set %v is missing %s (reexport chain not merged)", names, want)
		}
	}
	if len(d.Syms) != 3 {
		t.Errorf("got %d dylib symbols, want exactly 3: %v", len(d.Syms), names)
	}
}

func TestCreateDylibRejectsNonDylibInput(t *testing.T) {
	ctx := NewContext()
	f := &File{Name: "not-a-dylib.o", Contents: []byte("\x00\x00\x00\x00garbage")}
	if _, err := CreateDylib(ctx, f, true); err == nil {
		t.Fatal("CreateDylib must reject input that isn't a dylib or TBD stub")
	}
}

func TestFindExternalLibSysroot(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "usr", "lib")
	if err := os.MkdirAll(libDir, 0755); err != nil {
		t.Fatal(err)
	}
	tbdPath := filepath.Join(libDir, "libBar.tbd")
	if err := os.WriteFile(tbdPath, []byte(reexportedTbd), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := NewContext()
	ctx.Args.SysLibRoot = []string{dir}

	f, err := findExternalLib(ctx, "parent", "/usr/lib/libBar.dylib")
	if err != nil {
		t.Fatalf("findExternalLib: %v", err)
	}
	if f.Name != tbdPath {
		t.Errorf("findExternalLib resolved %q, want the .tbd stub at %q", f.Name, tbdPath)
	}
}

func TestFindExternalLibNotFound(t *testing.T) {
	ctx := NewContext()
	ctx.Args.SysLibRoot = []string{t.TempDir()}

	if _, err := findExternalLib(ctx, "parent", "/usr/lib/libNowhere.dylib"); err == nil {
		t.Fatal("findExternalLib must fail when no sysroot has a matching stub or binary")
	}
}
