package linker

import (
	"fmt"
	"os"

	"machold/pkg/utils"
)

// File is a named byte view over an input: either a whole mapped file,
// or a slice of one carved out by the archive demultiplexer. Mirrors
// the teacher's File/MappedFile split (dongAxis-rvld__file.go's
// MustNewFile), generalized to use an mmap-backed byte slice instead
// of a full os.ReadFile slurp, per SPEC_FULL.md's DOMAIN STACK section.
type File struct {
	Name     string
	Contents []byte

	// ArchiveName is the enclosing archive's display name, set by the
	// archive demultiplexer for child members; empty for top-level
	// inputs (spec §3 InputFile.archive_name).
	ArchiveName string

	mf *MappedFile
}

// DisplayName renders the §7 "path(member)" form.
func (f *File) DisplayName() string {
	if f.ArchiveName == "" {
		return f.Name
	}
	return fmt.Sprintf("%s(%s)", f.ArchiveName, f.Name)
}

// MustOpenFile mmaps path and returns a File view over the whole
// mapping. Fatal on any I/O error, matching the teacher's
// utils.MustNo-based MustNewFile.
func MustOpenFile(path string) *File {
	mf, err := OpenMappedFile(path)
	utils.MustNo(err)
	return &File{Name: path, Contents: mf.Data, mf: mf}
}

// OpenFile is the non-fatal counterpart used by library search, which
// routinely probes paths that don't exist.
func OpenFile(path string) (*File, error) {
	mf, err := OpenMappedFile(path)
	if err != nil {
		return nil, err
	}
	return &File{Name: path, Contents: mf.Data, mf: mf}, nil
}

// Close unmaps the file's backing mapping, if any. Safe to call on a
// File carved out of an archive (mf is nil there; the parent archive's
// File owns the mapping).
func (f *File) Close() error {
	if f.mf == nil {
		return nil
	}
	err := f.mf.Close()
	f.mf = nil
	return err
}

// readWhole is the last-resort fallback used on platforms with no
// MappedFile implementation (see mmap_other.go).
func readWhole(path string) ([]byte, error) {
	return os.ReadFile(path)
}
