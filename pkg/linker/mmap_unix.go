//go:build unix

package linker

import (
	"os"

	"golang.org/x/sys/unix"
)

// MappedFile is a memory-mapped input file. Its lifetime spans the
// entire link (spec §5 "Resources"): callers keep the *File around
// until output is written (or the link aborts), then Close it.
//
// Grounded on the unix.Mmap usage in xyproto-vibe67/filewatcher_unix.go
// (the one pack dependency wired per SPEC_FULL.md's DOMAIN STACK),
// swapped from kqueue bookkeeping to a plain read-only file mapping.
type MappedFile struct {
	Data []byte
}

func OpenMappedFile(path string) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := st.Size()
	if size == 0 {
		// unix.Mmap rejects a zero-length mapping; an empty input
		// file is malformed regardless, so hand back an empty slice
		// and let input-format detection (GetFileType) reject it as
		// an unrecognized format.
		return &MappedFile{Data: []byte{}}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	return &MappedFile{Data: data}, nil
}

func (m *MappedFile) Close() error {
	if len(m.Data) == 0 {
		return nil
	}
	return unix.Munmap(m.Data)
}
