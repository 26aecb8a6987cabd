//go:build !unix

package linker

// MappedFile on non-unix platforms (x/sys/unix has no mmap there)
// falls back to a plain whole-file read; behaviorally equivalent for a
// read-only, process-lifetime input, just without the shared-mapping
// optimization.
type MappedFile struct {
	Data []byte
}

func OpenMappedFile(path string) (*MappedFile, error) {
	data, err := readWhole(path)
	if err != nil {
		return nil, err
	}
	return &MappedFile{Data: data}, nil
}

func (m *MappedFile) Close() error {
	return nil
}
