package linker

import (
	"testing"

	"machold/pkg/utils"
)

// buildExportTrie hand-encodes a minimal two-leaf export trie: a root
// with two children "_foo" (regular export) and "_bar" (weak export),
// matching the on-disk shape mold's read_trie walks.
func buildExportTrie() []byte {
	fooNode := []byte{2, 0x00, 0x00, 0x00} // terminalSize=2, size=0, flags=0 (regular), nchild=0
	barNode := []byte{2, 0x00, 0x04, 0x00} // terminalSize=2, size=0, flags=0x04 (weak), nchild=0

	// root: terminalSize(1) + nchild(1) + "_foo\0"(5) + uleb(fooOffset)(1)
	// + "_bar\0"(5) + uleb(barOffset)(1) = 14 bytes, so fooNode starts
	// right after it and barNode right after fooNode. Both offsets are
	// well under 128 so each uleb is exactly one byte.
	const rootLen = 14
	fooNodeOffset := rootLen
	barNodeOffset := rootLen + len(fooNode)

	root := []byte{0, 2} // terminalSize=0 (no string maps to ""), nchild=2
	root = append(root, '_', 'f', 'o', 'o', 0)
	root = append(root, byte(fooNodeOffset))
	root = append(root, '_', 'b', 'a', 'r', 0)
	root = append(root, byte(barNodeOffset))
	if len(root) != rootLen {
		panic("buildExportTrie: root length assumption is wrong")
	}

	buf := append(root, fooNode...)
	buf = append(buf, barNode...)
	return buf
}

func TestReadTrieRegularAndWeakExports(t *testing.T) {
	buf := buildExportTrie()

	exports := utils.NewMapSet[string]()
	weakExports := utils.NewMapSet[string]()

	readTrie(buf, 0, "", &exports, &weakExports)

	if !exports.Contains("_foo") {
		t.Error("_foo should be a regular export")
	}
	if weakExports.Contains("_foo") {
		t.Error("_foo must not be recorded as a weak export")
	}
	if !weakExports.Contains("_bar") {
		t.Error("_bar should be a weak export")
	}
	if exports.Contains("_bar") {
		t.Error("_bar must not be recorded as a regular export")
	}
}

func TestReadTrieEmptyBuffer(t *testing.T) {
	exports := utils.NewMapSet[string]()
	weakExports := utils.NewMapSet[string]()

	readTrie(nil, 0, "", &exports, &weakExports)

	if len(exports.Keys()) != 0 || len(weakExports.Keys()) != 0 {
		t.Fatal("reading an empty trie buffer must yield no exports")
	}
}

func TestExportFlagWeakDefinition(t *testing.T) {
	if !ExportFlag(ExportSymbolFlagsWeakDefinition).WeakDefinition() {
		t.Fatal("the weak-definition flag bit must report true")
	}
	if ExportFlag(ExportSymbolFlagsKindRegular).WeakDefinition() {
		t.Fatal("a plain regular-kind flag must not report weak")
	}
}
