package linker

import "machold/pkg/utils"

// ExportFlag is the flags ULEB128 field of an export-trie terminal
// node. Constant values and naming grounded on
// blacktop-go-macho__flags.go's ExportFlag.
type ExportFlag uint64

const (
	ExportSymbolFlagsKindMask       ExportFlag = 0x03
	ExportSymbolFlagsKindRegular    ExportFlag = 0x00
	ExportSymbolFlagsWeakDefinition ExportFlag = 0x04
	ExportSymbolFlagsReexport       ExportFlag = 0x08
)

func (f ExportFlag) WeakDefinition() bool {
	return f&ExportSymbolFlagsWeakDefinition != 0
}

// readTrie implements spec §4.5's export trie walk: a node's
// terminal-size byte gates an optional {size, flags, address} payload
// (only flags retained), followed by a child-count byte and that many
// {NUL-terminated suffix, uleb child offset} entries. Grounded
// directly on mold's DylibFile<E>::read_trie.
func readTrie(buf []byte, offset int, prefix string, exports, weakExports *utils.MapSet[string]) {
	if offset < 0 || offset >= len(buf) {
		return
	}
	p := offset

	terminalSize := buf[p]
	p++

	if terminalSize != 0 {
		payload := buf[p : p+int(terminalSize)]
		_, n := utils.ReadULEB128(payload) // size
		flags, n2 := utils.ReadULEB128(payload[n:])
		// address field consumed but discarded, matching spec §4.5.

		if ExportFlag(flags).WeakDefinition() {
			weakExports.Insert(prefix)
		} else {
			exports.Insert(prefix)
		}
		_ = n2
		p += int(terminalSize)
	}

	if p >= len(buf) {
		return
	}
	nchild := int(buf[p])
	p++

	for i := 0; i < nchild; i++ {
		start := p
		for p < len(buf) && buf[p] != 0 {
			p++
		}
		suffix := string(buf[start:p])
		p++ // NUL

		childOff, n := utils.ReadULEB128(buf[p:])
		p += n

		readTrie(buf, int(childOff), prefix+suffix, exports, weakExports)
	}
}
