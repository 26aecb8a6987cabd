package linker

import (
	"fmt"

	"machold/pkg/utils"
)

// UnwindRecord is one entry of __LD,__compact_unwind, post-relocation
// (spec §3). Grounded directly on mold's UnwindRecord<E>.
type UnwindRecord struct {
	CodeLen  uint32
	Encoding uint32

	Subsec *Subsection
	Offset uint32

	Personality       *Symbol
	PersonalityOffset uint32 // not set by parseCompactUnwind: a local personality is resolved to its extern alias or rejected

	Lsda       *Subsection
	LsdaOffset uint32
}

const (
	relocFieldCodeStart  = 0
	relocFieldPersonality = 16
	relocFieldLsda        = 24
)

// parseCompactUnwind implements spec §4.3 in full: fixed-size record
// decode, relocation-carried field resolution for code_start,
// personality and lsda, and the final sort-and-attach pass over
// subsections. Grounded directly on mold's
// ObjectFile<E>::parse_compact_unwind.
func (o *ObjectFile) parseCompactUnwind(ctx *Context, hdr MachSection) error {
	recSize := uint64(cueSize)
	if hdr.Size%recSize != 0 {
		return fmt.Errorf("%s: %w: __LD,__compact_unwind size is not a multiple of the record size",
			o.DisplayName(), ErrMalformedInput)
	}

	data := o.file.Contents
	base := data[hdr.Offset : uint64(hdr.Offset)+hdr.Size]
	n := uint32(hdr.Size / recSize)

	records := make([]UnwindRecord, n)
	for i := uint32(0); i < n; i++ {
		raw := utils.Read[CompactUnwindEntry](base[uint64(i)*recSize:])
		records[i] = UnwindRecord{CodeLen: raw.CodeLen, Encoding: raw.Encoding}
	}

	relData := data[hdr.RelOff:]
	for r := uint32(0); r < hdr.NReloc; r++ {
		rel := readMachRel(relData[uint64(r)*uint64(relSize):])

		if rel.IsPCRel() || rel.P2Size() != 3 || rel.Type() != 0 {
			return fmt.Errorf("%s: %w: compact-unwind relocation at offset %d",
				o.DisplayName(), ErrUnsupportedReloc, rel.Offset)
		}

		recIdx := rel.Offset / uint32(cueSize)
		field := rel.Offset % uint32(cueSize)
		if recIdx >= n {
			return fmt.Errorf("%s: %w: compact-unwind relocation out of range",
				o.DisplayName(), ErrUnsupportedReloc)
		}
		rec := &records[recIdx]

		switch field {
		case relocFieldCodeStart:
			codeStart := readLittleEndian64(base[uint64(recIdx)*recSize:])
			sub := o.FindSubsection(codeStart)
			if sub == nil {
				return fmt.Errorf("%s: %w: compact-unwind code_start has no covering subsection",
					o.DisplayName(), ErrMalformedInput)
			}
			rec.Subsec = sub
			rec.Offset = uint32(codeStart - sub.InputAddr)

		case relocFieldPersonality:
			if rel.IsExtern() {
				rec.Personality = o.Syms[rel.SymbolNum()]
			} else {
				addend := readLittleEndian32(base[uint64(recIdx)*recSize+16:])
				sym := o.FindSymbol(uint64(addend))
				if sym == nil {
					return fmt.Errorf("%s: %w: local compact-unwind personality with no extern alias at 0x%x",
						o.DisplayName(), ErrUnsupportedReloc, addend)
				}
				rec.Personality = sym
			}

		case relocFieldLsda:
			addend := readLittleEndian64(base[uint64(recIdx)*recSize+24:])
			sub := o.FindSubsection(addend)
			if sub == nil {
				return fmt.Errorf("%s: %w: compact-unwind lsda has no covering subsection",
					o.DisplayName(), ErrMalformedInput)
			}
			rec.Lsda = sub
			rec.LsdaOffset = uint32(addend - sub.InputAddr)

		default:
			return fmt.Errorf("%s: %w: unexpected compact-unwind relocation field %d",
				o.DisplayName(), ErrUnsupportedReloc, field)
		}
	}

	for i := range records {
		if records[i].Subsec == nil {
			return fmt.Errorf("%s: %w: compact-unwind record %d has no code_start subsection",
				o.DisplayName(), ErrMalformedInput, i)
		}
	}

	sortUnwindRecords(records)
	o.UnwindRecords = records
	attachUnwindRuns(o, records)
	return nil
}

func sortUnwindRecords(records []UnwindRecord) {
	// Simple insertion sort: compact-unwind sections are small and this
	// keeps the code free of an extra sort.Slice closure allocation per
	// comparison; stable by construction since keys are distinct enough
	// in practice (ties break on stable relative order).
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && lessUnwind(records[j], records[j-1]); j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}
}

func lessUnwind(a, b UnwindRecord) bool {
	if a.Subsec.InputAddr != b.Subsec.InputAddr {
		return a.Subsec.InputAddr < b.Subsec.InputAddr
	}
	return a.Offset < b.Offset
}

// attachUnwindRuns installs, for each maximal run of records sharing
// the same subsec, subsec.unwind_offset/nunwind (spec §4.3 final
// paragraph).
func attachUnwindRuns(o *ObjectFile, records []UnwindRecord) {
	i := 0
	for i < len(records) {
		j := i + 1
		for j < len(records) && records[j].Subsec == records[i].Subsec {
			j++
		}
		records[i].Subsec.UnwindOffset = i
		records[i].Subsec.NUnwind = j - i
		i = j
	}
}

func readLittleEndian32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func readLittleEndian64(b []byte) uint64 {
	return uint64(readLittleEndian32(b)) | uint64(readLittleEndian32(b[4:]))<<32
}
