package linker

// getRank implements spec §4.7's precedence table: a 64-bit key whose
// high bits carry the priority class and whose low bits carry
// file.priority as the tiebreaker, so the numerically smallest rank
// wins ties deterministically. Grounded on dongAxis-rvld__rank.go's
// GetRank, generalized from ELF's STB_WEAK/is_lazy(archive) split into
// the seven-way object/dylib/common/dead-archive matrix spec §4.7
// names.
func getRank(priority int64, isWeak, isCommon, isDeadOrDylib bool) uint64 {
	var class uint64
	switch {
	case isCommon && !isDeadOrDylib:
		class = 5
	case isCommon && isDeadOrDylib:
		class = 6
	case isDeadOrDylib && isWeak:
		class = 4
	case isDeadOrDylib:
		class = 3
	case isWeak:
		class = 2
	default:
		class = 1
	}
	return (class << 24) + uint64(priority)
}

// noOwnerRank is the rank of an as-yet-unresolved symbol slot (spec
// §4.7 table row 7): beaten by any real candidate regardless of
// priority.
const noOwnerRank uint64 = 7 << 24
