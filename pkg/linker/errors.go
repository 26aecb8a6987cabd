package linker

import "errors"

// Fatal ingestion error kinds (spec §7). Parsing errors returned as
// values wrap one of these via fmt.Errorf("%w", ...) so callers can
// classify failures with errors.Is without string-matching messages.
// The local-undefined and unknown-symbol-type cases in parseSymbols
// are not returned: they exit through utils.Fatal with the kind's text
// in the message.
var (
	ErrMalformedInput     = errors.New("malformed input")
	ErrUnsupportedReloc   = errors.New("unsupported relocation")
	ErrUnknownSymbolType  = errors.New("unknown symbol type")
	ErrLocalUndefined     = errors.New("local undefined symbol")
	ErrUnresolvedReexport = errors.New("unresolved reexport")
	ErrLtoPluginFailure   = errors.New("lto plugin failure")
)

// DuplicateSymbolError is reported, not fatal: parsing continues so
// that every duplicate in the link is surfaced together at the end
// (spec §7 policy).
type DuplicateSymbolError struct {
	Name   string
	Winner string
	Loser  string
}

func (e *DuplicateSymbolError) Error() string {
	return "duplicate symbol: " + e.Name + ": " + e.Winner + ": " + e.Loser
}
