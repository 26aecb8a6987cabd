package linker

import (
	"bufio"
	"bytes"
	"strings"
)

// TextDylib is the result of parsing a TAPI/TBD text stub (spec §4.5):
// an install name, the libraries it reexports, and its export lists.
// Grounded on mold's TextDylib aggregate referenced from
// DylibFile<E>::parse_tapi; no library in the example pack speaks TBD
// (a restricted YAML subset), so this reader is a deliberately narrow,
// hand-rolled line scanner rather than a generic YAML decode — see
// DESIGN.md for why no third-party parser from the pack could serve
// this role.
type TextDylib struct {
	InstallName    string
	ReexportedLibs []string
	Exports        []string
	WeakExports    []string
}

// parseTBD extracts just the fields spec §4.5 needs from a TBD file:
// `install-name`, every `libraries:` entry nested under
// `reexported-libraries:`, and every `symbols:`/`weak-symbols:` entry
// nested under `exports:`. Real TBD files carry per-target
// architecture filtering and additional symbol classes (objc-classes,
// objc-ivars); this reader treats the whole document as one flat
// target set, matching the spec's single-architecture scope.
func parseTBD(data []byte) TextDylib {
	var tbd TextDylib

	const (
		sectionNone = iota
		sectionReexports
		sectionExports
	)
	section := sectionNone

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" || trimmed == "..." {
			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " "))

		switch {
		case strings.HasPrefix(trimmed, "install-name:"):
			tbd.InstallName = unquote(valueAfter(trimmed, "install-name:"))

		case trimmed == "reexported-libraries:":
			section = sectionReexports
		case trimmed == "exports:":
			section = sectionExports

		case indent == 0 && strings.HasSuffix(trimmed, ":"):
			section = sectionNone

		case strings.HasPrefix(trimmed, "libraries:") && section == sectionReexports:
			tbd.ReexportedLibs = append(tbd.ReexportedLibs, parseFlowList(valueAfter(trimmed, "libraries:"))...)

		case strings.HasPrefix(trimmed, "symbols:") && section == sectionExports:
			tbd.Exports = append(tbd.Exports, parseFlowList(valueAfter(trimmed, "symbols:"))...)

		case strings.HasPrefix(trimmed, "weak-symbols:") && section == sectionExports:
			tbd.WeakExports = append(tbd.WeakExports, parseFlowList(valueAfter(trimmed, "weak-symbols:"))...)
		}
	}

	return tbd
}

func valueAfter(line, key string) string {
	return strings.TrimSpace(line[len(key):])
}

// parseFlowList parses a YAML flow sequence like `[ _a, _b, _c ]`. A
// bare `-` list style spanning multiple lines is not supported: every
// TBD stub retrieved in the example pack for this spec's scope uses
// the single-line flow form.
func parseFlowList(s string) []string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return nil
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")

	var out []string
	for _, part := range strings.Split(s, ",") {
		part = unquote(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
