package linker

import (
	"fmt"
	"sort"
	"sync"

	"machold/pkg/utils"
)

// symbolRank computes the full rank for a would-be or incumbent
// owner, folding file/dylib/liveness state into the class selector
// that feeds getRank. Grounded directly on mold's free-function
// get_rank(InputFile*, bool, bool) overload.
func symbolRank(file InputFileLike, isCommon, isWeak bool) uint64 {
	deadOrDylib := file.IsDylibFile() || !file.IsAlive()
	return getRank(file.GetPriority(), isWeak, isCommon, deadOrDylib)
}

// currentRank computes the incumbent rank of sym, matching mold's
// get_rank(Symbol&) overload: an unowned symbol always loses.
func currentRank(sym *Symbol) uint64 {
	if sym.File == nil {
		return noOwnerRank
	}
	return symbolRank(sym.File, sym.IsCommon, sym.IsWeak)
}

// ResolveSymbols implements spec §4.7's per-object resolution pass:
// scope merge plus rank comparison under the target symbol's lock.
// Grounded directly on mold's ObjectFile<E>::resolve_symbols.
func (o *ObjectFile) ResolveSymbols(ctx *Context) {
	isPrivateExtern := func(msym *MachSym) bool {
		return o.IsHidden || msym.IsPrivateExtern() ||
			(msym.IsWeakRef() && msym.IsWeakDef())
	}

	for i := range o.machSyms {
		msym := &o.machSyms[i]
		if !msym.IsExtern() || msym.IsUndef() {
			continue
		}

		sym := o.Syms[i]
		sym.Mu.Lock()

		if sym.Scope != ScopeExtern {
			if isPrivateExtern(msym) {
				sym.Scope = ScopePrivateExtern
			} else {
				sym.Scope = ScopeExtern
			}
		}

		isWeak := msym.IsWeakDef()

		if symbolRank(o, msym.IsCommon(), isWeak) < currentRank(sym) {
			sym.File = o
			sym.IsImported = false
			sym.IsWeak = isWeak

			switch msym.baseType() {
			case NUndf:
				sym.Subsec = nil
				sym.Value = msym.Value
				sym.IsCommon = true
			case NAbs:
				sym.Subsec = nil
				sym.Value = msym.Value
				sym.IsCommon = false
			case NSect:
				sub := o.symToSubsec[i]
				sym.Subsec = sub
				sym.Value = msym.Value - sub.InputAddr
				sym.IsCommon = false
			}
		}

		sym.Mu.Unlock()
	}
}

// LiveFeeder receives object files newly transitioned to is_alive=true
// during mark-live, per spec §9's "reify as a small interface" note.
type LiveFeeder interface {
	Enqueue(obj *ObjectFile)
}

// MarkLiveObjects implements spec §4.7's mark-live sweep for one
// already-alive object: any extern symbol that this object leaves
// undefined, or defines as common while the resolved symbol is not
// common, forces its current owner alive via CAS. Grounded directly on mold's
// ObjectFile<E>::mark_live_objects.
func (o *ObjectFile) MarkLiveObjects(ctx *Context, feeder LiveFeeder) {
	for i := range o.machSyms {
		msym := &o.machSyms[i]
		if !msym.IsExtern() {
			continue
		}

		sym := o.Syms[i]
		sym.Mu.Lock()
		file := sym.File
		keep := file != nil && (msym.IsUndef() || (msym.IsCommon() && !sym.IsCommon))
		sym.Mu.Unlock()

		if !keep {
			continue
		}
		if !file.SwapAlive(true) {
			if obj, ok := file.(*ObjectFile); ok {
				feeder.Enqueue(obj)
			}
		}
	}
}

// ConvertCommonSymbols implements spec §4.7's common-symbol
// materialization: every symbol still owned by this file with
// is_common=true gets a synthetic zero-fill subsection in
// __DATA,__common. Grounded directly on mold's
// ObjectFile<E>::convert_common_symbols.
func (o *ObjectFile) ConvertCommonSymbols(ctx *Context) {
	for i := range o.machSyms {
		msym := &o.machSyms[i]
		sym := o.Syms[i]

		if sym.File == o && sym.IsCommon {
			isec := o.commonSection(ctx)
			sub := &Subsection{
				Isec:      isec,
				InputSize: uint32(msym.Value),
				P2Align:   msym.P2Align(),
			}
			o.Subsections = append(o.Subsections, sub)

			sym.IsImported = false
			sym.IsWeak = false
			sym.Subsec = sub
			sym.Value = 0
			sym.IsCommon = false
		}
	}
}

// commonSection lazily materializes the __DATA,__common synthetic
// section backing converted common symbols. Grounded directly on
// mold's ObjectFile<E>::get_common_sec.
func (o *ObjectFile) commonSection(ctx *Context) *InputSection {
	if o.commonSec == nil {
		hdr := MachSection{Flags: SZeroFill}
		copy(hdr.SegName[:], "__DATA")
		copy(hdr.SectName[:], "__common")

		sec := &InputSection{File: o, Hdr: hdr, Synthetic: true}
		o.commonSec = sec
		o.Sections = append(o.Sections, sec)
	}
	return o.commonSec
}

// CheckDuplicateSymbols implements spec §4.7's duplicate-symbol
// diagnostic: a strong, non-weak, non-common definition that lost to
// another file is reported, not fatal. Grounded directly on mold's
// ObjectFile<E>::check_duplicate_symbols.
func (o *ObjectFile) CheckDuplicateSymbols(ctx *Context) {
	for i := range o.machSyms {
		msym := &o.machSyms[i]
		sym := o.Syms[i]
		if sym != nil && sym.File != nil && sym.File != o &&
			!msym.IsUndef() && !msym.IsCommon() && !msym.IsWeakDef() {
			ctx.AddDiagnostic(&DuplicateSymbolError{
				Name:   sym.Name,
				Winner: sym.File.DisplayName(),
				Loser:  o.DisplayName(),
			})
		}
	}
}

// ResolveSymbols implements spec §4.7's dylib resolution path: same
// comparison as an object's, but with (is_common=false, is_weak=false)
// for the candidate slot and a per-symbol weak flag taken from the
// dylib's own export table. Grounded directly on mold's
// DylibFile<E>::resolve_symbols.
func (d *DylibFile) ResolveSymbols(ctx *Context) {
	for i, sym := range d.Syms {
		sym.Mu.Lock()
		if symbolRank(d, false, false) < currentRank(sym) {
			sym.File = d
			sym.Scope = ScopeLocal
			sym.IsImported = true
			sym.IsWeak = d.IsWeak || d.isWeakSymbol[i]
			sym.Subsec = nil
			sym.Value = 0
			sym.IsCommon = false
		}
		sym.Mu.Unlock()
	}
}

// UndefinedSymbols reports every extern symbol that some surviving
// object still references but that no object or dylib ever claimed,
// i.e. sym.File is still nil after resolution settles. Grounded on
// mold's run_undefined_symbol diagnostic hook, reconstructed here
// since the top-level driver lives in main.cc rather than
// input-files.cc. Names come back sorted for stable driver output.
func UndefinedSymbols(ctx *Context) []string {
	seen := utils.NewMapSet[string]()
	for _, obj := range ctx.Objs {
		for i := range obj.machSyms {
			msym := &obj.machSyms[i]
			if !msym.IsExtern() || !msym.IsUndef() {
				continue
			}
			sym := obj.Syms[i]
			if sym.File == nil {
				seen.Insert(sym.Name)
			}
		}
	}
	out := seen.Keys()
	sort.Strings(out)
	return out
}

// resolveAllSymbols runs every object's resolution pass in parallel,
// then every dylib's, unconditionally (an archive member's not-yet-alive status is already
// folded into its rank, not a filter on whether it participates), then
// sweeps mark-live to a fixed point over the objects that started (or
// became) alive, and finally runs common-symbol conversion and
// duplicate-symbol reporting on the survivors. Grounded directly on
// the ResolveSymbols/MarkLiveObjects driver shape in
// PiNengShaoNian-rvld__passes.go, since the Mach-O top-level driver
// lives in main.cc rather than input-files.cc.
func resolveAllSymbols(ctx *Context) error {
	var wg sync.WaitGroup
	for _, obj := range ctx.Objs {
		wg.Add(1)
		go func(obj *ObjectFile) {
			defer wg.Done()
			obj.ResolveSymbols(ctx)
		}(obj)
	}
	wg.Wait()
	for _, dylib := range ctx.Dylibs {
		wg.Add(1)
		go func(dylib *DylibFile) {
			defer wg.Done()
			dylib.ResolveSymbols(ctx)
		}(dylib)
	}
	wg.Wait()

	queue := &objectQueue{}
	for _, obj := range ctx.Objs {
		if obj.IsAlive() {
			queue.push(obj)
		}
	}

	for !queue.empty() {
		obj := queue.pop()
		if !obj.IsAlive() {
			continue
		}
		obj.MarkLiveObjects(ctx, queue)
	}

	for _, obj := range ctx.Objs {
		if !obj.IsAlive() {
			for _, sym := range obj.Syms {
				sym.Clear(obj)
			}
		}
	}
	ctx.Objs = removeDeadObjects(ctx.Objs)

	for _, obj := range ctx.Objs {
		obj.ConvertCommonSymbols(ctx)
	}
	for _, obj := range ctx.Objs {
		obj.CheckDuplicateSymbols(ctx)
	}

	if len(ctx.Diagnostics) > 0 {
		return fmt.Errorf("%d diagnostic(s) reported during resolution", len(ctx.Diagnostics))
	}
	return nil
}

func removeDeadObjects(objs []*ObjectFile) []*ObjectFile {
	return utils.RemoveIf(objs, func(o *ObjectFile) bool { return !o.IsAlive() })
}

// objectQueue is the work queue mark-live feeds into, matching spec
// §9's "single monotonic transition per file" note: Enqueue is only
// ever called by the CAS winner, so no file is pushed twice for the
// same activation.
type objectQueue struct {
	items []*ObjectFile
}

func (q *objectQueue) push(o *ObjectFile) { q.items = append(q.items, o) }
func (q *objectQueue) empty() bool        { return len(q.items) == 0 }
func (q *objectQueue) pop() *ObjectFile {
	o := q.items[0]
	q.items = q.items[1:]
	return o
}
func (q *objectQueue) Enqueue(o *ObjectFile) { q.push(o) }
