package linker

import (
	"hash/maphash"
	"sync"
)

// symShardCount controls contention granularity for the global symbol
// table. Sized to comfortably outrun typical parallelism without
// wasting memory on tiny links; mirrors the "sharded interning map"
// design note in spec §9.
const symShardCount = 64

type symShard struct {
	mu sync.Mutex
	m  map[string]*Symbol
}

// SymbolTable is the process-wide, concurrent, name-interning map
// described in spec §5: "populated by a concurrent interning map keyed
// by name; entries are never removed." Grounded on the teacher's plain
// map-based GetSymbolByName (pkg/linker/symbol.go), generalized to a
// striped lock per spec §9's "striped lock over symbol-name hashes"
// fallback note, since Go has no built-in concurrent map.
type SymbolTable struct {
	seed   maphash.Seed
	shards [symShardCount]*symShard
}

func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{seed: maphash.MakeSeed()}
	for i := range t.shards {
		t.shards[i] = &symShard{m: make(map[string]*Symbol)}
	}
	return t
}

func (t *SymbolTable) shardFor(name string) *symShard {
	var h maphash.Hash
	h.SetSeed(t.seed)
	h.WriteString(name)
	return t.shards[h.Sum64()%symShardCount]
}

// Get returns the canonical Symbol for name, creating it on first use.
// This is get_symbol(name) from spec §3's Lifecycle note.
func (t *SymbolTable) Get(name string) *Symbol {
	shard := t.shardFor(name)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if sym, ok := shard.m[name]; ok {
		return sym
	}
	sym := NewSymbol(name)
	shard.m[name] = sym
	return sym
}
