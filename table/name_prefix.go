package table

import (
	enc "github.com/named-data/ndnd/std/encoding"
)

// NamePrefixTable maps application prefixes to next-hop sets, derived
// from the routing table and the prefixes advertised in Name and MIDST
// LSAs. It is rebuilt on every routing recomputation.
type NamePrefixTable struct {
	entries map[uint64]*NamePrefixEntry
}

type NamePrefixEntry struct {
	Name     enc.Name
	NextHops NextHopList
}

func NewNamePrefixTable() *NamePrefixTable {
	return &NamePrefixTable{entries: make(map[uint64]*NamePrefixEntry)}
}

func (npt *NamePrefixTable) Reset() {
	npt.entries = make(map[uint64]*NamePrefixEntry)
}

// Add merges hops into the entry for prefix. Prefixes advertised by
// several routers concatenate their next-hop lists; the result is
// re-sorted by cost.
func (npt *NamePrefixTable) Add(prefix enc.Name, hops NextHopList) {
	hash := prefix.Hash()
	entry := npt.entries[hash]
	if entry == nil {
		entry = &NamePrefixEntry{Name: prefix.Clone()}
		npt.entries[hash] = entry
	}
	entry.NextHops = append(entry.NextHops, hops...)
	entry.NextHops.Sort()
}

func (npt *NamePrefixTable) Get(prefix enc.Name) *NamePrefixEntry {
	return npt.entries[prefix.Hash()]
}

func (npt *NamePrefixTable) Entries() map[uint64]*NamePrefixEntry {
	return npt.entries
}

func (npt *NamePrefixTable) Size() int {
	return len(npt.entries)
}
