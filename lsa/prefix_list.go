package lsa

import (
	"sort"

	enc "github.com/named-data/ndnd/std/encoding"
)

// NamePrefixList is an ordered set of name prefixes.
type NamePrefixList struct {
	names []enc.Name
}

func NewNamePrefixList(names ...enc.Name) NamePrefixList {
	pl := NamePrefixList{}
	for _, n := range names {
		pl.Insert(n)
	}
	return pl
}

// Insert adds name if not already present. Returns true if added.
func (pl *NamePrefixList) Insert(name enc.Name) bool {
	if pl.Has(name) {
		return false
	}
	pl.names = append(pl.names, name.Clone())
	pl.sort()
	return true
}

// Remove deletes name from the list. Returns true if it was present.
func (pl *NamePrefixList) Remove(name enc.Name) bool {
	for i, n := range pl.names {
		if n.Equal(name) {
			pl.names = append(pl.names[:i], pl.names[i+1:]...)
			return true
		}
	}
	return false
}

func (pl NamePrefixList) Has(name enc.Name) bool {
	for _, n := range pl.names {
		if n.Equal(name) {
			return true
		}
	}
	return false
}

func (pl NamePrefixList) Names() []enc.Name {
	return pl.names
}

func (pl NamePrefixList) Size() int {
	return len(pl.names)
}

func (pl NamePrefixList) Equal(other NamePrefixList) bool {
	if len(pl.names) != len(other.names) {
		return false
	}
	for i := range pl.names {
		if !pl.names[i].Equal(other.names[i]) {
			return false
		}
	}
	return true
}

func (pl *NamePrefixList) sort() {
	sort.Slice(pl.names, func(i, j int) bool {
		return pl.names[i].Compare(pl.names[j]) < 0
	})
}
