package lsa

import (
	"fmt"
	"sort"
	"strings"

	enc "github.com/named-data/ndnd/std/encoding"
)

// MidstEntry is one advertised prefix with its accumulated path distance,
// the router that originally advertised it, and that router's sequence
// number at the time of advertisement.
type MidstEntry struct {
	Name     enc.Name
	Distance float64
	Anchor   enc.Name
	SeqNo    uint64
}

// MidstPrefixList is an ordered collection of MidstEntry, keyed by Name.
type MidstPrefixList struct {
	entries []MidstEntry
}

func NewMidstPrefixList(entries ...MidstEntry) MidstPrefixList {
	pl := MidstPrefixList{}
	for _, e := range entries {
		pl.Insert(e.Name, e.Distance, e.Anchor, e.SeqNo)
	}
	return pl
}

// Insert upserts the entry for name.
func (pl *MidstPrefixList) Insert(name enc.Name, distance float64, anchor enc.Name, seqNo uint64) bool {
	entry := MidstEntry{
		Name:     name.Clone(),
		Distance: distance,
		Anchor:   anchor.Clone(),
		SeqNo:    seqNo,
	}
	for i := range pl.entries {
		if pl.entries[i].Name.Equal(name) {
			pl.entries[i] = entry
			return true
		}
	}
	pl.entries = append(pl.entries, entry)
	return true
}

// Remove deletes the entry for name. Returns true if it was present.
func (pl *MidstPrefixList) Remove(name enc.Name) bool {
	for i := range pl.entries {
		if pl.entries[i].Name.Equal(name) {
			pl.entries = append(pl.entries[:i], pl.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the entry for name, if present.
func (pl MidstPrefixList) Get(name enc.Name) (MidstEntry, bool) {
	for _, e := range pl.entries {
		if e.Name.Equal(name) {
			return e, true
		}
	}
	return MidstEntry{}, false
}

func (pl MidstPrefixList) Has(name enc.Name) bool {
	_, ok := pl.Get(name)
	return ok
}

func (pl MidstPrefixList) Entries() []MidstEntry {
	return pl.entries
}

func (pl MidstPrefixList) Names() []enc.Name {
	names := make([]enc.Name, 0, len(pl.entries))
	for _, e := range pl.entries {
		names = append(names, e.Name)
	}
	return names
}

func (pl MidstPrefixList) Size() int {
	return len(pl.entries)
}

// Equal is member-wise equality including order.
func (pl MidstPrefixList) Equal(other MidstPrefixList) bool {
	if len(pl.entries) != len(other.entries) {
		return false
	}
	for i := range pl.entries {
		a, b := pl.entries[i], other.entries[i]
		if !a.Name.Equal(b.Name) || a.Distance != b.Distance ||
			!a.Anchor.Equal(b.Anchor) || a.SeqNo != b.SeqNo {
			return false
		}
	}
	return true
}

func (pl *MidstPrefixList) Sort() {
	sort.Slice(pl.entries, func(i, j int) bool {
		return pl.entries[i].Name.Compare(pl.entries[j].Name) < 0
	})
}

// appendTo encodes the MidstPrefixList block, adding extra to every
// contained distance. Each entry is the flat sequence
// Name Distance Anchor SeqNo.
func (pl MidstPrefixList) appendTo(b []byte, extra float64) []byte {
	var inner []byte
	for _, e := range pl.entries {
		inner = append(inner, e.Name.Bytes()...)
		inner = appendDouble(inner, TlvDistance, e.Distance+extra)
		inner = append(inner, e.Anchor.Bytes()...)
		inner = appendNat(inner, TlvSeqNo, e.SeqNo)
	}
	return appendTlv(b, TlvMidstPrefixList, inner)
}

// Encode produces the bare prefix-list block with extra added to every
// distance. This is the relay form sent to a neighbor whose inbound link
// cost is extra.
func (pl MidstPrefixList) Encode(extra float64) enc.Wire {
	return enc.Wire{pl.appendTo(nil, extra)}
}

// ParseMidstPrefixList decodes a bare MidstPrefixList block.
func ParseMidstPrefixList(wire enc.Wire) (MidstPrefixList, error) {
	r := newBlockReader(wire.Join())
	t, v, ok, err := r.next()
	if err != nil {
		return MidstPrefixList{}, err
	}
	if !ok || t != TlvMidstPrefixList {
		return MidstPrefixList{}, encErr("missing required MidstPrefixList field")
	}
	return parseMidstPrefixListVal(v)
}

// parseMidstPrefixListVal decodes the value of a MidstPrefixList block.
// Entry fields are required in the exact order Name, Distance, Anchor, SeqNo.
func parseMidstPrefixListVal(val []byte) (MidstPrefixList, error) {
	pl := MidstPrefixList{}
	r := newBlockReader(val)

	for {
		t, v, ok, err := r.next()
		if err != nil {
			return pl, err
		}
		if !ok {
			return pl, nil
		}

		entry := MidstEntry{}
		if t != enc.TypeName {
			return pl, encErr("missing required Name field")
		}
		if entry.Name, err = readName(v); err != nil {
			return pl, err
		}

		t, v, ok, err = r.next()
		if err != nil {
			return pl, err
		}
		if !ok || t != TlvDistance {
			return pl, encErr("missing required Distance field")
		}
		if entry.Distance, err = readDouble(v); err != nil {
			return pl, err
		}

		t, v, ok, err = r.next()
		if err != nil {
			return pl, err
		}
		if !ok || t != enc.TypeName {
			return pl, encErr("missing required Anchor field")
		}
		if entry.Anchor, err = readName(v); err != nil {
			return pl, err
		}

		t, v, ok, err = r.next()
		if err != nil {
			return pl, err
		}
		if !ok || t != TlvSeqNo {
			return pl, encErr("missing required SeqNo field")
		}
		if entry.SeqNo, err = readSeqNo(v); err != nil {
			return pl, err
		}

		pl.entries = append(pl.entries, entry)
	}
}

func (pl MidstPrefixList) String() string {
	var sb strings.Builder
	sb.WriteString("MIDST prefix list: {\n")
	for _, e := range pl.entries {
		fmt.Fprintf(&sb, "  %s distance=%g anchor=%s seq=%d\n",
			e.Name, e.Distance, e.Anchor, e.SeqNo)
	}
	sb.WriteString("}\n")
	return sb.String()
}
