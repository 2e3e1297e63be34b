package lsa

import (
	"fmt"
	"strings"

	enc "github.com/named-data/ndnd/std/encoding"
)

// MidstLsa carries the distance-vector prefix list of the origin router.
type MidstLsa struct {
	Header
	List MidstPrefixList
}

func (l *MidstLsa) Type() Type {
	return TypeMidst
}

// Encode produces the full wire encoding with unmodified distances.
func (l *MidstLsa) Encode() enc.Wire {
	return l.EncodeForward(0)
}

// EncodeForward produces the wire encoding for relaying to a neighbor,
// adding extra to every contained distance.
func (l *MidstLsa) EncodeForward(extra float64) enc.Wire {
	var inner []byte
	inner = l.Header.appendTo(inner)
	inner = l.List.appendTo(inner, extra)
	return enc.Wire{appendTlv(nil, TlvMidstLsa, inner)}
}

func parseMidstLsa(val []byte) (*MidstLsa, error) {
	r := newBlockReader(val)
	hdr, err := readHeaderBlock(r)
	if err != nil {
		return nil, err
	}

	t, v, ok, err := r.next()
	if err != nil {
		return nil, err
	}
	if !ok || t != TlvMidstPrefixList {
		return nil, encErr("missing required MidstPrefixList field")
	}
	pl, err := parseMidstPrefixListVal(v)
	if err != nil {
		return nil, err
	}

	return &MidstLsa{Header: hdr, List: pl}, nil
}

// IsEqualContent compares the prefix lists, ignoring the header.
func (l *MidstLsa) IsEqualContent(other *MidstLsa) bool {
	return l.List.Equal(other.List)
}

// Update merges a newer MidstLsa into this one. Entries for names absent
// from the current list are copied in with their distance, anchor, and
// sequence number; names no longer advertised are dropped. The list is
// re-sorted after insertions.
func (l *MidstLsa) Update(newer Lsa) (bool, []enc.Name, []enc.Name) {
	nl, ok := newer.(*MidstLsa)
	if !ok {
		return false, nil, nil
	}

	var added, removed []enc.Name
	for _, e := range nl.List.Entries() {
		if !l.List.Has(e.Name) {
			added = append(added, e.Name)
		}
	}
	for _, name := range l.List.Names() {
		if !nl.List.Has(name) {
			removed = append(removed, name)
		}
	}

	for _, name := range added {
		e, _ := nl.List.Get(name)
		l.List.Insert(e.Name, e.Distance, e.Anchor, e.SeqNo)
	}
	l.List.Sort()
	for _, name := range removed {
		l.List.Remove(name)
	}

	l.Header = nl.Header
	return len(added)+len(removed) > 0, added, removed
}

func (l *MidstLsa) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "MidstLsa %s\n", l.headerString())
	for i, e := range l.List.Entries() {
		fmt.Fprintf(&sb, "  Name %d: %s\n    Distance: %g\n    Anchor: %s\n    Seq. Num.: %d\n",
			i, e.Name, e.Distance, e.Anchor, e.SeqNo)
	}
	return sb.String()
}
