package lsa

import (
	"fmt"
	"strings"

	enc "github.com/named-data/ndnd/std/encoding"
)

// NameLsa advertises the application name prefixes reachable
// through the origin router.
type NameLsa struct {
	Header
	Names NamePrefixList
}

func (l *NameLsa) Type() Type {
	return TypeName
}

func (l *NameLsa) Encode() enc.Wire {
	var inner []byte
	inner = l.Header.appendTo(inner)
	for _, name := range l.Names.Names() {
		inner = append(inner, name.Bytes()...)
	}
	return enc.Wire{appendTlv(nil, TlvNameLsa, inner)}
}

func parseNameLsa(val []byte) (*NameLsa, error) {
	r := newBlockReader(val)
	hdr, err := readHeaderBlock(r)
	if err != nil {
		return nil, err
	}

	l := &NameLsa{Header: hdr}
	for {
		t, v, ok, err := r.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return l, nil
		}
		if t != enc.TypeName {
			continue // skip unknown sub-block
		}
		name, err := readName(v)
		if err != nil {
			return nil, err
		}
		l.Names.Insert(name)
	}
}

func (l *NameLsa) Update(newer Lsa) (bool, []enc.Name, []enc.Name) {
	nl, ok := newer.(*NameLsa)
	if !ok {
		return false, nil, nil
	}

	var added, removed []enc.Name
	for _, name := range nl.Names.Names() {
		if !l.Names.Has(name) {
			added = append(added, name)
		}
	}
	for _, name := range l.Names.Names() {
		if !nl.Names.Has(name) {
			removed = append(removed, name)
		}
	}
	for _, name := range added {
		l.Names.Insert(name)
	}
	for _, name := range removed {
		l.Names.Remove(name)
	}

	l.Header = nl.Header
	return len(added)+len(removed) > 0, added, removed
}

func (l *NameLsa) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "NameLsa %s\n", l.headerString())
	for i, name := range l.Names.Names() {
		fmt.Fprintf(&sb, "  Name %d: %s\n", i, name)
	}
	return sb.String()
}
