package lsa

import (
	"fmt"
	"strings"

	enc "github.com/named-data/ndnd/std/encoding"
)

// Adjacency is one link entry carried in an AdjLsa.
type Adjacency struct {
	Name enc.Name
	Uri  string
	Cost float64
}

// AdjLsa advertises the origin router's active adjacencies.
type AdjLsa struct {
	Header
	Adjacencies []Adjacency
}

func (l *AdjLsa) Type() Type {
	return TypeAdjacency
}

func (l *AdjLsa) Encode() enc.Wire {
	var inner []byte
	inner = l.Header.appendTo(inner)
	for _, adj := range l.Adjacencies {
		var a []byte
		a = append(a, adj.Name.Bytes()...)
		a = appendTlv(a, TlvUri, []byte(adj.Uri))
		a = appendDouble(a, TlvCost, adj.Cost)
		inner = appendTlv(inner, TlvAdjacency, a)
	}
	return enc.Wire{appendTlv(nil, TlvAdjacencyLsa, inner)}
}

func parseAdjLsa(val []byte) (*AdjLsa, error) {
	r := newBlockReader(val)
	hdr, err := readHeaderBlock(r)
	if err != nil {
		return nil, err
	}

	l := &AdjLsa{Header: hdr}
	for {
		t, v, ok, err := r.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return l, nil
		}
		if t != TlvAdjacency {
			continue // skip unknown sub-block
		}
		adj, err := parseAdjacency(v)
		if err != nil {
			return nil, err
		}
		l.Adjacencies = append(l.Adjacencies, adj)
	}
}

func parseAdjacency(val []byte) (Adjacency, error) {
	adj := Adjacency{}
	r := newBlockReader(val)

	t, v, ok, err := r.next()
	if err != nil {
		return adj, err
	}
	if !ok || t != enc.TypeName {
		return adj, encErr("missing required adjacency Name field")
	}
	if adj.Name, err = readName(v); err != nil {
		return adj, err
	}

	t, v, ok, err = r.next()
	if err != nil {
		return adj, err
	}
	if !ok || t != TlvUri {
		return adj, encErr("missing required adjacency Uri field")
	}
	adj.Uri = string(v)

	t, v, ok, err = r.next()
	if err != nil {
		return adj, err
	}
	if !ok || t != TlvCost {
		return adj, encErr("missing required adjacency Cost field")
	}
	if adj.Cost, err = readDouble(v); err != nil {
		return adj, err
	}

	return adj, nil
}

// IsEqualContent compares the adjacency payloads, ignoring the header.
func (l *AdjLsa) IsEqualContent(other *AdjLsa) bool {
	if len(l.Adjacencies) != len(other.Adjacencies) {
		return false
	}
	for i := range l.Adjacencies {
		a, b := l.Adjacencies[i], other.Adjacencies[i]
		if !a.Name.Equal(b.Name) || a.Uri != b.Uri || a.Cost != b.Cost {
			return false
		}
	}
	return true
}

func (l *AdjLsa) Update(newer Lsa) (bool, []enc.Name, []enc.Name) {
	nl, ok := newer.(*AdjLsa)
	if !ok {
		return false, nil, nil
	}
	changed := !l.IsEqualContent(nl)
	l.Header = nl.Header
	l.Adjacencies = nl.Adjacencies
	return changed, nil, nil
}

func (l *AdjLsa) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "AdjLsa %s\n", l.headerString())
	for i, adj := range l.Adjacencies {
		fmt.Fprintf(&sb, "  Adjacency %d: %s uri=%s cost=%g\n", i, adj.Name, adj.Uri, adj.Cost)
	}
	return sb.String()
}
