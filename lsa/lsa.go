package lsa

import (
	"fmt"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
)

// Type identifies one of the four LSA variants.
type Type int

const (
	TypeNone Type = iota
	TypeName
	TypeAdjacency
	TypeCoordinate
	TypeMidst
)

func (t Type) String() string {
	switch t {
	case TypeName:
		return "NAME"
	case TypeAdjacency:
		return "ADJACENCY"
	case TypeCoordinate:
		return "COORDINATE"
	case TypeMidst:
		return "MIDST"
	default:
		return "NONE"
	}
}

// Header is the part shared by all LSA variants.
// (OriginRouter, Type) is the primary key within the LSDB.
type Header struct {
	// router that originated this LSA
	OriginRouter enc.Name
	// monotonic per-type sequence number
	SeqNo uint64
	// absolute expiration time
	ExpireAt time.Time
}

// Lsa is a tagged variant over the four LSA payloads.
// Install and update in the LSDB dispatch on Type().
type Lsa interface {
	Hdr() *Header
	Type() Type
	// Encode produces the full wire encoding of the LSA.
	Encode() enc.Wire
	// Update merges a newer LSA with the same key into this one.
	// For NAME and MIDST it returns the prefix delta; for ADJACENCY and
	// COORDINATE it is a full payload replacement with nil deltas.
	Update(newer Lsa) (changed bool, added, removed []enc.Name)
	String() string
}

func (h *Header) Hdr() *Header {
	return h
}

func (h Header) headerString() string {
	return fmt.Sprintf("origin=%s seq=%d expires=%s",
		h.OriginRouter, h.SeqNo, h.ExpireAt.Format(time.RFC3339))
}

// appendTo encodes the shared Lsa block.
func (h Header) appendTo(b []byte) []byte {
	var inner []byte
	inner = append(inner, h.OriginRouter.Bytes()...)
	inner = appendNat(inner, TlvSequenceNumber, h.SeqNo)
	inner = appendNat(inner, TlvExpirationTime, uint64(h.ExpireAt.UnixMilli()))
	return appendTlv(b, TlvLsa, inner)
}

// parseHeader decodes the shared Lsa block value.
// Required fields in order: OriginRouter, SequenceNumber, ExpirationTime.
// Unknown trailing blocks are skipped.
func parseHeader(val []byte) (Header, error) {
	hdr := Header{}
	r := newBlockReader(val)

	t, v, ok, err := r.next()
	if err != nil {
		return hdr, err
	}
	if !ok || t != enc.TypeName {
		return hdr, encErr("missing required OriginRouter field")
	}
	if hdr.OriginRouter, err = readName(v); err != nil {
		return hdr, err
	}

	t, v, ok, err = r.next()
	if err != nil {
		return hdr, err
	}
	if !ok || t != TlvSequenceNumber {
		return hdr, encErr("missing required SequenceNumber field")
	}
	if hdr.SeqNo, err = readNat(v); err != nil {
		return hdr, err
	}

	t, v, ok, err = r.next()
	if err != nil {
		return hdr, err
	}
	if !ok || t != TlvExpirationTime {
		return hdr, encErr("missing required ExpirationTime field")
	}
	ms, err := readNat(v)
	if err != nil {
		return hdr, err
	}
	hdr.ExpireAt = time.UnixMilli(int64(ms))

	return hdr, nil
}

// readHeaderBlock consumes the leading Lsa block from a variant's value.
func readHeaderBlock(r *blockReader) (Header, error) {
	t, v, ok, err := r.next()
	if err != nil {
		return Header{}, err
	}
	if !ok || t != TlvLsa {
		return Header{}, encErr("missing required Lsa field")
	}
	return parseHeader(v)
}

// Parse decodes a single LSA of any variant from its wire encoding.
func Parse(wire enc.Wire) (Lsa, error) {
	r := newBlockReader(wire.Join())
	l, _, err := parseNext(r)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, encErr("empty LSA block")
	}
	return l, nil
}

// ParseAll decodes a concatenation of LSA blocks, as found in the
// content of a distance-vector Data packet.
func ParseAll(wire enc.Wire) ([]Lsa, error) {
	r := newBlockReader(wire.Join())
	var out []Lsa
	for {
		l, ok, err := parseNext(r)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, l)
	}
}

func parseNext(r *blockReader) (Lsa, bool, error) {
	t, v, ok, err := r.next()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	var l Lsa
	switch t {
	case TlvNameLsa:
		l, err = parseNameLsa(v)
	case TlvAdjacencyLsa:
		l, err = parseAdjLsa(v)
	case TlvCoordinateLsa:
		l, err = parseCoordinateLsa(v)
	case TlvMidstLsa:
		l, err = parseMidstLsa(v)
	default:
		return nil, false, encErr("unknown LSA type %d", t)
	}
	if err != nil {
		return nil, false, err
	}
	return l, true, nil
}
