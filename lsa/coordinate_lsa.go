package lsa

import (
	"fmt"

	enc "github.com/named-data/ndnd/std/encoding"
)

// CoordinateLsa advertises the origin router's hyperbolic coordinates.
type CoordinateLsa struct {
	Header
	Radius float64
	Angles []float64
}

func (l *CoordinateLsa) Type() Type {
	return TypeCoordinate
}

func (l *CoordinateLsa) Encode() enc.Wire {
	var inner []byte
	inner = l.Header.appendTo(inner)
	inner = appendDouble(inner, TlvHyperbolicRadius, l.Radius)
	for _, angle := range l.Angles {
		inner = appendDouble(inner, TlvHyperbolicAngle, angle)
	}
	return enc.Wire{appendTlv(nil, TlvCoordinateLsa, inner)}
}

func parseCoordinateLsa(val []byte) (*CoordinateLsa, error) {
	r := newBlockReader(val)
	hdr, err := readHeaderBlock(r)
	if err != nil {
		return nil, err
	}

	l := &CoordinateLsa{Header: hdr}

	t, v, ok, err := r.next()
	if err != nil {
		return nil, err
	}
	if !ok || t != TlvHyperbolicRadius {
		return nil, encErr("missing required HyperbolicRadius field")
	}
	if l.Radius, err = readDouble(v); err != nil {
		return nil, err
	}

	for {
		t, v, ok, err = r.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return l, nil
		}
		if t != TlvHyperbolicAngle {
			continue // skip unknown sub-block
		}
		angle, err := readDouble(v)
		if err != nil {
			return nil, err
		}
		l.Angles = append(l.Angles, angle)
	}
}

// IsEqualContent compares the coordinate payloads, ignoring the header.
func (l *CoordinateLsa) IsEqualContent(other *CoordinateLsa) bool {
	if l.Radius != other.Radius || len(l.Angles) != len(other.Angles) {
		return false
	}
	for i := range l.Angles {
		if l.Angles[i] != other.Angles[i] {
			return false
		}
	}
	return true
}

func (l *CoordinateLsa) Update(newer Lsa) (bool, []enc.Name, []enc.Name) {
	nl, ok := newer.(*CoordinateLsa)
	if !ok {
		return false, nil, nil
	}
	changed := !l.IsEqualContent(nl)
	l.Header = nl.Header
	l.Radius = nl.Radius
	l.Angles = nl.Angles
	return changed, nil, nil
}

func (l *CoordinateLsa) String() string {
	return fmt.Sprintf("CoordinateLsa %s radius=%g angles=%v\n",
		l.headerString(), l.Radius, l.Angles)
}
