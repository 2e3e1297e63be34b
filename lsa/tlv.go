package lsa

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	enc "github.com/named-data/ndnd/std/encoding"
)

// TLV type numbers for LSA structures.
// These must match on all routers in the network.
const (
	TlvLsa              enc.TLNum = 128
	TlvSequenceNumber   enc.TLNum = 130
	TlvAdjacencyLsa     enc.TLNum = 131
	TlvAdjacency        enc.TLNum = 132
	TlvCoordinateLsa    enc.TLNum = 133
	TlvHyperbolicRadius enc.TLNum = 135
	TlvHyperbolicAngle  enc.TLNum = 136
	TlvNameLsa          enc.TLNum = 137
	TlvExpirationTime   enc.TLNum = 138
	TlvUri              enc.TLNum = 139
	TlvCost             enc.TLNum = 140
	TlvMidstLsa         enc.TLNum = 144
	TlvMidstPrefixList  enc.TLNum = 145
	TlvDistance         enc.TLNum = 146
	TlvSeqNo            enc.TLNum = 147
)

// ErrInvalidEncoding is returned for malformed or incomplete LSA wire blocks.
var ErrInvalidEncoding = errors.New("invalid LSA encoding")

func encErr(format string, v ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidEncoding, fmt.Sprintf(format, v...))
}

func appendTlv(b []byte, t enc.TLNum, v []byte) []byte {
	hdr := make([]byte, t.EncodingLength()+enc.TLNum(len(v)).EncodingLength())
	p := t.EncodeInto(hdr)
	enc.TLNum(len(v)).EncodeInto(hdr[p:])
	b = append(b, hdr...)
	return append(b, v...)
}

func appendNat(b []byte, t enc.TLNum, v uint64) []byte {
	return appendTlv(b, t, enc.Nat(v).Bytes())
}

func appendDouble(b []byte, t enc.TLNum, v float64) []byte {
	var val [8]byte
	binary.BigEndian.PutUint64(val[:], math.Float64bits(v))
	return appendTlv(b, t, val[:])
}

func readNat(buf []byte) (uint64, error) {
	switch len(buf) {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(buf)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(buf)), nil
	case 8:
		return binary.BigEndian.Uint64(buf), nil
	}
	return 0, encErr("bad natural number length %d", len(buf))
}

func readDouble(buf []byte) (float64, error) {
	if len(buf) != 8 {
		return 0, encErr("bad double length %d", len(buf))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf)), nil
}

// readSeqNo reads an origin sequence number. The field is a non-negative
// integer on the wire, but legacy peers encode it as an IEEE-754 double,
// so an 8-byte value whose bit pattern is an integral double is accepted
// and converted.
func readSeqNo(buf []byte) (uint64, error) {
	v, err := readNat(buf)
	if err != nil {
		return 0, err
	}
	if len(buf) == 8 && v >= 0x3FF0000000000000 {
		if f := math.Float64frombits(v); f == math.Trunc(f) && f >= 0 && f < (1<<53) {
			return uint64(f), nil
		}
	}
	return v, nil
}

// readName parses the components of a Name TLV value.
func readName(buf []byte) (enc.Name, error) {
	view := enc.NewBufferView(buf)
	name, err := view.ReadName()
	if err != nil {
		return nil, encErr("bad name: %v", err)
	}
	return name, nil
}

// blockReader iterates over the TLV blocks inside a value buffer.
type blockReader struct {
	view enc.WireView
}

func newBlockReader(buf []byte) *blockReader {
	return &blockReader{view: enc.NewBufferView(buf)}
}

// next returns the next (type, value) block, or ok=false at end of input.
func (r *blockReader) next() (t enc.TLNum, val []byte, ok bool, err error) {
	if r.view.IsEOF() {
		return 0, nil, false, nil
	}
	t, err = r.view.ReadTLNum()
	if err != nil {
		return 0, nil, false, encErr("bad block type: %v", err)
	}
	l, err := r.view.ReadTLNum()
	if err != nil {
		return 0, nil, false, encErr("bad block length: %v", err)
	}
	val, err = r.view.ReadBuf(int(l))
	if err != nil {
		return 0, nil, false, encErr("truncated block value: %v", err)
	}
	return t, val, true, nil
}
