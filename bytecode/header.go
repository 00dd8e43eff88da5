package bytecode

import (
	"encoding/binary"

	sserrors "github.com/pmdscript/ssb/errors"
)

var le = binary.LittleEndian

// Header is the region-specific file header. Word fields are in 16-bit
// words; ConstantsStart is relative to the stream header.
type Header struct {
	ConstantCount   int
	StringCount     int
	ConstantsStart  int
	ConstantsLength int
	// StringLengths has one block length per region language.
	StringLengths []int
	// Reserved holds the words the region does not assign a meaning to.
	Reserved []uint16
}

// reservedSlots lists the header word indices with no known meaning.
func reservedSlots(r Region) []int {
	switch r {
	case RegionUS:
		return []int{5}
	case RegionJP:
		return []int{1, 4, 5}
	default:
		return nil
	}
}

// ParseHeader reads the header of the given region from the start of data.
func ParseHeader(data []byte, r Region) (Header, error) {
	n := r.HeaderLen()
	if len(data) < n {
		return Header{}, sserrors.Malformed(sserrors.E1001, 0,
			"%s header needs %d bytes, buffer has %d", r, n, len(data))
	}
	w := func(i int) int { return int(le.Uint16(data[2*i:])) }
	h := Header{
		ConstantCount:   w(0),
		ConstantsStart:  w(2),
		ConstantsLength: w(3),
	}
	langs := r.Languages()
	if len(langs) > 0 {
		h.StringCount = w(1)
		for i := range langs {
			h.StringLengths = append(h.StringLengths, w(4+i))
		}
	}
	for _, slot := range reservedSlots(r) {
		h.Reserved = append(h.Reserved, uint16(w(slot)))
	}
	return h, nil
}

// Bytes serializes the header for region r.
func (h Header) Bytes(r Region) []byte {
	words := make([]uint16, r.HeaderLen()/2)
	words[0] = uint16(h.ConstantCount)
	words[2] = uint16(h.ConstantsStart)
	words[3] = uint16(h.ConstantsLength)
	if len(r.Languages()) > 0 {
		words[1] = uint16(h.StringCount)
		for i, l := range h.StringLengths {
			words[4+i] = uint16(l)
		}
	}
	for i, slot := range reservedSlots(r) {
		if i < len(h.Reserved) {
			words[slot] = h.Reserved[i]
		}
	}
	out := make([]byte, 0, len(words)*2)
	for _, v := range words {
		out = le.AppendUint16(out, v)
	}
	return out
}
