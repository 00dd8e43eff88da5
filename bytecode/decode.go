package bytecode

import (
	"bytes"

	sserrors "github.com/pmdscript/ssb/errors"
	"github.com/pmdscript/ssb/schema"
)

// PadByte fills the odd trailing byte of the constant and string blocks.
const PadByte = 0xAA

// Decode parses an SSB container. Every structural inconsistency is a
// MalformedContainer error; unknown enum ids are logged and kept raw.
func Decode(data []byte, provider schema.Provider, opts ...Option) (*Container, error) {
	cfg := newConfig(opts)
	d := &decoder{
		data:     data,
		provider: provider,
		cfg:      cfg,
		base:     cfg.region.HeaderLen(),
	}
	return d.decode()
}

type decoder struct {
	data     []byte
	provider schema.Provider
	cfg      *config
	// base is the byte offset of the stream header; word offsets are
	// relative to it.
	base int
	pos  int
}

func (d *decoder) word(at int) (uint16, error) {
	if at < 0 || at+2 > len(d.data) {
		return 0, sserrors.Malformed(sserrors.E1001, at, "read past end of buffer (length %d)", len(d.data))
	}
	return le.Uint16(d.data[at:]), nil
}

func (d *decoder) next() (uint16, error) {
	v, err := d.word(d.pos)
	if err != nil {
		return 0, err
	}
	d.pos += 2
	return v, nil
}

func (d *decoder) byteOffset(words int) int {
	return d.base + 2*words
}

func (d *decoder) decode() (*Container, error) {
	region := d.cfg.region
	h, err := ParseHeader(d.data, region)
	if err != nil {
		return nil, err
	}
	c := NewContainer(region)
	c.Reserved = h.Reserved

	d.pos = d.base
	constStart, err := d.next()
	if err != nil {
		return nil, err
	}
	count, err := d.next()
	if err != nil {
		return nil, err
	}
	if int(constStart) != h.ConstantsStart {
		return nil, sserrors.Malformed(sserrors.E1006, d.base,
			"stream header places constants at word 0x%x, file header at 0x%x", constStart, h.ConstantsStart)
	}
	constPos := d.byteOffset(int(constStart))
	if constPos > len(d.data) {
		return nil, sserrors.Malformed(sserrors.E1001, d.base,
			"constant table at 0x%x is past end of buffer (length %d)", constPos, len(d.data))
	}

	if err := d.readRoutines(c, int(count)); err != nil {
		return nil, err
	}
	if err := d.readOperations(c, h.ConstantCount, constPos); err != nil {
		return nil, err
	}
	if err := d.readPools(c, h, constPos); err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, sserrors.Malformed(sserrors.E1008, d.pos,
			"%d bytes after last string block", len(d.data)-d.pos)
	}
	return c, nil
}

func (d *decoder) readRoutines(c *Container, count int) error {
	c.Routines = make([]RoutineInfo, count)
	c.RoutineOps = make([][]Operation, count)
	firstAt := make(map[int]int, count)
	for i := 0; i < count; i++ {
		start, err := d.next()
		if err != nil {
			return err
		}
		kind, err := d.next()
		if err != nil {
			return err
		}
		link, err := d.next()
		if err != nil {
			return err
		}
		info := RoutineInfo{
			Kind:     RoutineKind(kind),
			LinkedTo: link,
			Offset:   int(start),
			AliasOf:  -1,
		}
		if prev, ok := firstAt[info.Offset]; ok {
			info.AliasOf = prev
		} else {
			firstAt[info.Offset] = i
		}
		c.Routines[i] = info
	}
	return nil
}

// readOperations decodes the operation stream. Canonical routines must be
// laid out back to back in table order, starting right after the routine
// table and ending at the constant table.
func (d *decoder) readOperations(c *Container, constCount int, constPos int) error {
	pd := &paramDecoder{
		provider:   d.provider,
		constCount: constCount,
		logger:     d.cfg.logger,
	}
	canonical := make([]int, 0, len(c.Routines))
	for i, r := range c.Routines {
		if !r.IsAlias() {
			canonical = append(canonical, i)
		}
	}
	for n, i := range canonical {
		start := d.byteOffset(c.Routines[i].Offset)
		if start != d.pos {
			return sserrors.Malformed(sserrors.E1002, d.pos,
				"routine starts at 0x%x, expected 0x%x", start, d.pos).WithRoutine(i)
		}
		end := constPos
		if n+1 < len(canonical) {
			end = d.byteOffset(c.Routines[canonical[n+1]].Offset)
		}
		if end <= start {
			return sserrors.Malformed(sserrors.E1002, start,
				"routine ends at 0x%x, before it starts", end).WithRoutine(i)
		}
		ops, err := d.readRoutine(pd, end)
		if err != nil {
			if e, ok := err.(*sserrors.Error); ok {
				return e.WithRoutine(i)
			}
			return err
		}
		c.RoutineOps[i] = ops
	}
	if d.pos != constPos {
		return sserrors.Malformed(sserrors.E1002, d.pos,
			"operation stream ends at 0x%x, constant table starts at 0x%x", d.pos, constPos)
	}
	return nil
}

func (d *decoder) readRoutine(pd *paramDecoder, end int) ([]Operation, error) {
	var ops []Operation
	for d.pos < end {
		at := d.pos
		id, err := d.next()
		if err != nil {
			return nil, err
		}
		o, ok := d.provider.OpcodeByID(id)
		if !ok {
			return nil, sserrors.Malformed(sserrors.E1003, at, "unknown opcode id 0x%x", id)
		}
		n := o.Params
		if o.IsVariable() {
			if d.pos >= end {
				return nil, sserrors.Malformed(sserrors.E1002, at,
					"argument count overruns routine").WithOpcode(o.Name)
			}
			count, err := d.next()
			if err != nil {
				return nil, err
			}
			n = int(count)
		}
		if d.pos+2*n > end {
			return nil, sserrors.Malformed(sserrors.E1002, at,
				"%d argument words overrun routine end 0x%x", n, end).WithOpcode(o.Name)
		}
		words := make([]uint16, n)
		for j := range words {
			words[j] = le.Uint16(d.data[d.pos:])
			d.pos += 2
		}
		ops = append(ops, Operation{
			Offset: (at - d.base) / 2,
			Opcode: o,
			Params: pd.decode(o, words, at),
		})
	}
	return ops, nil
}

func (d *decoder) readPools(c *Container, h Header, constPos int) error {
	langs := c.Region.Languages()
	d.pos = constPos
	consts, err := d.readBlock(constPos, h.ConstantCount, 2*h.StringCount, 2*h.ConstantsLength)
	if err != nil {
		return err
	}
	c.Constants = consts

	// String offsets are relative to the constant table plus the preceding
	// language blocks, so every language is biased by the constant block.
	cum := 2 * h.ConstantsLength
	for i, lang := range langs {
		blockLen := 2 * h.StringLengths[i]
		strs, err := d.readBlock(constPos+cum, h.StringCount, 2*h.ConstantsLength, blockLen)
		if err != nil {
			if e, ok := err.(*sserrors.Error); ok {
				cp := *e
				cp.Message = string(lang) + " " + cp.Message
				return &cp
			}
			return err
		}
		c.Strings[lang] = strs
		cum += blockLen
	}
	return nil
}

// readBlock reads an offset table of n entries followed by the strings it
// points at. Entry values are offsets relative to blockStart plus bias.
// The block, including its pad byte, must be exactly length bytes.
func (d *decoder) readBlock(blockStart, n, bias, length int) ([]string, error) {
	d.pos = blockStart
	offsets := make([]int, n)
	for i := range offsets {
		v, err := d.next()
		if err != nil {
			return nil, err
		}
		offsets[i] = int(v) - bias
	}
	var strs []string
	if n > 0 {
		strs = make([]string, n)
	}
	for i, off := range offsets {
		if blockStart+off != d.pos {
			return nil, sserrors.Malformed(sserrors.E1007, blockStart+2*i,
				"string %d at 0x%x, expected 0x%x", i, blockStart+off, d.pos)
		}
		nul := bytes.IndexByte(d.data[d.pos:], 0)
		if nul < 0 {
			return nil, sserrors.Malformed(sserrors.E1001, d.pos, "unterminated string %d", i)
		}
		s, err := d.cfg.codec.Decode(d.data[d.pos : d.pos+nul])
		if err != nil {
			return nil, sserrors.Malformed(sserrors.E1009, d.pos, "string %d", i).WithCause(err)
		}
		strs[i] = s
		d.pos += nul + 1
	}
	if (d.pos-blockStart)%2 != 0 {
		if d.pos >= len(d.data) {
			return nil, sserrors.Malformed(sserrors.E1001, d.pos, "missing pad byte")
		}
		if d.data[d.pos] != PadByte {
			return nil, sserrors.Malformed(sserrors.E1005, d.pos,
				"pad byte is 0x%02x, expected 0x%02x", d.data[d.pos], PadByte)
		}
		d.pos++
	}
	if d.pos-blockStart != length {
		return nil, sserrors.Malformed(sserrors.E1002, d.pos,
			"block is %d bytes, header declares %d", d.pos-blockStart, length)
	}
	return strs, nil
}
