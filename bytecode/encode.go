package bytecode

import (
	sserrors "github.com/pmdscript/ssb/errors"
	"github.com/pmdscript/ssb/schema"
)

// Encode serializes a container. Routine offsets and operation offsets
// stored in the container are ignored and recomputed; jump arguments are
// written as given. Decode(Encode(c)) yields c for any container Decode
// produced.
func Encode(c *Container, opts ...Option) ([]byte, error) {
	cfg := newConfig(opts)
	if err := checkLanguages(c); err != nil {
		return nil, err
	}
	if len(c.Routines) != len(c.RoutineOps) {
		return nil, sserrors.Internalf(sserrors.E3005,
			"%d routine entries but %d operation lists", len(c.Routines), len(c.RoutineOps))
	}
	if len(c.Routines) > 0xFFFF {
		return nil, sserrors.Internalf(sserrors.E3002, "%d routines do not fit in a word", len(c.Routines))
	}

	offsets, err := Layout(c)
	if err != nil {
		return nil, err
	}
	stream, err := encodeStream(c, len(c.Constants))
	if err != nil {
		return nil, err
	}

	nStrings := c.StringCount()
	constBlock, err := encodeBlock(cfg.codec, c.Constants, 2*nStrings)
	if err != nil {
		return nil, err
	}
	h := Header{
		ConstantCount:   len(c.Constants),
		StringCount:     nStrings,
		ConstantsStart:  2 + 3*len(c.Routines) + len(stream),
		ConstantsLength: len(constBlock) / 2,
		Reserved:        c.Reserved,
	}
	var langBlocks [][]byte
	for _, lang := range c.Region.Languages() {
		block, err := encodeBlock(cfg.codec, c.Strings[lang], len(constBlock))
		if err != nil {
			e := *err.(*sserrors.Error)
			e.Message = string(lang) + " " + e.Message
			return nil, &e
		}
		langBlocks = append(langBlocks, block)
		h.StringLengths = append(h.StringLengths, len(block)/2)
	}
	for _, block := range append([][]byte{constBlock}, langBlocks...) {
		if len(block)%2 != 0 {
			return nil, sserrors.Internalf(sserrors.E3004, "string block of %d bytes", len(block))
		}
	}
	for _, v := range []int{h.ConstantCount, h.StringCount, h.ConstantsStart, h.ConstantsLength} {
		if v > 0xFFFF {
			return nil, sserrors.Internalf(sserrors.E3002, "header field value %d does not fit in a word", v)
		}
	}
	for _, v := range h.StringLengths {
		if v > 0xFFFF {
			return nil, sserrors.Internalf(sserrors.E3002, "string block of %d words does not fit in a word", v)
		}
	}

	out := h.Bytes(c.Region)
	out = le.AppendUint16(out, uint16(h.ConstantsStart))
	out = le.AppendUint16(out, uint16(len(c.Routines)))
	for i, r := range c.Routines {
		out = le.AppendUint16(out, uint16(offsets[i]))
		out = le.AppendUint16(out, uint16(r.Kind))
		out = le.AppendUint16(out, r.LinkedTo)
	}
	for _, w := range stream {
		out = le.AppendUint16(out, w)
	}
	out = append(out, constBlock...)
	for _, block := range langBlocks {
		out = append(out, block...)
	}
	return out, nil
}

func checkLanguages(c *Container) error {
	langs := c.Region.Languages()
	want := -1
	for _, lang := range langs {
		strs, ok := c.Strings[lang]
		if !ok {
			return sserrors.Uneven("region %s requires %s strings", c.Region, lang)
		}
		if want >= 0 && len(strs) != want {
			return sserrors.Uneven("%s has %d strings, %s has %d", langs[0], want, lang, len(strs))
		}
		want = len(strs)
	}
	for lang, strs := range c.Strings {
		if len(strs) > 0 && !hasLanguage(langs, lang) {
			return sserrors.Uneven("region %s has no %s strings, container holds %d", c.Region, lang, len(strs))
		}
	}
	return nil
}

func hasLanguage(langs []Language, lang Language) bool {
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}

// opWords returns the number of words an operation occupies in the stream.
func opWords(op Operation) int {
	n := 1 + op.Words()
	if op.Opcode.IsVariable() {
		n++
	}
	return n
}

// Layout computes each routine's start, in words from the stream header.
// Aliases take the offset of the routine they reference; a routine with no
// operations and no explicit alias takes the offset of the routine before
// it.
func Layout(c *Container) ([]int, error) {
	offsets := make([]int, len(c.Routines))
	cursor := 2 + 3*len(c.Routines)
	for i, r := range c.Routines {
		ops := c.RoutineOps[i]
		switch {
		case r.AliasOf >= 0:
			if r.AliasOf >= i {
				return nil, sserrors.Internalf(sserrors.E3005,
					"alias refers to routine %d, which does not precede it", r.AliasOf).WithRoutine(i)
			}
			if len(ops) > 0 {
				return nil, sserrors.Internalf(sserrors.E3005, "alias routine has operations").WithRoutine(i)
			}
			offsets[i] = offsets[r.AliasOf]
		case len(ops) == 0:
			if i == 0 {
				return nil, sserrors.Internalf(sserrors.E3005, "first routine has no operations").WithRoutine(i)
			}
			offsets[i] = offsets[i-1]
		default:
			offsets[i] = cursor
			for j, op := range ops {
				if op.Opcode == nil {
					return nil, sserrors.Internalf(sserrors.E3006,
						"operation %d has no opcode", j).WithRoutine(i)
				}
				cursor += opWords(op)
			}
		}
	}
	if cursor > 0xFFFF {
		return nil, sserrors.Internalf(sserrors.E3002, "operation stream of %d words does not fit in a word", cursor)
	}
	return offsets, nil
}

// encodeStream lowers the operations of every canonical routine.
func encodeStream(c *Container, constCount int) ([]uint16, error) {
	var out []uint16
	for i, ops := range c.RoutineOps {
		if c.Routines[i].AliasOf >= 0 {
			continue
		}
		for _, op := range ops {
			var err *sserrors.Error
			out, err = encodeOperation(out, op, constCount)
			if err != nil {
				return nil, err.WithRoutine(i)
			}
		}
	}
	return out, nil
}

func encodeOperation(dst []uint16, op Operation, constCount int) ([]uint16, *sserrors.Error) {
	o := op.Opcode
	words := op.Words()
	if !o.IsVariable() && words != o.Params {
		return nil, sserrors.Internalf(sserrors.E3006,
			"%d argument words, opcode takes %d", words, o.Params).WithOpcode(o.Name)
	}
	dst = append(dst, o.ID)
	if o.IsVariable() {
		dst = append(dst, uint16(words))
	}
	raw := 0
	for _, p := range op.Params {
		slot := schema.ArgUint
		if arg, ok := o.ArgumentAt(raw); ok {
			slot = arg.Kind
		}
		var err error
		dst, err = lowerParam(dst, p, slot, constCount)
		if err != nil {
			return nil, sserrors.Internalf(sserrors.E3002, "%s", err.Error()).WithOpcode(o.Name)
		}
		raw += p.Words()
	}
	return dst, nil
}

// encodeBlock writes an offset table followed by NUL-terminated strings,
// padded to even length. Table entries are offsets from the block start
// plus bias.
func encodeBlock(codec Codec, strs []string, bias int) ([]byte, error) {
	table := make([]byte, 0, 2*len(strs))
	var body []byte
	for i, s := range strs {
		off := 2*len(strs) + len(body) + bias
		if off > 0xFFFF {
			return nil, sserrors.Internalf(sserrors.E3002, "string %d offset 0x%x does not fit in a word", i, off)
		}
		table = le.AppendUint16(table, uint16(off))
		b, err := codec.Encode(s)
		if err != nil {
			return nil, sserrors.Internalf(sserrors.E3003, "string %d %q", i, s).WithCause(err)
		}
		body = append(body, b...)
		body = append(body, 0)
	}
	out := append(table, body...)
	if len(out)%2 != 0 {
		out = append(out, PadByte)
	}
	return out, nil
}
