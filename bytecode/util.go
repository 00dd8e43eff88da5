package bytecode

// copyStrings returns a copy of the given string slice.
func copyStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

// copyParams returns a copy of the given parameter slice.
func copyParams(src []Param) []Param {
	if src == nil {
		return nil
	}
	dst := make([]Param, len(src))
	copy(dst, src)
	return dst
}

// copyOperations returns a deep copy of the given operation slice. Opcodes
// are shared since the schema is immutable.
func copyOperations(src []Operation) []Operation {
	if src == nil {
		return nil
	}
	dst := make([]Operation, len(src))
	for i, op := range src {
		dst[i] = op
		dst[i].Params = copyParams(op.Params)
	}
	return dst
}

// Clone returns a deep copy of the container.
func (c *Container) Clone() *Container {
	cp := &Container{
		Region:     c.Region,
		Reserved:   append([]uint16(nil), c.Reserved...),
		Routines:   append([]RoutineInfo(nil), c.Routines...),
		RoutineOps: make([][]Operation, len(c.RoutineOps)),
		Constants:  copyStrings(c.Constants),
		Strings:    make(map[Language][]string, len(c.Strings)),
	}
	for i, ops := range c.RoutineOps {
		cp.RoutineOps[i] = copyOperations(ops)
	}
	for lang, strs := range c.Strings {
		cp.Strings[lang] = copyStrings(strs)
	}
	return cp
}
