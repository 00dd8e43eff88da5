package compiler

import (
	"strings"

	"github.com/pmdscript/ssb/bytecode"
)

// constantPool is a deduplicated list of constant strings.
type constantPool struct {
	values []string
	index  map[string]int
}

func newConstantPool() *constantPool {
	return &constantPool{index: make(map[string]int)}
}

func (p *constantPool) add(s string) int {
	if i, ok := p.index[s]; ok {
		return i
	}
	p.values = append(p.values, s)
	p.index[s] = len(p.values) - 1
	return len(p.values) - 1
}

// localizedPool is a deduplicated list of localized strings. Two entries
// are the same if every language agrees.
type localizedPool struct {
	languages []bytecode.Language
	values    map[bytecode.Language][]string
	index     map[string]int
	count     int
}

func newLocalizedPool(languages []bytecode.Language) *localizedPool {
	p := &localizedPool{
		languages: languages,
		values:    make(map[bytecode.Language][]string, len(languages)),
		index:     make(map[string]int),
	}
	for _, lang := range languages {
		p.values[lang] = nil
	}
	return p
}

// add returns the pool index of texts. The second result names a language
// the entry lacks, if any.
func (p *localizedPool) add(texts map[bytecode.Language]string) (int, bytecode.Language, bool) {
	parts := make([]string, len(p.languages))
	for i, lang := range p.languages {
		s, ok := texts[lang]
		if !ok {
			return 0, lang, false
		}
		parts[i] = s
	}
	key := strings.Join(parts, "\x00")
	if i, ok := p.index[key]; ok {
		return i, "", true
	}
	for i, lang := range p.languages {
		p.values[lang] = append(p.values[lang], parts[i])
	}
	p.index[key] = p.count
	p.count++
	return p.count - 1, "", true
}
