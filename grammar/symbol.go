package grammar

import (
	"fmt"

	"github.com/kestrel-dev/kestrel/spec"
)

type symbol int

const symbolNil = symbol(-1)

const (
	symbolAccept = symbol(spec.SymbolAccept)
	symbolEOF    = symbol(spec.SymbolEOF)
	symbolError  = symbol(spec.SymbolError)
)

func (s symbol) Int() int {
	return int(s)
}

type symbolKind int

const (
	symbolKindTerminal symbolKind = iota
	symbolKindNonTerminal
)

func (k symbolKind) String() string {
	if k == symbolKindNonTerminal {
		return "non-terminal"
	}
	return "terminal"
}

// symbolTable interns symbol names to dense ids. The names vector keeps
// insertion order, which is the iteration order everywhere downstream;
// the reserved trio occupies ids 0..2.
type symbolTable struct {
	names []string
	kinds []symbolKind
	ids   map[string]symbol
}

func newSymbolTable() *symbolTable {
	t := &symbolTable{
		ids: map[string]symbol{},
	}
	t.intern(spec.SymbolNameAccept, symbolKindNonTerminal)
	t.intern(spec.SymbolNameEOF, symbolKindTerminal)
	t.intern(spec.SymbolNameError, symbolKindTerminal)
	return t
}

func (t *symbolTable) intern(text string, kind symbolKind) symbol {
	if sym, ok := t.ids[text]; ok {
		return sym
	}
	sym := symbol(len(t.names))
	t.names = append(t.names, text)
	t.kinds = append(t.kinds, kind)
	t.ids[text] = sym
	return sym
}

func (t *symbolTable) lookup(text string) (symbol, bool) {
	sym, ok := t.ids[text]
	return sym, ok
}

func (t *symbolTable) text(sym symbol) string {
	if sym < 0 || int(sym) >= len(t.names) {
		return fmt.Sprintf("<unknown symbol %v>", int(sym))
	}
	return t.names[sym]
}

func (t *symbolTable) isTerminal(sym symbol) bool {
	return t.kinds[sym] == symbolKindTerminal
}

func (t *symbolTable) isNonTerminal(sym symbol) bool {
	return t.kinds[sym] == symbolKindNonTerminal
}

func (t *symbolTable) count() int {
	return len(t.names)
}

func (t *symbolTable) terminals() []symbol {
	syms := []symbol{}
	for i, kind := range t.kinds {
		if kind == symbolKindTerminal {
			syms = append(syms, symbol(i))
		}
	}
	return syms
}

func (t *symbolTable) nonTerminals() []symbol {
	syms := []symbol{}
	for i, kind := range t.kinds {
		if kind == symbolKindNonTerminal {
			syms = append(syms, symbol(i))
		}
	}
	return syms
}
