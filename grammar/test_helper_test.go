package grammar

import (
	"testing"

	"github.com/kestrel-dev/kestrel/spec"
)

func rule(lhs string, alts ...*spec.Alternative) *spec.Rule {
	return &spec.Rule{
		LHS:          lhs,
		Alternatives: alts,
	}
}

func alt(syms ...string) *spec.Alternative {
	return &spec.Alternative{
		RHS: syms,
	}
}

func altAct(action string, syms ...string) *spec.Alternative {
	return &spec.Alternative{
		RHS:    syms,
		Action: action,
	}
}

func altPrec(prec string, syms ...string) *spec.Alternative {
	return &spec.Alternative{
		RHS:  syms,
		Prec: prec,
	}
}

func left(syms ...string) spec.OperatorGroup {
	return spec.OperatorGroup{Associativity: "left", Symbols: syms}
}

func right(syms ...string) spec.OperatorGroup {
	return spec.OperatorGroup{Associativity: "right", Symbols: syms}
}

func nonassoc(syms ...string) spec.OperatorGroup {
	return spec.OperatorGroup{Associativity: "nonassoc", Symbols: syms}
}

func def(rules ...*spec.Rule) *spec.GrammarDef {
	return &spec.GrammarDef{
		BNF: spec.BNF{Rules: rules},
	}
}

func newTestGrammar(t *testing.T, def *spec.GrammarDef) *Grammar {
	t.Helper()
	g, err := NewGrammar(def)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func (g *Grammar) mustSymbol(t *testing.T, text string) symbol {
	t.Helper()
	sym, ok := g.symTab.lookup(text)
	if !ok {
		t.Fatalf("symbol %v was not interned", text)
	}
	return sym
}
