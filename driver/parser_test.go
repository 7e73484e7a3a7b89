package driver

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kestrel-dev/kestrel/grammar"
	"github.com/kestrel-dev/kestrel/spec"
)

// spaceLexer tokenizes on whitespace and names every terminal after its
// lexeme. It is the minimal fulfillment of the Lexer contract.
type spaceLexer struct {
	toks     []string
	pos      int
	text     string
	lexCalls int
}

func (l *spaceLexer) SetInput(input string, yy SharedContext) {
	l.toks = strings.Fields(input)
	l.pos = 0
	l.text = ""
}

func (l *spaceLexer) Lex() (string, int) {
	l.lexCalls++
	if l.pos >= len(l.toks) {
		l.text = ""
		return "", 0
	}
	l.text = l.toks[l.pos]
	l.pos++
	return l.text, 0
}

func (l *spaceLexer) Text() string {
	return l.text
}

func (l *spaceLexer) Leng() int {
	return len(l.text)
}

func (l *spaceLexer) Lineno() int {
	return 1
}

func (l *spaceLexer) Loc() *Location {
	return &Location{
		FirstLine:   1,
		LastLine:    1,
		FirstColumn: l.pos,
		LastColumn:  l.pos + len(l.text),
	}
}

var _ Lexer = (*spaceLexer)(nil)

func rule(lhs string, alts ...*spec.Alternative) *spec.Rule {
	return &spec.Rule{LHS: lhs, Alternatives: alts}
}

func alt(syms ...string) *spec.Alternative {
	return &spec.Alternative{RHS: syms}
}

func compileGrammar(t *testing.T, d *spec.GrammarDef) *spec.CompiledParser {
	t.Helper()
	g, err := grammar.NewGrammar(d)
	if err != nil {
		t.Fatal(err)
	}
	cp, _, err := grammar.Compile(g)
	if err != nil {
		t.Fatal(err)
	}
	return cp
}

func arithmeticParser(t *testing.T, onDemand bool) (*Parser, SharedContext) {
	t.Helper()
	d := &spec.GrammarDef{
		BNF: spec.BNF{Rules: []*spec.Rule{
			rule("e",
				alt("e", "+", "e"),
				alt("e", "*", "e"),
				alt("(", "e", ")"),
				alt("id"),
			),
		}},
		Operators: []spec.OperatorGroup{
			{Associativity: "left", Symbols: []string{"+"}},
			{Associativity: "left", Symbols: []string{"*"}},
		},
	}
	d.Options.OnDemandLookahead = onDemand
	cp := compileGrammar(t, d)

	yy := SharedContext{}
	actions := func(ctx *ActionContext, prod int) (interface{}, bool, error) {
		v := ctx.Values
		switch prod {
		case 1:
			ctx.Val = fmt.Sprintf("(%v+%v)", v[len(v)-3], v[len(v)-1])
		case 2:
			ctx.Val = fmt.Sprintf("(%v*%v)", v[len(v)-3], v[len(v)-1])
		case 3:
			ctx.Val = v[len(v)-2]
		case 4:
			ctx.Val = "id"
		}
		ctx.YY["result"] = ctx.Val
		return nil, false, nil
	}

	p, err := NewParser(cp, &spaceLexer{}, WithActions(actions), WithSharedContext(yy))
	if err != nil {
		t.Fatal(err)
	}
	return p, yy
}

// The * operator binds tighter than +, so the tree of id + id * id has
// + at the root.
func TestParse_precedence(t *testing.T) {
	p, yy := arithmeticParser(t, false)

	ret, err := p.Parse("id + id * id")
	if err != nil {
		t.Fatal(err)
	}
	if ret != true {
		t.Fatalf("a bare accept must return true; got: %v", ret)
	}
	if got := yy["result"]; got != "(id+(id*id))" {
		t.Fatalf("unexpected tree: %v", got)
	}

	if _, err := p.Parse("( id + id ) * id"); err != nil {
		t.Fatal(err)
	}
	if got := yy["result"]; got != "((id+id)*id)" {
		t.Fatalf("unexpected tree: %v", got)
	}
}

// Empty productions reduce without consuming input.
func TestParse_emptyProduction(t *testing.T) {
	cp := compileGrammar(t, &spec.GrammarDef{
		BNF: spec.BNF{Rules: []*spec.Rule{
			rule("A", alt("B", "C")),
			rule("B", alt("b"), alt()),
			rule("C", alt("c")),
		}},
	})

	for _, input := range []string{"c", "b c"} {
		p, err := NewParser(cp, &spaceLexer{})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := p.Parse(input); err != nil {
			t.Fatalf("%q must parse: %v", input, err)
		}
	}

	p, err := NewParser(cp, &spaceLexer{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Parse("b"); err == nil {
		t.Fatal("\"b\" is not in the language")
	}
}

// A default action fires without consulting the lexer: reducing a and
// then A must not trigger a lex call in between.
func TestParse_defaultActionsSkipLex(t *testing.T) {
	cp := compileGrammar(t, &spec.GrammarDef{
		BNF: spec.BNF{Rules: []*spec.Rule{
			rule("S", alt("A")),
			rule("A", alt("a")),
		}},
	})
	if len(cp.DefaultActions) == 0 {
		t.Fatal("the single-reduction states must be compressed")
	}

	lex := &spaceLexer{}
	p, err := NewParser(cp, lex)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Parse("a"); err != nil {
		t.Fatal(err)
	}
	// One call for a, one for end of input; none between the
	// reductions of A and S.
	if lex.lexCalls != 2 {
		t.Fatalf("unexpected lex call count: want: 2, got: %v", lex.lexCalls)
	}
}

// An action may terminate the parse early; its return value becomes the
// parse result.
func TestParse_earlyReturn(t *testing.T) {
	d := &spec.GrammarDef{
		BNF: spec.BNF{Rules: []*spec.Rule{
			rule("s", alt("e")),
			rule("e", alt("id")),
		}},
	}
	d.Options.OnDemandLookahead = true
	cp := compileGrammar(t, d)

	actions := func(ctx *ActionContext, prod int) (interface{}, bool, error) {
		switch prod {
		case 1:
			return ctx.Values[len(ctx.Values)-1], true, nil
		case 2:
			ctx.Val = "value"
		}
		return nil, false, nil
	}
	p, err := NewParser(cp, &spaceLexer{}, WithActions(actions))
	if err != nil {
		t.Fatal(err)
	}
	ret, err := p.Parse("id")
	if err != nil {
		t.Fatal(err)
	}
	if ret != "value" {
		t.Fatalf("unexpected result: %v", ret)
	}

	abort := func(ctx *ActionContext, prod int) (interface{}, bool, error) {
		if prod == 1 {
			return false, true, nil
		}
		return nil, false, nil
	}
	p, err = NewParser(cp, &spaceLexer{}, WithActions(abort))
	if err != nil {
		t.Fatal(err)
	}
	ret, err = p.Parse("id")
	if err != nil {
		t.Fatal(err)
	}
	if ret != false {
		t.Fatalf("an abort must surface as false; got: %v", ret)
	}
}

// Locations merge across the reduced range.
func TestParse_locations(t *testing.T) {
	cp := compileGrammar(t, &spec.GrammarDef{
		BNF: spec.BNF{Rules: []*spec.Rule{
			rule("list", alt("x"), alt("list", "x")),
		}},
	})

	var last *Location
	actions := func(ctx *ActionContext, prod int) (interface{}, bool, error) {
		last = ctx.Loc
		return nil, false, nil
	}
	p, err := NewParser(cp, &spaceLexer{}, WithActions(actions))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Parse("x x x"); err != nil {
		t.Fatal(err)
	}
	if last == nil {
		t.Fatal("the action must observe merged locations")
	}
	if last.FirstColumn >= last.LastColumn {
		t.Fatalf("the merged span must cover the range: %+v", last)
	}
}

// Toggling on-demand lookahead changes table density but not the
// accepted language.
func TestParse_lookaheadModeInvariance(t *testing.T) {
	dense, _ := arithmeticParser(t, false)
	sparse, _ := arithmeticParser(t, true)

	inputs := []struct {
		src   string
		valid bool
	}{
		{src: "id", valid: true},
		{src: "id + id * id", valid: true},
		{src: "( id )", valid: true},
		{src: "id +", valid: false},
		{src: "id id", valid: false},
		{src: ") id", valid: false},
	}
	for _, tt := range inputs {
		for name, p := range map[string]*Parser{"dense": dense, "sparse": sparse} {
			_, err := p.Parse(tt.src)
			if tt.valid && err != nil {
				t.Errorf("%v: %q must parse: %v", name, tt.src, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("%v: %q must fail", name, tt.src)
			}
		}
	}
}
