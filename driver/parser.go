package driver

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/kestrel-dev/kestrel/spec"
)

const symbolUnset = -1

// Parser is the table-driven runtime. The compiled tables are read-only
// and shareable; one Parser owns its lexer and is not reentrant, so
// concurrent parses need one Parser each.
type Parser struct {
	cp    *spec.CompiledParser
	lexer Lexer

	performAction PerformAction
	parseError    func(err *SyntaxError) error
	yy            SharedContext
	params        map[string]interface{}
}

type ParserOption func(p *Parser) error

// WithActions installs the semantic-action dispatcher.
func WithActions(fn PerformAction) ParserOption {
	return func(p *Parser) error {
		p.performAction = fn
		return nil
	}
}

// WithParseError installs the parse-error hook. For recoverable errors
// a non-nil return aborts recovery; for fatal errors the return value
// replaces the default error.
func WithParseError(fn func(err *SyntaxError) error) ParserOption {
	return func(p *Parser) error {
		p.parseError = fn
		return nil
	}
}

// WithSharedContext threads a caller-owned yy dictionary through parser
// and lexer.
func WithSharedContext(yy SharedContext) ParserOption {
	return func(p *Parser) error {
		p.yy = yy
		return nil
	}
}

// WithParams supplies values for the grammar's parse parameters.
func WithParams(params map[string]interface{}) ParserOption {
	return func(p *Parser) error {
		p.params = params
		return nil
	}
}

// NewParser builds a runtime parser directly from in-memory tables; no
// emitted source is involved.
func NewParser(cp *spec.CompiledParser, lexer Lexer, opts ...ParserOption) (*Parser, error) {
	if cp == nil {
		return nil, fmt.Errorf("compiled parser must be non-nil")
	}
	if lexer == nil {
		return nil, fmt.Errorf("lexer must be non-nil")
	}
	p := &Parser{
		cp:    cp,
		lexer: lexer,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.yy == nil {
		p.yy = SharedContext{}
	}
	return p, nil
}

// Parse consumes the input and returns the value of a semantic action
// that ends the parse early, or true when the parse reaches accept.
func (p *Parser) Parse(input string) (interface{}, error) {
	p.lexer.SetInput(input, p.yy)

	// Three parallel stacks in lockstep. The state stack interleaves
	// (symbol, state) pairs above the seed state, so the current state
	// is always the top element.
	stack := []int{p.cp.InitialState}
	vstack := []interface{}{nil}
	lstack := []*Location{{}}

	symCount := p.cp.SymbolCount
	symbol := symbolUnset
	preErrorSymbol := symbolUnset
	recovering := 0

	var yytext string
	var yyleng, yylineno int

	for {
		state := stack[len(stack)-1]

		var act int
		if a, ok := p.cp.DefaultActions[state]; ok {
			// A default action fires without consulting the lookahead,
			// skipping a lex call per reduction chain.
			act = a
		} else {
			if symbol == symbolUnset {
				symbol = p.next()
			}
			if symbol >= 0 && symbol < symCount {
				act = p.cp.Table[state*symCount+symbol]
			}
		}

		tag, target := spec.DecodeAction(act)
		switch tag {
		case spec.ActionConflict:
			return nil, fmt.Errorf("ambiguous parse table: state %v holds multiple actions for %v",
				state, p.terminalName(symbol))

		case spec.ActionShift:
			stack = append(stack, symbol, target)
			vstack = append(vstack, p.lexer.Text())
			lstack = append(lstack, copyLoc(p.lexer.Loc()))
			if preErrorSymbol == symbolUnset {
				yytext = p.lexer.Text()
				yyleng = p.lexer.Leng()
				yylineno = p.lexer.Lineno()
				symbol = symbolUnset
				if recovering > 0 {
					recovering--
				}
			} else {
				// The error symbol is shifted; retry the lookahead that
				// tripped the error.
				symbol = preErrorSymbol
				preErrorSymbol = symbolUnset
			}

		case spec.ActionReduce:
			lhs := p.cp.ProductionTable[target][0]
			n := p.cp.ProductionTable[target][1]
			depth := n
			if depth == 0 {
				depth = 1
			}

			ctx := &ActionContext{
				Val:       vstack[len(vstack)-depth],
				Loc:       mergeLocations(lstack, n),
				Text:      yytext,
				Leng:      yyleng,
				Lineno:    yylineno,
				YY:        p.yy,
				Values:    vstack,
				Locations: lstack,
				Params:    p.params,
			}
			if p.performAction != nil {
				ret, done, err := p.performAction(ctx, target)
				if err != nil {
					return nil, err
				}
				if done {
					return ret, nil
				}
			}

			if n > 0 {
				stack = stack[:len(stack)-2*n]
				vstack = vstack[:len(vstack)-n]
				lstack = lstack[:len(lstack)-n]
			}
			top := stack[len(stack)-1]
			gotoTag, gotoState := spec.DecodeAction(p.cp.Table[top*symCount+lhs])
			if gotoTag != spec.ActionGoTo {
				return nil, fmt.Errorf("no goto from state %v over %v", top, p.cp.SymbolNames[lhs])
			}
			stack = append(stack, lhs, gotoState)
			vstack = append(vstack, ctx.Val)
			lstack = append(lstack, ctx.Loc)

		case spec.ActionAccept:
			return true, nil

		default:
			// No action: syntax error. Locate an error-trapping state;
			// when none exists the error is fatal.
			depth, trappable := p.locateErrorRecovery(stack)
			serr := p.syntaxError(state, symbol, trappable)

			if !trappable {
				if p.parseError != nil {
					return nil, p.parseError(serr)
				}
				return nil, serr
			}

			tracer().Infof("recovering from syntax error: %v", serr.Message)
			if p.parseError != nil {
				if err := p.parseError(serr); err != nil {
					return nil, err
				}
			}

			if recovering == 3 {
				// Still recovering: swallow the offending lookahead.
				if symbol == spec.SymbolEOF {
					return nil, serr
				}
				symbol = p.next()
				depth, trappable = p.locateErrorRecovery(stack)
				if !trappable {
					return nil, serr
				}
			}

			stack = stack[:len(stack)-2*depth]
			vstack = vstack[:len(vstack)-depth]
			lstack = lstack[:len(lstack)-depth]

			if symbol != spec.SymbolError {
				preErrorSymbol = symbol
			}
			symbol = spec.SymbolError
			recovering = 3
		}
	}
}

// next reads one token from the lexer and maps it onto a terminal id.
// Names resolve through the symbol table; unknown tokens keep their raw
// id and surface as a syntax error when no column matches.
func (p *Parser) next() int {
	name, id := p.lexer.Lex()
	if name == "" && id == 0 {
		return spec.SymbolEOF
	}
	if name != "" {
		if sym, ok := p.cp.Symbols[name]; ok {
			return sym
		}
	}
	return id
}

func (p *Parser) terminalName(sym int) string {
	if name, ok := p.cp.Terminals[sym]; ok {
		return name
	}
	return fmt.Sprintf("token %v", sym)
}

// locateErrorRecovery scans down the state stack for a state that
// shifts the error terminal, returning how many frames must be popped
// to reach it.
func (p *Parser) locateErrorRecovery(stack []int) (int, bool) {
	depth := 0
	for i := len(stack) - 1; i >= 0; i -= 2 {
		tag, _ := spec.DecodeAction(p.cp.Table[stack[i]*p.cp.SymbolCount+spec.SymbolError])
		if tag == spec.ActionShift {
			return depth, true
		}
		depth++
	}
	return 0, false
}

// syntaxError assembles the structured diagnostic: the expected
// terminals of the current state, the offending token, and the lexer
// position when the lexer can show one.
func (p *Parser) syntaxError(state, symbol int, recoverable bool) *SyntaxError {
	expected := p.expectedTerminals(state)

	var token string
	if symbol == spec.SymbolEOF {
		token = spec.SymbolNameEOF
	} else {
		token = p.terminalName(symbol)
	}

	var msg strings.Builder
	if shower, ok := p.lexer.(PositionShower); ok {
		fmt.Fprintf(&msg, "parse error on line %v:\n%v\n", p.lexer.Lineno(), shower.ShowPosition())
		if len(expected) > 0 {
			fmt.Fprintf(&msg, "expecting %v, got %q", strings.Join(expected, ", "), token)
		} else {
			fmt.Fprintf(&msg, "unexpected %q", token)
		}
	} else {
		fmt.Fprintf(&msg, "parse error on line %v: unexpected %q", p.lexer.Lineno(), token)
		if len(expected) > 0 {
			fmt.Fprintf(&msg, ", expecting %v", strings.Join(expected, ", "))
		}
	}

	return &SyntaxError{
		Message:     msg.String(),
		Text:        p.lexer.Text(),
		Token:       token,
		Line:        p.lexer.Lineno(),
		Loc:         copyLoc(p.lexer.Loc()),
		Expected:    expected,
		Recoverable: recoverable,
	}
}

// expectedTerminals collects the display names of the terminals with an
// action in the given state, skipping the reserved symbols (ids up to
// and including the error terminal).
func (p *Parser) expectedTerminals(state int) []string {
	set := treeset.NewWithStringComparator()
	base := state * p.cp.SymbolCount
	for sym := spec.SymbolError + 1; sym < p.cp.SymbolCount; sym++ {
		if p.cp.Table[base+sym] == 0 {
			continue
		}
		if name, ok := p.cp.Terminals[sym]; ok {
			set.Add("'" + name + "'")
		}
	}
	expected := make([]string, 0, set.Size())
	for _, v := range set.Values() {
		expected = append(expected, v.(string))
	}
	return expected
}

func copyLoc(loc *Location) *Location {
	if loc == nil {
		return &Location{}
	}
	c := *loc
	if loc.Range != nil {
		c.Range = append([]int(nil), loc.Range...)
	}
	return &c
}

// mergeLocations spans the reduced range: first line/column from the
// oldest frame, last line/column from the newest, byte ranges merged
// when both ends carry one.
func mergeLocations(lstack []*Location, n int) *Location {
	depth := n
	if depth == 0 {
		depth = 1
	}
	first := lstack[len(lstack)-depth]
	last := lstack[len(lstack)-1]
	loc := &Location{
		FirstLine:   first.FirstLine,
		FirstColumn: first.FirstColumn,
		LastLine:    last.LastLine,
		LastColumn:  last.LastColumn,
	}
	if len(first.Range) == 2 && len(last.Range) == 2 {
		loc.Range = []int{first.Range[0], last.Range[1]}
	}
	return loc
}
