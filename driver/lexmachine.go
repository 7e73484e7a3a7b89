package driver

import (
	"fmt"
	"strings"

	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// LMAdapter compiles a lexmachine DFA once and hands out Lexer values
// bound to it, so the generated parser has a production tokenizer
// without the core ever owning lexical analysis.
type LMAdapter struct {
	Lexer *lexmachine.Lexer
	names map[int]string
}

// NewLMAdapter creates a lexmachine adapter. init may register custom
// patterns; literals ('(', '+', …) and keywords are registered verbatim
// and mapped through tokenIDs. Terminal names for the parser come from
// reversing tokenIDs. NewLMAdapter returns an error if compiling the
// DFA failed.
func NewLMAdapter(init func(*lexmachine.Lexer), literals []string, keywords []string, tokenIDs map[string]int) (*LMAdapter, error) {
	adapter := &LMAdapter{
		Lexer: lexmachine.NewLexer(),
		names: make(map[int]string, len(tokenIDs)),
	}
	if init != nil {
		init(adapter.Lexer)
	}
	for _, lit := range literals {
		r := "\\" + strings.Join(strings.Split(lit, ""), "\\")
		adapter.Lexer.Add([]byte(r), MakeToken(lit, tokenIDs[lit]))
	}
	for _, name := range keywords {
		adapter.Lexer.Add([]byte(name), MakeToken(name, tokenIDs[name]))
	}
	for name, id := range tokenIDs {
		adapter.names[id] = name
	}
	if err := adapter.Lexer.Compile(); err != nil {
		tracer().Errorf("error compiling DFA: %v", err)
		return nil, err
	}
	return adapter, nil
}

// NewLexer returns a Lexer backed by the compiled DFA. SetInput resets
// it, so one value serves consecutive parses; concurrent parses need
// one value each.
func (a *LMAdapter) NewLexer() *LMLexer {
	return &LMLexer{
		adapter: a,
		Error:   logError,
	}
}

// LMLexer scans one input with the adapter's DFA and satisfies the
// parser's Lexer contract.
type LMLexer struct {
	adapter *LMAdapter
	scanner *lexmachine.Scanner

	// Error handles scanning errors; the offending input is skipped.
	Error func(error)

	input string
	text  string
	line  int
	loc   *Location
}

func logError(e error) {
	tracer().Errorf("scanner error: %v", e)
}

func (l *LMLexer) SetInput(input string, yy SharedContext) {
	l.input = input
	l.text = ""
	l.line = 1
	l.loc = nil
	s, err := l.adapter.Lexer.Scanner([]byte(input))
	if err != nil {
		l.Error(err)
		l.scanner = nil
		return
	}
	l.scanner = s
}

func (l *LMLexer) Lex() (string, int) {
	if l.scanner == nil {
		return "", 0
	}
	tok, err, eof := l.scanner.Next()
	for err != nil {
		l.Error(err)
		if ui, is := err.(*machines.UnconsumedInput); is {
			l.scanner.TC = ui.FailTC
		}
		tok, err, eof = l.scanner.Next()
	}
	if eof {
		return "", 0
	}
	token := tok.(*lexmachine.Token)
	l.text = string(token.Lexeme)
	l.line = token.StartLine
	l.loc = &Location{
		FirstLine:   token.StartLine,
		FirstColumn: token.StartColumn,
		LastLine:    token.EndLine,
		LastColumn:  token.EndColumn,
		Range:       []int{token.TC, token.TC + len(token.Lexeme)},
	}
	return l.adapter.names[token.Type], token.Type
}

func (l *LMLexer) Text() string {
	return l.text
}

func (l *LMLexer) Leng() int {
	return len(l.text)
}

func (l *LMLexer) Lineno() int {
	return l.line
}

func (l *LMLexer) Loc() *Location {
	return l.loc
}

// ShowPosition renders the line of the current token with a caret
// under its first column.
func (l *LMLexer) ShowPosition() string {
	if l.loc == nil {
		return ""
	}
	lines := strings.Split(l.input, "\n")
	if l.loc.FirstLine < 1 || l.loc.FirstLine > len(lines) {
		return ""
	}
	line := lines[l.loc.FirstLine-1]
	col := l.loc.FirstColumn
	if col < 1 {
		col = 1
	}
	return fmt.Sprintf("%v\n%v^", line, strings.Repeat("-", col-1))
}

var _ Lexer = (*LMLexer)(nil)
var _ PositionShower = (*LMLexer)(nil)

// Skip is a pre-defined lexmachine action which ignores the match.
func Skip(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
	return nil, nil
}

// MakeToken is a pre-defined lexmachine action which wraps a match into
// a token of the given id.
func MakeToken(name string, id int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(id, string(m.Bytes), m), nil
	}
}
