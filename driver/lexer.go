package driver

// Location is a source span. Range is the byte range, present only when
// the lexer tracks ranges.
type Location struct {
	FirstLine   int   `json:"first_line"`
	FirstColumn int   `json:"first_column"`
	LastLine    int   `json:"last_line"`
	LastColumn  int   `json:"last_column"`
	Range       []int `json:"range,omitempty"`
}

// SharedContext is the user-owned dictionary threaded through the
// parser and the lexer. The parser never interprets its contents.
type SharedContext map[string]interface{}

// Lexer is the contract an external tokenizer fulfills. The parser owns
// the lexer for the duration of one parse and resets it with SetInput.
type Lexer interface {
	SetInput(input string, yy SharedContext)

	// Lex advances to the next token and identifies its terminal by
	// name or, when the name is empty, by raw numeric id. A name is
	// mapped through the compiled symbol table; an unknown raw id
	// simply finds no table column. name == "" together with id == 0
	// signals end of input.
	Lex() (name string, id int)

	// Per-token fields, valid after Lex returns.
	Text() string
	Leng() int
	Lineno() int

	// Loc returns the span of the current token, or nil when the lexer
	// tracks no locations.
	Loc() *Location
}

// PositionShower is an optional lexer capability used to enrich syntax
// error messages.
type PositionShower interface {
	ShowPosition() string
}

// SyntaxError is the structured payload handed to the parse-error hook.
// Recoverable reports whether the parser found an error-trapping state
// and will attempt to continue.
type SyntaxError struct {
	Message     string    `json:"message"`
	Text        string    `json:"text"`
	Token       string    `json:"token"`
	Line        int       `json:"line"`
	Loc         *Location `json:"loc,omitempty"`
	Expected    []string  `json:"expected"`
	Recoverable bool      `json:"recoverable"`
}

func (e *SyntaxError) Error() string {
	return e.Message
}
