package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// GrammarDef is the structured form of a grammar a generator consumes.
// It is the already-parsed counterpart of a grammar description file and
// can be unmarshaled from JSON. Rule declaration order is preserved
// because the generator must iterate non-terminals and productions in
// insertion order.
type GrammarDef struct {
	Name          string          `json:"name,omitempty"`
	BNF           BNF             `json:"bnf"`
	Tokens        SymbolList      `json:"tokens,omitempty"`
	Operators     []OperatorGroup `json:"operators,omitempty"`
	Start         string          `json:"start,omitempty"`
	StartSymbol   string          `json:"startSymbol,omitempty"`
	ParseParams   []string        `json:"parseParams,omitempty"`
	ActionInclude string          `json:"actionInclude,omitempty"`
	ModuleInclude string          `json:"moduleInclude,omitempty"`
	Options       Options         `json:"options,omitempty"`
}

// StartName returns the declared start symbol. `start` wins over the
// legacy `startSymbol` key. An empty result means the LHS of the first
// rule is the start symbol.
func (d *GrammarDef) StartName() string {
	if d.Start != "" {
		return d.Start
	}
	return d.StartSymbol
}

type Options struct {
	ModuleName        string `json:"moduleName,omitempty"`
	NoDefaultResolve  bool   `json:"noDefaultResolve,omitempty"`
	OnDemandLookahead bool   `json:"onDemandLookahead,omitempty"`
}

type Rule struct {
	LHS          string
	Alternatives []*Alternative
}

// BNF is an ordered rule list. In JSON it is an object mapping a
// non-terminal to an alternative or a list of alternatives; the object
// keys are walked with a streaming decoder so that declaration order
// survives unmarshaling.
type BNF struct {
	Rules []*Rule
}

func (b *BNF) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("bnf must be an object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		lhs, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("bnf keys must be strings")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		alts, err := unmarshalAlternatives(raw)
		if err != nil {
			return fmt.Errorf("rule %v: %w", lhs, err)
		}
		b.Rules = append(b.Rules, &Rule{
			LHS:          lhs,
			Alternatives: alts,
		})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func unmarshalAlternatives(data []byte) ([]*Alternative, error) {
	var rhs string
	if err := json.Unmarshal(data, &rhs); err == nil {
		// A bare string may pack several alternatives separated by `|`.
		var alts []*Alternative
		for _, alt := range strings.Split(rhs, "|") {
			alts = append(alts, &Alternative{RHS: strings.Fields(alt)})
		}
		return alts, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("alternatives must be a string or an array")
	}
	alts := make([]*Alternative, len(elems))
	for i, e := range elems {
		alt := &Alternative{}
		if err := alt.UnmarshalJSON(e); err != nil {
			return nil, err
		}
		alts[i] = alt
	}
	return alts, nil
}

// Alternative is one right-hand side of a rule. The JSON forms are a
// whitespace-delimited symbol string or the structured form
// `[rhs, action?, {"prec": operator}?]` where rhs is a string or a
// symbol array.
type Alternative struct {
	RHS    []string
	Action string
	Prec   string
}

func (a *Alternative) UnmarshalJSON(data []byte) error {
	var rhs string
	if err := json.Unmarshal(data, &rhs); err == nil {
		a.RHS = strings.Fields(rhs)
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return fmt.Errorf("an alternative must be a string or an array")
	}
	if len(elems) == 0 {
		return fmt.Errorf("a structured alternative needs at least an RHS")
	}

	if err := json.Unmarshal(elems[0], &rhs); err == nil {
		a.RHS = strings.Fields(rhs)
	} else {
		var syms []string
		if err := json.Unmarshal(elems[0], &syms); err != nil {
			return fmt.Errorf("an RHS must be a string or a symbol array")
		}
		a.RHS = syms
	}

	for _, e := range elems[1:] {
		var action string
		if err := json.Unmarshal(e, &action); err == nil {
			a.Action = action
			continue
		}
		var attrs struct {
			Prec string `json:"prec"`
		}
		if err := json.Unmarshal(e, &attrs); err != nil || attrs.Prec == "" {
			return fmt.Errorf("an alternative attribute must be an action string or {\"prec\": operator}")
		}
		a.Prec = attrs.Prec
	}
	return nil
}

// SymbolList unmarshals from a whitespace-delimited string or a string
// array.
type SymbolList []string

func (l *SymbolList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = strings.Fields(s)
		return nil
	}
	var syms []string
	if err := json.Unmarshal(data, &syms); err != nil {
		return fmt.Errorf("a symbol list must be a string or a string array")
	}
	*l = syms
	return nil
}

// OperatorGroup is one line of the operator table: an associativity
// followed by the operators sharing a precedence level. In JSON it is
// the array form `["left", "+", "-"]`. Groups are declared lowest
// precedence first.
type OperatorGroup struct {
	Associativity string
	Symbols       []string
}

func (g *OperatorGroup) UnmarshalJSON(data []byte) error {
	var elems []string
	if err := json.Unmarshal(data, &elems); err != nil {
		return fmt.Errorf("an operator group must be a string array")
	}
	if len(elems) < 2 {
		return fmt.Errorf("an operator group needs an associativity and at least one symbol")
	}
	g.Associativity = elems[0]
	g.Symbols = elems[1:]
	return nil
}
