package grammar

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/kestrel-dev/kestrel/spec"
)

type assocType string

const (
	assocTypeNil      = assocType("")
	assocTypeLeft     = assocType("left")
	assocTypeRight    = assocType("right")
	assocTypeNonAssoc = assocType("nonassoc")
)

const (
	precNil = 0
	precMin = 1
)

// precAndAssoc represents the operator table: precedence level and
// associativity per terminal symbol. Higher level binds tighter.
// Production precedence lives on the productions themselves because it
// is either declared explicitly or inherited from the right-most
// terminal of the RHS.
type precAndAssoc struct {
	termPrec  map[symbol]int
	termAssoc map[symbol]assocType
}

func (pa *precAndAssoc) terminalPrecedence(sym symbol) int {
	prec, ok := pa.termPrec[sym]
	if !ok {
		return precNil
	}
	return prec
}

func (pa *precAndAssoc) terminalAssociativity(sym symbol) assocType {
	assoc, ok := pa.termAssoc[sym]
	if !ok {
		return assocTypeNil
	}
	return assoc
}

// actionGroup collects the productions sharing one rewritten action
// body; the emitted dispatcher has one arm per group.
type actionGroup struct {
	body  string
	prods []productionNum
}

// Grammar is the loaded, augmented grammar. All fields are read-only
// after NewGrammar returns.
type Grammar struct {
	name              string
	symTab            *symbolTable
	prods             *productionSet
	startSym          symbol
	augmentedStart    symbol
	errorSym          symbol
	precAndAssoc      *precAndAssoc
	actionGroups      []*actionGroup
	parseParams       []string
	actionInclude     string
	moduleInclude     string
	noDefaultResolve  bool
	onDemandLookahead bool
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][0-9A-Za-z_]*$`)

const defaultModuleName = "parser"

// NewGrammar normalizes a structured grammar definition: it interns
// symbols in first-seen order after the reserved trio, builds the
// production set, processes the operator table, rewrites and groups the
// semantic actions, and augments the grammar with the accept
// production.
func NewGrammar(def *spec.GrammarDef) (*Grammar, error) {
	if len(def.BNF.Rules) == 0 {
		return nil, fmt.Errorf("grammar must have at least one production")
	}

	name := def.Options.ModuleName
	if name == "" {
		name = def.Name
	}
	if !identifierPattern.MatchString(name) {
		if name != "" {
			tracer().Infof("module name %q is not an identifier; falling back to %q", name, defaultModuleName)
		}
		name = defaultModuleName
	}

	nonTermNames := map[string]struct{}{}
	for _, rule := range def.BNF.Rules {
		switch rule.LHS {
		case spec.SymbolNameAccept, spec.SymbolNameEOF, spec.SymbolNameError:
			return nil, fmt.Errorf("symbol name %v is reserved", rule.LHS)
		}
		nonTermNames[rule.LHS] = struct{}{}
	}

	startName := def.StartName()
	if startName == "" {
		startName = def.BNF.Rules[0].LHS
	}
	if _, ok := nonTermNames[startName]; !ok {
		return nil, fmt.Errorf("start symbol %v is not a non-terminal", startName)
	}

	operators, err := buildOperatorTable(def.Operators)
	if err != nil {
		return nil, err
	}

	symTab := newSymbolTable()
	prods := newProductionSet()
	groups := []*actionGroup{}
	groupByBody := map[string]*actionGroup{}

	for _, rule := range def.BNF.Rules {
		lhs := symTab.intern(rule.LHS, symbolKindNonTerminal)
		for _, alt := range rule.Alternatives {
			syms := make([]symbol, 0, len(alt.RHS))
			names := map[string]int{}
			nameCounts := map[string]int{}
			for i, tok := range alt.RHS {
				text, alias := splitAlias(tok)
				kind := symbolKindTerminal
				if _, ok := nonTermNames[text]; ok {
					kind = symbolKindNonTerminal
				}
				syms = append(syms, symTab.intern(text, kind))
				ref := text
				if alias != "" {
					ref = alias
				}
				addName(names, nameCounts, ref, i+1)
			}

			prod := prods.append(lhs, syms)
			prod.prec = productionPrecedence(alt, syms, symTab, operators)
			prod.action = alt.Action

			if alt.Action != "" {
				body := rewriteAction(alt.Action, names, len(syms))
				group, ok := groupByBody[body]
				if !ok {
					group = &actionGroup{body: body}
					groupByBody[body] = group
					groups = append(groups, group)
				}
				group.prods = append(group.prods, prod.num)
			}
		}
	}

	if len(def.Tokens) > 0 {
		declared := len(def.Tokens)
		discovered := 0
		for _, sym := range symTab.terminals() {
			if sym != symbolEOF && sym != symbolError {
				discovered++
			}
		}
		if declared != discovered {
			tracer().Infof("declared %v tokens but the grammar uses %v terminals", declared, discovered)
		}
	}

	pa := &precAndAssoc{
		termPrec:  map[symbol]int{},
		termAssoc: map[symbol]assocType{},
	}
	for text, op := range operators {
		sym, ok := symTab.lookup(text)
		if !ok || !symTab.isTerminal(sym) {
			continue
		}
		pa.termPrec[sym] = op.level
		pa.termAssoc[sym] = op.assoc
	}

	// Augment: $accept → S $end.
	startSym, _ := symTab.lookup(startName)
	prods.setAccept(symbolAccept, []symbol{startSym, symbolEOF})

	return &Grammar{
		name:              name,
		symTab:            symTab,
		prods:             prods,
		startSym:          startSym,
		augmentedStart:    symbolAccept,
		errorSym:          symbolError,
		precAndAssoc:      pa,
		actionGroups:      groups,
		parseParams:       def.ParseParams,
		actionInclude:     def.ActionInclude,
		moduleInclude:     def.ModuleInclude,
		noDefaultResolve:  def.Options.NoDefaultResolve,
		onDemandLookahead: def.Options.OnDemandLookahead,
	}, nil
}

// Name returns the module name the emitted parser carries.
func (g *Grammar) Name() string {
	return g.name
}

type operatorEntry struct {
	level int
	assoc assocType
}

func buildOperatorTable(groups []spec.OperatorGroup) (map[string]operatorEntry, error) {
	operators := map[string]operatorEntry{}
	for i, group := range groups {
		assoc := assocType(group.Associativity)
		switch assoc {
		case assocTypeLeft, assocTypeRight, assocTypeNonAssoc:
		default:
			return nil, fmt.Errorf("unknown associativity %q; must be left, right, or nonassoc", group.Associativity)
		}
		for _, text := range group.Symbols {
			operators[text] = operatorEntry{
				level: precMin + i,
				assoc: assoc,
			}
		}
	}
	return operators, nil
}

// productionPrecedence resolves the precedence of one production: an
// explicit {prec: op} wins; otherwise the production inherits the level
// of the right-most RHS terminal present in the operator table.
func productionPrecedence(alt *spec.Alternative, rhs []symbol, symTab *symbolTable, operators map[string]operatorEntry) int {
	if alt.Prec != "" {
		op, ok := operators[alt.Prec]
		if !ok {
			tracer().Infof("prec operator %q is not in the operator table", alt.Prec)
			return precNil
		}
		return op.level
	}
	for i := len(rhs) - 1; i >= 0; i-- {
		if !symTab.isTerminal(rhs[i]) {
			continue
		}
		if op, ok := operators[symTab.text(rhs[i])]; ok {
			return op.level
		}
	}
	return precNil
}

var aliasPattern = regexp.MustCompile(`^(.+)\[([A-Za-z_][0-9A-Za-z_]*)\]$`)

// splitAlias strips a bracketed alias: `expr[left]` → (`expr`, `left`).
func splitAlias(tok string) (string, string) {
	m := aliasPattern.FindStringSubmatch(tok)
	if m == nil {
		return tok, ""
	}
	return m[1], m[2]
}

// addName records a positional name for action-body references. A
// repeated name yields name, name1, name2, …; the first occurrence is
// also reachable as name1.
func addName(names map[string]int, counts map[string]int, name string, pos int) {
	if counts[name] == 0 {
		names[name] = pos
		names[name+"1"] = pos
		counts[name] = 1
		return
	}
	counts[name]++
	names[name+strconv.Itoa(counts[name])] = pos
}

var actionRefPattern = regexp.MustCompile(
	`\$\$|@\$|\$([0-9]+)|@([0-9]+)|\$([A-Za-z_][0-9A-Za-z_]*)|@([A-Za-z_][0-9A-Za-z_]*)|\bYYABORT\b|\bYYACCEPT\b`)

// rewriteAction maps the grammar-level stack references of an action
// body onto the dispatcher's slots: `$$`/`@$` become the result value
// and location, `$k`/`@k` (1-based) become value- and location-stack
// slots at offset k-|rhs| from the top, and `$name`/`@name` resolve
// through the positional names. YYABORT and YYACCEPT become early
// returns.
func rewriteAction(body string, names map[string]int, rhsLen int) string {
	return actionRefPattern.ReplaceAllStringFunc(body, func(ref string) string {
		switch ref {
		case "$$":
			return "yyval.v"
		case "@$":
			return "yyval.loc"
		case "YYABORT":
			return "return false"
		case "YYACCEPT":
			return "return true"
		}

		loc := ref[0] == '@'
		var pos int
		if k, err := strconv.Atoi(ref[1:]); err == nil {
			pos = k
		} else {
			k, ok := names[ref[1:]]
			if !ok {
				return ref
			}
			pos = k
		}
		if pos < 1 || pos > rhsLen {
			tracer().Infof("action references %v but the RHS has %v symbols", ref, rhsLen)
			return ref
		}
		depth := rhsLen - pos + 1
		if loc {
			return fmt.Sprintf("yylstack[len(yylstack)-%d]", depth)
		}
		return fmt.Sprintf("yyvstack[len(yyvstack)-%d]", depth)
	})
}
