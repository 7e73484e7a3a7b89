package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kestrel-dev/kestrel/spec"
)

type compileConfig struct {
	reporting bool
}

type CompileOption func(*compileConfig)

// EnableReporting makes Compile return a description of the automaton,
// the FIRST/FOLLOW sets, and the conflict-resolution audit log along
// with the compiled tables.
func EnableReporting() CompileOption {
	return func(cfg *compileConfig) {
		cfg.reporting = true
	}
}

// Compile runs the generation pipeline over a loaded grammar: the
// nullable/FIRST/FOLLOW fixed points, the canonical LR(0) collection,
// lookahead assignment, and the table build with conflict resolution
// and default-action compression. Given equal inputs the result is
// reproducible bit for bit.
func Compile(gram *Grammar, opts ...CompileOption) (*spec.CompiledParser, *spec.Report, error) {
	cfg := &compileConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	nullable := genNullableSet(gram.prods)
	first, err := genFirstSet(gram.prods, gram.symTab, nullable)
	if err != nil {
		return nil, nil, err
	}
	follow, err := genFollowSet(gram.prods, gram.symTab, first)
	if err != nil {
		return nil, nil, err
	}

	automaton, err := genLR0Automaton(gram.prods, gram.symTab)
	if err != nil {
		return nil, nil, err
	}
	if err := assignLookAheads(automaton, follow); err != nil {
		return nil, nil, err
	}

	b := &lrTableBuilder{
		automaton:         automaton,
		prods:             gram.prods,
		symTab:            gram.symTab,
		precAndAssoc:      gram.precAndAssoc,
		onDemandLookahead: gram.onDemandLookahead,
		noDefaultResolve:  gram.noDefaultResolve,
	}
	ptab, err := b.build()
	if err != nil {
		return nil, nil, err
	}

	cp, err := genCompiledParser(gram, ptab)
	if err != nil {
		return nil, nil, err
	}

	var report *spec.Report
	if cfg.reporting {
		report, err = genReport(gram, automaton, ptab, b, nullable, first, follow)
		if err != nil {
			return nil, nil, err
		}
	}

	return cp, report, nil
}

func genCompiledParser(gram *Grammar, ptab *ParsingTable) (*spec.CompiledParser, error) {
	symTab := gram.symTab

	symbols := make(map[string]int, symTab.count())
	names := make([]string, symTab.count())
	for i := 0; i < symTab.count(); i++ {
		text := symTab.text(symbol(i))
		symbols[text] = i
		names[i] = text
	}

	terminals := map[int]string{}
	for _, sym := range symTab.terminals() {
		terminals[sym.Int()] = symTab.text(sym)
	}

	prodTable := make([][2]int, gram.prods.count())
	for _, prod := range gram.prods.all() {
		prodTable[prod.num] = [2]int{prod.lhs.Int(), len(prod.rhs)}
	}

	table := make([]int, len(ptab.table))
	for i, e := range ptab.table {
		table[i] = int(e)
	}

	var defaults map[int]int
	if len(ptab.defaultActions) > 0 {
		defaults = make(map[int]int, len(ptab.defaultActions))
		for state, act := range ptab.defaultActions {
			defaults[state.Int()] = int(act)
		}
	}

	var conflictCells map[int][]int
	if len(ptab.conflictCells) > 0 {
		conflictCells = make(map[int][]int, len(ptab.conflictCells))
		for pos, acts := range ptab.conflictCells {
			cell := make([]int, len(acts))
			for i, a := range acts {
				cell[i] = int(a)
			}
			conflictCells[pos] = cell
		}
	}

	var groups []*spec.ActionGroup
	for _, g := range gram.actionGroups {
		prods := make([]int, len(g.prods))
		for i, num := range g.prods {
			prods[i] = num.Int()
		}
		groups = append(groups, &spec.ActionGroup{
			Body:        g.body,
			Productions: prods,
		})
	}

	return &spec.CompiledParser{
		Name:            gram.name,
		Symbols:         symbols,
		SymbolNames:     names,
		Terminals:       terminals,
		ProductionTable: prodTable,
		Table:           table,
		StateCount:      ptab.stateCount,
		SymbolCount:     ptab.symbolCount,
		InitialState:    ptab.InitialState.Int(),
		DefaultActions:  defaults,
		ConflictCells:   conflictCells,
		ActionGroups:    groups,
		ActionInclude:   gram.actionInclude,
		ModuleInclude:   gram.moduleInclude,
		ParseParams:     gram.parseParams,
	}, nil
}

func genReport(gram *Grammar, automaton *lr0Automaton, ptab *ParsingTable, b *lrTableBuilder, nullable nullableSet, first *firstSet, follow *followSet) (*spec.Report, error) {
	symTab := gram.symTab

	var terms []*spec.Terminal
	for _, sym := range symTab.terminals() {
		term := &spec.Terminal{
			Number: sym.Int(),
			Name:   symTab.text(sym),
		}
		if prec := gram.precAndAssoc.terminalPrecedence(sym); prec != precNil {
			term.Precedence = prec
		}
		if assoc := gram.precAndAssoc.terminalAssociativity(sym); assoc != assocTypeNil {
			term.Associativity = string(assoc)
		}
		terms = append(terms, term)
	}

	var nonTerms []*spec.NonTerminal
	for _, sym := range symTab.nonTerminals() {
		fst := first.findBySymbol(sym)
		flw, err := follow.find(sym)
		if err != nil {
			return nil, err
		}
		nonTerms = append(nonTerms, &spec.NonTerminal{
			Number:   sym.Int(),
			Name:     symTab.text(sym),
			Nullable: nullable.isNullable(sym),
			First:    symbolSetNames(fst.symbols, symTab),
			Follow:   symbolSetNames(flw.symbols, symTab),
		})
	}

	var prods []*spec.Production
	for _, prod := range gram.prods.all() {
		rhs := make([]string, len(prod.rhs))
		for i, sym := range prod.rhs {
			rhs[i] = symTab.text(sym)
		}
		p := &spec.Production{
			Number: prod.num.Int(),
			LHS:    symTab.text(prod.lhs),
			RHS:    rhs,
		}
		if prod.prec != precNil {
			p.Precedence = prod.prec
		}
		prods = append(prods, p)
	}

	var states []*spec.State
	for _, state := range automaton.byNum {
		s := &spec.State{
			Number:       state.num.Int(),
			HasConflicts: state.hasConflicts,
		}
		for _, item := range state.kernel.items {
			s.Kernel = append(s.Kernel, renderItem(item, symTab))
		}
		for _, item := range state.items {
			s.Items = append(s.Items, renderItem(item, symTab))
		}
		for _, sym := range state.nextSyms {
			next := automaton.states[state.next[sym]]
			tran := &spec.Transition{
				Symbol: symTab.text(sym),
				State:  next.num.Int(),
			}
			if symTab.isTerminal(sym) {
				s.Shift = append(s.Shift, tran)
			} else {
				s.GoTo = append(s.GoTo, tran)
			}
		}
		for _, item := range state.reductions {
			s.Reduce = append(s.Reduce, &spec.ReduceEntry{
				Production: item.prod.num.Int(),
				LookAhead:  symbolSetNames(item.lookAhead, symTab),
			})
		}
		predSyms := make([]symbol, 0, len(state.predecessors))
		for sym := range state.predecessors {
			predSyms = append(predSyms, sym)
		}
		sort.Slice(predSyms, func(i, j int) bool {
			return predSyms[i] < predSyms[j]
		})
		for _, sym := range predSyms {
			nums := make([]int, len(state.predecessors[sym]))
			for i, n := range state.predecessors[sym] {
				nums[i] = n.Int()
			}
			s.Predecessors = append(s.Predecessors, &spec.Edge{
				Symbol: symTab.text(sym),
				States: nums,
			})
		}
		states = append(states, s)
	}

	var resolutions []*spec.Resolution
	for _, res := range b.resolutions {
		resolutions = append(resolutions, renderResolution(res, symTab))
	}

	return &spec.Report{
		Terminals:    terms,
		NonTerminals: nonTerms,
		Productions:  prods,
		States:       states,
		Conflicts:    b.conflicts,
		Resolutions:  resolutions,
	}, nil
}

func symbolSetNames(set map[symbol]struct{}, symTab *symbolTable) []string {
	syms := make([]symbol, 0, len(set))
	for sym := range set {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})
	names := make([]string, len(syms))
	for i, sym := range syms {
		names[i] = symTab.text(sym)
	}
	return names
}

func renderItem(item *lrItem, symTab *symbolTable) string {
	var w strings.Builder
	fmt.Fprintf(&w, "%v →", symTab.text(item.prod.lhs))
	for i, sym := range item.prod.rhs {
		if i == item.dot {
			fmt.Fprintf(&w, "・%v", symTab.text(sym))
		} else {
			fmt.Fprintf(&w, " %v", symTab.text(sym))
		}
	}
	if item.reducible {
		w.WriteString("・")
	}
	return w.String()
}

func renderResolution(res *resolution, symTab *symbolTable) *spec.Resolution {
	r := &spec.Resolution{
		State:     res.state.Int(),
		Symbol:    symTab.text(res.sym),
		Type:      res.kind,
		Method:    string(res.method),
		ByDefault: res.byDefault,
	}

	shiftDesc := fmt.Sprintf("shift %v", res.nextState.Int())
	reduceDesc := func(num productionNum) string {
		return fmt.Sprintf("reduce %v", num.Int())
	}

	tag, target := res.chosen.describe()
	switch res.kind {
	case conflictKindShiftReduce:
		switch tag {
		case spec.ActionShift:
			r.Chosen = shiftDesc
			r.Discarded = reduceDesc(res.prodNum)
		case spec.ActionReduce:
			r.Chosen = reduceDesc(res.prodNum)
			r.Discarded = shiftDesc
		default:
			r.Chosen = "error"
			r.Discarded = fmt.Sprintf("%v, %v", shiftDesc, reduceDesc(res.prodNum))
		}
	case conflictKindReduceReduce:
		chosen := productionNum(target)
		discarded := res.prodNum
		if discarded == chosen {
			discarded = res.prodNum2
		}
		r.Chosen = reduceDesc(chosen)
		r.Discarded = reduceDesc(discarded)
	}

	return r
}
