package grammar

import (
	"sort"

	"github.com/kestrel-dev/kestrel/spec"
)

type actionEntry int

const actionEntryEmpty = actionEntry(0)

func newShiftActionEntry(state stateNum) actionEntry {
	return actionEntry(spec.EncodeAction(spec.ActionShift, state.Int()))
}

func newReduceActionEntry(prod productionNum) actionEntry {
	return actionEntry(spec.EncodeAction(spec.ActionReduce, prod.Int()))
}

func newAcceptActionEntry() actionEntry {
	return actionEntry(spec.EncodeAction(spec.ActionAccept, 0))
}

func newGoToActionEntry(state stateNum) actionEntry {
	return actionEntry(spec.EncodeAction(spec.ActionGoTo, state.Int()))
}

func newConflictActionEntry() actionEntry {
	return actionEntry(spec.EncodeAction(spec.ActionConflict, 0))
}

func (e actionEntry) isEmpty() bool {
	return e == actionEntryEmpty
}

func (e actionEntry) describe() (int, int) {
	return spec.DecodeAction(int(e))
}

// ParsingTable is the dense action/goto table: row-major over
// states × symbols, shift/reduce/accept under terminal columns and goto
// under non-terminal columns. defaultActions maps states that always
// perform the same reduction regardless of the lookahead.
type ParsingTable struct {
	table       []actionEntry
	stateCount  int
	symbolCount int

	defaultActions map[stateNum]actionEntry
	conflictCells  map[int][]actionEntry

	InitialState stateNum
}

func (t *ParsingTable) readCell(state stateNum, sym symbol) actionEntry {
	return t.table[state.Int()*t.symbolCount+sym.Int()]
}

func (t *ParsingTable) writeCell(state stateNum, sym symbol, act actionEntry) {
	t.table[state.Int()*t.symbolCount+sym.Int()] = act
}

type resolutionMethod string

const (
	resolvedByPrec      = resolutionMethod("precedence")
	resolvedByAssoc     = resolutionMethod("associativity")
	resolvedByShift     = resolutionMethod("shift by default")
	resolvedByProdOrder = resolutionMethod("production order")
	resolvedByNonAssoc  = resolutionMethod("nonassoc")
)

const (
	conflictKindShiftReduce  = "shift/reduce"
	conflictKindReduceReduce = "reduce/reduce"
)

// resolution is one entry of the per-cell audit log. byDefault marks
// the arbitrations counted as conflicts: a shift taken because
// precedence was missing, or a reduce/reduce decided by production
// order.
type resolution struct {
	state     stateNum
	sym       symbol
	kind      string
	nextState stateNum      // shift/reduce: the shift target
	prodNum   productionNum // the reduce candidate
	prodNum2  productionNum // reduce/reduce: the other candidate
	chosen    actionEntry   // empty means the cell was erased (nonassoc)
	method    resolutionMethod
	byDefault bool
}

type lrTableBuilder struct {
	automaton         *lr0Automaton
	prods             *productionSet
	symTab            *symbolTable
	precAndAssoc      *precAndAssoc
	onDemandLookahead bool
	noDefaultResolve  bool

	conflicts   int
	resolutions []*resolution
}

func (b *lrTableBuilder) build() (*ParsingTable, error) {
	initialState := b.automaton.states[b.automaton.initialState]
	ptab := &ParsingTable{
		table:          make([]actionEntry, len(b.automaton.states)*b.symTab.count()),
		stateCount:     len(b.automaton.states),
		symbolCount:    b.symTab.count(),
		defaultActions: map[stateNum]actionEntry{},
		conflictCells:  map[int][]actionEntry{},
		InitialState:   initialState.num,
	}

	for _, state := range b.automaton.byNum {
		for _, sym := range state.nextSyms {
			nextState := b.automaton.states[state.next[sym]]
			if b.symTab.isTerminal(sym) {
				ptab.writeCell(state.num, sym, newShiftActionEntry(nextState.num))
			} else {
				ptab.writeCell(state.num, sym, newGoToActionEntry(nextState.num))
			}
		}

		for _, item := range state.items {
			if item.dottedSymbol == symbolEOF {
				ptab.writeCell(state.num, symbolEOF, newAcceptActionEntry())
				break
			}
		}

		for _, item := range state.reductions {
			if item.prod.num == productionNumAccept {
				continue
			}
			for _, la := range b.reduceLookAheads(state, item) {
				b.writeReduceAction(ptab, state, la, item.prod.num)
			}
		}
	}

	b.findDefaults(ptab)

	return ptab, nil
}

// reduceLookAheads selects the terminals a reduction is written under.
// With on-demand lookahead, and always in conflicted states, the item's
// FOLLOW-derived lookahead set is used; otherwise the reduction applies
// under every terminal.
func (b *lrTableBuilder) reduceLookAheads(state *lrState, item *lrItem) []symbol {
	if b.onDemandLookahead || state.hasConflicts {
		las := make([]symbol, 0, len(item.lookAhead))
		for sym := range item.lookAhead {
			las = append(las, sym)
		}
		sort.Slice(las, func(i, j int) bool {
			return las[i] < las[j]
		})
		return las
	}
	return b.symTab.terminals()
}

func (b *lrTableBuilder) writeReduceAction(ptab *ParsingTable, state *lrState, sym symbol, prod productionNum) {
	act := ptab.readCell(state.num, sym)
	if act.isEmpty() {
		ptab.writeCell(state.num, sym, newReduceActionEntry(prod))
		return
	}

	tag, target := act.describe()
	switch tag {
	case spec.ActionAccept:
		// The accepting configuration is unique; a reduction under $end
		// never displaces it.
		return
	case spec.ActionShift:
		b.resolveShiftReduce(ptab, state, sym, stateNum(target), prod)
	case spec.ActionReduce:
		if productionNum(target) == prod {
			return
		}
		b.resolveReduceReduce(ptab, state, sym, productionNum(target), prod)
	case spec.ActionConflict:
		pos := state.num.Int()*ptab.symbolCount + sym.Int()
		ptab.conflictCells[pos] = append(ptab.conflictCells[pos], newReduceActionEntry(prod))
	}
}

// resolveShiftReduce arbitrates a shift/reduce conflict through the
// operator table: the production precedence against the terminal's
// precedence, associativity breaking ties. A missing precedence on
// either side selects the shift "by default", which counts as a
// conflict. Equal precedence under a nonassoc operator erases the cell.
func (b *lrTableBuilder) resolveShiftReduce(ptab *ParsingTable, state *lrState, sym symbol, nextState stateNum, prod productionNum) {
	p, ok := b.prods.findByNum(prod)
	if !ok {
		return
	}
	prodPrec := p.prec
	termPrec := b.precAndAssoc.terminalPrecedence(sym)

	res := &resolution{
		state:     state.num,
		sym:       sym,
		kind:      conflictKindShiftReduce,
		nextState: nextState,
		prodNum:   prod,
	}

	switch {
	case prodPrec == precNil || termPrec == precNil:
		res.chosen = newShiftActionEntry(nextState)
		res.method = resolvedByShift
		res.byDefault = true
	case prodPrec < termPrec:
		res.chosen = newShiftActionEntry(nextState)
		res.method = resolvedByPrec
	case prodPrec > termPrec:
		res.chosen = newReduceActionEntry(prod)
		res.method = resolvedByPrec
	default:
		switch b.precAndAssoc.terminalAssociativity(sym) {
		case assocTypeLeft:
			res.chosen = newReduceActionEntry(prod)
			res.method = resolvedByAssoc
		case assocTypeRight:
			res.chosen = newShiftActionEntry(nextState)
			res.method = resolvedByAssoc
		default:
			res.chosen = actionEntryEmpty
			res.method = resolvedByNonAssoc
		}
	}

	b.record(res)

	if res.byDefault && b.noDefaultResolve {
		b.retainConflict(ptab, state.num, sym, newShiftActionEntry(nextState), newReduceActionEntry(prod))
		return
	}
	ptab.writeCell(state.num, sym, res.chosen)
}

// resolveReduceReduce keeps the lower-numbered production. This is
// always a by-default resolution.
func (b *lrTableBuilder) resolveReduceReduce(ptab *ParsingTable, state *lrState, sym symbol, prod1, prod2 productionNum) {
	chosen := prod1
	if prod2 < prod1 {
		chosen = prod2
	}

	res := &resolution{
		state:     state.num,
		sym:       sym,
		kind:      conflictKindReduceReduce,
		prodNum:   prod1,
		prodNum2:  prod2,
		chosen:    newReduceActionEntry(chosen),
		method:    resolvedByProdOrder,
		byDefault: true,
	}
	b.record(res)

	if b.noDefaultResolve {
		b.retainConflict(ptab, state.num, sym, newReduceActionEntry(prod1), newReduceActionEntry(prod2))
		return
	}
	ptab.writeCell(state.num, sym, res.chosen)
}

func (b *lrTableBuilder) record(res *resolution) {
	b.resolutions = append(b.resolutions, res)
	if res.byDefault {
		b.conflicts++
		tracer().Infof("state %v: %v conflict on %v resolved by %v",
			res.state.Int(), res.kind, b.symTab.text(res.sym), res.method)
	}
}

// retainConflict keeps every candidate of an ambiguous cell so that
// downstream tooling can report the ambiguity. The cell is marked; a
// parser that reaches it fails.
func (b *lrTableBuilder) retainConflict(ptab *ParsingTable, state stateNum, sym symbol, acts ...actionEntry) {
	pos := state.Int()*ptab.symbolCount + sym.Int()
	if existing, ok := ptab.conflictCells[pos]; ok {
		ptab.conflictCells[pos] = append(existing, acts[1:]...)
		return
	}
	ptab.conflictCells[pos] = acts
	ptab.writeCell(state, sym, newConflictActionEntry())
}

// findDefaults records the states whose whole row holds exactly one
// distinct action and that action is a reduction; a lookup into such a
// state returns the reduction without consulting the lookahead. A state
// holding a cell erased by a nonassoc resolution is never compressed, so
// that the error cell is still consulted at parse time.
func (b *lrTableBuilder) findDefaults(ptab *ParsingTable) {
	erased := map[stateNum]struct{}{}
	for _, res := range b.resolutions {
		if res.method == resolvedByNonAssoc {
			erased[res.state] = struct{}{}
		}
	}
	for _, state := range b.automaton.byNum {
		if _, ok := erased[state.num]; ok {
			continue
		}
		var single actionEntry
		uniform := true
		for sym := 0; sym < ptab.symbolCount; sym++ {
			act := ptab.readCell(state.num, symbol(sym))
			if act.isEmpty() {
				continue
			}
			if single != actionEntryEmpty && act != single {
				uniform = false
				break
			}
			single = act
		}
		if !uniform || single == actionEntryEmpty {
			continue
		}
		if tag, _ := single.describe(); tag == spec.ActionReduce {
			ptab.defaultActions[state.num] = single
		}
	}
}
