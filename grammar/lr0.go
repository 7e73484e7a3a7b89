package grammar

import (
	"fmt"
	"sort"
)

// lrState is an LR(0) closure plus its transition map. predecessors is
// the reverse map; the edges recorded there are where the lookaheads of
// merged kernels meet.
type lrState struct {
	*kernel
	num stateNum

	// items is the closure, kernel items first.
	items []*lrItem

	next     map[symbol]kernelID
	nextSyms []symbol

	reductions   []*lrItem
	predecessors map[symbol][]stateNum

	hasShifts    bool
	hasConflicts bool
}

type lr0Automaton struct {
	initialState kernelID
	states       map[kernelID]*lrState

	// byNum orders the states by number; every deterministic walk over
	// the automaton uses it.
	byNum []*lrState
}

// genLR0Automaton computes the canonical collection: breadth-first over
// unexplored kernels, with goto successors visited in symbol order so
// that state numbering is reproducible.
func genLR0Automaton(prods *productionSet, symTab *symbolTable) (*lr0Automaton, error) {
	automaton := &lr0Automaton{
		states: map[kernelID]*lrState{},
	}

	acceptProds, ok := prods.findByLHS(symbolAccept)
	if !ok || len(acceptProds) == 0 {
		return nil, fmt.Errorf("the grammar was not augmented")
	}

	initialKernel, err := newKernel([]*lrItem{newLRItem(acceptProds[0], 0)})
	if err != nil {
		return nil, err
	}
	automaton.initialState = initialKernel.id

	currentState := stateNumInitial
	knownKernels := map[kernelID]struct{}{
		initialKernel.id: {},
	}
	uncheckedKernels := []*kernel{initialKernel}

	for len(uncheckedKernels) > 0 {
		nextUncheckedKernels := []*kernel{}
		for _, k := range uncheckedKernels {
			state, neighbours, err := genStateAndNeighbourKernels(k, prods, symTab)
			if err != nil {
				return nil, err
			}
			state.num = currentState
			currentState++

			automaton.states[state.id] = state
			automaton.byNum = append(automaton.byNum, state)

			for _, nk := range neighbours {
				if _, known := knownKernels[nk.id]; known {
					continue
				}
				knownKernels[nk.id] = struct{}{}
				nextUncheckedKernels = append(nextUncheckedKernels, nk)
			}
		}
		uncheckedKernels = nextUncheckedKernels
	}

	// Reverse edges, walked in state order so predecessor lists come
	// out sorted.
	for _, state := range automaton.byNum {
		for _, sym := range state.nextSyms {
			target := automaton.states[state.next[sym]]
			target.predecessors[sym] = append(target.predecessors[sym], state.num)
		}
	}

	return automaton, nil
}

func genStateAndNeighbourKernels(k *kernel, prods *productionSet, symTab *symbolTable) (*lrState, []*kernel, error) {
	items := genClosure(k, prods)
	neighbours, err := genNeighbourKernels(items)
	if err != nil {
		return nil, nil, err
	}

	next := map[symbol]kernelID{}
	nextSyms := make([]symbol, 0, len(neighbours))
	kernels := make([]*kernel, 0, len(neighbours))
	for _, n := range neighbours {
		next[n.symbol] = n.kernel.id
		nextSyms = append(nextSyms, n.symbol)
		kernels = append(kernels, n.kernel)
	}

	state := &lrState{
		kernel:       k,
		items:        items,
		next:         next,
		nextSyms:     nextSyms,
		predecessors: map[symbol][]stateNum{},
	}
	for _, item := range items {
		if item.reducible {
			state.reductions = append(state.reductions, item)
		}
		if item.dottedSymbol != symbolNil && symTab.isTerminal(item.dottedSymbol) {
			state.hasShifts = true
		}
	}
	state.hasConflicts = len(state.reductions) >= 2 ||
		(len(state.reductions) >= 1 && state.hasShifts)

	return state, kernels, nil
}

// genClosure expands a kernel: for every item with the dot before a
// non-terminal not yet expanded in this closure, add the dot-0 items of
// that non-terminal's productions.
func genClosure(k *kernel, prods *productionSet) []*lrItem {
	items := make([]*lrItem, len(k.items))
	copy(items, k.items)

	expanded := map[symbol]struct{}{}
	unchecked := items
	for len(unchecked) > 0 {
		nextUnchecked := []*lrItem{}
		for _, item := range unchecked {
			sym := item.dottedSymbol
			if sym == symbolNil {
				continue
			}
			ps, ok := prods.findByLHS(sym)
			if !ok {
				continue
			}
			if _, done := expanded[sym]; done {
				continue
			}
			expanded[sym] = struct{}{}
			for _, prod := range ps {
				newItem := newLRItem(prod, 0)
				items = append(items, newItem)
				nextUnchecked = append(nextUnchecked, newItem)
			}
		}
		unchecked = nextUnchecked
	}

	return items
}

type neighbourKernel struct {
	symbol symbol
	kernel *kernel
}

// genNeighbourKernels advances the dot over every dotted symbol of the
// closure and groups the results per symbol, in symbol order.
func genNeighbourKernels(items []*lrItem) ([]*neighbourKernel, error) {
	kItemMap := map[symbol][]*lrItem{}
	for _, item := range items {
		if item.dottedSymbol == symbolNil {
			continue
		}
		kItem := newLRItem(item.prod, item.dot+1)
		kItemMap[item.dottedSymbol] = append(kItemMap[item.dottedSymbol], kItem)
	}

	nextSyms := make([]symbol, 0, len(kItemMap))
	for sym := range kItemMap {
		nextSyms = append(nextSyms, sym)
	}
	sort.Slice(nextSyms, func(i, j int) bool {
		return nextSyms[i] < nextSyms[j]
	})

	kernels := make([]*neighbourKernel, 0, len(nextSyms))
	for _, sym := range nextSyms {
		k, err := newKernel(kItemMap[sym])
		if err != nil {
			return nil, err
		}
		kernels = append(kernels, &neighbourKernel{
			symbol: sym,
			kernel: k,
		})
	}
	return kernels, nil
}
