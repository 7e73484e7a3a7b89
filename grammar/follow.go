package grammar

import "fmt"

// followEntry is a FOLLOW set of terminal ids. The end-of-input marker
// is an ordinary terminal here, so it needs no separate flag; it enters
// FOLLOW(S) through the accept production $accept → S $end.
type followEntry struct {
	symbols map[symbol]struct{}
}

func newFollowEntry() *followEntry {
	return &followEntry{
		symbols: map[symbol]struct{}{},
	}
}

func (e *followEntry) add(sym symbol) bool {
	if _, ok := e.symbols[sym]; ok {
		return false
	}
	e.symbols[sym] = struct{}{}
	return true
}

func (e *followEntry) mergeFirst(fst *firstEntry) bool {
	if fst == nil {
		return false
	}
	changed := false
	for sym := range fst.symbols {
		if e.add(sym) {
			changed = true
		}
	}
	return changed
}

func (e *followEntry) mergeFollow(flw *followEntry) bool {
	if flw == nil {
		return false
	}
	changed := false
	for sym := range flw.symbols {
		if e.add(sym) {
			changed = true
		}
	}
	return changed
}

type followSet struct {
	set map[symbol]*followEntry
}

func newFollowSet(prods *productionSet) *followSet {
	flw := &followSet{
		set: map[symbol]*followEntry{},
	}
	for _, prod := range prods.all() {
		if _, ok := flw.set[prod.lhs]; ok {
			continue
		}
		flw.set[prod.lhs] = newFollowEntry()
	}
	return flw
}

func (flw *followSet) find(sym symbol) (*followEntry, error) {
	e, ok := flw.set[sym]
	if !ok {
		return nil, fmt.Errorf("an entry of FOLLOW was not found; symbol: %v", int(sym))
	}
	return e, nil
}

// genFollowSet runs the FOLLOW fixed point: for every production
// A → X₁…Xₙ and non-terminal Xᵢ, FOLLOW(Xᵢ) absorbs FIRST(Xᵢ₊₁…Xₙ),
// and additionally FOLLOW(A) when that suffix is nullable.
func genFollowSet(prods *productionSet, symTab *symbolTable, first *firstSet) (*followSet, error) {
	flw := newFollowSet(prods)
	for {
		more := false
		for _, prod := range prods.all() {
			for i, sym := range prod.rhs {
				if !symTab.isNonTerminal(sym) {
					continue
				}
				e, err := flw.find(sym)
				if err != nil {
					return nil, err
				}
				fst, nullable, err := first.find(prod, i+1)
				if err != nil {
					return nil, err
				}
				if e.mergeFirst(fst) {
					more = true
				}
				if nullable {
					lhsFlw, err := flw.find(prod.lhs)
					if err != nil {
						return nil, err
					}
					if e.mergeFollow(lhsFlw) {
						more = true
					}
				}
			}
		}
		if !more {
			break
		}
	}
	return flw, nil
}
