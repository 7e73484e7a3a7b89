package grammar

import "fmt"

// nullableSet holds the non-terminals that derive the empty string.
// Terminals are never members.
type nullableSet map[symbol]struct{}

func (s nullableSet) isNullable(sym symbol) bool {
	_, ok := s[sym]
	return ok
}

// genNullableSet runs the nullable fixed point: a production is
// nullable iff every RHS symbol is nullable (the empty RHS trivially
// so), and a non-terminal is nullable iff any of its productions is.
func genNullableSet(prods *productionSet) nullableSet {
	nullable := nullableSet{}
	for {
		changed := false
		for _, prod := range prods.all() {
			if nullable.isNullable(prod.lhs) {
				continue
			}
			allNullable := true
			for _, sym := range prod.rhs {
				if !nullable.isNullable(sym) {
					allNullable = false
					break
				}
			}
			if allNullable {
				nullable[prod.lhs] = struct{}{}
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return nullable
}

type firstEntry struct {
	symbols map[symbol]struct{}
}

func newFirstEntry() *firstEntry {
	return &firstEntry{
		symbols: map[symbol]struct{}{},
	}
}

func (e *firstEntry) add(sym symbol) bool {
	if _, ok := e.symbols[sym]; ok {
		return false
	}
	e.symbols[sym] = struct{}{}
	return true
}

func (e *firstEntry) merge(target *firstEntry) bool {
	if target == nil {
		return false
	}
	changed := false
	for sym := range target.symbols {
		if e.add(sym) {
			changed = true
		}
	}
	return changed
}

type firstSet struct {
	set      map[symbol]*firstEntry
	symTab   *symbolTable
	nullable nullableSet
}

func newFirstSet(prods *productionSet, symTab *symbolTable, nullable nullableSet) *firstSet {
	fst := &firstSet{
		set:      map[symbol]*firstEntry{},
		symTab:   symTab,
		nullable: nullable,
	}
	for _, prod := range prods.all() {
		if _, ok := fst.set[prod.lhs]; ok {
			continue
		}
		fst.set[prod.lhs] = newFirstEntry()
	}
	return fst
}

func (fst *firstSet) findBySymbol(sym symbol) *firstEntry {
	return fst.set[sym]
}

// find computes FIRST of the RHS suffix rhs[head:]. The second result
// reports whether the whole suffix is nullable.
func (fst *firstSet) find(prod *production, head int) (*firstEntry, bool, error) {
	entry := newFirstEntry()
	if head >= len(prod.rhs) {
		return entry, true, nil
	}
	for _, sym := range prod.rhs[head:] {
		if fst.symTab.isTerminal(sym) {
			entry.add(sym)
			return entry, false, nil
		}
		e := fst.findBySymbol(sym)
		if e == nil {
			return nil, false, fmt.Errorf("an entry of FIRST was not found; symbol: %v", fst.symTab.text(sym))
		}
		entry.merge(e)
		if !fst.nullable.isNullable(sym) {
			return entry, false, nil
		}
	}
	return entry, true, nil
}

// genFirstSet runs the FIRST fixed point over the production set,
// walking productions in numbering order so that iteration is
// deterministic.
func genFirstSet(prods *productionSet, symTab *symbolTable, nullable nullableSet) (*firstSet, error) {
	fst := newFirstSet(prods, symTab, nullable)
	for {
		more := false
		for _, prod := range prods.all() {
			acc := fst.findBySymbol(prod.lhs)
			changed, err := genProdFirstEntry(fst, acc, prod)
			if err != nil {
				return nil, err
			}
			if changed {
				more = true
			}
		}
		if !more {
			break
		}
	}
	return fst, nil
}

func genProdFirstEntry(fst *firstSet, acc *firstEntry, prod *production) (bool, error) {
	changed := false
	for _, sym := range prod.rhs {
		if fst.symTab.isTerminal(sym) {
			if acc.add(sym) {
				changed = true
			}
			return changed, nil
		}
		e := fst.findBySymbol(sym)
		if e == nil {
			return false, fmt.Errorf("an entry of FIRST was not found; symbol: %v", fst.symTab.text(sym))
		}
		if acc.merge(e) {
			changed = true
		}
		if !fst.nullable.isNullable(sym) {
			return changed, nil
		}
	}
	return changed, nil
}
