package grammar

// assignLookAheads turns the LR(0) automaton into the LALR(1)
// approximation: every reduction item [A → α・] receives FOLLOW(A) as
// its lookahead set. Kernels merged during the collection already share
// their items, so the union over merged paths is FOLLOW(A) itself.
func assignLookAheads(automaton *lr0Automaton, follow *followSet) error {
	for _, state := range automaton.byNum {
		for _, item := range state.reductions {
			e, err := follow.find(item.prod.lhs)
			if err != nil {
				return err
			}
			if item.lookAhead == nil {
				item.lookAhead = map[symbol]struct{}{}
			}
			for sym := range e.symbols {
				item.lookAhead[sym] = struct{}{}
			}
		}
	}
	return nil
}
