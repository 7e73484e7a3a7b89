package grammar

type productionNum int

const productionNumAccept = productionNum(0)

func (n productionNum) Int() int {
	return int(n)
}

// production is immutable after grammar loading. prec 0 means the
// production carries no precedence. action is the raw semantic-action
// body as written in the grammar, or empty.
type production struct {
	num    productionNum
	lhs    symbol
	rhs    []symbol
	prec   int
	action string
}

// productionSet numbers productions densely in declaration order.
// Number 0 is reserved for the accept production, which is attached
// after all user productions are in (augmentation prepends it
// logically).
type productionSet struct {
	prods     []*production
	lhs2Prods map[symbol][]*production
}

func newProductionSet() *productionSet {
	return &productionSet{
		prods:     make([]*production, 1),
		lhs2Prods: map[symbol][]*production{},
	}
}

func (ps *productionSet) append(lhs symbol, rhs []symbol) *production {
	prod := &production{
		num: productionNum(len(ps.prods)),
		lhs: lhs,
		rhs: rhs,
	}
	ps.prods = append(ps.prods, prod)
	ps.lhs2Prods[lhs] = append(ps.lhs2Prods[lhs], prod)
	return prod
}

func (ps *productionSet) setAccept(lhs symbol, rhs []symbol) *production {
	prod := &production{
		num: productionNumAccept,
		lhs: lhs,
		rhs: rhs,
	}
	ps.prods[0] = prod
	ps.lhs2Prods[lhs] = []*production{prod}
	return prod
}

func (ps *productionSet) findByNum(num productionNum) (*production, bool) {
	if num < 0 || int(num) >= len(ps.prods) || ps.prods[num] == nil {
		return nil, false
	}
	return ps.prods[num], true
}

func (ps *productionSet) findByLHS(lhs symbol) ([]*production, bool) {
	prods, ok := ps.lhs2Prods[lhs]
	return prods, ok
}

// all returns every production in numbering order, the accept
// production first.
func (ps *productionSet) all() []*production {
	return ps.prods
}

func (ps *productionSet) count() int {
	return len(ps.prods)
}
