package grammar

import (
	"fmt"
	"sort"
	"strings"
)

// lrItem is a production with a dot position. Two items are LR(0)-equal
// iff they share production and dot; lookaheads are merged onto
// reduction items rather than distinguishing them, which is what makes
// the automaton LALR rather than canonical LR(1).
//
// E → E + T
//
// Dot | Dotted Symbol | Item
// ----+---------------+------------
// 0   | E             | E →・E + T
// 1   | +             | E → E・+ T
// 2   | T             | E → E +・T
// 3   | Nil           | E → E + T・
type lrItem struct {
	prod *production
	dot  int

	dottedSymbol symbol

	// When reducible is true, the dot is at the end of the RHS.
	reducible bool

	// When kernel is true, the item is a kernel item: the dot has
	// advanced, or the item is the initial $accept item.
	kernel bool

	// lookAhead is assigned to reduction items after the automaton is
	// built.
	lookAhead map[symbol]struct{}
}

func newLRItem(prod *production, dot int) *lrItem {
	dottedSymbol := symbolNil
	if dot < len(prod.rhs) {
		dottedSymbol = prod.rhs[dot]
	}
	return &lrItem{
		prod:         prod,
		dot:          dot,
		dottedSymbol: dottedSymbol,
		reducible:    dot == len(prod.rhs),
		kernel:       dot > 0 || prod.num == productionNumAccept,
	}
}

// key is the LR(0) identity of the item.
func (i *lrItem) key() string {
	return fmt.Sprintf("%v.%v", int(i.prod.num), i.dot)
}

// kernelID is the canonical identity of a state: the sorted item keys
// of its kernel, joined. Lookaheads do not participate.
type kernelID string

type kernel struct {
	id    kernelID
	items []*lrItem
}

// newKernel deduplicates and sorts the items by (production, dot) and
// computes the canonical identity once; the id is queried many times
// while the collection is built.
func newKernel(items []*lrItem) (*kernel, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("a kernel needs at least one item")
	}
	uniq := map[string]*lrItem{}
	for _, item := range items {
		if !item.kernel {
			return nil, fmt.Errorf("not a kernel item: %v", item.key())
		}
		uniq[item.key()] = item
	}
	sortedItems := make([]*lrItem, 0, len(uniq))
	for _, item := range uniq {
		sortedItems = append(sortedItems, item)
	}
	sort.Slice(sortedItems, func(i, j int) bool {
		if sortedItems[i].prod.num != sortedItems[j].prod.num {
			return sortedItems[i].prod.num < sortedItems[j].prod.num
		}
		return sortedItems[i].dot < sortedItems[j].dot
	})

	keys := make([]string, len(sortedItems))
	for i, item := range sortedItems {
		keys[i] = item.key()
	}

	return &kernel{
		id:    kernelID(strings.Join(keys, " ")),
		items: sortedItems,
	}, nil
}

type stateNum int

const stateNumInitial = stateNum(0)

func (n stateNum) Int() int {
	return int(n)
}
