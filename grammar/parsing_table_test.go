package grammar

import (
	"testing"

	"github.com/kestrel-dev/kestrel/spec"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func compileTestGrammar(t *testing.T, d *spec.GrammarDef) (*spec.CompiledParser, *spec.Report) {
	t.Helper()
	g := newTestGrammar(t, d)
	cp, report, err := Compile(g, EnableReporting())
	if err != nil {
		t.Fatal(err)
	}
	return cp, report
}

func actionAt(t *testing.T, cp *spec.CompiledParser, state int, symName string) (int, int) {
	t.Helper()
	sym, ok := cp.Symbols[symName]
	if !ok {
		t.Fatalf("symbol %v is not in the compiled symbol table", symName)
	}
	return spec.DecodeAction(cp.Table[state*cp.SymbolCount+sym])
}

// Classic arithmetic with precedence: every conflict is settled by the
// operator table, so nothing is resolved "by default" and the conflict
// counter stays at zero.
func TestBuild_precedenceResolution(t *testing.T) {
	d := def(
		rule("e",
			alt("e", "+", "e"),
			alt("e", "*", "e"),
			alt("(", "e", ")"),
			alt("id"),
		),
	)
	d.Operators = []spec.OperatorGroup{left("+"), left("*")}
	_, report := compileTestGrammar(t, d)

	if report.Conflicts != 0 {
		t.Fatalf("every conflict must be resolved by precedence: conflicts: %v", report.Conflicts)
	}
	if len(report.Resolutions) == 0 {
		t.Fatal("the resolutions log must record the arbitrated cells")
	}
	for _, res := range report.Resolutions {
		if res.ByDefault {
			t.Errorf("state %v on %v: resolved by default", res.State, res.Symbol)
		}
		if res.Method != string(resolvedByPrec) && res.Method != string(resolvedByAssoc) {
			t.Errorf("state %v on %v: unexpected method %v", res.State, res.Symbol, res.Method)
		}
	}

	// After e + e, a lookahead * must shift (binds tighter), and a
	// lookahead + must reduce (left associative).
	var sawShiftOnStar, sawReduceOnPlus bool
	for _, res := range report.Resolutions {
		if res.Discarded == "reduce 1" || res.Chosen == "reduce 1" {
			switch res.Symbol {
			case "*":
				if res.Chosen[:5] == "shift" {
					sawShiftOnStar = true
				}
			case "+":
				if res.Chosen == "reduce 1" {
					sawReduceOnPlus = true
				}
			}
		}
	}
	if !sawShiftOnStar || !sawReduceOnPlus {
		t.Errorf("expected * to shift over reducing e+e and + to reduce: %v %v", sawShiftOnStar, sawReduceOnPlus)
	}
}

// Dangling else: exactly one shift/reduce conflict, resolved to the
// greedy shift by default.
func TestBuild_danglingElse(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kestrel.grammar")
	defer teardown()

	d := def(
		rule("s",
			alt("if", "e", "then", "s"),
			alt("if", "e", "then", "s", "else", "s"),
			alt("x"),
		),
		rule("e", alt("cond")),
	)
	_, report := compileTestGrammar(t, d)

	if report.Conflicts != 1 {
		t.Fatalf("unexpected conflict count: want: 1, got: %v", report.Conflicts)
	}
	byDefault := []*spec.Resolution{}
	for _, res := range report.Resolutions {
		if res.ByDefault {
			byDefault = append(byDefault, res)
		}
	}
	if len(byDefault) != 1 {
		t.Fatalf("unexpected by-default resolution count: %v", len(byDefault))
	}
	res := byDefault[0]
	if res.Type != conflictKindShiftReduce || res.Symbol != "else" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if res.Method != string(resolvedByShift) || res.Chosen[:5] != "shift" {
		t.Fatalf("the dangling else must resolve to a shift: %+v", res)
	}
}

// Reduce/reduce: the lower-numbered production wins and the conflict is
// counted.
func TestBuild_reduceReduce(t *testing.T) {
	d := def(
		rule("s", alt("a"), alt("b")),
		rule("a", alt("x")),
		rule("b", alt("x")),
	)
	cp, report := compileTestGrammar(t, d)

	if report.Conflicts != 1 {
		t.Fatalf("unexpected conflict count: want: 1, got: %v", report.Conflicts)
	}
	res := report.Resolutions[0]
	if res.Type != conflictKindReduceReduce || res.Symbol != spec.SymbolNameEOF {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if res.Chosen != "reduce 3" || res.Discarded != "reduce 4" {
		t.Fatalf("the lower-numbered production must win: %+v", res)
	}

	// The winning reduction is in the table.
	tag, target := actionAt(t, cp, stateAfterShift(t, cp, "x"), spec.SymbolNameEOF)
	if tag != spec.ActionReduce || target != 3 {
		t.Fatalf("unexpected cell: tag %v target %v", tag, target)
	}
}

// stateAfterShift finds the state entered by shifting the terminal from
// state 0.
func stateAfterShift(t *testing.T, cp *spec.CompiledParser, symName string) int {
	t.Helper()
	tag, target := actionAt(t, cp, cp.InitialState, symName)
	if tag != spec.ActionShift {
		t.Fatalf("state 0 must shift %v", symName)
	}
	return target
}

// Default-action compression: a state whose only distinct action is one
// reduction appears in defaultActions, and only such states do.
func TestBuild_defaultActions(t *testing.T) {
	d := def(
		rule("s", alt("a")),
		rule("a", alt("tok")),
	)
	cp, _ := compileTestGrammar(t, d)

	target := stateAfterShift(t, cp, "tok")
	act, ok := cp.DefaultActions[target]
	if !ok {
		t.Fatalf("the state after shifting tok must have a default action")
	}
	tag, prod := spec.DecodeAction(act)
	if tag != spec.ActionReduce || prod != 2 {
		t.Fatalf("unexpected default action: tag %v target %v", tag, prod)
	}

	checkDefaultActionInvariant(t, cp)
}

func checkDefaultActionInvariant(t *testing.T, cp *spec.CompiledParser) {
	t.Helper()
	for state := 0; state < cp.StateCount; state++ {
		distinct := map[int]struct{}{}
		for sym := 0; sym < cp.SymbolCount; sym++ {
			if e := cp.Table[state*cp.SymbolCount+sym]; e != 0 {
				distinct[e] = struct{}{}
			}
		}
		var want bool
		if len(distinct) == 1 {
			for e := range distinct {
				if tag, _ := spec.DecodeAction(e); tag == spec.ActionReduce {
					want = true
				}
			}
		}
		_, got := cp.DefaultActions[state]
		if want != got {
			t.Errorf("state %v: defaultActions membership must be %v", state, want)
		}
	}
}

// Nonassoc operators at equal precedence leave an error cell.
func TestBuild_nonassocErrorCell(t *testing.T) {
	d := def(
		rule("e", alt("e", "=", "e"), alt("id")),
	)
	d.Operators = []spec.OperatorGroup{nonassoc("=")}
	cp, report := compileTestGrammar(t, d)

	if report.Conflicts != 0 {
		t.Fatalf("a nonassoc resolution is not a by-default conflict: %v", report.Conflicts)
	}
	var res *spec.Resolution
	for _, r := range report.Resolutions {
		if r.Method == string(resolvedByNonAssoc) {
			res = r
			break
		}
	}
	if res == nil {
		t.Fatal("the nonassoc arbitration must be logged")
	}
	if res.Chosen != "error" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if tag, _ := actionAt(t, cp, res.State, "="); tag != spec.ActionEmpty {
		t.Fatal("the arbitrated cell must be empty")
	}
}

// The conflict counter equals the number of by-default entries in the
// resolutions log.
func TestBuild_conflictCounter(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kestrel.grammar")
	defer teardown()

	d := def(
		rule("s",
			alt("if", "e", "then", "s"),
			alt("if", "e", "then", "s", "else", "s"),
			alt("a"),
			alt("b"),
		),
		rule("e", alt("cond")),
		rule("a", alt("x")),
		rule("b", alt("x")),
	)
	_, report := compileTestGrammar(t, d)

	byDefault := 0
	for _, res := range report.Resolutions {
		if res.ByDefault {
			byDefault++
		}
	}
	if report.Conflicts != byDefault {
		t.Fatalf("conflicts (%v) must equal the by-default resolutions (%v)", report.Conflicts, byDefault)
	}
	if report.Conflicts < 2 {
		t.Fatalf("the grammar carries both conflict kinds: got %v", report.Conflicts)
	}
}

// On-demand lookahead thins the table without changing the automaton.
func TestBuild_onDemandLookaheadDensity(t *testing.T) {
	build := func(onDemand bool) *spec.CompiledParser {
		d := def(
			rule("s", alt("a")),
			rule("a", alt("tok")),
		)
		d.Options.OnDemandLookahead = onDemand
		cp, _ := compileTestGrammar(t, d)
		return cp
	}

	dense := build(false)
	sparse := build(true)

	count := func(cp *spec.CompiledParser) int {
		n := 0
		for _, e := range cp.Table {
			if e != 0 {
				n++
			}
		}
		return n
	}
	if count(sparse) >= count(dense) {
		t.Fatalf("on-demand lookahead must thin the table: %v vs %v", count(sparse), count(dense))
	}
	if dense.StateCount != sparse.StateCount {
		t.Fatalf("the automaton must not change: %v vs %v states", dense.StateCount, sparse.StateCount)
	}

	checkDefaultActionInvariant(t, dense)
	checkDefaultActionInvariant(t, sparse)

	// S5 must hold in both modes.
	for _, cp := range []*spec.CompiledParser{dense, sparse} {
		target := stateAfterShift(t, cp, "tok")
		if _, ok := cp.DefaultActions[target]; !ok {
			t.Fatal("the single-reduction state must be compressed in both modes")
		}
	}
}

// noDefaultResolve retains every candidate of an ambiguous cell.
func TestBuild_noDefaultResolve(t *testing.T) {
	d := def(
		rule("s", alt("a"), alt("b")),
		rule("a", alt("x")),
		rule("b", alt("x")),
	)
	d.Options.NoDefaultResolve = true
	cp, report := compileTestGrammar(t, d)

	if report.Conflicts != 1 {
		t.Fatalf("retention still counts the conflict: %v", report.Conflicts)
	}
	if len(cp.ConflictCells) != 1 {
		t.Fatalf("unexpected retained cell count: %v", len(cp.ConflictCells))
	}
	for pos, acts := range cp.ConflictCells {
		if tag, _ := spec.DecodeAction(cp.Table[pos]); tag != spec.ActionConflict {
			t.Fatal("the retained cell must carry the conflict tag")
		}
		if len(acts) != 2 {
			t.Fatalf("both candidates must be retained: %v", acts)
		}
		for _, a := range acts {
			if tag, _ := spec.DecodeAction(a); tag != spec.ActionReduce {
				t.Fatalf("unexpected retained action: %v", a)
			}
		}
	}
}
