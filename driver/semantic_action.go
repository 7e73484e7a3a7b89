package driver

// ActionContext is the state a semantic action sees. Val and Loc are
// the result slots ($$ and @$): Val is preset to the value of the first
// RHS symbol and Loc to the merged span of the reduced range; whatever
// the action leaves there is pushed by the following goto. Values and
// Locations expose the live stacks so an action can address the RHS
// slots at offsets k-|rhs| from the top.
type ActionContext struct {
	Val interface{}
	Loc *Location

	// The last shifted token.
	Text   string
	Leng   int
	Lineno int

	YY        SharedContext
	Values    []interface{}
	Locations []*Location

	// Params carries the parser-wide parse parameters by name.
	Params map[string]interface{}
}

// PerformAction dispatches on the production being reduced. Returning
// done == true terminates the parse immediately with ret as the parse
// result; YYACCEPT and YYABORT map to (true, true) and (false, true).
// A non-nil error aborts the parse.
type PerformAction func(ctx *ActionContext, prod int) (ret interface{}, done bool, err error)
