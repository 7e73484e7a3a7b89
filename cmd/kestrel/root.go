package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Generate an LALR(1) parsing table from a grammar",
	Long: `kestrel compiles a context-free grammar annotated with operator
precedence and semantic actions into a deterministic shift/reduce
parsing automaton, emitted as portable tables a table-driven runtime
consumes.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	return rootCmd.Execute()
}
