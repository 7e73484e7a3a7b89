package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	verr "github.com/kestrel-dev/kestrel/error"
	"github.com/kestrel-dev/kestrel/grammar"
	"github.com/kestrel-dev/kestrel/spec"
	"github.com/spf13/cobra"
)

var compileFlags = struct {
	output *string
	report *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile",
		Short:   "Compile a grammar into a parsing table",
		Example: `  kestrel compile grammar.json -o parser.json --report report.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	compileFlags.report = cmd.Flags().String("report", "", "write a report of the automaton and its conflicts")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	srcName := "stdin"
	var src io.Reader = os.Stdin
	if len(args) > 0 {
		srcName = args[0]
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("cannot open the grammar file %s: %w", args[0], err)
		}
		defer f.Close()
		src = f
	}

	def, err := readGrammarDef(src)
	if err != nil {
		return &verr.SpecError{Cause: err, SourceName: srcName}
	}

	gram, err := grammar.NewGrammar(def)
	if err != nil {
		return &verr.SpecError{Cause: err, SourceName: srcName}
	}

	cp, report, err := grammar.Compile(gram, grammar.EnableReporting())
	if err != nil {
		return &verr.SpecError{Cause: err, SourceName: srcName}
	}

	if err := writeJSON(cp, *compileFlags.output); err != nil {
		return fmt.Errorf("cannot write the compiled parser: %w", err)
	}
	if *compileFlags.report != "" {
		if err := writeJSON(report, *compileFlags.report); err != nil {
			return fmt.Errorf("cannot write the report: %w", err)
		}
	}
	if report.Conflicts > 0 {
		fmt.Fprintf(os.Stdout, "%v conflicts\n", report.Conflicts)
	}

	return nil
}

func readGrammarDef(src io.Reader) (*spec.GrammarDef, error) {
	d, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	def := &spec.GrammarDef{}
	if err := json.Unmarshal(d, def); err != nil {
		return nil, err
	}
	return def, nil
}

func writeJSON(v interface{}, path string) error {
	d, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w := os.Stdout
	if path != "" {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(d); err != nil {
		return err
	}
	return nil
}
