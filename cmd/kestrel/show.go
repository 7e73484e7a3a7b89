package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/kestrel-dev/kestrel/spec"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "show",
		Short:   "Print a report in a readable format",
		Example: `  kestrel show report.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runShow,
	}
	rootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	report, err := readReport(args[0])
	if err != nil {
		return err
	}
	return writeReport(os.Stdout, report)
}

func readReport(path string) (*spec.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open the report %s: %w", path, err)
	}
	defer f.Close()

	d, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	report := &spec.Report{}
	if err := json.Unmarshal(d, report); err != nil {
		return nil, err
	}
	return report, nil
}

const reportTemplate = `# Conflicts

{{ printConflictSummary . }}

# Terminals

{{ range .Terminals -}}
{{ printTerminal . }}
{{ end }}
# Productions

{{ range .Productions -}}
{{ printProduction . }}
{{ end }}
# States
{{ range .States }}
## State {{ .Number }}

{{ range .Kernel -}}
{{ . }}
{{ end }}
{{ range .Shift -}}
shift on {{ .Symbol }} to state {{ .State }}
{{ end -}}
{{ range .Reduce -}}
{{ printReduce . }}
{{ end -}}
{{ range .GoTo -}}
goto on {{ .Symbol }} to state {{ .State }}
{{ end -}}
{{ range .Predecessors -}}
{{ printPredecessor . }}
{{ end -}}
{{ end }}
# Resolutions

{{ range .Resolutions -}}
{{ printResolution . }}
{{ end -}}
`

func writeReport(w io.Writer, report *spec.Report) error {
	fns := template.FuncMap{
		"printConflictSummary": func(report *spec.Report) string {
			if report.Conflicts == 0 {
				return "no conflicts were detected"
			}
			if report.Conflicts == 1 {
				return "1 conflict was detected"
			}
			return fmt.Sprintf("%v conflicts were detected", report.Conflicts)
		},
		"printTerminal": func(term *spec.Terminal) string {
			var prec string
			if term.Precedence != 0 {
				prec = fmt.Sprintf(" prec=%v assoc=%v", term.Precedence, term.Associativity)
			}
			return fmt.Sprintf("%4v %v%v", term.Number, term.Name, prec)
		},
		"printProduction": func(prod *spec.Production) string {
			rhs := strings.Join(prod.RHS, " ")
			if rhs == "" {
				rhs = "ε"
			}
			return fmt.Sprintf("%4v %v → %v", prod.Number, prod.LHS, rhs)
		},
		"printReduce": func(entry *spec.ReduceEntry) string {
			return fmt.Sprintf("reduce by production %v on %v", entry.Production, strings.Join(entry.LookAhead, ", "))
		},
		"printPredecessor": func(edge *spec.Edge) string {
			states := make([]string, len(edge.States))
			for i, s := range edge.States {
				states[i] = fmt.Sprintf("%v", s)
			}
			return fmt.Sprintf("reached on %v from state %v", edge.Symbol, strings.Join(states, ", "))
		},
		"printResolution": func(res *spec.Resolution) string {
			return fmt.Sprintf("state %v on %v: %v resolved to %v over %v (%v)",
				res.State, res.Symbol, res.Type, res.Chosen, res.Discarded, res.Method)
		},
	}

	tmpl, err := template.New("report").Funcs(fns).Parse(reportTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, report)
}
