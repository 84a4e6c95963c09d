package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/nikitaxru/scripttemplar"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
)

func main() {
	log.SetFlags(0)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "scriptgen",
	Short:   "Render customer scripts from tabular data",
	Long:    "scriptgen fills [[field]] templates from xlsx/csv data, evaluates calculated fields and exports the batch.",
	Version: version,
}

// общие флаги
var (
	dataPath    string
	projectPath string
	locale      string
)

// loadInputs читает проект (если задан) и данные, применяет вычисляемые поля.
func loadInputs() (*scripttemplar.Project, *scripttemplar.Workspace, *scripttemplar.Evaluator, error) {
	proj := &scripttemplar.Project{}
	if projectPath != "" {
		p, err := scripttemplar.LoadProject(projectPath)
		if err != nil {
			return nil, nil, nil, err
		}
		proj = p
	}
	if locale != "" {
		proj.Locale = locale
	}
	ev := proj.Evaluator()
	if dataPath == "" {
		return nil, nil, nil, fmt.Errorf("--data is required")
	}
	ws, err := scripttemplar.LoadWorkspace(dataPath, proj.ImportOptions())
	if err != nil {
		return nil, nil, nil, err
	}
	failed, err := proj.Apply(ws, ev)
	if err != nil {
		return nil, nil, nil, err
	}
	if failed > 0 {
		log.Printf("⚠️ %d ячеек вычисляемых полей с ошибкой", failed)
	}
	return proj, ws, ev, nil
}

// --- fields ---

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List raw and calculated fields of the data file",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ws, _, err := loadInputs()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, f := range ws.Fields {
			fmt.Fprintf(out, "[[%s]]\n", f)
		}
		for _, cf := range ws.CalcFields {
			fmt.Fprintf(out, "[[%s]] = %s\n", cf.Name, cf.Formula)
		}
		return nil
	},
}

// --- render ---

var (
	renderCustomer string
	renderRow      int
	renderHistory  bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print rendered scripts for all or selected customers",
	RunE:  runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	proj, ws, ev, err := loadInputs()
	if err != nil {
		return err
	}
	if ws.Template == "" {
		return fmt.Errorf("project has no template")
	}

	records := ws.Records
	switch {
	case renderRow > 0:
		if renderRow > len(ws.Records) {
			return fmt.Errorf("row %d out of range (1..%d)", renderRow, len(ws.Records))
		}
		records = ws.Records[renderRow-1 : renderRow]
	case renderCustomer != "":
		records = ws.FindCustomers(ev, renderCustomer)
		if len(records) == 0 {
			return fmt.Errorf("no customer matches %q", renderCustomer)
		}
	}

	var hist *scripttemplar.History
	if renderHistory {
		if proj.HistoryPath() == "" {
			return fmt.Errorf("--history needs a history path in the project")
		}
		if hist, err = scripttemplar.LoadHistory(proj.HistoryPath()); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, rec := range records {
		name := ws.DisplayName(ev, rec)
		script := ws.RenderFor(ev, rec)
		fmt.Fprintf(out, "=== %s ===\n%s\n\n", name, script)
		if hist != nil {
			hist.Add(name, rec, ws.Template, script)
		}
	}
	if hist != nil {
		return hist.Save(proj.HistoryPath())
	}
	return nil
}

// --- eval ---

var (
	evalFormula string
	evalRow     int
	evalSteps   bool
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a formula against one record",
	RunE:  runEval,
}

func runEval(cmd *cobra.Command, args []string) error {
	_, ws, ev, err := loadInputs()
	if err != nil {
		return err
	}
	if evalRow < 1 || evalRow > len(ws.Records) {
		return fmt.Errorf("row %d out of range (1..%d)", evalRow, len(ws.Records))
	}
	rec := ws.Records[evalRow-1]
	out := cmd.OutOrStdout()
	if !evalSteps {
		v, err := ev.Evaluate(evalFormula, rec)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v.String())
		return nil
	}
	res, err := ev.EvaluateWithSteps(evalFormula, rec)
	for i, s := range res.Steps {
		fmt.Fprintf(out, "  %d. %s\n", i+1, s)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "= %s\n", res.Value.String())
	return nil
}

// --- export ---

var (
	exportOut      string
	exportFormat   string
	exportTemplate string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export calculated fields and scripts for every record",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ws, ev, err := loadInputs()
		if err != nil {
			return err
		}
		if exportTemplate != "" {
			return scripttemplar.WriteScriptsWithTemplate(exportTemplate, exportOut, ws, ev)
		}
		return scripttemplar.ExportFile(exportOut, strings.ToLower(exportFormat), ws, ev)
	},
}

// --- history ---

var (
	historyPath   string
	historySearch string
	historyClear  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Search or clear the script history",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := historyPath
	if path == "" && projectPath != "" {
		proj, err := scripttemplar.LoadProject(projectPath)
		if err != nil {
			return err
		}
		path = proj.HistoryPath()
	}
	if path == "" {
		return fmt.Errorf("either --file or --project with a history path is required")
	}
	hist, err := scripttemplar.LoadHistory(path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if historyClear {
		hist.Clear()
		if err := hist.Save(path); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ history cleared")
		return nil
	}
	items := hist.Search(historySearch)
	for _, it := range items {
		fmt.Fprintf(out, "%s  %s  %s\n%s\n\n", it.Time.Format("2006-01-02 15:04:05"), shortID(it.ID), it.Customer, it.RenderedScript)
	}
	fmt.Fprintf(out, "%d item(s)\n", len(items))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "Data file (xlsx, csv, tsv, txt)")
	rootCmd.PersistentFlags().StringVar(&projectPath, "project", "", "Project YAML with template and calculated fields")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", "", "Message language: zh, ru, en (overrides the project)")

	renderCmd.Flags().StringVar(&renderCustomer, "customer", "", "Render only customers whose name contains this text")
	renderCmd.Flags().IntVar(&renderRow, "row", 0, "Render only this record (1-based)")
	renderCmd.Flags().BoolVar(&renderHistory, "history", false, "Append rendered scripts to the project history")

	evalCmd.Flags().StringVar(&evalFormula, "formula", "", "Formula with [[field]] references (required)")
	evalCmd.Flags().IntVar(&evalRow, "row", 1, "Record to evaluate against (1-based)")
	evalCmd.Flags().BoolVar(&evalSteps, "steps", false, "Print the calculation trace")
	_ = evalCmd.MarkFlagRequired("formula")

	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "xlsx, csv or txt (default: by extension)")
	exportCmd.Flags().StringVar(&exportTemplate, "workbook-template", "", "xlsx template with [[field]] rows")
	_ = exportCmd.MarkFlagRequired("out")

	historyCmd.Flags().StringVar(&historyPath, "file", "", "History JSON file (default: from --project)")
	historyCmd.Flags().StringVar(&historySearch, "search", "", "Filter by customer, script or template")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Remove all items")

	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
}
