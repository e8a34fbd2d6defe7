package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/srsengine/internal/catalog"
	"github.com/example/srsengine/internal/config"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Sheet    string
	StartRow int
	JSON     bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}
	defaults := catalog.DefaultImportConfig()

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load catalog cards from an .xlsx or .csv file",
		Long: `Load catalog cards from a spreadsheet or CSV file.

Columns are A=id, B=category, C=sub-category, D=order index, E=comma-separated tags.
Existing cards with the same id are updated.

Example:
  srsengine import cards.xlsx --sheet Cards
  srsengine import cards.csv --start-row 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Sheet, "sheet", defaults.SheetName, "sheet to read from .xlsx files (empty for the first sheet)")
	cmd.Flags().IntVar(&opts.StartRow, "start-row", defaults.StartRow, "first row to import (1-based)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the result as JSON")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, path string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	importConfig := catalog.DefaultImportConfig()
	importConfig.FilePath = path
	importConfig.SheetName = opts.Sheet
	importConfig.StartRow = opts.StartRow

	result, err := catalog.NewImporter(a.cards).Import(cmd.Context(), importConfig)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(out, "Processed: %d, created: %d, updated: %d, skipped: %d\n",
		result.TotalProcessed, result.Created, result.Updated, result.Skipped)
	for _, e := range result.Errors {
		fmt.Fprintln(out, "  "+e)
	}
	return nil
}
