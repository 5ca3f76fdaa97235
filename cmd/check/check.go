package check

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/logging"
	"github.com/tphakala/perdiem-go/internal/tables"
)

// Command creates the check command, which verifies that every source table
// is readable and parses.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify source tables are readable and parse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := tables.NewLoader(settings.Sources, logging.ForService("tables"))
			return Run(cmd, loader)
		},
	}
	return cmd
}

// Run prints the access status of each source, then loads them and prints
// row counts and data quality warnings.
func Run(cmd *cobra.Command, loader *tables.Loader) error {
	out := cmd.OutOrStdout()

	accessErr := loader.CheckAccess()
	writeAccessTable(out, loader.Paths())
	if accessErr != nil {
		return accessErr
	}

	ds, err := loader.Load(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nSubmissions:    %d\n", len(ds.Submissions()))
	fmt.Fprintf(out, "Inspections:    %d\n", len(ds.Inspections()))
	fmt.Fprintf(out, "Per diem rows:  %d\n", len(ds.PerDiems()))
	fmt.Fprintf(out, "Transportation: %d\n", len(ds.Transportation()))
	fmt.Fprintf(out, "Properties:     %d\n", len(ds.Properties()))

	if warnings := ds.Warnings(); len(warnings) > 0 {
		fmt.Fprintf(out, "\nWarnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(out, "  %s\n", w)
		}
	}
	return nil
}

func writeAccessTable(out io.Writer, paths map[tables.SourceName]string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Source", "Path", "Status"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)

	for _, name := range tables.AllSources {
		status := "ok"
		if f, err := os.Open(paths[name]); err != nil {
			status = "not accessible"
		} else {
			_ = f.Close()
		}
		table.Append([]string{string(name), paths[name], status})
	}
	table.Render()
}
