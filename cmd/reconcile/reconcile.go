package reconcile

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/perdiem-go/internal/app"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/report"
)

// Command creates the reconcile command, which builds the report of one
// submission.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "reconcile <submission>",
		Short: "Reconcile one submission and print its report",
		Long: `Join the submission's inspections, per diem, lodging and property rows into
day rows, check them against GSA rates and reimbursement policy, and write the
flagged report.

Examples:
  perdiem reconcile 268
  perdiem reconcile 268 --format csv --output report_268.csv
  perdiem reconcile 268 --format xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil || number <= 0 {
				return errors.Newf("invalid submission number %q", args[0]).
					Category(errors.CategoryValidation).
					Build()
			}
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.Service.Reconcile(cmd.Context(), number)
			if err != nil {
				return err
			}

			// spreadsheets are never written to a terminal
			if output == "" && f == report.FormatXLSX {
				output = fmt.Sprintf("report_submission_%d%s", number, f.Extension())
			}
			if output == "" {
				return report.Write(cmd.OutOrStdout(), rep, f)
			}
			if err := writeFile(output, func(w io.Writer) error { return report.Write(w, rep, f) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Report for submission %d written to %s (%d flags)\n",
				number, output, rep.FlagCount())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatTable), "Output format: table, csv, json, yaml, xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, stdout when empty")
	cmd.Flags().IntVar(&settings.GSA.Year, "year", viper.GetInt("gsa.year"), "GSA fiscal year, derived from the trip start when 0")
	if err := viper.BindPFlag("gsa.year", cmd.Flags().Lookup("year")); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}

	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}
