package rates

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/errors"
	"github.com/tphakala/perdiem-go/internal/gsa"
	"github.com/tphakala/perdiem-go/internal/zipcode"
)

// Command creates the rates command, which prints the GSA meals and monthly
// lodging rates of one ZIP code.
func Command(settings *conf.Settings) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "rates <zip>",
		Short: "Show GSA per diem rates for a ZIP code",
		Long: `Fetch the GSA meals and incidentals rate and the monthly lodging rates for a
ZIP code. The fiscal year defaults to the configured year or the current one.

Examples:
  perdiem rates 30301
  perdiem rates 30301-1234 --year 2024`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zip, ok := zipcode.Parse(args[0])
			if !ok || zipcode.IsSentinel(zip) {
				return errors.Newf("invalid zip code %q", args[0]).
					Category(errors.CategoryValidation).
					Build()
			}

			cfg := gsa.Config{
				APIKey:            settings.GSA.APIKey,
				BaseURL:           settings.GSA.BaseURL,
				Timeout:           settings.GSA.Timeout,
				MaxRetries:        settings.GSA.MaxRetries,
				BoundaryMealRatio: settings.Policy.BoundaryMealRatio,
			}
			client, err := gsa.NewClient(cfg)
			if err != nil {
				return err
			}

			if year == 0 {
				year = settings.GSA.Year
			}
			if year == 0 {
				year = gsa.FiscalYear(time.Now())
			}

			zr, err := client.FetchZip(cmd.Context(), zip, year)
			if err != nil {
				return err
			}
			Print(cmd.OutOrStdout(), zr, settings.Policy.BoundaryMealRatio)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "GSA fiscal year")
	return cmd
}

// Print writes the rates of zr as a header and a month by month lodging table.
func Print(out io.Writer, zr *gsa.ZipRates, boundaryRatio float64) {
	boundary := zr.Meals.Mul(decimal.NewFromFloat(boundaryRatio)).Round(2)

	fmt.Fprintf(out, "ZIP %s, FY%d: %s, %s (%s)\n", zr.Zip, zr.Year, zr.City, zr.State, zr.County)
	fmt.Fprintf(out, "Meals & incidentals: %s (first and last day: %s)\n\n",
		zr.Meals.StringFixed(2), boundary.StringFixed(2))

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Month", "Lodging"})
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	// fiscal year order, October through September
	for i := range 12 {
		month := time.Month((i+9)%12 + 1)
		rate, ok := zr.LodgingFor(month.String())
		value := "n/a"
		if ok {
			value = rate.StringFixed(2)
		}
		table.Append([]string{month.String(), value})
	}
	table.Render()
}
