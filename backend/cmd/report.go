package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/AnTengye/contractvigency/backend/model"
	"github.com/AnTengye/contractvigency/backend/pipeline"
	"github.com/AnTengye/contractvigency/backend/report"
	"github.com/AnTengye/contractvigency/backend/service"
	"github.com/spf13/cobra"
)

const cliTenant = "cli"

type reportOptions struct {
	file  string
	url   string
	sheet string
	year  int
	json  bool
	today string
}

type reportOutput struct {
	Today     model.Date          `json:"today"`
	Filename  string              `json:"filename"`
	Quality   model.QualityReport `json:"quality"`
	Dashboard report.Dashboard    `json:"dashboard"`
}

func newReportCmd(root *rootOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Evaluate one spreadsheet and print the views",
		Long: `Evaluate one contracts spreadsheet against today and print the expiring
contracts, the status distribution, the value per status for one year and the
top suppliers of contracts in progress.

Without --file the configured source URL is downloaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runReport(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "local .xlsx or .csv file")
	cmd.Flags().StringVar(&opts.url, "url", "", "download the spreadsheet from this URL instead of the configured source")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "worksheet name (default: first sheet)")
	cmd.Flags().IntVar(&opts.year, "year", 0, "signing year for the value per status view (default: newest)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON instead of tables")
	cmd.Flags().StringVar(&opts.today, "today", "", "reference date as YYYY-MM-DD (default: current date)")
	cmd.MarkFlagsMutuallyExclusive("file", "url")

	return cmd
}

func runReport(ctx context.Context, out io.Writer, cfg *config.Config, opts *reportOptions) error {
	if opts.url != "" {
		cfg.Source.URL = opts.url
	}
	if opts.sheet != "" {
		cfg.Source.Sheet = opts.sheet
	}

	now, err := referenceTime(opts.today, cfg.Pipeline.Location())
	if err != nil {
		return err
	}

	var source *service.SourceService
	if opts.file == "" {
		var cache service.BlobCache
		if sc := service.NewSourceCache(cfg.Redis, cfg.Source.CacheTTL); sc != nil {
			defer sc.Close()
			cache = sc
		}
		source = service.NewSourceService(&cfg.Source, cache)
	}
	svc := service.NewVigencyService(service.NewDatasetStore(1), nil, source, cfg)

	var ds *model.Dataset
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return err
		}
		ds, err = svc.Import(ctx, cliTenant, filepath.Base(opts.file), data)
		if err != nil {
			return err
		}
	} else {
		ds, err = svc.ImportFromSource(ctx, cliTenant)
		if err != nil {
			return err
		}
	}

	_, rows, err := svc.Evaluate(ctx, cliTenant, ds.ID, now)
	if err != nil {
		return err
	}

	result := reportOutput{
		Today:     pipeline.Today(now, svc.Location()),
		Filename:  ds.Filename,
		Quality:   ds.Quality,
		Dashboard: report.Build(rows, opts.year),
	}
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printReport(out, result)
}

// referenceTime parses --today as noon of that day in loc.
func referenceTime(today string, loc *time.Location) (time.Time, error) {
	if today == "" {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", today, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --today %q: %w", today, err)
	}
	return t.Add(12 * time.Hour), nil
}

func printReport(out io.Writer, r reportOutput) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	d := r.Dashboard

	fmt.Fprintf(w, "%s: %d contracts, reference date %s\n", r.Filename, d.Total, r.Today)
	if r.Quality.MissingSupplier > 0 {
		fmt.Fprintf(w, "warning: %d supplier cells without name\n", r.Quality.MissingSupplier)
	}

	fmt.Fprintf(w, "\nExpiring within %d days\n", pipeline.ExpiringWindowDays)
	fmt.Fprintln(w, "ROW\tOBJECT\tVALUE\tDAYS")
	for _, c := range d.ExpiringSoon {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", c.Row, c.Object, c.Value, c.DaysToExpire)
	}

	fmt.Fprintln(w, "\nStatus distribution")
	fmt.Fprintln(w, "STATUS\tCOUNT")
	for _, s := range d.Distribution {
		fmt.Fprintf(w, "%s\t%d\n", s.Label, s.Count)
	}

	year := "-"
	if d.SelectedYear != 0 {
		year = strconv.Itoa(d.SelectedYear)
	}
	fmt.Fprintf(w, "\nAccumulated value by status, %s\n", year)
	fmt.Fprintln(w, "STATUS\tVALUE")
	for _, s := range d.ValueByStatus {
		fmt.Fprintf(w, "%s\t%s\n", s.Label, s.Formatted)
	}

	fmt.Fprintln(w, "\nTop suppliers in progress by contracts")
	fmt.Fprintln(w, "SUPPLIER\tCONTRACTS")
	for _, s := range d.TopSuppliersByCount {
		fmt.Fprintf(w, "%s\t%d\n", s.Supplier, s.Count)
	}

	fmt.Fprintln(w, "\nTop suppliers in progress by value")
	fmt.Fprintln(w, "SUPPLIER\tVALUE")
	for _, s := range d.TopSuppliersByValue {
		fmt.Fprintf(w, "%s\t%s\n", s.Supplier, s.Formatted)
	}

	return w.Flush()
}
