package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/concordnow/concord-export/internal/export"
	"github.com/concordnow/concord-export/internal/timeline"
	"github.com/concordnow/concord-export/pkg/concord"
)

var (
	exportFormat      string
	exportOutput      string
	exportConcurrency int
	exportPageSize    int
	exportMaxPages    int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export agreements across all organizations",
	Long:  "Commands for exporting agreements to CSV or XLSX, one row per document.",
}

var exportSigningCmd = &cobra.Command{
	Use:   "signing",
	Short: "Export agreements waiting for signatures",
	Long:  "Lists every SIGNING agreement with who already signed and who still needs to.",
	RunE:  makeExportRunE("signing"),
}

var exportListCmd = &cobra.Command{
	Use:   "list",
	Short: "Export all agreements with their lifecycle status",
	Long:  "Lists every agreement in every lifecycle status, classified into stage and substatus.",
	RunE:  makeExportRunE("list"),
}

var exportTimelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Export signed agreements with approval and signature dates",
	Long:  "Reads each signed agreement's audit trail and extracts creation, approval, and signature milestones.",
	RunE:  makeExportRunE("timeline"),
}

// makeExportRunE builds the RunE for one export flavor.
func makeExportRunE(flavor string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		client, err := initClient()
		if err != nil {
			return err
		}
		r, err := newFlavorRun(flavor, client)
		if err != nil {
			return err
		}
		return runExport(cmd.Context(), flavor, r)
	}
}

// newFlavorRun wires the enricher, columns, and listing filters for a flavor.
func newFlavorRun(flavor string, client concord.Client) (exportRun, error) {
	switch flavor {
	case "signing":
		return exportRun{
			client:   client,
			enricher: &export.SigningEnricher{Client: client, AppBaseURL: cfg.API.AppBaseURL},
			columns:  export.SigningColumns(),
			opts:     export.Options{Statuses: export.SigningStatuses()},
		}, nil
	case "list":
		return exportRun{
			client:   client,
			enricher: &export.ListEnricher{AppBaseURL: cfg.API.AppBaseURL},
			columns:  export.ListColumns(),
			opts:     export.Options{Statuses: export.ListStatuses()},
		}, nil
	case "timeline":
		return exportRun{
			client:   client,
			enricher: &timeline.Enricher{Client: client, AppBaseURL: cfg.API.AppBaseURL},
			columns:  timeline.Columns(),
			opts: export.Options{
				Statuses:    timeline.SignedStatuses(),
				AccessTypes: timeline.AccessTypes(),
				PageSize:    timeline.PageSize,
			},
		}, nil
	default:
		return exportRun{}, eris.Errorf("unknown export flavor: %s", flavor)
	}
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportFormat, "format", "", "output format: csv or xlsx (default from config)")
	exportCmd.PersistentFlags().StringVar(&exportOutput, "output", "", "output file path (default: timestamped name in the working directory)")
	exportCmd.PersistentFlags().IntVar(&exportConcurrency, "concurrency", 0, "documents enriched in parallel (default from config)")
	exportCmd.PersistentFlags().IntVar(&exportPageSize, "page-size", 0, "listing page size (default from config)")
	exportCmd.PersistentFlags().IntVar(&exportMaxPages, "max-pages", 0, "max listing pages per organization (default from config)")

	exportCmd.AddCommand(exportSigningCmd)
	exportCmd.AddCommand(exportListCmd)
	exportCmd.AddCommand(exportTimelineCmd)
	rootCmd.AddCommand(exportCmd)
}

// exportRun bundles what one export flavor needs besides the shared flags.
type exportRun struct {
	client   concord.Client
	enricher export.Enricher
	columns  []string
	opts     export.Options
}

// runExport wires the sink, run ledger, and driver for one flavor, then
// executes it. The run record tracks the output file and final counters.
func runExport(ctx context.Context, flavor string, r exportRun) error {
	format := exportFormat
	if format == "" {
		format = cfg.Export.Format
	}

	outPath := exportOutput
	if outPath == "" {
		outPath = export.Filename(flavor, outputExt(format), time.Now())
	}

	if r.opts.PageSize == 0 {
		r.opts.PageSize = cfg.Export.PageSize
	}
	if exportPageSize > 0 {
		r.opts.PageSize = exportPageSize
	}
	if r.opts.MaxPages == 0 {
		r.opts.MaxPages = cfg.Export.MaxPages
	}
	if exportMaxPages > 0 {
		r.opts.MaxPages = exportMaxPages
	}
	r.opts.Concurrency = exportConcurrency
	if r.opts.Concurrency <= 0 {
		r.opts.Concurrency = cfg.Export.Concurrency
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run, err := st.CreateRun(ctx, flavor, outPath)
	if err != nil {
		return err
	}

	sink, err := newSink(format, outPath)
	if err != nil {
		_ = st.FailRun(ctx, run.ID, err)
		return err
	}

	driver := export.NewDriver(r.client, r.enricher, sink, r.columns, r.opts)

	zap.L().Info("starting export",
		zap.String("flavor", flavor),
		zap.String("output", outPath),
		zap.String("run", run.ID),
	)

	summary, runErr := driver.Run(ctx)
	closeErr := sink.Close()

	if runErr != nil {
		_ = st.FailRun(ctx, run.ID, runErr)
		return runErr
	}
	if closeErr != nil {
		_ = st.FailRun(ctx, run.ID, closeErr)
		return closeErr
	}

	if err := st.CompleteRun(ctx, run.ID, storeSummary(summary)); err != nil {
		return eris.Wrap(err, "record run completion")
	}

	zap.L().Info("export complete",
		zap.String("flavor", flavor),
		zap.String("output", outPath),
		zap.Int("organizations", summary.Organizations),
		zap.Int("org_failures", summary.OrgFailures),
		zap.Int("documents", summary.Documents),
		zap.Int("rows", summary.Rows),
		zap.Int("retried", summary.Retried),
		zap.Int("retry_failures", summary.RetryFailures),
	)
	return nil
}
