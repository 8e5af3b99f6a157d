package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/eunmann/vuln-stats/internal/config"
	"github.com/eunmann/vuln-stats/internal/logctx"
	"github.com/eunmann/vuln-stats/pkg/metrics"
	"github.com/eunmann/vuln-stats/pkg/pipeline"
	"github.com/eunmann/vuln-stats/pkg/report"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/traversal"
	"github.com/eunmann/vuln-stats/pkg/vusc"
	"github.com/spf13/cobra"
)

var pipelineHelp = map[string]string{
	pipeline.NameJobMetadata:         "Link apps without metadata to their scan job",
	pipeline.NameCategoryAttribution: "Count vulnerabilities per category and type, attributed to libraries",
	pipeline.NameCategoryTypeMatrix:  "Cross-tabulate vulnerabilities by category and type",
	pipeline.NameCryptoUsage:         "Count cipher and digest uses",
	pipeline.NameOutdatedAlgorithms:  "Count insecure crypto algorithms, attributed to libraries",
}

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run aggregation pipelines over the tracked apps",
		Long: `Run the selected aggregation pipelines in a fixed order: findjobs,
vulnspercat1, vulnspercat2, cryptostat1, cryptostat2. Per-job records are
written as each app is processed; library totals are written when a
pipeline finishes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ctx, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			var selected []string
			for _, name := range pipeline.Names() {
				if on, _ := cmd.Flags().GetBool(name); on {
					selected = append(selected, name)
				}
			}
			return runAnalyze(ctx, cmd, cfg, selected)
		},
	}

	for _, name := range pipeline.Names() {
		cmd.Flags().Bool(name, false, pipelineHelp[name])
	}
	cmd.Flags().String("parquet-dir", "", "Also export every written record as Parquet files into this directory")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file")
	cmd.Flags().Int64("progress-every", 0, "Apps between progress log lines (default 100)")
	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, cfg *config.Config, selected []string) (err error) {
	if err := cfg.ValidateStore(); err != nil {
		return err
	}
	if err := cfg.ValidateService(); err != nil {
		return err
	}
	if len(selected) == 0 {
		return ErrNoPipeline
	}
	log := logctx.FromContext(ctx)

	st, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.Info().Str("backend", st.Backend()).Msg("opened store")

	var sink store.Sink = st
	if dir := cfg.Output.ParquetDir; dir != "" {
		export := store.NewParquetSink(dir)
		sink = store.Tee{st, export}
		defer func() {
			if closeErr := export.Close(ctx); closeErr != nil {
				err = errors.Join(err, fmt.Errorf("export parquet: %w", closeErr))
			}
		}()
	}

	client := vusc.NewClient(cfg.VUSC.URL, cfg.ClientConfig())
	walker := &traversal.Walker{Jobs: client, ProgressEvery: cfg.Analyze.ProgressEvery}
	deps := pipeline.Deps{Sink: sink, Lookup: client, Apps: st}
	recorder := metrics.New()

	var summaries []pipeline.Summary
	for _, name := range selected {
		p, err := pipeline.New(name, deps)
		if err != nil {
			return err
		}
		apps, err := appsFor(ctx, st, name)
		if err != nil {
			return err
		}
		log.Info().Str("pipeline", name).Int("apps", len(apps)).Msg("starting pipeline")

		s := pipeline.Run(ctx, walker, apps, p)
		recorder.Observe(s)
		summaries = append(summaries, s)
	}

	if path := cfg.Output.MetricsFile; path != "" {
		recorder.MarkFinished()
		if err := recorder.WriteTextfile(path); err != nil {
			return err
		}
	}
	report.PrintSummary(cmd.OutOrStdout(), summaries, report.Options{Fancy: cfg.Log.Human})
	return nil
}

// appsFor returns the apps a pipeline walks: job metadata only needs the
// apps still lacking it.
func appsFor(ctx context.Context, st *store.SQLStore, name string) ([]store.App, error) {
	if name == pipeline.NameJobMetadata {
		apps, err := st.AppsWithoutMetadata(ctx)
		if err != nil {
			return nil, fmt.Errorf("load apps without metadata: %w", err)
		}
		return apps, nil
	}
	apps, err := st.Apps(ctx)
	if err != nil {
		return nil, fmt.Errorf("load apps: %w", err)
	}
	return apps, nil
}
