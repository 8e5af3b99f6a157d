package cli

import (
	"fmt"

	"github.com/eunmann/vuln-stats/internal/logctx"
	"github.com/eunmann/vuln-stats/pkg/applist"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/vusc"
	"github.com/spf13/cobra"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Fingerprint the APKs of a list and track them for one release year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ctx, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateStore(); err != nil {
				return err
			}
			if err := cfg.ValidateAppFiles(true); err != nil {
				return err
			}

			opener := applist.NewOpener()
			paths, err := opener.ReadList(ctx, cfg.Apps.Files)
			if err != nil {
				return fmt.Errorf("read app list: %w", err)
			}

			st, err := store.Open(ctx, cfg.StoreConfig())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()
			log := logctx.FromContext(ctx)
			log.Info().Str("backend", st.Backend()).Msg("opened store")

			stats, err := applist.Import(ctx, opener, st, paths, cfg.Apps.Year, cfg.Apps.Workers)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d apps (%d already tracked)\n", stats.Added, stats.Duplicates)
			return nil
		},
	}
	addAppListFlags(cmd)
	cmd.Flags().Int("year", 0, "Release year of the listed APKs")
	cmd.Flags().Int("workers", applist.DefaultWorkers, "APKs hashed concurrently")
	return cmd
}

func newSubmitCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Upload the APKs of a list to the scanning service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ctx, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateService(); err != nil {
				return err
			}
			if err := cfg.ValidateAppFiles(false); err != nil {
				return err
			}

			opener := applist.NewOpener()
			paths, err := opener.ReadList(ctx, cfg.Apps.Files)
			if err != nil {
				return fmt.Errorf("read app list: %w", err)
			}

			client := vusc.NewClient(cfg.VUSC.URL, cfg.ClientConfig())
			stats := applist.Submit(ctx, opener, client, paths)
			if stats.Failed > 0 {
				log := logctx.FromContext(ctx)
				log.Warn().Int("failed", stats.Failed).Msg("some scans could not be scheduled")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "submitted %d apps (%d failed)\n", stats.Submitted, stats.Failed)
			return nil
		},
	}
	addAppListFlags(cmd)
	return cmd
}

func addAppListFlags(cmd *cobra.Command) {
	cmd.Flags().String("app-files", "", "File listing one APK path per line (local path or s3://bucket/key)")
}
