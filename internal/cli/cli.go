// Package cli implements the command-line interface for vulnstats.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/eunmann/vuln-stats/internal/config"
	"github.com/eunmann/vuln-stats/internal/logctx"
	"github.com/eunmann/vuln-stats/pkg/logging"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

// ErrNoPipeline is returned by analyze when no pipeline flag is set.
var ErrNoPipeline = errors.New("no pipeline selected (--findjobs, --vulnspercat1, --vulnspercat2, --cryptostat1, --cryptostat2)")

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	return RunContext(context.Background(), args)
}

// RunContext executes the CLI with ctx as the root context.
func RunContext(ctx context.Context, args []string) error {
	root := newRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "vulnstats",
		Short: "Aggregate vulnerability statistics from app scan results",
		Long: `vulnstats tracks a corpus of Android apps, submits them to a
vulnerability scanning service and aggregates the scan findings into
statistics tables.

Commands:
  import    Fingerprint an APK list and track the apps
  submit    Upload an APK list for scanning
  analyze   Run aggregation pipelines over the tracked apps`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (default .vulnstats.yaml in the working directory or $HOME)")
	pf.Bool("debug", false, "Enable debug logging")
	pf.Bool("human", false, "Human-readable console logs and a boxed summary")
	pf.String("db-url", "", "Statistics store: postgres://host/db, sqlite:path or a file path")
	pf.String("db-user", "", "Database user (PostgreSQL)")
	pf.String("db-password", "", "Database password (PostgreSQL)")
	pf.String("vusc-url", "", "Base URL of the scanning service")

	root.AddCommand(newImportCommand(opts))
	root.AddCommand(newSubmitCommand(opts))
	root.AddCommand(newAnalyzeCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vulnstats %s\n", Version)
		},
	}
}

// setup loads the configuration for cmd and returns a context whose logger
// carries the command name and a fresh run id.
func (o *rootOptions) setup(cmd *cobra.Command) (*config.Config, context.Context, error) {
	cfg, err := config.Load(o.configPath, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logging.Init(cfg.Log.Debug, cfg.Log.Human)
	logger := *logging.L()
	logctx.SetDefaultLogger(logger)
	ctx := logctx.WithLogger(cmd.Context(), logger)
	ctx = logctx.WithRunID(ctx, uuid.NewString())
	ctx = logctx.WithStr(ctx, "command", cmd.Name())
	return cfg, ctx, nil
}
