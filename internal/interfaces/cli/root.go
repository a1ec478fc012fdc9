// Package cli implements the cfsentinel command tree: local AR analysis
// over CSV files without a running server. Commands load the book, run
// the application services directly, and print JSON or a table.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CashFlow-Sentinel/internal/config"
	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	logLevel   string
	output     string // "json" | "table"
}

// appContext carries the initialized dependencies through the command
// tree.
type appContext struct {
	cfg  *config.Config
	log  logging.Logger
	opts *rootOptions
}

// dataFlags are the CSV input flags shared by every analysis command.
type dataFlags struct {
	customersPath string
	invoicesPath  string
	paymentsPath  string
	asOf          string
}

func (d *dataFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&d.customersPath, "customers", "", "customers CSV file (required)")
	f.StringVar(&d.invoicesPath, "invoices", "", "invoices CSV file (required)")
	f.StringVar(&d.paymentsPath, "payments", "", "payments CSV file")
	f.StringVar(&d.asOf, "as-of", "", "evaluation date YYYY-MM-DD (default: today)")
}

func (d *dataFlags) load() (*invoice.Dataset, time.Time, error) {
	if d.customersPath == "" || d.invoicesPath == "" {
		return nil, time.Time{}, errors.InvalidParam("--customers and --invoices are required")
	}
	ds, err := LoadDataset(d.customersPath, d.invoicesPath, d.paymentsPath)
	if err != nil {
		return nil, time.Time{}, err
	}
	asOf, err := parseAsOf(d.asOf)
	if err != nil {
		return nil, time.Time{}, err
	}
	return ds, asOf, nil
}

func parseAsOf(v string) (time.Time, error) {
	if v == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, errors.InvalidParam("--as-of must be YYYY-MM-DD").WithDetail("value=" + v)
	}
	return t, nil
}

// NewRootCommand builds the cfsentinel root command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	app := &appContext{opts: opts}

	cmd := &cobra.Command{
		Use:     "cfsentinel",
		Short:   "Accounts-receivable risk scoring and collections intelligence",
		Long:    "CashFlow-Sentinel scores invoice late-payment risk, recommends collection\nactions, plans follow-up schedules, and reports AR health from CSV exports\nof your invoicing system.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.init()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.output, "output", "o", "table", "output format (json, table)")

	cmd.AddCommand(
		newTrainCmd(app),
		newScoreCmd(app),
		newRecommendCmd(app),
		newScheduleCmd(app),
		newAnalyzeCmd(app),
	)
	return cmd
}

// init loads configuration and builds the CLI logger (stderr, so stdout
// stays clean for command output).
func (a *appContext) init() error {
	var cfg *config.Config
	var err error
	if a.opts.configPath != "" {
		cfg, err = config.Load(a.opts.configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	cfg.Log.Level = a.opts.logLevel
	cfg.Log.Output = "stderr"
	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

// Execute runs the CLI.
func Execute() error {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
