// Command forest-machine-map serves the forestry machine dashboard: a map of
// the fleet with a status filter and a machine list kept in step with it.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"forest-machine-map/pkg/catalog"
	"forest-machine-map/pkg/config"
	"forest-machine-map/pkg/database"
	"forest-machine-map/pkg/logger"
	"forest-machine-map/pkg/machines"
)

// CompileVersion is set with -ldflags "-X main.CompileVersion=...".
var CompileVersion = "dev"

type app struct {
	configFile string
	debug      bool

	cfg config.Config
	log *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "forest-machine-map",
		Short:         "Map dashboard for a fleet of forestry machines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to configuration (json, yaml or toml); CONFIG_FILE is used when empty")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Development logging")

	root.AddCommand(
		newServeCmd(a),
		newListCmd(a),
		newSeedCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Log.Debug = true
	}
	log, err := logger.New(cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) loadRegistry(ctx context.Context) (*machines.Registry, error) {
	trace := logger.NewTrace(a.log)
	defer trace.Sync()
	return catalog.Load(ctx, a.cfg.CatalogConfig(), trace)
}

func newListCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the machine catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.loadRegistry(cmd.Context())
			if err != nil {
				return err
			}
			filter := machines.ParseFilter(status)
			fmt.Fprint(cmd.OutOrStdout(), fleetTable(reg.ByStatus(filter)))
			fmt.Fprintln(cmd.OutOrStdout(), statusSummary(reg))
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "all", "Only list machines in this status")
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write machines into the configured database",
		Long:  "Creates the machines table if needed and inserts the demo fleet, or the records of --file. Existing ids are left untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			records := machines.DemoRecords()
			if file != "" {
				var err error
				if records, err = catalog.ReadFile(file); err != nil {
					return err
				}
			}
			// Validate before touching the database.
			if _, err := machines.NewRegistry(records); err != nil {
				return err
			}

			trace := logger.NewTrace(a.log)
			defer trace.Sync()
			const job = "seed"
			trace.Begin(job)

			n, err := seed(cmd.Context(), a.cfg.Database(), records, trace.Logf(job))
			if err != nil {
				trace.FlushError(job, err)
				return err
			}
			trace.Success(job, fmt.Sprintf("seeded %d of %d machines into %s", n, len(records), a.cfg.DB.Type))
			fmt.Fprintln(cmd.OutOrStdout(), successLine("%d machines added, %d already present", n, len(records)-n))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Catalog file (json or yaml) to seed instead of the demo fleet")
	return cmd
}

func seed(ctx context.Context, cfg database.Config, records []machines.Record, logf func(string, ...any)) (int, error) {
	db, err := database.NewDatabase(cfg, logf)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	return db.SeedMachines(ctx, records)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "forest-machine-map version %s\n", CompileVersion)
		},
	}
}
