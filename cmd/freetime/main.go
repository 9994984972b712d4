// Command freetime serves the free-time planner API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/freetime-planner/freetime/internal/app/runtime"
	"github.com/freetime-planner/freetime/internal/config"
)

var (
	configPath string
	portFlag   int
	driverFlag string
)

var rootCmd = &cobra.Command{
	Use:           "freetime",
	Short:         "Free-time activity planner API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			return os.Setenv(config.FileEnv, configPath)
		}
		return nil
	},
}

// serveCmd runs the HTTP server until SIGINT or SIGTERM.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API with the configured storage driver.

Configuration is read from defaults, the YAML file named by --config or
FREETIME_CONFIG, and environment variables, later sources winning.`,
	RunE: runServe,
}

// migrateCmd applies the postgres schema and exits.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "override the listen port")
	serveCmd.Flags().StringVar(&driverFlag, "driver", "", "override the storage driver (memory, postgres, redis)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if portFlag > 0 {
		cfg.Server.Port = portFlag
	}
	if driverFlag != "" {
		cfg.Database.Driver = driverFlag
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := runtime.NewApplication(ctx, cfg)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := runtime.Migrate(cmd.Context(), cfg); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
