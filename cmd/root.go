package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/emrgen/aphorium"
	"github.com/emrgen/aphorium/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aphorium",
	Short: "quote deduplication and bilingual linking tool",
	Example: `aphorium db migrate
aphorium dedup -l en --dry-run
aphorium link pair -s <quote-id> -t <quote-id> -c 90
aphorium link author -a <author-id>
aphorium link all
aphorium link backfill
aphorium link materialize -q <quote-id> -l ru --text <translation>
aphorium report unlinked -l ru -c en
aphorium report tombstones -q <quote-id>
aphorium schedule`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./aphorium.yaml)")

	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(dedupCmd())
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	config.SetupLogging(cfg)
	return cfg
}

func openEngine(opts ...aphorium.Option) *aphorium.Engine {
	engine, err := aphorium.New(loadConfig(), opts...)
	if err != nil {
		logrus.Fatalf("failed to start engine: %v", err)
	}
	return engine
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
}
