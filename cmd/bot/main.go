package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"HeikinSentinel/internal/config"
	"HeikinSentinel/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgPath string
	debug   bool

	cfg    *config.Config
	logger zerolog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "heikinsentinel",
		Short: "Heikin-Ashi opportunity scanner with Telegram alerts",
		Long: `HeikinSentinel polls exchange candles for the top symbols on several timeframes,
smooths them with Heikin-Ashi, and alerts when a candle body holds the trend EMA while
Bollinger %B sits on a watched level and the next candle confirms without a shadow.

Running without a subcommand starts the scanner.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context())
		},
	}

	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", defaultPath, "path to the YAML config file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Start the scanner (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.run(cmd.Context())
			},
		},
		newAnalyzeCmd(a),
		newStateCmd(a),
	)
	return root
}

// load reads and validates the configuration and builds the root logger.
func (a *app) load() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if a.debug {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.FilePath = cfg.Log.File
	a.logger = logging.New(logCfg)
	return nil
}
