// Package cmd implements the nagarikta command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/nagarikta/internal/config"
	"github.com/MeKo-Tech/nagarikta/internal/models"
)

var (
	// Configuration file path from --config.
	cfgFile string
	// Configuration of the running command, loaded before it starts.
	globalConfig *config.Config
	// Closes the rotating log file of the running command.
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nagarikta",
	Short: "Field extraction for Nepali citizenship cards",
	Long: `nagarikta reads photos and scans of Nepali citizenship cards and extracts
the printed fields: certificate number, name, sex, date of birth, birth
place and permanent address.

Each card passes three phases:
- normalization: the printed border is found and warped to a canonical image
- layout OCR: text boxes are detected, recognized and grouped into rows
- semantic: labels are anchored and values resolved into fields

Examples:
  nagarikta extract card.jpg
  nagarikta extract scan.pdf --format yaml --output-dir out/
  nagarikta verify card.jpg --name "Sristi Bhattarai" --dob 2063-08-07 --citizenship-no 42-02-81-00802
  nagarikta batch cards/ --report summary.xlsx
  nagarikta serve --port 8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		globalConfig = cfg
		logger, closer := cfg.NewLogger(cmd.ErrOrStderr())
		slog.SetDefault(logger)
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCloser != nil {
			_ = logCloser.Close()
			logCloser = nil
		}
	},
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for tests.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is nagarikta.yaml in ., $HOME, $XDG_CONFIG_HOME/nagarikta, /etc/nagarikta)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "also write logs to this file, rotated by size")

	defaultModelsDir := models.DefaultModelsDir
	if envDir := os.Getenv(models.EnvModelsDir); envDir != "" {
		defaultModelsDir = envDir
	}
	pf.String("models-dir", defaultModelsDir,
		"directory containing ONNX models (can also be set via "+models.EnvModelsDir+")")

	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log_file", pf.Lookup("log-file"))
	_ = viper.BindPFlag("models_dir", pf.Lookup("models-dir"))

	rootCmd.AddCommand(extractCmd, normalizeCmd, verifyCmd, serveCmd, batchCmd, versionCmd)
}

// GetConfig returns a copy of the configuration of the running command,
// which the command may adjust from its own flags.
func GetConfig() *config.Config {
	if globalConfig == nil {
		d := config.DefaultConfig()
		return &d
	}
	c := *globalConfig
	return &c
}

// loadConfig reads the configuration file, environment and bound flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader().LoadWithFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}
