package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mmverify/formatter"
	"github.com/gnoswap-labs/mmverify/internal"
	"github.com/gnoswap-labs/mmverify/verify"
)

const defaultTimeout = 5 * time.Minute

var (
	cfgFile string
	timeout time.Duration
	verbose bool
	noColor bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:              "mmverify [paths...]",
	Short:            "mmverify - a Metamath proof database verifier",
	TraverseChildren: true, // Prioritize subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(verbose)
		if err != nil {
			return fmt.Errorf("error creating logger: %w", err)
		}
		formatter.SetColor(!noColor && isTerminal(os.Stdout))
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		// no subcommand
		if len(args) == 0 {
			_ = cmd.Help()
			return
		}
		// Format: mmverify [path1 path2 ...] => behaves like the verify subcommand
		verifyCmd.Run(verifyCmd, args)
	},
}

func Execute() error {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", verify.DefaultConfigPath, "Path to the configuration file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Deadline for the whole run")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// loadEngine reads the configuration and builds an engine for one run.
func loadEngine(runID string) (verify.Config, *internal.Engine, error) {
	config, err := verify.LoadConfig(cfgFile)
	if err != nil {
		return config, nil, err
	}
	engine, err := verify.New(".", config, logger, runID)
	if err != nil {
		return config, nil, err
	}
	return config, engine, nil
}
