package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mmverify/internal"
	"github.com/gnoswap-labs/mmverify/verify"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Re-verify databases whenever they change",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			args = []string{"."}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		runID := verify.NewRunID()
		config, engine, err := loadEngine(runID)
		if err != nil {
			logger.Fatal("Failed to initialize verification engine", zap.Error(err))
		}

		w, err := internal.NewWatcher(engine, args, config.Extensions, printWatchReport)
		if err != nil {
			logger.Fatal("Failed to start watching", zap.Error(err))
		}
		defer w.Close()

		fmt.Printf("watching %v (press Ctrl+C to stop)\n", args)
		if err := w.Watch(ctx); err != nil {
			logger.Error("Watch stopped", zap.Error(err))
			os.Exit(1)
		}
	},
}

func printWatchReport(r *internal.FileReport, err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(r.Issues) == 0 {
		fmt.Printf("%s: ok\n", r.Filename)
		return
	}
	if perr := printReport(os.Stdout, &verify.Report{Files: []*internal.FileReport{r}}, false, ""); perr != nil {
		logger.Error("Error writing report", zap.Error(perr))
	}
}
