package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mmverify/internal"
	"github.com/gnoswap-labs/mmverify/verify"
)

var statsJsonOutput bool

var statsCmd = &cobra.Command{
	Use:   "stats [paths...]",
	Short: "Verify databases and print what they declare",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		runID := verify.NewRunID()
		config, engine, err := loadEngine(runID)
		if err != nil {
			logger.Fatal("Failed to initialize verification engine", zap.Error(err))
		}

		report, err := runVerify(ctx, logger, engine, args, verify.Options{Extensions: config.Extensions}, runID)
		if err != nil {
			logger.Error("Error processing files", zap.String("run_id", runID), zap.Error(err))
			os.Exit(1)
		}

		if err := printStats(os.Stdout, report.Files, statsJsonOutput); err != nil {
			logger.Error("Error writing statistics", zap.Error(err))
			os.Exit(1)
		}
		if report.Failed() {
			os.Exit(1)
		}
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJsonOutput, "json", false, "Output statistics in JSON format")
}

func printStats(w io.Writer, files []*internal.FileReport, isJson bool) error {
	if isJson {
		stats := make(map[string]any, len(files))
		for _, f := range files {
			stats[f.Filename] = f.Stats
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tCONSTANTS\tVARIABLES\t$f\t$e\t$a\t$p\tINCOMPLETE\tSTATUS\t")
	for _, f := range files {
		status := "ok"
		if f.Failed() {
			status = "failed"
		}
		st := f.Stats
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t\n",
			f.Filename, st.Constants, st.Variables, st.Floating, st.Essential,
			st.Axioms, st.Theorems, st.Incomplete, status)
	}
	return tw.Flush()
}
