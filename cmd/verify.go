package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mmverify/formatter"
	"github.com/gnoswap-labs/mmverify/internal"
	"github.com/gnoswap-labs/mmverify/verify"
)

var (
	ignoreRules      string
	ignorePaths      string
	verifyJsonOutput bool
	outPath          string
	workers          int
)

var verifyCmd = &cobra.Command{
	Use:   "verify [paths...]",
	Short: "Verify Metamath databases",
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
		applyIgnores(engine, ignoreRules, ignorePaths)

		opts := verify.Options{Extensions: config.Extensions, Workers: workers}
		if !verifyJsonOutput && isTerminal(os.Stderr) {
			opts.Progress = os.Stderr
		}

		report, err := runVerify(ctx, logger, engine, args, opts, runID)
		if err != nil {
			logger.Error("Error processing files", zap.String("run_id", runID), zap.Error(err))
			os.Exit(1)
		}

		if err := printReport(os.Stdout, report, verifyJsonOutput, outPath); err != nil {
			logger.Error("Error writing report", zap.Error(err))
			os.Exit(1)
		}
		if report.Failed() {
			os.Exit(1)
		}
	},
}

func init() {
	verifyCmd.Flags().StringVar(&ignoreRules, "ignore", "", "Comma-separated list of non-fatal rules to ignore")
	verifyCmd.Flags().StringVar(&ignorePaths, "ignore-paths", "", "Comma-separated list of paths to ignore")
	verifyCmd.Flags().BoolVar(&verifyJsonOutput, "json", false, "Output issues in JSON format")
	verifyCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	verifyCmd.Flags().IntVar(&workers, "workers", 0, "Number of databases verified at once (default: number of CPUs)")
}

func applyIgnores(engine verify.VerifyEngine, rules, paths string) {
	for _, rule := range splitList(rules) {
		engine.IgnoreRule(rule)
	}
	for _, path := range splitList(paths) {
		engine.IgnorePath(path)
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func runVerify(
	ctx context.Context,
	logger *zap.Logger,
	engine verify.VerifyEngine,
	paths []string,
	opts verify.Options,
	runID string,
) (*verify.Report, error) {
	files, err := verify.ProcessFiles(ctx, logger, engine, paths, opts, verify.ProcessFile)
	if err != nil {
		return nil, err
	}
	return &verify.Report{RunID: runID, Files: files}, nil
}

func printReport(w io.Writer, report *verify.Report, isJson bool, jsonOutput string) error {
	if isJson {
		if jsonOutput == "" {
			return report.WriteJSON(w)
		}
		f, err := os.Create(jsonOutput)
		if err != nil {
			return fmt.Errorf("error creating JSON output file: %w", err)
		}
		defer f.Close()
		return report.WriteJSON(f)
	}

	// text output
	issuesByFile, sortedFiles := report.IssuesByFile()
	for _, filename := range sortedFiles {
		sourceCode, err := internal.ReadSourceCode(filename)
		if err != nil {
			// still print the issues, without snippets
			sourceCode = &internal.SourceCode{}
		}
		fmt.Fprint(w, formatter.GenerateFormattedIssue(issuesByFile[filename], sourceCode))
	}
	return nil
}
