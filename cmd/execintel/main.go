// Package main provides the execintel CLI: an "analyze" subcommand
// that turns raw test-automation logs into a classified,
// evidence-backed analysis report and gates CI/CD on the result
// (spec §6), and a "worker" subcommand for the distributed batch mode
// the "analyze" subcommand can hand off to (spec §5).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"execintel/internal/apperr"
)

var rootCmd = &cobra.Command{
	Use:   "execintel",
	Short: "execintel classifies test-automation failures for CI/CD gating",
	Long: `execintel converts raw test-automation logs (and, optionally,
application logs) into structured, classified, evidence-backed failure
analyses, and gates a CI/CD pipeline on the result.`,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one log file, a directory of logs, or a config-driven run",
	Long: `Analyze runs the full pipeline (adapter parse, signal
extraction, classification, code-reference resolution, application-log
correlation, pattern tracking, optional AI enrichment, confidence
calibration, and correlation grouping) over one or more automation
logs and writes the bit-stable JSON report.

Examples:
  execintel analyze --log-file build.log --framework pytest
  execintel analyze --log-dir ./ci-logs --fail-on PRODUCT_DEFECT,ENVIRONMENT_ISSUE
  execintel analyze --config execintel.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := flagsToRunOptions(cmd)
		if err != nil {
			fmt.Fprintln(os.Stderr, formatCLIError(err))
			os.Exit(apperr.ExitCode(err))
		}
		os.Exit(runAnalyze(context.Background(), opts))
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("log-file", "", "path to a single automation log file")
	analyzeCmd.Flags().String("log-dir", "", "path to a directory of automation log files (batch mode)")
	analyzeCmd.Flags().String("config", "", "path to a YAML configuration document (spec §6); overrides the other flags")
	analyzeCmd.Flags().String("framework", "auto", "adapter name, or \"auto\" to detect per file")
	analyzeCmd.Flags().String("rules", "rules", "path to a rule pack directory")
	analyzeCmd.Flags().String("output", "", "write the report to this path instead of stdout")
	analyzeCmd.Flags().String("format", "json", "report format: json, text, or summary")
	analyzeCmd.Flags().String("fail-on", "", "comma-separated failure types that gate the run (default: PRODUCT_DEFECT)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatCLIError(err))
		os.Exit(apperr.ExitCode(err))
	}
}

func formatCLIError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}
