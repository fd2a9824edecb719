package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"execintel/internal/analyzer"
	"execintel/internal/apperr"
	"execintel/internal/applog"
	"execintel/internal/coderef"
	"execintel/internal/config"
	"execintel/internal/enrich"
	"execintel/internal/event"
	"execintel/internal/ingest"
	"execintel/internal/logger"
	"execintel/internal/output"
	"execintel/internal/rules"
	"execintel/internal/store"
)

// runOptions is the resolved set of inputs for one analyze invocation,
// merged from --config (if given) or the individual flags.
type runOptions struct {
	automation  []analyzer.AutomationSource
	application []applog.Source
	rulesPath   string
	outputPath  string
	format      string
	failOn      map[event.FailureType]bool

	ai          config.AIConfig
	correlation config.CorrelationConfig
	grouping    config.GroupingConfig
	pattern     config.PatternConfig
	storage     config.StorageConfig
}

// flagsToRunOptions resolves one analyze invocation's inputs: --config
// wins outright (spec §6 "read everything from config"); otherwise
// --log-file/--log-dir/--framework/--rules/--output/--format/--fail-on
// are read directly.
func flagsToRunOptions(cmd *cobra.Command) (runOptions, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		return runOptionsFromConfig(configPath)
	}

	logFile, _ := cmd.Flags().GetString("log-file")
	logDir, _ := cmd.Flags().GetString("log-dir")
	framework, _ := cmd.Flags().GetString("framework")
	rulesPath, _ := cmd.Flags().GetString("rules")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	failOn, _ := cmd.Flags().GetString("fail-on")

	var sources []analyzer.AutomationSource
	switch {
	case logFile != "":
		src, err := readAutomationSource(logFile, framework)
		if err != nil {
			return runOptions{}, err
		}
		sources = src
	case logDir != "":
		var err error
		sources, err = readAutomationDir(logDir, framework)
		if err != nil {
			return runOptions{}, err
		}
	default:
		return runOptions{}, apperr.Config(
			"no automation log source given",
			"pass --log-file PATH, --log-dir PATH, or --config PATH",
			nil,
		)
	}

	return runOptions{
		automation:  sources,
		rulesPath:   rulesPath,
		outputPath:  outputPath,
		format:      format,
		failOn:      parseFailOn(failOn),
		correlation: config.CorrelationConfig{},
		grouping:    config.GroupingConfig{},
		pattern:     config.PatternConfig{},
	}, nil
}

// runOptionsFromConfig builds runOptions entirely from a loaded
// configuration document.
func runOptionsFromConfig(path string) (runOptions, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return runOptions{}, apperr.Config("invalid configuration", "check "+path+" against the execution/rules/ai/correlation/grouping/pattern sections", err)
	}

	var automation []analyzer.AutomationSource
	for _, p := range cfg.Execution.Logs.Automation {
		sources, err := expandAutomationPath(p, cfg.Execution.Framework)
		if err != nil {
			return runOptions{}, err
		}
		automation = append(automation, sources...)
	}

	var application []applog.Source
	for _, p := range cfg.Execution.Logs.Application {
		application = append(application, applog.Source{Path: p})
	}

	rulesPath := "rules"
	if len(cfg.Rules.Paths) > 0 {
		rulesPath = cfg.Rules.Paths[0]
	}

	return runOptions{
		automation:  automation,
		application: application,
		rulesPath:   rulesPath,
		format:      "json",
		failOn:      analyzer.DefaultFailOn(),
		ai:          cfg.AI,
		correlation: cfg.Correlation,
		grouping:    cfg.Grouping,
		pattern:     cfg.Pattern,
		storage:     cfg.Storage,
	}, nil
}

// readAutomationSource loads one automation log file, pre-splitting it
// into overlapping chunks (internal/ingest) when it is large enough
// that parsing it whole risks blowing the per-test timeout (spec §8's
// 100k-line boundary case). A chunk is just another AutomationSource,
// so it flows through analyzer.collectTestCases exactly like any other
// file; structured formats (XML/JSON) are never chunked, since cutting
// them at a line boundary would corrupt the document.
func readAutomationSource(path, framework string) ([]analyzer.AutomationSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Config(
			fmt.Sprintf("cannot read automation log %s", path),
			"check the path and file permissions",
			err,
		)
	}
	content := string(data)
	if len(content) <= ingest.TargetChunkSize || looksStructured(content) {
		return []analyzer.AutomationSource{{Path: path, Content: content, Framework: framework}}, nil
	}

	chunks := ingest.ChunkLog(path, content)
	sources := make([]analyzer.AutomationSource, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, analyzer.AutomationSource{
			Path:      fmt.Sprintf("%s#chunk-%d/%d", path, c.Index+1, c.TotalChunks),
			Content:   c.Content,
			Framework: framework,
		})
	}
	return sources, nil
}

// looksStructured reports whether content is XML or JSON, the two
// formats whose adapters (junit, testng, cypress, playwright) parse
// the whole document at once and cannot tolerate a line-boundary cut.
func looksStructured(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	switch trimmed[0] {
	case '<', '{', '[':
		return true
	}
	return false
}

// readAutomationDir loads every regular file under dir as one or more
// automation sources (batch mode); a large file expands into multiple
// chunk sources via readAutomationSource.
func readAutomationDir(dir, framework string) ([]analyzer.AutomationSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.Config(
			fmt.Sprintf("cannot read log directory %s", dir),
			"check the path and that it is a directory",
			err,
		)
	}

	var sources []analyzer.AutomationSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src, err := readAutomationSource(filepath.Join(dir, e.Name()), framework)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src...)
	}
	return sources, nil
}

// expandAutomationPath resolves one configured automation path,
// expanding a directory into one source per file (and a large file
// into one source per chunk).
func expandAutomationPath(path, framework string) ([]analyzer.AutomationSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Config(fmt.Sprintf("cannot read automation log source %s", path), "check execution.logs.automation", err)
	}
	if info.IsDir() {
		return readAutomationDir(path, framework)
	}
	return readAutomationSource(path, framework)
}

func parseFailOn(raw string) map[event.FailureType]bool {
	if strings.TrimSpace(raw) == "" {
		return analyzer.DefaultFailOn()
	}
	failOn := map[event.FailureType]bool{}
	for _, part := range strings.Split(raw, ",") {
		ft := strings.TrimSpace(part)
		if ft != "" {
			failOn[event.FailureType(ft)] = true
		}
	}
	return failOn
}

// runAnalyze wires the pipeline together, runs it, writes the report,
// and returns the process exit code (spec §6).
func runAnalyze(ctx context.Context, opts runOptions) int {
	log := logger.NewConsoleLogger()

	if len(opts.storage.RedpandaBrokers) > 0 {
		return runDistributedAnalyze(ctx, opts, log)
	}

	pack, err := rules.LoadDir(opts.rulesPath)
	if err != nil {
		ruleErr := apperr.Config(
			fmt.Sprintf("cannot load rule pack from %s", opts.rulesPath),
			"pass --rules PATH or set rules.paths in the config document",
			err,
		)
		fmt.Fprintln(os.Stderr, formatCLIError(ruleErr))
		return apperr.ExitCode(ruleErr)
	}
	classifier := rules.NewClassifier(pack)

	patternStore := buildPatternStore(opts.storage, log)
	defer patternStore.Close()

	enricher := buildEnricher(opts.ai, log)

	a := analyzer.New(classifier, coderef.NewResolver("."), patternStore, enricher, log)
	if opts.correlation.WindowSeconds > 0 {
		a.Correlation.Seconds = opts.correlation.WindowSeconds
	}
	if opts.correlation.MinSharedTokens > 0 {
		a.Correlation.MinSharedTokens = opts.correlation.MinSharedTokens
	}
	if opts.pattern.NCap > 0 {
		a.PatternNCap = opts.pattern.NCap
	}
	a.AIEnabled = opts.ai.Enabled
	a.AIMinConfidence = opts.ai.MinConfidence

	collection := analyzer.LogSourceCollection{Automation: opts.automation, Application: opts.application}
	results, groups, err := a.AnalyzeCollection(ctx, collection)
	if err != nil {
		collErr := apperr.Config(
			"no automation log source to analyze",
			"pass --log-file/--log-dir, or set execution.logs.automation in the config document",
			err,
		)
		fmt.Fprintln(os.Stderr, formatCLIError(collErr))
		return apperr.ExitCode(collErr)
	}

	reportErrorSummary(results)

	doc := output.Build(results, groups)
	if err := writeReport(doc, opts); err != nil {
		writeErr := apperr.Internal("failed to write report", err)
		fmt.Fprintln(os.Stderr, formatCLIError(writeErr))
		return apperr.ExitCode(writeErr)
	}

	failOn := opts.failOn
	if failOn == nil {
		failOn = analyzer.DefaultFailOn()
	}
	if analyzer.ShouldFailCI(results, failOn) {
		return 1
	}
	return 0
}

// reportErrorSummary lists the first few ERROR-status tests to stderr
// per spec §7's user-visible failure behavior.
func reportErrorSummary(results []event.AnalysisResult) {
	const maxListed = 5
	var errored []string
	for _, r := range results {
		if r.Status == event.StatusError {
			errored = append(errored, r.TestName)
		}
	}
	if len(errored) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "%d test(s) errored during analysis:\n", len(errored))
	for i, name := range errored {
		if i >= maxListed {
			fmt.Fprintf(os.Stderr, "  ... and %d more\n", len(errored)-maxListed)
			break
		}
		fmt.Fprintf(os.Stderr, "  - %s\n", name)
	}
}

func buildPatternStore(cfg config.StorageConfig, log logger.Logger) store.Store {
	if cfg.PostgresDSN == "" {
		return store.NewInMemoryStore()
	}
	s, err := store.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		log.Warn("execintel: failed to connect to Postgres, falling back to in-memory pattern store: %v", err)
		return store.NewInMemoryStore()
	}
	return s
}

func buildEnricher(cfg config.AIConfig, log logger.Logger) enrich.Enricher {
	if !cfg.Enabled {
		return enrich.NoopEnricher{}
	}
	apiKeyEnv := cfg.APIKeyEnv
	if apiKeyEnv == "" {
		apiKeyEnv = "ANTHROPIC_API_KEY"
	}
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		log.Warn("execintel: ai.enabled is true but %s is unset, disabling enrichment", apiKeyEnv)
		return enrich.NoopEnricher{}
	}
	return enrich.NewAnthropicEnricher(enrich.Options{
		APIKey: apiKey,
		Model:  cfg.Model,
		Logger: log,
	})
}

func writeReport(doc output.Document, opts runOptions) error {
	switch opts.format {
	case "text", "summary":
		return writeTextReport(doc, opts)
	default:
		data, err := output.Marshal(doc)
		if err != nil {
			return err
		}
		return writeBytes(data, opts.outputPath)
	}
}

func writeBytes(data []byte, path string) error {
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// writeTextReport renders a human-readable summary (--format text or
// summary); the JSON document remains the canonical machine contract.
func writeTextReport(doc output.Document, opts runOptions) error {
	var b strings.Builder
	fmt.Fprintf(&b, "execintel analysis: %d test(s)\n", doc.Summary.Total)
	for ft, n := range doc.Summary.ByType {
		fmt.Fprintf(&b, "  %s: %d\n", ft, n)
	}

	if opts.format == "summary" {
		return writeBytes([]byte(b.String()), opts.outputPath)
	}

	for _, r := range doc.Results {
		if r.Classification == nil {
			continue
		}
		fmt.Fprintf(&b, "\n%s [%s]\n  type:       %s\n  confidence: %.4f\n  reason:     %s\n",
			r.TestName, r.Status, r.Classification.FailureType, r.Classification.Confidence, r.Classification.Reason)
	}
	return writeBytes([]byte(b.String()), opts.outputPath)
}
