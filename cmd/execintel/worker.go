package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"execintel/internal/analyzer"
	"execintel/internal/apperr"
	"execintel/internal/broker"
	"execintel/internal/coderef"
	"execintel/internal/config"
	"execintel/internal/logger"
	"execintel/internal/rules"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume analysis requests from the broker and publish results",
	Long: `Worker runs the same pipeline as "analyze" but pulls its work
from the broker's analysis-requests topic instead of local files, so a
fleet of workers can share one backlog published by "execintel analyze
--config ..." (spec §5's distributed batch mode).`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		groupID, _ := cmd.Flags().GetString("group")
		if configPath == "" {
			cfgErr := apperr.Config("no configuration given", "pass --config PATH", nil)
			fmt.Fprintln(os.Stderr, formatCLIError(cfgErr))
			os.Exit(apperr.ExitCode(cfgErr))
		}
		os.Exit(runWorker(context.Background(), configPath, groupID))
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().String("config", "", "path to a YAML configuration document with storage.redpanda_brokers set")
	workerCmd.Flags().String("group", "execintel-workers", "consumer group id shared across the worker fleet")
}

// runWorker loads cfg, builds the same classifier/store/enricher
// pipeline runAnalyze uses, and processes the broker's request topic
// until it closes or ctx is cancelled.
func runWorker(ctx context.Context, configPath, groupID string) int {
	log := logger.NewConsoleLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		loadErr := apperr.Config("invalid configuration", "check "+configPath, err)
		fmt.Fprintln(os.Stderr, formatCLIError(loadErr))
		return apperr.ExitCode(loadErr)
	}
	if len(cfg.Storage.RedpandaBrokers) == 0 {
		cfgErr := apperr.Config("no redpanda brokers configured", "set storage.redpanda_brokers in "+configPath, nil)
		fmt.Fprintln(os.Stderr, formatCLIError(cfgErr))
		return apperr.ExitCode(cfgErr)
	}

	rulesPath := "rules"
	if len(cfg.Rules.Paths) > 0 {
		rulesPath = cfg.Rules.Paths[0]
	}
	pack, err := rules.LoadDir(rulesPath)
	if err != nil {
		ruleErr := apperr.Config(fmt.Sprintf("cannot load rule pack from %s", rulesPath), "check rules.paths", err)
		fmt.Fprintln(os.Stderr, formatCLIError(ruleErr))
		return apperr.ExitCode(ruleErr)
	}
	classifier := rules.NewClassifier(pack)

	patternStore := buildPatternStore(cfg.Storage, log)
	defer patternStore.Close()
	enricher := buildEnricher(cfg.AI, log)

	a := analyzer.New(classifier, coderef.NewResolver("."), patternStore, enricher, log)
	a.AIEnabled = cfg.AI.Enabled
	a.AIMinConfidence = cfg.AI.MinConfidence

	b, err := broker.NewRedpandaBroker(cfg.Storage.RedpandaBrokers, log)
	if err != nil {
		brokerErr := apperr.Config("cannot connect to Redpanda brokers", "check storage.redpanda_brokers", err)
		fmt.Fprintln(os.Stderr, formatCLIError(brokerErr))
		return apperr.ExitCode(brokerErr)
	}
	defer b.Close()

	reqCh, err := b.Subscribe(ctx, broker.TopicAnalysisRequests, groupID)
	if err != nil {
		subErr := apperr.Internal("cannot subscribe to the analysis requests topic", err)
		fmt.Fprintln(os.Stderr, formatCLIError(subErr))
		return apperr.ExitCode(subErr)
	}

	log.Info("execintel: worker started, group=%s", groupID)
	for msg := range reqCh {
		processAnalysisRequest(ctx, a, b, log, msg.Value)
	}
	return 0
}

// processAnalysisRequest decodes one request message, analyzes it, and
// publishes the result; failures are logged and skipped rather than
// crashing the worker loop, since a single bad message shouldn't take
// the whole fleet down.
func processAnalysisRequest(ctx context.Context, a *analyzer.Analyzer, b broker.Broker, log logger.Logger, raw []byte) {
	var req broker.AnalysisRequestMessage
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Warn("execintel: dropping malformed analysis request: %v", err)
		return
	}

	result := a.AnalyzeRawLog(ctx, req.Content, "", req.Framework, nil)
	resMsg := broker.AnalysisResultMessage{RequestID: req.RequestID, Result: result}
	payload, err := json.Marshal(resMsg)
	if err != nil {
		log.Warn("execintel: cannot encode analysis result for %s: %v", req.RequestID, err)
		return
	}
	if err := b.Publish(ctx, broker.TopicAnalysisResults, req.RequestID, payload); err != nil {
		log.Warn("execintel: cannot publish analysis result for %s: %v", req.RequestID, err)
	}
}
