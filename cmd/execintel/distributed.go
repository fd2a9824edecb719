package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"execintel/internal/analyzer"
	"execintel/internal/apperr"
	"execintel/internal/broker"
	"execintel/internal/event"
	"execintel/internal/logger"
	"execintel/internal/output"
)

// distributedResultTimeout bounds how long the CLI waits for the
// worker fleet's results after publishing requests, so a stalled or
// missing fleet fails the run instead of hanging a CI job forever.
const distributedResultTimeout = 2 * time.Minute

// runDistributedAnalyze implements spec §5's "one or more workers"
// batch mode: it publishes one AnalysisRequestMessage per automation
// source to the broker instead of running the pipeline in-process, and
// collects AnalysisResultMessages until it has one per published
// request (results are counted, not matched by RequestID) from a
// worker fleet started separately via "execintel worker --config ...".
func runDistributedAnalyze(ctx context.Context, opts runOptions, log logger.Logger) int {
	b, err := broker.NewRedpandaBroker(opts.storage.RedpandaBrokers, log)
	if err != nil {
		brokerErr := apperr.Config(
			"cannot connect to Redpanda brokers",
			"check storage.redpanda_brokers and that the worker fleet is reachable",
			err,
		)
		fmt.Fprintln(os.Stderr, formatCLIError(brokerErr))
		return apperr.ExitCode(brokerErr)
	}
	defer b.Close()

	resultCtx, cancel := context.WithTimeout(ctx, distributedResultTimeout)
	defer cancel()

	resultCh, err := b.Subscribe(resultCtx, broker.TopicAnalysisResults, "execintel-cli")
	if err != nil {
		subErr := apperr.Internal("cannot subscribe to the analysis results topic", err)
		fmt.Fprintln(os.Stderr, formatCLIError(subErr))
		return apperr.ExitCode(subErr)
	}

	for _, src := range opts.automation {
		req := broker.AnalysisRequestMessage{RequestID: src.Path, Path: src.Path, Content: src.Content, Framework: src.Framework}
		payload, err := json.Marshal(req)
		if err != nil {
			marshalErr := apperr.Internal("cannot encode analysis request", err)
			fmt.Fprintln(os.Stderr, formatCLIError(marshalErr))
			return apperr.ExitCode(marshalErr)
		}
		if err := b.Publish(ctx, broker.TopicAnalysisRequests, req.RequestID, payload); err != nil {
			pubErr := apperr.Internal("cannot publish analysis request", err)
			fmt.Fprintln(os.Stderr, formatCLIError(pubErr))
			return apperr.ExitCode(pubErr)
		}
	}

	want := len(opts.automation)
	results := make([]event.AnalysisResult, 0, want)
collect:
	for len(results) < want {
		select {
		case msg, ok := <-resultCh:
			if !ok {
				break collect
			}
			var resMsg broker.AnalysisResultMessage
			if err := json.Unmarshal(msg.Value, &resMsg); err != nil {
				log.Warn("execintel: dropping malformed analysis result: %v", err)
				continue
			}
			results = append(results, resMsg.Result)
		case <-resultCtx.Done():
			timeoutErr := apperr.Internal("timed out waiting for the worker fleet's analysis results", resultCtx.Err())
			fmt.Fprintln(os.Stderr, formatCLIError(timeoutErr))
			return apperr.ExitCode(timeoutErr)
		}
	}

	reportErrorSummary(results)

	doc := output.Build(results, nil)
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
