package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"execintel/internal/analyzer"
	"execintel/internal/applog"
	"execintel/internal/coderef"
	"execintel/internal/enrich"
	"execintel/internal/event"
	"execintel/internal/logger"
	"execintel/internal/output"
	"execintel/internal/rules"
	"execintel/internal/store"
)

// AnalyzeTestLogsInput is analyze_test_logs' input: one raw automation
// log, optionally paired with application log paths for correlation.
type AnalyzeTestLogsInput struct {
	RawLog          string   `json:"raw_log" jsonschema:"required"`
	Framework       string   `json:"framework,omitempty"`
	ApplicationLogs []string `json:"application_logs,omitempty"`
	RulesPath       string   `json:"rules_path,omitempty"`
	FailOn          []string `json:"fail_on,omitempty"`
}

// AnalyzeTestLogsOutput mirrors the CLI's §6 JSON document for one run,
// plus the same fail_on gating decision the CLI's exit code encodes.
type AnalyzeTestLogsOutput struct {
	Document     output.Document `json:"document"`
	ShouldFailCI bool            `json:"should_fail_ci"`
}

func registerAnalyzeTestLogsTool(server *mcp.Server) {
	tool := &mcp.Tool{
		Name: "analyze_test_logs",
		Description: "Classify test-automation failures in a raw log into " +
			"PRODUCT_DEFECT, AUTOMATION_DEFECT, ENVIRONMENT_ISSUE, " +
			"CONFIGURATION_ISSUE, or UNKNOWN, with evidence, a resolved code " +
			"reference, and a CI-gating decision.",
	}

	handler := func(ctx context.Context, req *mcp.CallToolRequest, args AnalyzeTestLogsInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(args.RawLog) == "" {
			return nil, nil, fmt.Errorf("raw_log parameter is required")
		}

		out, err := analyzeTestLogs(ctx, args)
		if err != nil {
			return nil, nil, err
		}

		result := &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: formatAnalysisSummary(*out)}},
		}
		return result, out, nil
	}

	mcp.AddTool(server, tool, handler)
}

// analyzeTestLogs runs the same pipeline the CLI runs, over one raw
// log passed inline instead of read from a file.
func analyzeTestLogs(ctx context.Context, args AnalyzeTestLogsInput) (*AnalyzeTestLogsOutput, error) {
	rulesPath := args.RulesPath
	if rulesPath == "" {
		rulesPath = "rules"
	}
	pack, err := rules.LoadDir(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule pack from %s: %w", rulesPath, err)
	}
	classifier := rules.NewClassifier(pack)

	log := logger.NewSilentLogger()
	a := analyzer.New(classifier, coderef.NewResolver("."), store.NewInMemoryStore(), enrich.NoopEnricher{}, log)

	var appSources []applog.Source
	for _, p := range args.ApplicationLogs {
		appSources = append(appSources, applog.Source{Path: p})
	}

	coll := analyzer.LogSourceCollection{
		Automation:  []analyzer.AutomationSource{{Path: "mcp-request", Content: args.RawLog, Framework: args.Framework}},
		Application: appSources,
	}
	results, groups, err := a.AnalyzeCollection(ctx, coll)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	doc := output.Build(results, groups)
	return &AnalyzeTestLogsOutput{
		Document:     doc,
		ShouldFailCI: analyzer.ShouldFailCI(results, parseFailOnList(args.FailOn)),
	}, nil
}

// parseFailOnList converts the tool's fail_on string list into the set
// analyzer.ShouldFailCI expects, defaulting to spec §8's PRODUCT_DEFECT
// gate when the caller leaves it empty.
func parseFailOnList(raw []string) map[event.FailureType]bool {
	if len(raw) == 0 {
		return analyzer.DefaultFailOn()
	}
	failOn := map[event.FailureType]bool{}
	for _, ft := range raw {
		if ft != "" {
			failOn[event.FailureType(ft)] = true
		}
	}
	return failOn
}

// formatAnalysisSummary renders a short human-readable summary for the
// tool's text content block; the structured Document is the contract.
func formatAnalysisSummary(out AnalyzeTestLogsOutput) string {
	doc := out.Document
	var b strings.Builder
	fmt.Fprintf(&b, "Analyzed %d test(s). should_fail_ci=%t\n", doc.Summary.Total, out.ShouldFailCI)
	for ft, n := range doc.Summary.ByType {
		fmt.Fprintf(&b, "  %s: %d\n", ft, n)
	}
	for _, r := range doc.Results {
		if r.Classification == nil {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s (confidence %.2f)\n", r.TestName, r.Classification.FailureType, r.Classification.Confidence)
	}
	return b.String()
}
