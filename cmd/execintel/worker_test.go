package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"execintel/internal/analyzer"
	"execintel/internal/broker"
	"execintel/internal/event"
	"execintel/internal/logger"
	"execintel/internal/rules"
	"execintel/internal/store"
)

func testWorkerAnalyzer(t *testing.T) *analyzer.Analyzer {
	t.Helper()
	pack, err := rules.NewRulePack(nil)
	if err != nil {
		t.Fatalf("NewRulePack: %v", err)
	}
	classifier := rules.NewClassifier(pack)
	return analyzer.New(classifier, nil, store.NewInMemoryStore(), nil, nil)
}

// TestProcessAnalysisRequest_RoundTripsThroughBroker exercises the
// worker's request-to-result path end to end over an InMemoryBroker:
// publish a request the way "execintel analyze --config ..." would,
// let the worker consume and analyze it, and read back the matching
// result the way the CLI's distributed collector does.
func TestProcessAnalysisRequest_RoundTripsThroughBroker(t *testing.T) {
	b := broker.NewInMemoryBroker(logger.NewSilentLogger())
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resultCh, err := b.Subscribe(ctx, broker.TopicAnalysisResults, "test")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	req := broker.AnalysisRequestMessage{
		RequestID: "build.log",
		Path:      "build.log",
		Content:   "ERROR test_login: AssertionError: expected 200 got 500",
		Framework: "auto",
	}
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	a := testWorkerAnalyzer(t)
	processAnalysisRequest(ctx, a, b, logger.NewSilentLogger(), payload)

	select {
	case msg := <-resultCh:
		var resMsg broker.AnalysisResultMessage
		if err := json.Unmarshal(msg.Value, &resMsg); err != nil {
			t.Fatalf("Unmarshal result: %v", err)
		}
		if resMsg.RequestID != req.RequestID {
			t.Errorf("RequestID = %s, want %s", resMsg.RequestID, req.RequestID)
		}
		if resMsg.Result.Status != event.StatusFail {
			t.Errorf("Result.Status = %v, want StatusFail", resMsg.Result.Status)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the worker's published result")
	}
}

// TestProcessAnalysisRequest_MalformedPayloadDoesNotPublish confirms a
// bad request message is dropped rather than crashing the worker loop
// or producing a bogus result.
func TestProcessAnalysisRequest_MalformedPayloadDoesNotPublish(t *testing.T) {
	b := broker.NewInMemoryBroker(logger.NewSilentLogger())
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	resultCh, err := b.Subscribe(ctx, broker.TopicAnalysisResults, "test")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	a := testWorkerAnalyzer(t)
	processAnalysisRequest(ctx, a, b, logger.NewSilentLogger(), []byte("not json"))

	select {
	case msg := <-resultCh:
		t.Fatalf("expected no published result for a malformed request, got %v", msg)
	case <-ctx.Done():
	}
}
