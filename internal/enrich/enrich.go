// Package enrich implements the optional AI enrichment capability
// (spec §4.9, §5): a bounded, circuit-broken, rate-limited call to a
// language model that may nudge a classification's confidence within
// [-0.1, 0.1] and attach a human-readable suggestion. It never changes
// the failure type and is skipped entirely when disabled or when the
// breaker is open.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"execintel/internal/event"
	"execintel/internal/logger"
)

// Insights is the outcome of one enrichment call.
type Insights struct {
	Suggestion      string
	ConfidenceDelta float64
	ModelConfidence float64
}

// Enricher reviews one test's classification and optionally proposes
// a bounded confidence adjustment.
type Enricher interface {
	Enrich(ctx context.Context, result event.AnalysisResult) (*Insights, error)
}

// NoopEnricher is the default: enrichment disabled, every call is a no-op.
type NoopEnricher struct{}

func (NoopEnricher) Enrich(ctx context.Context, result event.AnalysisResult) (*Insights, error) {
	return nil, nil
}

// AnthropicEnricher calls the configured model through a circuit
// breaker and a token-bucket rate limiter, retrying transient failures
// with exponential backoff, bounded by a hard per-call timeout.
type AnthropicEnricher struct {
	client  anthropic.Client
	model   anthropic.Model
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
	log     logger.Logger
}

// Options configures a new AnthropicEnricher.
type Options struct {
	APIKey        string
	Model         string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Logger        logger.Logger
}

// NewAnthropicEnricher builds an enricher backed by the Anthropic API.
func NewAnthropicEnricher(opts Options) *AnthropicEnricher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 4
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewSilentLogger()
	}
	model := opts.Model
	if model == "" {
		model = string(anthropic.ModelClaude3_5HaikuLatest)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "execintel-enrich",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &AnthropicEnricher{
		client:  anthropic.NewClient(option.WithAPIKey(opts.APIKey)),
		model:   anthropic.Model(model),
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		timeout: opts.Timeout,
		log:     opts.Logger,
	}
}

// enrichmentResponse is the strict JSON shape requested of the model.
type enrichmentResponse struct {
	Suggestion      string  `json:"suggestion"`
	ConfidenceDelta float64 `json:"confidence_delta"`
	ModelConfidence float64 `json:"model_confidence"`
}

// Enrich asks the model to review result's rule-based classification
// and propose a bounded adjustment. Any failure (rate limit, breaker
// open, timeout, malformed response) is swallowed into a nil result:
// enrichment is advisory and never fails an analysis.
func (a *AnthropicEnricher) Enrich(ctx context.Context, result event.AnalysisResult) (*Insights, error) {
	if result.FailureClassification == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.limiter.Wait(ctx); err != nil {
		a.log.Warn("enrich: rate limiter wait failed for %s: %v", result.TestName, err)
		return nil, nil
	}

	prompt := buildPrompt(result)

	callResult, err := a.breaker.Execute(func() (interface{}, error) {
		return a.callWithRetry(ctx, prompt)
	})
	if err != nil {
		a.log.Warn("enrich: skipping %s: %v", result.TestName, err)
		return nil, nil
	}

	raw, ok := callResult.(string)
	if !ok {
		return nil, nil
	}

	var parsed enrichmentResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		a.log.Warn("enrich: malformed model response for %s: %v", result.TestName, err)
		return nil, nil
	}

	return &Insights{
		Suggestion:      parsed.Suggestion,
		ConfidenceDelta: clampDelta(parsed.ConfidenceDelta),
		ModelConfidence: clamp01(parsed.ModelConfidence),
	}, nil
}

func (a *AnthropicEnricher) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var out string

	operation := func() error {
		msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: 512,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(msg.Content) == 0 {
			return backoff.Permanent(errors.New("enrich: empty model response"))
		}
		out = msg.Content[0].Text
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return "", err
	}
	return out, nil
}

func isTransient(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

func buildPrompt(result event.AnalysisResult) string {
	fc := result.FailureClassification
	return fmt.Sprintf(
		"Test %q was classified as %s with confidence %.2f, reason: %s. "+
			"Evidence: %v. Respond with a single JSON object "+
			`{"suggestion": string, "confidence_delta": number in [-0.1,0.1], "model_confidence": number in [0,1]} `+
			"and nothing else. Do not change the failure type; only assess whether this classification's confidence should nudge up or down.",
		result.TestName, fc.FailureType, fc.Confidence, fc.Reason, fc.Evidence,
	)
}

func clampDelta(v float64) float64 {
	if v > 0.1 {
		return 0.1
	}
	if v < -0.1 {
		return -0.1
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
