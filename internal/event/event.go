// Package event defines the canonical log record and failure-signal types
// shared by every downstream component of the analysis pipeline.
package event

// LogLevel is the canonical severity of a log line.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
	LevelFatal LogLevel = "FATAL"
)

// SourceType distinguishes automation (test-framework) events from
// application (service) events. Set once by the adapter that produced
// the event and never inferred downstream.
type SourceType string

const (
	SourceAutomation SourceType = "AUTOMATION"
	SourceApplication SourceType = "APPLICATION"
)

// ExecutionEvent is one normalized log record, owned by the adapter
// that parsed it and immutable thereafter.
type ExecutionEvent struct {
	Timestamp     string            `json:"timestamp"`
	Level         LogLevel          `json:"level"`
	Source        string            `json:"source"`
	Message       string            `json:"message"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	LogSourceType SourceType        `json:"log_source_type"`

	TestName      string `json:"test_name,omitempty"`
	TestFile      string `json:"test_file,omitempty"`
	ExceptionType string `json:"exception_type,omitempty"`
	Stacktrace    string `json:"stacktrace,omitempty"`
	ServiceName   string `json:"service_name,omitempty"` // APPLICATION only
}

// SignalType identifies a specific failure mode found inside one
// test's event stream.
type SignalType string

const (
	SignalTimeout         SignalType = "TIMEOUT"
	SignalAssertion       SignalType = "ASSERTION"
	SignalLocator         SignalType = "LOCATOR"
	SignalHTTPError       SignalType = "HTTP_ERROR"
	SignalConnectionError SignalType = "CONNECTION_ERROR"
	SignalDNSError        SignalType = "DNS_ERROR"
	SignalInfra           SignalType = "INFRA"
	SignalSlowTest        SignalType = "SLOW_TEST"
	SignalMemoryLeak      SignalType = "MEMORY_LEAK"
	SignalHighCPU         SignalType = "HIGH_CPU"
	SignalDatabase        SignalType = "DATABASE"
	SignalNullPointer     SignalType = "NULL_POINTER"
	SignalSyntax          SignalType = "SYNTAX"
	SignalImport          SignalType = "IMPORT"
	SignalOther           SignalType = "OTHER"
)

// retryableSignals and infraSignals pin the derived-flag invariant:
// is_retryable / is_infra_related are a pure function of signal_type.
var retryableSignals = map[SignalType]bool{
	SignalTimeout:         true,
	SignalConnectionError: true,
	SignalDNSError:        true,
}

var infraRelatedSignals = map[SignalType]bool{
	SignalConnectionError: true,
	SignalDNSError:        true,
	SignalInfra:           true,
	SignalDatabase:        true,
	SignalHTTPError:       true,
}

// FailureSignal is evidence of a specific failure mode inside one
// test's event stream, produced by an extractor (internal/signals).
type FailureSignal struct {
	SignalType   SignalType        `json:"signal_type"`
	Message      string            `json:"message"`
	Confidence   float64           `json:"confidence"`
	Stacktrace   string            `json:"stacktrace,omitempty"`
	File         string            `json:"file,omitempty"`
	Line         int               `json:"line,omitempty"`
	Keywords     []string          `json:"keywords,omitempty"`
	Patterns     []string          `json:"patterns,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	IsRetryable  bool              `json:"is_retryable"`
	IsInfraRelated bool            `json:"is_infra_related"`
}

// NewFailureSignal constructs a FailureSignal with the derived flags
// computed from signal type, satisfying the "pure function" invariant
// so callers never set IsRetryable/IsInfraRelated by hand.
func NewFailureSignal(signalType SignalType, message string, confidence float64) FailureSignal {
	return FailureSignal{
		SignalType:     signalType,
		Message:        message,
		Confidence:     clamp01(confidence),
		IsRetryable:    retryableSignals[signalType],
		IsInfraRelated: infraRelatedSignals[signalType],
	}
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

// FailureType is the verdict category for one test.
type FailureType string

const (
	ProductDefect       FailureType = "PRODUCT_DEFECT"
	AutomationDefect    FailureType = "AUTOMATION_DEFECT"
	EnvironmentIssue    FailureType = "ENVIRONMENT_ISSUE"
	ConfigurationIssue  FailureType = "CONFIGURATION_ISSUE"
	Unknown             FailureType = "UNKNOWN"
)

// Status is the outcome of running one test.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
	StatusSkip  Status = "SKIP"
)

// CodeReference is the resolved user-code site most likely responsible
// for a failure (internal/coderef).
type CodeReference struct {
	File         string `json:"file"`
	Line         int    `json:"line"`
	Function     string `json:"function,omitempty"`
	ClassName    string `json:"class_name,omitempty"`
	Snippet      string `json:"snippet,omitempty"`
	LanguageHint string `json:"language_hint,omitempty"`
}

// AIInsights is the optional, advisory-only output of the enrichment
// capability (internal/enrich). It never changes FailureType and its
// ConfidenceDelta is bounded by internal/confidence before use.
type AIInsights struct {
	Suggestion      string  `json:"suggestion,omitempty"`
	ConfidenceDelta float64 `json:"confidence_delta"`
	ModelConfidence float64 `json:"model_confidence"`
}

// FailureClassification is the verdict for one test.
type FailureClassification struct {
	FailureType  FailureType      `json:"failure_type"`
	Confidence   float64          `json:"confidence"`
	Reason       string           `json:"reason"`
	Evidence     []string         `json:"evidence"`
	Signals      []FailureSignal  `json:"signals"`
	RulesApplied []string         `json:"rules_applied"`
	CodeReference *CodeReference  `json:"code_reference,omitempty"`
	AIInsights    *AIInsights     `json:"ai_insights,omitempty"`
	HasApplicationLogs bool       `json:"has_application_logs"`
}

// AnalysisResult is the per-test output of the orchestrator (internal/analyzer).
type AnalysisResult struct {
	TestName              string                  `json:"test_name"`
	Framework              string                 `json:"framework"`
	Status                 Status                 `json:"status"`
	FailureClassification  *FailureClassification `json:"failure_classification,omitempty"`
	Events                 []ExecutionEvent       `json:"events,omitempty"`
	Signals                []FailureSignal        `json:"signals,omitempty"`
	CodeReference          *CodeReference         `json:"code_reference,omitempty"`
	DurationMS             int64                  `json:"duration_ms"`
	Timestamp              string                 `json:"timestamp"`
	HasApplicationLogs     bool                   `json:"has_application_logs"`
	Metadata               map[string]string      `json:"metadata,omitempty"`
	Error                  string                 `json:"error,omitempty"`
}

// ConfidenceBucket buckets a confidence score per spec §4.9.
type ConfidenceBucket string

const (
	BucketVeryLow ConfidenceBucket = "VERY_LOW"
	BucketLow     ConfidenceBucket = "LOW"
	BucketMedium  ConfidenceBucket = "MEDIUM"
	BucketHigh    ConfidenceBucket = "HIGH"
)

// Bucket returns the confidence bucket for c.
func Bucket(c float64) ConfidenceBucket {
	switch {
	case c >= 0.9:
		return BucketHigh
	case c >= 0.7:
		return BucketMedium
	case c >= 0.5:
		return BucketLow
	default:
		return BucketVeryLow
	}
}
