// Package broker abstracts message transport for distributed
// AnalysisRequest/AnalysisResult exchange (spec §5's "one or more
// workers" batch mode), with an in-memory implementation for local
// CLI runs and a Redpanda/Kafka implementation for fleets.
package broker

import "context"

// Well-known topics for the distributed analyzer.
const (
	TopicAnalysisRequests = "execintel.analysis.requests"
	TopicAnalysisResults  = "execintel.analysis.results"
)

// Broker abstracts message publishing and consumption so the batch
// analyzer can run single-process (InMemoryBroker) or fan out across
// a worker fleet (RedpandaBroker) without changing call sites.
type Broker interface {
	// Publish sends a message to a topic with an optional key for
	// partitioning. Ignored by InMemoryBroker.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel for consuming messages from a topic.
	// groupID coordinates consumer groups on RedpandaBroker; ignored
	// by InMemoryBroker.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message is one consumed message from a broker.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}
