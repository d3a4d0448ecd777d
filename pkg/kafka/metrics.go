package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConsumerMessagesReceived counts messages fetched from the broker,
	// before any handler runs.
	ConsumerMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coaching",
			Name:      "kafka_consumer_messages_received_total",
			Help:      "Messages fetched from the broker",
		},
		[]string{"topic", "consumer_group"},
	)

	// ConsumerMessagesProcessed counts messages whose handler returned nil.
	ConsumerMessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coaching",
			Name:      "kafka_consumer_messages_processed_total",
			Help:      "Messages processed successfully",
		},
		[]string{"topic", "consumer_group"},
	)

	// ConsumerMessagesFailed counts messages that failed permanently.
	ConsumerMessagesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coaching",
			Name:      "kafka_consumer_messages_failed_total",
			Help:      "Messages that failed permanently (dead-lettered or dropped)",
		},
		[]string{"topic", "consumer_group"},
	)

	// ConsumerMessagesDuplicate counts redeliveries skipped by the
	// idempotency guard.
	ConsumerMessagesDuplicate = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coaching",
			Name:      "kafka_consumer_messages_duplicate_total",
			Help:      "Redelivered messages skipped as already processed",
		},
		[]string{"topic", "consumer_group"},
	)

	// ConsumerProcessingDuration observes handler execution time.
	ConsumerProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coaching",
			Name:      "kafka_consumer_processing_duration_seconds",
			Help:      "Message handler execution time in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"topic", "consumer_group"},
	)

	// ConsumerDLQPublished counts messages routed to a dead-letter topic.
	ConsumerDLQPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coaching",
			Name:      "kafka_consumer_dlq_published_total",
			Help:      "Messages published to a dead-letter topic",
		},
		[]string{"topic", "consumer_group"},
	)

	// ProducerMessagesPublished counts successful publishes.
	ProducerMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coaching",
			Name:      "kafka_producer_messages_published_total",
			Help:      "Messages published",
		},
		[]string{"topic"},
	)

	// ProducerPublishErrors counts failed publishes.
	ProducerPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coaching",
			Name:      "kafka_producer_publish_errors_total",
			Help:      "Publish attempts that returned an error",
		},
		[]string{"topic"},
	)

	// ProducerPublishDuration observes publish round-trip time.
	ProducerPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coaching",
			Name:      "kafka_producer_publish_duration_seconds",
			Help:      "Publish round-trip time in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)
