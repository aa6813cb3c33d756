// Package kafkapublish is an after_build hook (tavernkit.AfterBuildHook)
// that publishes a compact BuildSummary to Kafka for downstream analytics
// consumers, grounded on the teacher's internal/workspaces.KafkaCommitPublisher
// (kafka.Writer with TCP addr + LeastBytes balancer, JSON-marshal-then-
// WriteMessages, nil-receiver-safe Publish/Close).
package kafkapublish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"tavernkit"
)

// BuildSummary is the payload published after every build.
type BuildSummary struct {
	Timestamp      time.Time `json:"timestamp"`
	BlockCount     int       `json:"block_count"`
	WarningCount   int       `json:"warning_count"`
	TrimEvictions  int       `json:"trim_evictions"`
	GreetingPicked bool      `json:"greeting_picked"`
}

// Publisher writes BuildSummary events to a Kafka topic.
type Publisher struct {
	writer *kafka.Writer
}

// New builds a Publisher against brokers/topic. A nil *Publisher is valid
// and every method on it becomes a no-op, mirroring the teacher's
// nil-receiver-safe publisher pattern.
func New(brokers, topic string) *Publisher {
	if brokers == "" || topic == "" {
		return nil
	}
	return &Publisher{writer: &kafka.Writer{
		Addr:     kafka.TCP(brokers),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// Hook returns a tavernkit.AfterBuildHook that publishes a BuildSummary for
// every completed build.
func (p *Publisher) Hook() tavernkit.AfterBuildHook {
	return func(_ *tavernkit.BuildContext, plan *tavernkit.Plan) error {
		return p.publish(plan)
	}
}

func (p *Publisher) publish(plan *tavernkit.Plan) error {
	if p == nil || p.writer == nil {
		return nil
	}
	summary := BuildSummary{
		Timestamp:      time.Now(),
		BlockCount:     len(plan.Blocks),
		WarningCount:   len(plan.Warnings),
		TrimEvictions:  len(plan.TrimReport),
		GreetingPicked: plan.Greeting != "",
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("kafkapublish: marshal: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafka.Message{Value: payload, Time: summary.Timestamp}); err != nil {
		log.Warn().Err(err).Msg("kafkapublish_write_failed")
		return fmt.Errorf("kafkapublish: write: %w", err)
	}
	return nil
}

// Close shuts down the underlying Kafka writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
