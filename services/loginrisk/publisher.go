package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// RiskAlert is the event published for high-risk or impossible-travel logins.
// Downstream consumers (notification pipelines, ban policies) subscribe to
// the topic; this service only emits.
type RiskAlert struct {
	UserID           string   `json:"user_id"`
	LoginID          string   `json:"login_id"`
	Overall          int      `json:"overall"`
	ImpossibleTravel bool     `json:"is_impossible_travel"`
	Reasons          []string `json:"reasons"`
	Timestamp        string   `json:"timestamp"`
	Source           string   `json:"source"`
}

// AlertPublisher produces risk alerts to Kafka. A nil publisher (no brokers
// configured) silently drops alerts.
type AlertPublisher struct {
	client *kgo.Client
	topic  string
}

func NewAlertPublisher(brokers []string, topic string) (*AlertPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &AlertPublisher{client: client, topic: topic}, nil
}

func (p *AlertPublisher) Publish(ctx context.Context, alert RiskAlert) error {
	if p == nil || p.client == nil {
		return nil
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	record := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(alert.UserID),
		Value:     data,
		Timestamp: time.Now(),
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	log.Printf("Published risk alert for user %s (overall=%d) to topic %s", alert.UserID, alert.Overall, p.topic)
	return nil
}

func (p *AlertPublisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Close()
}
