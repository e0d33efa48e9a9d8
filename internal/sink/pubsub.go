package sink

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

// topicPublisher is the slice of *pubsub.Topic the sink needs.
type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
	Stop()
}

// PubSub publishes each saved record as an individual Pub/Sub message so
// downstream consumers see products as they are scraped.
type PubSub struct {
	topic topicPublisher
	runID string
}

// NewPubSub wires the sink to an existing topic handle.
func NewPubSub(topic topicPublisher, runID string) *PubSub {
	return &PubSub{topic: topic, runID: runID}
}

func (s *PubSub) Push(ctx context.Context, records []product.Record) error {
	if s.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}

	results := make([]*pubsub.PublishResult, 0, len(records))
	for _, rec := range records {
		data, err := jsonAPI.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.ProductID, err)
		}
		results = append(results, s.topic.Publish(ctx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"run_id":     s.runID,
				"product_id": rec.ProductID,
			},
		}))
	}

	for i, res := range results {
		if _, err := res.Get(ctx); err != nil {
			return fmt.Errorf("publish record %s: %w", records[i].ProductID, err)
		}
	}
	return nil
}

func (s *PubSub) Close(_ context.Context) error {
	if s.topic != nil {
		s.topic.Stop()
	}
	return nil
}
