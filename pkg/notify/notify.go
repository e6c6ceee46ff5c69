// Package notify announces finished crawls to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/openswoop/syllabank/pkg/catalog"
)

const DefaultTopic = "catalog-refreshed"

// Event is the payload published after a crawl. Consumers re-read the
// university's courses from the store; the event only says they changed.
type Event struct {
	RunID        string    `json:"runId"`
	UniversityID int64     `json:"universityId"`
	University   string    `json:"university"`
	Success      bool      `json:"success"`
	Courses      int       `json:"courses"`
	Sections     int       `json:"sections"`
	Errors       int       `json:"errors"`
	FinishedAt   time.Time `json:"finishedAt"`
}

func NewEvent(university catalog.University, result catalog.BatchResult) Event {
	return Event{
		RunID:        result.RunID,
		UniversityID: university.ID,
		University:   university.Name,
		Success:      result.Success,
		Courses:      result.Courses,
		Sections:     result.Sections,
		Errors:       len(result.Errors),
		FinishedAt:   result.Started.Add(result.Elapsed).UTC(),
	}
}

type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewPublisher(ctx context.Context, projectID, topicID string, opts ...option.ClientOption) (*Publisher, error) {
	if topicID == "" {
		topicID = DefaultTopic
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	return &Publisher{client: client, topic: client.Topic(topicID)}, nil
}

// Publish sends the event and waits for the server to acknowledge it,
// returning the message id.
func (p *Publisher) Publish(ctx context.Context, event Event) (string, error) {
	msg, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       msg,
		Attributes: map[string]string{"runId": event.RunID, "university": event.University},
	})
	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish message: %w", err)
	}
	return id, nil
}

func (p *Publisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
