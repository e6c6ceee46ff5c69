package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"

	"github.com/openswoop/syllabank/pkg/catalog"
)

func TestNewEvent(t *testing.T) {
	started := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	event := NewEvent(
		catalog.University{ID: 3, Name: "Temple University"},
		catalog.BatchResult{
			RunID:    "run-1",
			Success:  true,
			Courses:  12,
			Sections: 30,
			Errors:   []catalog.ScrapeError{{Kind: catalog.KindParse}},
			Started:  started,
			Elapsed:  90 * time.Second,
		},
	)
	require.Equal(t, Event{
		RunID:        "run-1",
		UniversityID: 3,
		University:   "Temple University",
		Success:      true,
		Courses:      12,
		Sections:     30,
		Errors:       1,
		FinishedAt:   started.Add(90 * time.Second),
	}, event)
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.Dial(srv.Addr, grpc.WithInsecure())
	require.NoError(t, err)
	defer conn.Close()

	admin, err := pubsub.NewClient(ctx, "syllabank-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	_, err = admin.CreateTopic(ctx, DefaultTopic)
	require.NoError(t, err)

	publisher, err := NewPublisher(ctx, "syllabank-test", "", option.WithGRPCConn(conn))
	require.NoError(t, err)

	event := Event{RunID: "run-1", UniversityID: 3, University: "Temple University", Success: true, Courses: 2}
	id, err := publisher.Publish(ctx, event)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	publisher.topic.Stop()

	messages := srv.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, "run-1", messages[0].Attributes["runId"])

	var got Event
	require.NoError(t, json.Unmarshal(messages[0].Data, &got))
	require.Equal(t, event, got)
}
