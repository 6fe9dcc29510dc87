//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "gemnet/pkg/platform/audit"
)

func TestKafkaPublisher_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.1.2")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	broker, err := container.KafkaSeedBroker(ctx)
	require.NoError(t, err)

	adminClient, err := kgo.NewClient(kgo.SeedBrokers(broker))
	require.NoError(t, err)
	t.Cleanup(adminClient.Close)
	adm := kadm.NewClient(adminClient)

	topic := "gemnet.audit.test"
	_, err = adm.CreateTopics(ctx, 1, 1, nil, topic)
	require.NoError(t, err)

	pub, err := NewPublisher([]string{broker}, WithTopic(topic))
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	userID := uuid.NewString()
	err = pub.Emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		UserID:   userID,
		Action:   string(audit.EventFlowCompleted),
		Step:     "COMPLETE",
	})
	require.NoError(t, err)

	// Topic must exist and hold the record
	topics, err := adm.ListTopics(ctx)
	require.NoError(t, err)
	assert.True(t, topics.Has(topic))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, userID, string(records[0].Key))

	var got payload
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, string(audit.EventFlowCompleted), got.Action)
	assert.Equal(t, string(audit.CategoryCompliance), got.Category)
	assert.Equal(t, userID, got.UserID)
	assert.NotEmpty(t, got.Timestamp)
}
