package shard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePopOrdersByPriorityThenFIFO(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_QUEUE_A")
	require.NoError(t, err)

	// All three land in the same nowUnix() second under test, so without a
	// monotonic tiebreaker "first", "second", "third" would tie under
	// created_at and pop in SQLite's unspecified order.
	require.NoError(t, s.QueuePush(ctx, "jobs", []QueueJob{{JobID: "first", Payload: json.RawMessage(`{}`)}}, 0))
	require.NoError(t, s.QueuePush(ctx, "jobs", []QueueJob{{JobID: "second", Payload: json.RawMessage(`{}`)}}, 0))
	require.NoError(t, s.QueuePush(ctx, "jobs", []QueueJob{{JobID: "urgent", Payload: json.RawMessage(`{}`)}}, 5))
	require.NoError(t, s.QueuePush(ctx, "jobs", []QueueJob{{JobID: "third", Payload: json.RawMessage(`{}`)}}, 0))

	jobs, err := s.QueuePop(ctx, "jobs", 10)
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	got := make([]string, len(jobs))
	for i, j := range jobs {
		got[i] = j.JobID
	}
	assert.Equal(t, []string{"urgent", "first", "second", "third"}, got, "higher priority pops first; equal priority pops in push order")
}

func TestQueuePopChecksOutRatherThanDeletes(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_QUEUE_B")
	require.NoError(t, err)

	require.NoError(t, s.QueuePush(ctx, "jobs", []QueueJob{{JobID: "a", Payload: json.RawMessage(`{}`)}}, 0))

	popped, err := s.QueuePop(ctx, "jobs", 10)
	require.NoError(t, err)
	require.Len(t, popped, 1)
	assert.Equal(t, "processing", popped[0].Status)

	status, err := s.QueueStatusOf(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, 0, status.Pending)
	assert.Equal(t, 1, status.Processing, "pop checks a job out, it does not delete it")

	again, err := s.QueuePop(ctx, "jobs", 10)
	require.NoError(t, err)
	assert.Empty(t, again, "a checked-out job is invisible to further pops until its visibility window lapses")
}

func TestQueuePeekDoesNotCheckOut(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_QUEUE_C")
	require.NoError(t, err)

	require.NoError(t, s.QueuePush(ctx, "jobs", []QueueJob{{JobID: "a", Payload: json.RawMessage(`{}`)}}, 0))

	peeked, err := s.QueuePeek(ctx, "jobs", 10)
	require.NoError(t, err)
	require.Len(t, peeked, 1)
	assert.Equal(t, "pending", peeked[0].Status)

	status, err := s.QueueStatusOf(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Pending, "peek must not change job status")
}

func TestQueueClearFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_QUEUE_D")
	require.NoError(t, err)

	require.NoError(t, s.QueuePush(ctx, "jobs", []QueueJob{
		{JobID: "pending-one", Payload: json.RawMessage(`{}`)},
		{JobID: "will-process", Payload: json.RawMessage(`{}`)},
	}, 0))
	_, err = s.QueuePop(ctx, "jobs", 1)
	require.NoError(t, err)

	require.NoError(t, s.QueueClear(ctx, "jobs", "processing"))

	status, err := s.QueueStatusOf(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Pending)
	assert.Equal(t, 0, status.Processing)
}
