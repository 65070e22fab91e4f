//go:build integration

package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/pkg/testutil/containers"
)

func TestQueue_RoundTripAndRetry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	q := NewQueue(containers.NewRedis(t), nil)

	reg := models.Registration{ID: "reg_1", Email: "ada@example.com"}
	require.NoError(t, q.EnqueueEmail(ctx, EmailPayload{EmailType: models.EmailTypeConfirmation, Registration: reg}))
	require.NoError(t, q.EnqueueSheetAppend(ctx, SheetAppendPayload{Registration: reg}))
	jobID, err := q.EnqueueSnapshot(ctx, SnapshotPayload{Day: "2025-03-09"})
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth[QueueEmails])
	assert.Equal(t, int64(1), depth[QueueSheets])
	assert.Equal(t, int64(1), depth[QueueSnapshots])
	assert.Zero(t, depth[QueueDLQ])

	job, err := q.Dequeue(ctx, QueueSnapshots)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, JobTypeSnapshot, job.Type)
	assert.Equal(t, QueueSnapshots, job.Queue)

	job, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeEmail, job.Type)

	cause := errors.New("smtp down")
	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job, cause))
		job, err = q.Dequeue(ctx, QueueEmails)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, i, job.Attempt)
		assert.Equal(t, "smtp down", job.LastError)
	}
	require.NoError(t, q.Retry(ctx, job, cause))

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth[QueueEmails])
	assert.Equal(t, int64(1), depth[QueueDLQ])
}
