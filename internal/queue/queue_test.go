package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netacld/internal/model"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb)
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job := Job{DeploymentID: "d1", DeployerID: "dep1", RevisionID: "r1", TargetID: "t1", Mode: model.DeployModeGit}
	require.NoError(t, q.Enqueue(ctx, job))

	got, err := q.Dequeue(ctx, []model.DeployMode{model.DeployModeGit, model.DeployModeNetmiko}, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, job, *got)
}

func TestDequeueTimesOutWithNoJobs(t *testing.T) {
	q := newTestQueue(t)
	got, err := q.Dequeue(context.Background(), []model.DeployMode{model.DeployModeProxmoxNft}, 50*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDequeueOnlyPullsFromRequestedModes(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, Job{DeploymentID: "d1", Mode: model.DeployModeGit}))

	got, err := q.Dequeue(ctx, []model.DeployMode{model.DeployModeNetmiko}, 50*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = q.Dequeue(ctx, []model.DeployMode{model.DeployModeGit}, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "d1", got.DeploymentID)
}
