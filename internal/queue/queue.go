// Package queue implements the single Redis-backed job queue of spec §4.8
// and §5: an atomic-pop list per deploy mode, so each enqueued job runs on
// exactly one worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DataDog/netacld/internal/model"
)

const keyPrefix = "netacld:deploy:"

// Job is the payload enqueued per (revision, applicable deployer) pair.
type Job struct {
	DeploymentID string         `json:"deployment_id"`
	DeployerID   string         `json:"deployer_id"`
	RevisionID   string         `json:"revision_id"`
	TargetID     string         `json:"target_id"`
	Mode         model.DeployMode `json:"mode"`
}

// Queue wraps a redis client with the enqueue/dequeue surface the
// dispatcher and workers need.
type Queue struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// keyFor returns one Redis list key per deploy mode, mirroring the
// function-map dispatch of spec §4.8 (git/netmiko/proxmox_nft each get
// their own queue so a worker can specialise if it chooses to).
func keyFor(mode model.DeployMode) string {
	return keyPrefix + string(mode)
}

// Enqueue pushes job onto the tail of its mode's list (RPUSH), preserving
// FIFO order.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, keyFor(job.Mode), data).Err()
}

// Dequeue blocks (BLPOP) on the given modes' lists until a job is
// available or ctx is done, returning the first popped job. BLPOP's atomic
// pop semantics (spec §5) guarantee a job is delivered to exactly one
// caller even with multiple worker processes polling the same keys.
func (q *Queue) Dequeue(ctx context.Context, modes []model.DeployMode, timeout time.Duration) (*Job, error) {
	keys := make([]string, len(modes))
	for i, m := range modes {
		keys[i] = keyFor(m)
	}
	res, err := q.rdb.BLPop(ctx, timeout, keys...).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("queue: unexpected BLPOP reply %v", res)
	}
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
