// Package dispatch implements the deployment dispatcher of spec §4.8: given
// a Revision, find every Deployer bound to one of its Targets, create a
// pending Deployment row for each, and enqueue a job so a worker can run the
// matching adaptor.
package dispatch

import (
	"context"
	"sort"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/queue"
	"github.com/DataDog/netacld/internal/store"
)

// Dispatcher wires a Store to a Queue. Deploy is the only entry point the
// API layer calls; the worker loop lives in Run.
type Dispatcher struct {
	store store.Store
	queue *queue.Queue
}

func New(st store.Store, q *queue.Queue) *Dispatcher {
	return &Dispatcher{store: st, queue: q}
}

// Deploy creates one Deployment per Deployer bound to one of rev's Targets
// and enqueues a job for each, in ascending target-id order so fan-out is
// deterministic for a given revision. Returns apperr.NoDeployers if no
// Target in the revision has any Deployer bound to it.
func (d *Dispatcher) Deploy(ctx context.Context, rev model.Revision) ([]model.Deployment, error) {
	targetIDs := make([]string, 0, len(rev.Configs))
	for _, c := range rev.Configs {
		targetIDs = append(targetIDs, c.TargetID)
	}
	sort.Strings(targetIDs)

	var deployments []model.Deployment
	for _, tid := range targetIDs {
		deployers, err := d.store.DeployersForTarget(tid)
		if err != nil {
			return nil, err
		}
		for _, dep := range deployers {
			deployment := &model.Deployment{
				DeployerID: dep.ID,
				RevisionID: rev.ID,
				Status:     model.DeploymentPending,
			}
			if err := d.store.CreateDeployment(deployment); err != nil {
				return nil, err
			}
			if err := d.queue.Enqueue(ctx, queue.Job{
				DeploymentID: deployment.ID,
				DeployerID:   dep.ID,
				RevisionID:   rev.ID,
				TargetID:     tid,
				Mode:         dep.Mode,
			}); err != nil {
				return nil, err
			}
			deployments = append(deployments, *deployment)
		}
	}

	if len(deployments) == 0 {
		return nil, apperr.NoDeployers()
	}
	return deployments, nil
}
