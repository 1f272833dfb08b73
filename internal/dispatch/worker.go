package dispatch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/deploy"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/queue"
	"github.com/DataDog/netacld/internal/store"
)

// pollTimeout is how long a single BLPOP call blocks before the worker loop
// re-checks ctx and loops again.
const pollTimeout = 5 * time.Second

// Worker drains jobs for one or more deploy modes and runs the matching
// Adaptor, persisting the outcome back to the Deployment row.
type Worker struct {
	store    store.Store
	queue    *queue.Queue
	adaptors map[model.DeployMode]deploy.Adaptor
	modes    []model.DeployMode
	log      *logrus.Entry
}

func NewWorker(st store.Store, q *queue.Queue, adaptors map[model.DeployMode]deploy.Adaptor, log *logrus.Entry) *Worker {
	modes := make([]model.DeployMode, 0, len(adaptors))
	for m := range adaptors {
		modes = append(modes, m)
	}
	return &Worker{store: st, queue: q, adaptors: adaptors, modes: modes, log: log.WithField("component", "worker")}
}

// Run blocks, dequeuing and executing jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := w.queue.Dequeue(ctx, w.modes, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.WithError(err).Warn("dequeue failed")
			continue
		}
		if job == nil {
			continue // poll timeout, nothing queued
		}
		w.runJob(ctx, *job)
	}
}

func (w *Worker) runJob(ctx context.Context, job queue.Job) {
	entry := w.log.WithFields(logrus.Fields{
		"deployment_id": job.DeploymentID,
		"deployer_id":   job.DeployerID,
		"mode":          job.Mode,
	})

	deployment, err := w.store.GetDeployment(job.DeploymentID)
	if err != nil {
		entry.WithError(err).Error("deployment not found")
		return
	}
	deployment.Status = model.DeploymentRunning
	if err := w.store.UpdateDeployment(&deployment); err != nil {
		entry.WithError(err).Error("could not mark deployment running")
	}

	sink := deploy.NewLogSink()
	status, outputErr := w.execute(ctx, job, sink)
	if outputErr != nil {
		entry.WithError(outputErr).Warn("deployment failed")
		sink.Logf("error: %v", outputErr)
	}

	deployment.Status = status
	deployment.Output = sink.String()
	if err := w.store.UpdateDeployment(&deployment); err != nil {
		entry.WithError(err).Error("could not persist deployment result")
	}
}

func (w *Worker) execute(ctx context.Context, job queue.Job, sink *deploy.LogSink) (model.DeploymentStatus, error) {
	adaptor, ok := w.adaptors[job.Mode]
	if !ok {
		return model.DeploymentFailed, fmt.Errorf("no adaptor registered for deploy mode %q", job.Mode)
	}

	deployer, err := w.store.GetDeployer(job.DeployerID)
	if err != nil {
		return model.DeploymentFailed, err
	}
	target, err := w.store.GetTarget(job.TargetID)
	if err != nil {
		return model.DeploymentFailed, err
	}
	rev, err := w.store.GetRevision(job.RevisionID)
	if err != nil {
		return model.DeploymentFailed, err
	}

	var cfg model.RevisionConfig
	found := false
	for _, c := range rev.Configs {
		if c.TargetID == job.TargetID {
			cfg, found = c, true
			break
		}
	}
	if !found {
		return model.DeploymentFailed, apperr.NotFound("revision_config", job.TargetID)
	}

	if err := adaptor.Deploy(ctx, deployer, target, cfg, rev.ID, sink, os.LookupEnv); err != nil {
		return model.DeploymentFailed, err
	}
	return model.DeploymentCompleted, nil
}
