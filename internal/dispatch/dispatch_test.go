package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/queue"
	"github.com/DataDog/netacld/internal/store/memstore"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *memstore.Store, *queue.Queue) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(rdb)
	st := memstore.New()
	return New(st, q), st, q
}

func mustCreateTarget(t *testing.T, st *memstore.Store, name string) model.Target {
	t.Helper()
	target := &model.Target{Name: name, Generator: model.GeneratorCisco}
	require.NoError(t, st.CreateTarget(target))
	return *target
}

func TestDeployCreatesOneDeploymentPerBoundDeployer(t *testing.T) {
	d, st, q := newTestDispatcher(t)

	t1 := mustCreateTarget(t, st, "edge-1")
	t2 := mustCreateTarget(t, st, "edge-2")

	dep1 := &model.Deployer{Name: "dep-edge-1", Mode: model.DeployModeGit, TargetID: t1.ID, Git: &model.GitConfig{Repo: "git@example.com:acl.git", Branch: "main", KeyEnvVar: "K1"}}
	dep2 := &model.Deployer{Name: "dep-edge-2", Mode: model.DeployModeNetmiko, TargetID: t2.ID, SSH: &model.SSHConfig{Host: "10.0.0.2", User: "admin"}}
	require.NoError(t, st.CreateDeployer(dep1))
	require.NoError(t, st.CreateDeployer(dep2))

	policyID := "policy-1"
	rev := &model.Revision{
		PolicyID: &policyID,
		Configs: []model.RevisionConfig{
			{TargetID: t1.ID, Config: "acl config 1", Filename: "edge-1.cfg"},
			{TargetID: t2.ID, Config: "acl config 2", Filename: "edge-2.cfg"},
		},
	}
	require.NoError(t, st.CreateRevision(rev))

	deployments, err := d.Deploy(context.Background(), *rev)
	require.NoError(t, err)
	require.Len(t, deployments, 2)
	for _, dep := range deployments {
		require.Equal(t, model.DeploymentPending, dep.Status)
	}

	job1, err := q.Dequeue(context.Background(), []model.DeployMode{model.DeployModeGit}, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job1)
	require.Equal(t, dep1.ID, job1.DeployerID)

	job2, err := q.Dequeue(context.Background(), []model.DeployMode{model.DeployModeNetmiko}, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job2)
	require.Equal(t, dep2.ID, job2.DeployerID)
}

func TestDeployFailsWithNoDeployersBound(t *testing.T) {
	d, st, _ := newTestDispatcher(t)

	target := mustCreateTarget(t, st, "unbound-target")
	policyID := "policy-2"
	rev := &model.Revision{
		PolicyID: &policyID,
		Configs:  []model.RevisionConfig{{TargetID: target.ID, Config: "acl config", Filename: "unbound.cfg"}},
	}
	require.NoError(t, st.CreateRevision(rev))

	_, err := d.Deploy(context.Background(), *rev)
	require.Error(t, err)
}
