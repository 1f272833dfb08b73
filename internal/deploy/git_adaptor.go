package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/DataDog/netacld/internal/model"
)

// GitAdaptor commits a RevisionConfig to a Git repository over SSH, per
// spec §4.8's git adaptor description.
type GitAdaptor struct{}

func (GitAdaptor) Deploy(ctx context.Context, deployer model.Deployer, target model.Target, cfg model.RevisionConfig, revisionID string, sink *LogSink, env EnvLookup) (err error) {
	if deployer.Git == nil {
		return fmt.Errorf("git deployer %s has no git config", deployer.ID)
	}
	gc := deployer.Git

	key, ok := env(gc.KeyEnvVar)
	if !ok || key == "" {
		return fmt.Errorf("git deployer %s: ssh key env var %s not set", deployer.ID, gc.KeyEnvVar)
	}

	keyFile, err := os.CreateTemp("", "netacld-git-key-*")
	if err != nil {
		return err
	}
	keyPath := keyFile.Name()
	// Cleanup of the scratch key is guaranteed on every exit path (spec §4.8).
	defer func() {
		_ = os.Remove(keyPath)
	}()

	if _, werr := keyFile.WriteString(key + "\n"); werr != nil {
		keyFile.Close()
		return werr
	}
	keyFile.Close()
	if cherr := os.Chmod(keyPath, 0o600); cherr != nil {
		return cherr
	}

	auth, err := gitssh.NewPublicKeysFromFile("git", keyPath, "")
	if err != nil {
		return fmt.Errorf("git deployer %s: parse ssh key: %w", deployer.ID, err)
	}
	auth.HostKeyCallbackHelper = gitssh.HostKeyCallbackHelper{}

	cloneDir, err := os.MkdirTemp("", "netacld-git-clone-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(cloneDir)

	sink.Logf("cloning %s (branch %s) into %s", gc.Repo, gc.Branch, cloneDir)
	repo, err := git.PlainCloneContext(ctx, cloneDir, false, &git.CloneOptions{
		URL:           gc.Repo,
		Auth:          auth,
		ReferenceName: plumbing.NewBranchReferenceName(gc.Branch),
		Depth:         2,
		SingleBranch:  true,
	})
	if err != nil {
		return fmt.Errorf("clone failed: %w", err)
	}

	destDir := cloneDir
	if gc.FolderPath != "" {
		destDir = filepath.Join(cloneDir, gc.FolderPath)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return err
		}
	}
	destPath := filepath.Join(destDir, cfg.Filename)

	if err := os.WriteFile(destPath, []byte(cfg.Config), 0o644); err != nil {
		return err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	status, err := wt.Status()
	if err != nil {
		return err
	}
	if status.IsClean() {
		sink.Logf("no changes, skipping commit")
		return nil
	}

	relPath, err := filepath.Rel(cloneDir, destPath)
	if err != nil {
		return err
	}
	if _, err := wt.Add(relPath); err != nil {
		return err
	}

	msg := fmt.Sprintf("%s updated, revision_id=%s", cfg.Filename, revisionID)
	if _, err := wt.Commit(msg, &git.CommitOptions{}); err != nil {
		return err
	}

	sink.Logf("pushing to %s", gc.Repo)
	if err := repo.PushContext(ctx, &git.PushOptions{Auth: auth}); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	return nil
}
