// Command netacld-worker drains the deployment queue and pushes compiled
// revisions to devices through the git, netmiko and proxmox_nft adaptors
// (spec §4.8, §5).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DataDog/netacld/internal/config"
	"github.com/DataDog/netacld/internal/deploy"
	"github.com/DataDog/netacld/internal/dispatch"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/obs"
	"github.com/DataDog/netacld/internal/queue"
	"github.com/DataDog/netacld/internal/store/pg"

	"github.com/redis/go-redis/v9"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "netacld-worker",
		Short: "Drain the deployment queue and push revisions to devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to an optional YAML config file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := obs.New(cfg.LogLevel, cfg.Env == "production")

	st, err := pg.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer st.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
	defer rdb.Close()
	q := queue.New(rdb)

	adaptors := map[model.DeployMode]deploy.Adaptor{
		model.DeployModeGit:        deploy.GitAdaptor{},
		model.DeployModeNetmiko:    deploy.NetmikoAdaptor{APIURLEnvVar: "NETACLD_API_URL"},
		model.DeployModeProxmoxNft: deploy.ProxmoxAdaptor{},
	}

	worker := dispatch.NewWorker(st, q, adaptors, log)

	log.Info("starting netacld-worker")
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("worker: %w", err)
	}
	log.Info("worker stopped")
	return nil
}
