// Command netacld-server runs the REST API: CRUD over the authoring
// entities, revision compilation, and deployment dispatch (spec §1, §6).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DataDog/netacld/internal/api"
	"github.com/DataDog/netacld/internal/auth"
	"github.com/DataDog/netacld/internal/compile"
	"github.com/DataDog/netacld/internal/config"
	"github.com/DataDog/netacld/internal/dispatch"
	"github.com/DataDog/netacld/internal/obs"
	"github.com/DataDog/netacld/internal/queue"
	"github.com/DataDog/netacld/internal/revision"
	"github.com/DataDog/netacld/internal/store/pg"

	"github.com/redis/go-redis/v9"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "netacld-server",
		Short: "Serve the network ACL authoring and deployment API",
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

	authenticator := auth.New(auth.LDAPConfig{
		ServerURI:        cfg.LDAP.ServerURI,
		UserBindDNFormat: cfg.LDAP.UserBindDNFormat,
		UserSearchBase:   cfg.LDAP.UserSearchBase,
		UserSearchFilter: cfg.LDAP.UserSearchFilter,
		UsernameAttr:     cfg.LDAP.UsernameAttr,
		EmailAttr:        cfg.LDAP.EmailAttr,
		NameAttr:         cfg.LDAP.NameAttr,
		InsecureSkipTLS:  cfg.LDAP.InsecureSkipTLS,
	}, []byte(cfg.JWT.SecretKey), cfg.TokenTTL())

	revisions := revision.New(st, compile.TextRenderer{}, log)
	dispatcher := dispatch.New(st, q)

	router := api.NewRouter(api.Deps{
		Store:      st,
		Auth:       authenticator,
		Revisions:  revisions,
		Dispatcher: dispatcher,
		Log:        log,
	})

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("listen", cfg.Listen).Info("starting netacld-server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return <-errCh
}
