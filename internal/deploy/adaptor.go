package deploy

import (
	"context"

	"github.com/DataDog/netacld/internal/model"
)

// Adaptor pushes one RevisionConfig to a device through one Deployer's
// mode-specific config (spec §4.8). EnvLookup resolves the environment
// variables named in a Deployer's config block (spec §6).
type Adaptor interface {
	Deploy(ctx context.Context, deployer model.Deployer, target model.Target, cfg model.RevisionConfig, revisionID string, sink *LogSink, env EnvLookup) error
}

// EnvLookup resolves an environment variable by name; production wiring is
// os.LookupEnv, tests supply a map.
type EnvLookup func(name string) (string, bool)
