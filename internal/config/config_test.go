package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsFromEnv(t *testing.T) {
	t.Setenv("NETACLD_POSTGRES_HOST", "db.internal")
	t.Setenv("NETACLD_REDIS_HOST", "redis.internal")
	t.Setenv("NETACLD_JWT_SECRET_KEY", "s3cr3t")
	t.Setenv("NETACLD_LDAP_SERVER_URI", "ldaps://dc.internal")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.True(t, strings.Contains(cfg.PostgresDSN(), "host=db.internal"))
	require.Equal(t, "redis.internal:6379", cfg.RedisAddr())
	require.Equal(t, 60*time.Minute, cfg.TokenTTL())
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	cfg := Config{}
	require.Error(t, cfg.Validate())
}
