package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ORACLE_PUBLIC_KEY", "02abcdef")
	t.Setenv("ADMIN_JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REPLAY_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, ReplayMemory, cfg.ReplayBackend)
	require.Equal(t, "XRD", cfg.FeeAsset)
	require.Equal(t, "30", cfg.Fee().String())
	require.Equal(t, 60, cfg.PriceLifetimeSec)
	require.Equal(t, "@every 1m", cfg.ReportSchedule)
}

func TestReplayBackendFollowsDatabase(t *testing.T) {
	t.Setenv("ORACLE_PUBLIC_KEY", "02abcdef")
	t.Setenv("ADMIN_JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://oracle@localhost/oracle?sslmode=disable")
	t.Setenv("REPLAY_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ReplayPostgres, cfg.ReplayBackend)

	t.Setenv("REPLAY_BACKEND", ReplayPebble)
	cfg, err = Load()
	require.NoError(t, err)
	require.Equal(t, ReplayPebble, cfg.ReplayBackend)
}

func TestLoadRequiresKeys(t *testing.T) {
	t.Setenv("ORACLE_PUBLIC_KEY", "")
	t.Setenv("ADMIN_JWT_SECRET", "secret")
	_, err := Load()
	require.ErrorContains(t, err, "ORACLE_PUBLIC_KEY")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			OraclePublicKey:    "02ab",
			AdminJWTSecret:     "s",
			MonthlyFee:         "30",
			ReplayBackend:      ReplayMemory,
			PriceLifetimeSec:   60,
			RateLimitPerMinute: 100,
		}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.ReplayBackend = ReplayRedis
	require.ErrorContains(t, c.Validate(), "REDIS_ADDR")

	c = base()
	c.ReplayBackend = ReplayPostgres
	require.ErrorContains(t, c.Validate(), "DATABASE_URL")

	c = base()
	c.ReplayBackend = "etcd"
	require.Error(t, c.Validate())

	c = base()
	c.MonthlyFee = "-1"
	require.ErrorContains(t, c.Validate(), "MONTHLY_FEE")

	c = base()
	c.PriceLifetimeSec = 0
	require.Error(t, c.Validate())
}
