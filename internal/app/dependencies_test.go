package app

import (
	"context"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/foodorder/internal/health"
)

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return log.NewEntry(logger)
}

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{KVBackend: KVBackendMemory}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, deps.kv)
	require.NotNil(t, deps.outboxRepo)
	require.NotNil(t, deps.submissionRepo)
	require.NotNil(t, deps.storageChecker)
	require.Nil(t, deps.closeFn)
	deps.close(testLogger())
}

func TestInitRuntimeDependencies_SQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := Config{KVBackend: KVBackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "cart.db")}
	deps, err := initRuntimeDependencies(ctx, cfg, testLogger())
	require.NoError(t, err)
	defer deps.close(testLogger())

	require.NoError(t, deps.kv.Set(ctx, "cart", []byte(`{"items":[],"total":0}`)))
	blob, ok, err := deps.kv.Get(ctx, "cart")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"items":[],"total":0}`, string(blob))

	check := deps.storageChecker.Check(ctx)
	require.Equal(t, healthcheck.StatusHealthy, check.Status)
}

func TestInitRuntimeDependencies_RequiresSettings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
	}{
		{name: "sqlite without path", cfg: Config{KVBackend: KVBackendSQLite}},
		{name: "redis without url", cfg: Config{KVBackend: KVBackendRedis}},
		{name: "postgres without dsn", cfg: Config{KVBackend: KVBackendPostgres}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := initRuntimeDependencies(context.Background(), tc.cfg, testLogger())
			require.Error(t, err)
		})
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{KVBackend: "etcd"}, testLogger())
	require.ErrorContains(t, err, "unsupported storage driver")
}
