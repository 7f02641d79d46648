package bootstrap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/checkout-reconciler/pkg/config"
)

func setSQLiteEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvAppEnv, "test")
	t.Setenv(config.EnvPort, "8080")
	t.Setenv(config.EnvDBDriver, "sqlite")
	t.Setenv(config.EnvDBDSN, filepath.Join(t.TempDir(), "checkout.db"))
	t.Setenv(config.EnvJWTSecret, "secret")
	t.Setenv(config.EnvJWTIssuer, "checkout-auth")
}

func TestStartOpensDatabase(t *testing.T) {
	setSQLiteEnv(t)

	rt, err := Start(t.Context(), Options{Service: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Equal(t, "test", rt.Config.App.Env)
	assert.Nil(t, rt.Redis)
	require.NoError(t, rt.DB.Ping(t.Context()))
}

func TestStartFailsWithoutRequiredConfig(t *testing.T) {
	setSQLiteEnv(t)
	require.NoError(t, os.Unsetenv(config.EnvJWTSecret))

	rt, err := Start(t.Context(), Options{Service: "test"})
	require.Error(t, err)
	assert.Nil(t, rt)
}

func TestCloseRunsInReverseOrder(t *testing.T) {
	var order []string
	rt := &Runtime{}
	rt.OnClose(func() error { order = append(order, "first"); return nil })
	rt.OnClose(func() error { order = append(order, "second"); return errors.New("boom") })

	err := rt.Close()
	require.EqualError(t, err, "boom")
	assert.Equal(t, []string{"second", "first"}, order)
	assert.NoError(t, rt.Close())
}
