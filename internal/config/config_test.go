package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"sim": { "tickInterval": "250ms", "speedKmh": 120 },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dispatchsim.cfg.json"), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 250*time.Millisecond, viper.GetDuration("sim.tickInterval"))
	assert.Equal(t, 120.0, viper.GetFloat64("sim.speedKmh"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dispatchsim.cfg.json"), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./simlogs", viper.GetString("logsDir"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "postgres", viper.GetString("db.username"))
	assert.Equal(t, "dispatchsim", viper.GetString("db.database"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "3m", viper.GetString("storage.sqlite.dumpInterval"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "dispatchsim-engine", viper.GetString("otel.serviceName"))
	assert.Equal(t, "5s", viper.GetString("otel.batchTimeout"))
	assert.Equal(t, false, viper.GetBool("board.enabled"))
	assert.Equal(t, "http://localhost:5000", viper.GetString("board.serverUrl"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetSimConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dispatchsim.cfg.json"), []byte(`{}`), 0644))
	require.NoError(t, Load(dir))

	sim := GetSimConfig()
	assert.Equal(t, 100*time.Millisecond, sim.TickInterval)
	assert.Equal(t, 3*time.Second, sim.WatchInterval)
	assert.Equal(t, 80.0, sim.SpeedKmh)
}

func TestGetStorageConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{"storage": {"type": "sqlite", "sqlite": {"dumpInterval": "30s", "dumpPath": "/tmp/u.db"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dispatchsim.cfg.json"), []byte(cfg), 0644))
	require.NoError(t, Load(dir))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, 30*time.Second, sc.SQLite.DumpInterval)
	assert.Equal(t, "/tmp/u.db", sc.SQLite.DumpPath)
}
