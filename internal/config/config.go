package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	SnapshotPath   string `json:"snapshotPath" mapstructure:"snapshotPath"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// StorageConfig selects and configures the position store backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds the OpenTelemetry provider settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// SimConfig holds the movement engine timings
type SimConfig struct {
	TickInterval  time.Duration
	WatchInterval time.Duration
	SpeedKmh      float64
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./simlogs")

	viper.SetDefault("sim.tickInterval", "100ms")
	viper.SetDefault("sim.watchInterval", "3s")
	viper.SetDefault("sim.speedKmh", 80.0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.snapshotPath", "./units.json")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./units.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "dispatchsim")

	viper.SetDefault("board.enabled", false)
	viper.SetDefault("board.serverUrl", "http://localhost:5000")
	viper.SetDefault("board.apiKey", "")

	viper.SetDefault("feed.source", "file")
	viper.SetDefault("feed.incidentsPath", "./incidents.json")
	viper.SetDefault("feed.stationsPath", "./stations.json")
	viper.SetDefault("feed.serverUrl", "http://localhost:5000")
	viper.SetDefault("feed.apiKey", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "dispatchsim-metrics")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "dispatchsim-engine")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("dispatchsim.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetStorageConfig assembles the storage backend selection from viper.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			SnapshotPath:   viper.GetString("storage.memory.snapshotPath"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
	}
}

// GetSimConfig assembles the movement engine timings from viper.
func GetSimConfig() SimConfig {
	return SimConfig{
		TickInterval:  viper.GetDuration("sim.tickInterval"),
		WatchInterval: viper.GetDuration("sim.watchInterval"),
		SpeedKmh:      viper.GetFloat64("sim.speedKmh"),
	}
}

// GetOTelConfig assembles the OpenTelemetry settings from viper.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
