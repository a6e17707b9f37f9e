package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/ferry/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "ferry.cfg.json"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// FleetConfig holds population settings
type FleetConfig struct {
	Cars        int    `json:"cars" mapstructure:"cars"`
	Minibuses   int    `json:"minibuses" mapstructure:"minibuses"`
	Trucks      int    `json:"trucks" mapstructure:"trucks"`
	Seed        int64  `json:"seed" mapstructure:"seed"`
	InitialSide string `json:"initialSide" mapstructure:"initialSide"`
}

// FerryConfig holds boarding protocol settings
type FerryConfig struct {
	Capacity     int           `json:"capacity" mapstructure:"capacity"`
	Rule         string        `json:"rule" mapstructure:"rule"`
	Admission    string        `json:"admission" mapstructure:"admission"`
	TransitDelay time.Duration `json:"transitDelay" mapstructure:"transitDelay"`
	UnloadDelay  time.Duration `json:"unloadDelay" mapstructure:"unloadDelay"`
}

// TollConfig holds toll gate settings
type TollConfig struct {
	Lanes    int           `json:"lanes" mapstructure:"lanes"`
	MinDelay time.Duration `json:"minDelay" mapstructure:"minDelay"`
	MaxDelay time.Duration `json:"maxDelay" mapstructure:"maxDelay"`
}

// SimulationConfig groups everything the simulation itself reads.
type SimulationConfig struct {
	Fleet FleetConfig `json:"fleet" mapstructure:"fleet"`
	Ferry FerryConfig `json:"ferry" mapstructure:"ferry"`
	Toll  TollConfig  `json:"toll" mapstructure:"toll"`
}

// MonitorConfig holds status monitor settings
type MonitorConfig struct {
	Interval   time.Duration
	StatusFile string
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds PostgreSQL connection settings
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// GraylogConfig holds GELF output settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled    bool
	URL        string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// MetricsConfig holds OpenTelemetry metrics export settings
type MetricsConfig struct {
	Enabled  bool
	Interval time.Duration
	File     string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./ferrylogs")
	viper.SetDefault("logsMaxAge", "720h")

	viper.SetDefault("fleet.cars", 12)
	viper.SetDefault("fleet.minibuses", 10)
	viper.SetDefault("fleet.trucks", 8)
	viper.SetDefault("fleet.seed", 0)
	viper.SetDefault("fleet.initialSide", "random")

	viper.SetDefault("ferry.capacity", 20)
	viper.SetDefault("ferry.rule", "direction")
	viper.SetDefault("ferry.admission", "ordered")
	viper.SetDefault("ferry.transitDelay", "5s")
	viper.SetDefault("ferry.unloadDelay", "3s")

	viper.SetDefault("toll.lanes", 4)
	viper.SetDefault("toll.minDelay", "1s")
	viper.SetDefault("toll.maxDelay", "3s")

	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./runs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "ferry")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "ferry")
	viper.SetDefault("influx.bucket", "ferry_runs")
	viper.SetDefault("influx.backupPath", "./ferrylogs/influx_backup.lp.gz")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.interval", "10s")
	viper.SetDefault("metrics.file", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// GetSimulationConfig returns the fleet, ferry and toll settings.
func GetSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Fleet: FleetConfig{
			Cars:        viper.GetInt("fleet.cars"),
			Minibuses:   viper.GetInt("fleet.minibuses"),
			Trucks:      viper.GetInt("fleet.trucks"),
			Seed:        viper.GetInt64("fleet.seed"),
			InitialSide: viper.GetString("fleet.initialSide"),
		},
		Ferry: FerryConfig{
			Capacity:     viper.GetInt("ferry.capacity"),
			Rule:         viper.GetString("ferry.rule"),
			Admission:    viper.GetString("ferry.admission"),
			TransitDelay: viper.GetDuration("ferry.transitDelay"),
			UnloadDelay:  viper.GetDuration("ferry.unloadDelay"),
		},
		Toll: TollConfig{
			Lanes:    viper.GetInt("toll.lanes"),
			MinDelay: viper.GetDuration("toll.minDelay"),
			MaxDelay: viper.GetDuration("toll.maxDelay"),
		},
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
	}
}

// GetDBConfig returns the PostgreSQL connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetGraylogConfig returns the Graylog settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetMetricsConfig returns the metrics export settings.
func GetMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:  viper.GetBool("metrics.enabled"),
		Interval: viper.GetDuration("metrics.interval"),
		File:     viper.GetString("metrics.file"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL: fmt.Sprintf("%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// Validate checks the simulation settings for values the protocol cannot run
// with.
func (c SimulationConfig) Validate() error {
	f := c.Fleet
	if f.Cars < 0 || f.Minibuses < 0 || f.Trucks < 0 {
		return fmt.Errorf("%w: vehicle counts must not be negative", ErrInvalid)
	}
	switch f.InitialSide {
	case "random", "0", "1":
	default:
		return fmt.Errorf("%w: fleet.initialSide must be random, 0 or 1, got %q", ErrInvalid, f.InitialSide)
	}

	if c.Ferry.Capacity < core.MaxClassSize() {
		return fmt.Errorf("%w: ferry.capacity %d is smaller than the largest vehicle (%d)",
			ErrInvalid, c.Ferry.Capacity, core.MaxClassSize())
	}
	switch c.Ferry.Rule {
	case "direction", "roundtrip":
	default:
		return fmt.Errorf("%w: ferry.rule must be direction or roundtrip, got %q", ErrInvalid, c.Ferry.Rule)
	}
	switch c.Ferry.Admission {
	case "ordered", "open":
	default:
		return fmt.Errorf("%w: ferry.admission must be ordered or open, got %q", ErrInvalid, c.Ferry.Admission)
	}
	if c.Ferry.TransitDelay < 0 || c.Ferry.UnloadDelay < 0 {
		return fmt.Errorf("%w: ferry delays must not be negative", ErrInvalid)
	}

	if c.Toll.Lanes < 2 {
		return fmt.Errorf("%w: toll.lanes must be at least 2 so each shore has a lane, got %d", ErrInvalid, c.Toll.Lanes)
	}
	if c.Toll.MinDelay < 0 || c.Toll.MaxDelay < c.Toll.MinDelay {
		return fmt.Errorf("%w: toll delay range [%s, %s] is invalid", ErrInvalid, c.Toll.MinDelay, c.Toll.MaxDelay)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
