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
		"fleet": { "cars": 3, "initialSide": "1" },
		"ferry": { "rule": "roundtrip", "transitDelay": "250ms" },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))

	sim := GetSimulationConfig()
	assert.Equal(t, 3, sim.Fleet.Cars)
	assert.Equal(t, 10, sim.Fleet.Minibuses)
	assert.Equal(t, "1", sim.Fleet.InitialSide)
	assert.Equal(t, "roundtrip", sim.Ferry.Rule)
	assert.Equal(t, 250*time.Millisecond, sim.Ferry.TransitDelay)
	assert.Equal(t, 3*time.Second, sim.Ferry.UnloadDelay)
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./ferrylogs", viper.GetString("logsDir"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "ferry", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))

	sim := GetSimulationConfig()
	assert.Equal(t, FleetConfig{Cars: 12, Minibuses: 10, Trucks: 8, Seed: 0, InitialSide: "random"}, sim.Fleet)
	assert.Equal(t, FerryConfig{
		Capacity:     20,
		Rule:         "direction",
		Admission:    "ordered",
		TransitDelay: 5 * time.Second,
		UnloadDelay:  3 * time.Second,
	}, sim.Ferry)
	assert.Equal(t, TollConfig{Lanes: 4, MinDelay: time.Second, MaxDelay: 3 * time.Second}, sim.Toll)
	assert.NoError(t, sim.Validate())

	mon := GetMonitorConfig()
	assert.Equal(t, time.Second, mon.Interval)
	assert.Empty(t, mon.StatusFile)

	st := GetStorageConfig()
	assert.Equal(t, "memory", st.Type)
	assert.Equal(t, "./runs", st.Memory.OutputDir)
	assert.True(t, st.Memory.CompressOutput)
	assert.Empty(t, st.SQLite.Path)

	db := GetDBConfig()
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=ferry sslmode=disable", db.DSN())

	assert.Equal(t, GraylogConfig{Enabled: false, Address: "localhost:12201"}, GetGraylogConfig())

	inf := GetInfluxConfig()
	assert.False(t, inf.Enabled)
	assert.Equal(t, "http://localhost:8086", inf.URL)
	assert.Equal(t, "ferry_runs", inf.Bucket)

	assert.Equal(t, MetricsConfig{Enabled: false, Interval: 10 * time.Second, File: ""}, GetMetricsConfig())
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	// defaults are still registered
	assert.Equal(t, 20, GetSimulationConfig().Ferry.Capacity)
}

func TestValidate(t *testing.T) {
	valid := func() SimulationConfig {
		return SimulationConfig{
			Fleet: FleetConfig{Cars: 12, Minibuses: 10, Trucks: 8, InitialSide: "random"},
			Ferry: FerryConfig{Capacity: 20, Rule: "direction", Admission: "ordered"},
			Toll:  TollConfig{Lanes: 4, MinDelay: time.Second, MaxDelay: 3 * time.Second},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *SimulationConfig)
		errMsg string
	}{
		{"valid", func(c *SimulationConfig) {}, ""},
		{"negative trucks", func(c *SimulationConfig) { c.Fleet.Trucks = -1 }, "negative"},
		{"bad side", func(c *SimulationConfig) { c.Fleet.InitialSide = "north" }, "initialSide"},
		{"capacity below truck", func(c *SimulationConfig) { c.Ferry.Capacity = 2 }, "largest vehicle"},
		{"capacity equals truck", func(c *SimulationConfig) { c.Ferry.Capacity = 3 }, ""},
		{"bad rule", func(c *SimulationConfig) { c.Ferry.Rule = "any" }, "ferry.rule"},
		{"bad admission", func(c *SimulationConfig) { c.Ferry.Admission = "fifo" }, "ferry.admission"},
		{"negative transit", func(c *SimulationConfig) { c.Ferry.TransitDelay = -time.Second }, "delays"},
		{"one lane", func(c *SimulationConfig) { c.Toll.Lanes = 1 }, "toll.lanes"},
		{"inverted toll range", func(c *SimulationConfig) { c.Toll.MaxDelay = 0 }, "toll delay range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBindFlags_OverrideConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	fs := NewFlagSet("ferry")
	require.NoError(t, BindFlags(fs))
	require.NoError(t, fs.Parse([]string{"--rule", "roundtrip", "--seed", "42", "--storage", "sqlite"}))

	sim := GetSimulationConfig()
	assert.Equal(t, "roundtrip", sim.Ferry.Rule)
	assert.Equal(t, int64(42), sim.Fleet.Seed)
	assert.Equal(t, "sqlite", GetStorageConfig().Type)
}

func TestBindFlags_UnsetFlagKeepsConfigValue(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("ferry.admission", "open")

	fs := NewFlagSet("ferry")
	require.NoError(t, BindFlags(fs))
	require.NoError(t, fs.Parse(nil))

	assert.Equal(t, "open", GetSimulationConfig().Ferry.Admission)
	assert.Equal(t, "direction", GetSimulationConfig().Ferry.Rule)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.True(t, GetBool("testBool"))
}
