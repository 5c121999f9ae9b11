// Package config loads raidnav settings from raidnav.cfg.json through viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "raidnav.cfg.json"

// GridConfig describes the navigation grid.
type GridConfig struct {
	RingCount    int     `json:"ringCount" mapstructure:"ringCount"`
	InnerRadius  float64 `json:"innerRadius" mapstructure:"innerRadius"`
	RingSpacing  float64 `json:"ringSpacing" mapstructure:"ringSpacing"`
	TilesPerRing int     `json:"tilesPerRing" mapstructure:"tilesPerRing"`
	Blocked      [][]int `json:"blocked" mapstructure:"blocked"` // [ring, index] pairs
}

// BandConfig is the ring band paths run through.
type BandConfig struct {
	Low       int     `json:"low" mapstructure:"low"`
	High      int     `json:"high" mapstructure:"high"`
	TileSlack float64 `json:"tileSlack" mapstructure:"tileSlack"`
}

// PortConfig lays out the Citadel ports.
type PortConfig struct {
	Distance  float64 `json:"distance" mapstructure:"distance"`
	PerSector int     `json:"perSector" mapstructure:"perSector"`
	Sectors   int     `json:"sectors" mapstructure:"sectors"`
}

// VesselClassConfig holds the data of one vessel type.
type VesselClassConfig struct {
	Name             string  `json:"name" mapstructure:"name"`
	MaxSpeed         float64 `json:"maxSpeed" mapstructure:"maxSpeed"`
	RotationSpeed    float64 `json:"rotationSpeed" mapstructure:"rotationSpeed"`
	BoundaryRadius   float64 `json:"boundaryRadius" mapstructure:"boundaryRadius"`
	AngleToEnterPort float64 `json:"angleToEnterPort" mapstructure:"angleToEnterPort"`
	AngleToLeave     float64 `json:"angleToLeave" mapstructure:"angleToLeave"`
	WaypointRadius   float64 `json:"waypointRadius" mapstructure:"waypointRadius"`
	DockTime         float64 `json:"dockTime" mapstructure:"dockTime"`
	Durability       int     `json:"durability" mapstructure:"durability"`
}

// RaidConfig drives wave spawning.
type RaidConfig struct {
	StartDistance float64 `json:"startDistance" mapstructure:"startDistance"`
	Seed          int64   `json:"seed" mapstructure:"seed"`
	Waves         [][]int `json:"waves" mapstructure:"waves"` // vessel count per class, per wave
}

// SimConfig controls the tick loop.
type SimConfig struct {
	TickRate     float64 `json:"tickRate" mapstructure:"tickRate"`
	MaxTicks     int     `json:"maxTicks" mapstructure:"maxTicks"`
	CaptureEvery int     `json:"captureEvery" mapstructure:"captureEvery"`
	Realtime     bool    `json:"realtime" mapstructure:"realtime"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory sqlite backend.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
}

// StorageConfig selects and configures the recorder backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds InfluxDB connection settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// APIConfig points at the telemetry server. UploadURL is its HTTP root;
// finished recordings are uploaded there when it is set.
type APIConfig struct {
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	UploadURL string `json:"uploadUrl" mapstructure:"uploadUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// ScenarioStep is an orchestration command run at the start of a tick.
type ScenarioStep struct {
	Tick    uint     `json:"tick" mapstructure:"tick"`
	Command string   `json:"command" mapstructure:"command"`
	Args    []string `json:"args" mapstructure:"args"`
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./raidlogs")

	viper.SetDefault("grid.ringCount", 12)
	viper.SetDefault("grid.innerRadius", 40.0)
	viper.SetDefault("grid.ringSpacing", 20.0)
	viper.SetDefault("grid.tilesPerRing", 16)
	viper.SetDefault("grid.blocked", [][]int{})

	viper.SetDefault("band.low", 3)
	viper.SetDefault("band.high", 8)
	viper.SetDefault("band.tileSlack", 0.01)

	viper.SetDefault("ports.distance", 50.0)
	viper.SetDefault("ports.perSector", 3)
	viper.SetDefault("ports.sectors", 6)

	viper.SetDefault("vessels", []map[string]any{{
		"name":             "raider",
		"maxSpeed":         30.0,
		"rotationSpeed":    100.0,
		"boundaryRadius":   85.0,
		"angleToEnterPort": 10.0,
		"angleToLeave":     40.0,
		"waypointRadius":   20.0,
		"dockTime":         5.0,
		"durability":       2,
	}})

	viper.SetDefault("raid.startDistance", 500.0)
	viper.SetDefault("raid.seed", 0)
	viper.SetDefault("raid.waves", [][]int{{2, 4, 6}})

	viper.SetDefault("sim.tickRate", 50.0)
	viper.SetDefault("sim.maxTicks", 20000)
	viper.SetDefault("sim.captureEvery", 10)
	viper.SetDefault("sim.realtime", false)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.outputDir", "./recordings")

	viper.SetDefault("api.serverUrl", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("api.uploadUrl", "")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "raidnav")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "raidnav")
	viper.SetDefault("influx.bucket", "raids")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "raidnav")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("scenario", []map[string]any{})
}

// Load reads configuration from the JSON file in configDir after setting
// default values.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
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

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

func unmarshal[T any](key string) T {
	var out T
	// defaults guarantee decodable shapes; a malformed override yields zero fields
	_ = viper.UnmarshalKey(key, &out)
	return out
}

// GetGridConfig returns the grid settings.
func GetGridConfig() GridConfig { return unmarshal[GridConfig]("grid") }

// GetBandConfig returns the pathfinding band.
func GetBandConfig() BandConfig { return unmarshal[BandConfig]("band") }

// GetPortConfig returns the port layout.
func GetPortConfig() PortConfig { return unmarshal[PortConfig]("ports") }

// GetVesselClasses returns the configured vessel types in class order.
func GetVesselClasses() []VesselClassConfig { return unmarshal[[]VesselClassConfig]("vessels") }

// GetRaidConfig returns the wave settings.
func GetRaidConfig() RaidConfig { return unmarshal[RaidConfig]("raid") }

// GetSimConfig returns the tick loop settings.
func GetSimConfig() SimConfig { return unmarshal[SimConfig]("sim") }

// GetStorageConfig returns the recorder backend settings.
func GetStorageConfig() StorageConfig { return unmarshal[StorageConfig]("storage") }

// GetDBConfig returns the postgres connection settings.
func GetDBConfig() DBConfig { return unmarshal[DBConfig]("db") }

// GetInfluxConfig returns the InfluxDB connection settings.
func GetInfluxConfig() InfluxConfig { return unmarshal[InfluxConfig]("influx") }

// GetAPIConfig returns the websocket server settings.
func GetAPIConfig() APIConfig { return unmarshal[APIConfig]("api") }

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig { return unmarshal[OTelConfig]("otel") }

// GetScenario returns the scripted orchestration commands.
func GetScenario() []ScenarioStep { return unmarshal[[]ScenarioStep]("scenario") }
