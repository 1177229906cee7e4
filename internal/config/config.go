package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/OCAP2/tacview/pkg/acmi"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "tacview_host.cfg.json"

// StreamConfig holds live transport settings.
type StreamConfig struct {
	HostName   string
	TickRate   time.Duration
	SendBuffer int
	InboxSize  int

	TCPEnabled  bool
	TCPAddr     string
	TCPPassword string

	WebSocketEnabled bool
	WebSocketAddr    string
	WebSocketPath    string
	WebSocketSecret  string
}

// FileConfig holds on-disk recording settings.
type FileConfig struct {
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
}

// RelayConfig holds WebSocket recording relay settings.
type RelayConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// RecordingConfig holds settings for the recording sink.
type RecordingConfig struct {
	Enabled   bool
	Type      string
	File      FileConfig
	WebSocket RelayConfig
	Upload    bool
}

// CatalogConfig holds settings for the recording catalog database.
type CatalogConfig struct {
	Enabled    bool
	Driver     string
	SQLitePath string
	Host       string
	Port       string
	Username   string
	Password   string
	Database   string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// InfluxConfig holds InfluxDB settings.
type InfluxConfig struct {
	Enabled  bool
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
	Bucket   string
}

// AreaConfig holds the optional area of interest and local projection origin.
type AreaConfig struct {
	Enabled            bool
	Polygon            string
	ReferenceLongitude float64
	ReferenceLatitude  float64
}

// MonitorConfig holds status monitor settings.
type MonitorConfig struct {
	Interval   time.Duration
	StatusFile string
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

// SetDefaults registers every default. Load calls it; callers running
// without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("stream.hostName", "tacview-host")
	viper.SetDefault("stream.tickRate", "200ms")
	viper.SetDefault("stream.sendBuffer", 256)
	viper.SetDefault("stream.inboxSize", 4096)
	viper.SetDefault("stream.tcp.enabled", true)
	viper.SetDefault("stream.tcp.addr", ":42674")
	viper.SetDefault("stream.tcp.password", "")
	viper.SetDefault("stream.websocket.enabled", false)
	viper.SetDefault("stream.websocket.addr", ":8080")
	viper.SetDefault("stream.websocket.path", "/acmi")
	viper.SetDefault("stream.websocket.secret", "")

	viper.SetDefault("mission.title", "")
	viper.SetDefault("mission.category", "")
	viper.SetDefault("mission.author", "")
	viper.SetDefault("mission.referenceTime", "")
	viper.SetDefault("mission.briefing", "")
	viper.SetDefault("mission.debriefing", "")
	viper.SetDefault("mission.comments", "")
	viper.SetDefault("mission.dataSource", "")
	viper.SetDefault("mission.dataRecorder", "tacview-host")

	viper.SetDefault("recording.enabled", false)
	viper.SetDefault("recording.type", "file")
	viper.SetDefault("recording.file.outputDir", "./recordings")
	viper.SetDefault("recording.websocket.url", "")
	viper.SetDefault("recording.websocket.secret", "")
	viper.SetDefault("recording.upload", false)

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("catalog.enabled", false)
	viper.SetDefault("catalog.driver", "sqlite")
	viper.SetDefault("catalog.sqlitePath", "./recordings/catalog.db")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "tacview")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "tacview-metrics")
	viper.SetDefault("influx.bucket", "stream_performance")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "tacview-host")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("area.enabled", false)
	viper.SetDefault("area.polygon", "")
	viper.SetDefault("area.referenceLongitude", 0.0)
	viper.SetDefault("area.referenceLatitude", 0.0)

	viper.SetDefault("monitor.interval", "5s")
	viper.SetDefault("monitor.statusFile", "./status.txt")
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

// GetStreamConfig returns the live transport configuration.
func GetStreamConfig() StreamConfig {
	return StreamConfig{
		HostName:         viper.GetString("stream.hostName"),
		TickRate:         viper.GetDuration("stream.tickRate"),
		SendBuffer:       viper.GetInt("stream.sendBuffer"),
		InboxSize:        viper.GetInt("stream.inboxSize"),
		TCPEnabled:       viper.GetBool("stream.tcp.enabled"),
		TCPAddr:          viper.GetString("stream.tcp.addr"),
		TCPPassword:      viper.GetString("stream.tcp.password"),
		WebSocketEnabled: viper.GetBool("stream.websocket.enabled"),
		WebSocketAddr:    viper.GetString("stream.websocket.addr"),
		WebSocketPath:    viper.GetString("stream.websocket.path"),
		WebSocketSecret:  viper.GetString("stream.websocket.secret"),
	}
}

// GetRecordingConfig returns the recording sink configuration.
func GetRecordingConfig() RecordingConfig {
	var file FileConfig
	var relay RelayConfig
	_ = viper.UnmarshalKey("recording.file", &file)
	_ = viper.UnmarshalKey("recording.websocket", &relay)
	return RecordingConfig{
		Enabled:   viper.GetBool("recording.enabled"),
		Type:      viper.GetString("recording.type"),
		File:      file,
		WebSocket: relay,
		Upload:    viper.GetBool("recording.upload"),
	}
}

// GetCatalogConfig returns the catalog database configuration.
func GetCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Enabled:    viper.GetBool("catalog.enabled"),
		Driver:     viper.GetString("catalog.driver"),
		SQLitePath: viper.GetString("catalog.sqlitePath"),
		Host:       viper.GetString("db.host"),
		Port:       viper.GetString("db.port"),
		Username:   viper.GetString("db.username"),
		Password:   viper.GetString("db.password"),
		Database:   viper.GetString("db.database"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetAreaConfig returns the area of interest configuration.
func GetAreaConfig() AreaConfig {
	return AreaConfig{
		Enabled:            viper.GetBool("area.enabled"),
		Polygon:            viper.GetString("area.polygon"),
		ReferenceLongitude: viper.GetFloat64("area.referenceLongitude"),
		ReferenceLatitude:  viper.GetFloat64("area.referenceLatitude"),
	}
}

// GetMonitorConfig returns the status monitor configuration.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

// GetMetadata returns the configured mission metadata. An unparsable
// reference time is returned as an error alongside the remaining fields.
func GetMetadata() (acmi.Metadata, error) {
	meta := acmi.Metadata{
		Title:        viper.GetString("mission.title"),
		Category:     viper.GetString("mission.category"),
		Author:       viper.GetString("mission.author"),
		Briefing:     viper.GetString("mission.briefing"),
		Debriefing:   viper.GetString("mission.debriefing"),
		Comments:     viper.GetString("mission.comments"),
		DataSource:   viper.GetString("mission.dataSource"),
		DataRecorder: viper.GetString("mission.dataRecorder"),
	}
	if raw := viper.GetString("mission.referenceTime"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return meta, fmt.Errorf("mission.referenceTime: %w", err)
		}
		meta.ReferenceTime = t.UTC()
	}
	return meta, nil
}
