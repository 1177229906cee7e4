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

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"stream": { "hostName": "Range 7", "tcp": { "password": "pw" } },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "Range 7", viper.GetString("stream.hostName"))
	assert.Equal(t, "pw", viper.GetString("stream.tcp.password"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, "http://localhost:5000", viper.GetString("api.serverUrl"))
	assert.Equal(t, "", viper.GetString("api.apiKey"))
	assert.Equal(t, "tacview", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "tacview-host", viper.GetString("mission.dataRecorder"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
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

func TestGetStreamConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := GetStreamConfig()
	assert.Equal(t, "tacview-host", cfg.HostName)
	assert.Equal(t, 200*time.Millisecond, cfg.TickRate)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, 4096, cfg.InboxSize)
	assert.True(t, cfg.TCPEnabled)
	assert.Equal(t, ":42674", cfg.TCPAddr)
	assert.Empty(t, cfg.TCPPassword)
	assert.False(t, cfg.WebSocketEnabled)
	assert.Equal(t, "/acmi", cfg.WebSocketPath)
}

func TestGetStreamConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"stream": {
			"tickRate": "1s",
			"websocket": { "enabled": true, "addr": ":9000", "secret": "s" }
		}
	}`)))

	cfg := GetStreamConfig()
	assert.Equal(t, time.Second, cfg.TickRate)
	assert.True(t, cfg.WebSocketEnabled)
	assert.Equal(t, ":9000", cfg.WebSocketAddr)
	assert.Equal(t, "s", cfg.WebSocketSecret)
	assert.Equal(t, "/acmi", cfg.WebSocketPath)
}

func TestGetRecordingConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := GetRecordingConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "file", cfg.Type)
	assert.Equal(t, "./recordings", cfg.File.OutputDir)
	assert.Empty(t, cfg.WebSocket.URL)
	assert.False(t, cfg.Upload)
}

func TestGetRecordingConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"recording": {
			"enabled": true,
			"type": "websocket",
			"websocket": { "url": "ws://relay:5000/ingest", "secret": "k" }
		}
	}`)))

	cfg := GetRecordingConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "websocket", cfg.Type)
	assert.Equal(t, "ws://relay:5000/ingest", cfg.WebSocket.URL)
	assert.Equal(t, "k", cfg.WebSocket.Secret)
}

func TestGetCatalogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("catalog.driver", "postgres")
	viper.Set("db.host", "db")

	cfg := GetCatalogConfig()
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, "db", cfg.Host)
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "./recordings/catalog.db", cfg.SQLitePath)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := GetOTelConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "tacview-host", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Empty(t, cfg.Endpoint)
	assert.True(t, cfg.Insecure)
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := GetInfluxConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "http", cfg.Protocol)
	assert.Equal(t, "8086", cfg.Port)
	assert.Equal(t, "stream_performance", cfg.Bucket)
}

func TestGetAreaConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("area.enabled", true)
	viper.Set("area.referenceLongitude", 41.5)
	viper.Set("area.referenceLatitude", 42.25)

	cfg := GetAreaConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 41.5, cfg.ReferenceLongitude)
	assert.Equal(t, 42.25, cfg.ReferenceLatitude)
}

func TestGetMonitorConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := GetMonitorConfig()
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, "./status.txt", cfg.StatusFile)
}

func TestGetMetadata(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("mission.title", "Red Flag")
	viper.Set("mission.referenceTime", "2011-06-02T05:00:00Z")

	meta, err := GetMetadata()
	require.NoError(t, err)
	assert.Equal(t, "Red Flag", meta.Title)
	assert.Equal(t, "tacview-host", meta.DataRecorder)
	assert.Equal(t, time.Date(2011, 6, 2, 5, 0, 0, 0, time.UTC), meta.ReferenceTime)
	assert.True(t, meta.RecordingTime.IsZero())
}

func TestGetMetadata_BadReferenceTime(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("mission.title", "Red Flag")
	viper.Set("mission.referenceTime", "yesterday")

	meta, err := GetMetadata()
	require.Error(t, err)
	assert.Equal(t, "Red Flag", meta.Title)
	assert.True(t, meta.ReferenceTime.IsZero())
}
