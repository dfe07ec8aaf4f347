// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `vbridge:` root key in YAML.
type GlobalConfig struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	Switch    SwitchConfig    `mapstructure:"switch" yaml:"switch"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string           `mapstructure:"level" yaml:"level"`   // trace / debug / info / warn / error
	Format     string           `mapstructure:"format" yaml:"format"` // json / text
	Pattern    string           `mapstructure:"pattern" yaml:"pattern"`
	TimeFormat string           `mapstructure:"time_format" yaml:"time_format"`
	Outputs    LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains log output destinations besides stdout.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Transport ───

// TransportConfig selects and configures the port backend.
type TransportConfig struct {
	Type        string            `mapstructure:"type" yaml:"type"` // tap / afpacket / pcap / dummy
	QueueSize   int               `mapstructure:"queue_size" yaml:"queue_size"`
	ReadBuffer  datasize.ByteSize `mapstructure:"read_buffer" yaml:"read_buffer"`
	OpenTimeout time.Duration     `mapstructure:"open_timeout" yaml:"open_timeout"`
	Tap         TapConfig         `mapstructure:"tap" yaml:"tap"`
	AfPacket    AfPacketConfig    `mapstructure:"afpacket" yaml:"afpacket"`
	Pcap        PcapConfig        `mapstructure:"pcap" yaml:"pcap"`
}

// TapConfig configures TAP ports created by the switch.
type TapConfig struct {
	NamePrefix string `mapstructure:"name_prefix" yaml:"name_prefix"`
}

// AfPacketConfig binds ports to existing interfaces, one device per port.
type AfPacketConfig struct {
	Devices    []string          `mapstructure:"devices" yaml:"devices"`
	SnapLen    int               `mapstructure:"snap_len" yaml:"snap_len"`
	BufferSize datasize.ByteSize `mapstructure:"buffer_size" yaml:"buffer_size"`
	TimeoutMs  int               `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	BpfFilter  string            `mapstructure:"bpf_filter" yaml:"bpf_filter"`
}

// PcapConfig replays per-port capture files and records egress per port.
// An empty entry means the port has no input, or discards its output.
type PcapConfig struct {
	Inputs  []string `mapstructure:"inputs" yaml:"inputs"`
	Outputs []string `mapstructure:"outputs" yaml:"outputs"`
	SnapLen int      `mapstructure:"snap_len" yaml:"snap_len"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `vbridge: ...`.
type configRoot struct {
	Vbridge GlobalConfig `mapstructure:"vbridge"`
}

// Load loads configuration from file.
// The YAML file uses `vbridge:` as root key; env vars use the VBRIDGE_ prefix
// (e.g., VBRIDGE_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&root, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Vbridge

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "vbridge." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("vbridge.log.level", "info")
	v.SetDefault("vbridge.log.format", "text")
	v.SetDefault("vbridge.log.pattern", "%time [%level] %field %msg\n")
	v.SetDefault("vbridge.log.time_format", "2006-01-02 15:04:05.000")
	v.SetDefault("vbridge.log.outputs.file.enabled", false)
	v.SetDefault("vbridge.log.outputs.file.path", "/var/log/vbridge/vbridge.log")
	v.SetDefault("vbridge.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("vbridge.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("vbridge.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("vbridge.log.outputs.file.rotation.compress", true)

	// Metrics defaults
	v.SetDefault("vbridge.metrics.enabled", false)
	v.SetDefault("vbridge.metrics.listen", ":9092")
	v.SetDefault("vbridge.metrics.path", "/metrics")

	// Transport defaults
	v.SetDefault("vbridge.transport.type", "tap")
	v.SetDefault("vbridge.transport.queue_size", 1024)
	v.SetDefault("vbridge.transport.read_buffer", "64KB")
	v.SetDefault("vbridge.transport.open_timeout", "10s")
	v.SetDefault("vbridge.transport.tap.name_prefix", "vbr")
	v.SetDefault("vbridge.transport.afpacket.snap_len", 65535)
	v.SetDefault("vbridge.transport.afpacket.buffer_size", "8MB")
	v.SetDefault("vbridge.transport.afpacket.timeout_ms", 100)
	v.SetDefault("vbridge.transport.pcap.snap_len", 65535)

	// Switch defaults
	v.SetDefault("vbridge.switch.fdb_capacity", 65536)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be trace/debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("log.outputs.file.path is required when file output is enabled")
	}

	// ── Switch validation ──
	if cfg.Switch.FDBCapacity <= 0 {
		return fmt.Errorf("switch.fdb_capacity must be positive, got %d", cfg.Switch.FDBCapacity)
	}
	if _, err := cfg.Switch.Build(); err != nil {
		return err
	}
	numPorts := len(cfg.Switch.Ports)

	// ── Transport validation ──
	t := &cfg.Transport
	if t.QueueSize <= 0 {
		return fmt.Errorf("transport.queue_size must be positive, got %d", t.QueueSize)
	}
	if t.ReadBuffer < 64 {
		return fmt.Errorf("transport.read_buffer too small: %s", t.ReadBuffer.HR())
	}
	switch t.Type {
	case "tap":
		if t.Tap.NamePrefix == "" {
			return fmt.Errorf("transport.tap.name_prefix is required")
		}
	case "afpacket":
		if len(t.AfPacket.Devices) != numPorts {
			return fmt.Errorf("transport.afpacket.devices lists %d devices for %d ports",
				len(t.AfPacket.Devices), numPorts)
		}
		if t.AfPacket.SnapLen <= 0 || t.AfPacket.TimeoutMs <= 0 {
			return fmt.Errorf("transport.afpacket.snap_len and timeout_ms must be positive")
		}
	case "pcap":
		if len(t.Pcap.Inputs) > numPorts || len(t.Pcap.Outputs) > numPorts {
			return fmt.Errorf("transport.pcap lists more files than the %d configured ports", numPorts)
		}
	case "dummy":
	default:
		return fmt.Errorf("unsupported transport.type: %s (must be tap/afpacket/pcap/dummy)", t.Type)
	}

	return nil
}

// Marshal renders the effective configuration as YAML under the `vbridge:` root key.
func (cfg *GlobalConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(map[string]*GlobalConfig{"vbridge": cfg})
}
