package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"meridian/observability/otel"
)

// Config carries the node-level runtime settings. Engine policy (risk
// parameters, emission rates, governance rules) lives in the genesis
// document referenced by GenesisFile, never here, so a config edit can
// never change ledger semantics.
type Config struct {
	DataDir     string    `toml:"DataDir"`
	NetworkName string    `toml:"NetworkName"`
	GenesisFile string    `toml:"GenesisFile"`
	JournalFile string    `toml:"JournalFile"`
	Telemetry   Telemetry `toml:"Telemetry"`
}

// Telemetry configures structured logging and the optional OTLP exporters.
type Telemetry struct {
	ServiceName  string `toml:"ServiceName"`
	Environment  string `toml:"Environment"`
	LogLevel     string `toml:"LogLevel"`
	OTLPEndpoint string `toml:"OTLPEndpoint"`
	OTLPHeaders  string `toml:"OTLPHeaders"`
	OTLPInsecure bool   `toml:"OTLPInsecure"`
	Metrics      bool   `toml:"Metrics"`
	Traces       bool   `toml:"Traces"`
}

// OTELConfig translates the TOML knobs into the exporter configuration.
func (t Telemetry) OTELConfig() otel.Config {
	return otel.Config{
		ServiceName: t.ServiceNameOrDefault(),
		Environment: strings.TrimSpace(t.Environment),
		Endpoint:    strings.TrimSpace(t.OTLPEndpoint),
		Insecure:    t.OTLPInsecure,
		Headers:     otel.ParseHeaders(t.OTLPHeaders),
		Metrics:     t.Metrics,
		Traces:      t.Traces,
	}
}

// ServiceNameOrDefault returns the configured service name, falling back to
// the canonical ledger identity.
func (t Telemetry) ServiceNameOrDefault() string {
	if name := strings.TrimSpace(t.ServiceName); name != "" {
		return name
	}
	return "meridian-ledger"
}

// defaultConfigTOML is written verbatim when no config file exists yet. It is
// decoded straight back, so the template and the defaults cannot drift apart.
const defaultConfigTOML = `# Meridian ledger node configuration.

# Directory holding the trie database and the audit journal.
DataDir = "./meridian-data"

# Network identity recorded in telemetry and genesis validation.
NetworkName = "meridian-local"

# Path to the YAML genesis document. Empty means the ledger starts without
# applying a genesis (tests and embedders seed state themselves).
GenesisFile = ""

# Path to the bbolt audit journal. Empty disables journalling.
JournalFile = ""

[Telemetry]
ServiceName = "meridian-ledger"
Environment = "local"
# Minimum log severity: debug, info, warn, or error.
LogLevel = "info"
# OTLP collector endpoint, host:port. Defaults to localhost:4318 when left
# empty and an exporter is enabled.
OTLPEndpoint = ""
# Comma-separated key=value pairs forwarded as OTLP headers.
OTLPHeaders = ""
OTLPInsecure = true
Metrics = false
Traces = false
`

// Load reads the configuration from path, creating a commented default file
// first if none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	for _, undecoded := range meta.Undecoded() {
		return nil, fmt.Errorf("config file %s contains unrecognised key %q", path, undecoded.String())
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg == nil {
		return
	}
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	if cfg.DataDir == "" {
		cfg.DataDir = "./meridian-data"
	}
	cfg.NetworkName = strings.TrimSpace(cfg.NetworkName)
	if cfg.NetworkName == "" {
		cfg.NetworkName = "meridian-local"
	}
	cfg.GenesisFile = strings.TrimSpace(cfg.GenesisFile)
	cfg.JournalFile = strings.TrimSpace(cfg.JournalFile)
}

// createDefault writes the commented default template and returns its decoded
// form.
func createDefault(path string) (*Config, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfigTOML), 0o644); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if _, err := toml.Decode(defaultConfigTOML, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}
