package types

// Config represents the main configuration for agentdeck.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Crypto   CryptoConfig   `yaml:"crypto"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Events   EventsConfig   `yaml:"events"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig defines record store settings.
type StorageConfig struct {
	Path string `yaml:"path"` // Path to the SQLite database file
}

// CryptoConfig defines snapshot sealing settings.
type CryptoConfig struct {
	IdentityPath string `yaml:"identity_path"` // Path to age identity file
}

// PipelineConfig defines simulated execution settings.
type PipelineConfig struct {
	StepDelayMS int `yaml:"step_delay_ms"` // Pacing between thought steps
}

// EventsConfig defines activity log retention settings.
type EventsConfig struct {
	RetentionCap int `yaml:"retention_cap"` // Oldest events evicted past this count
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Storage: StorageConfig{
			Path: "./agentdeck.db",
		},
		Crypto: CryptoConfig{
			IdentityPath: "./agentdeck.key",
		},
		Pipeline: PipelineConfig{
			StepDelayMS: 500,
		},
		Events: EventsConfig{
			RetentionCap: 1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
