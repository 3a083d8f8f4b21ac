package types

// Config represents the main configuration for frankend.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Crypto   CryptoConfig   `yaml:"crypto"`
	Auth     AuthConfig     `yaml:"auth"`
	Credits  CreditsConfig  `yaml:"credits"`
	Models   ModelsConfig   `yaml:"models"`
}

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig defines SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to the .db file
}

// CryptoConfig defines encryption settings.
type CryptoConfig struct {
	IdentityPath string `yaml:"identity_path"` // Path to age identity file
}

// AuthConfig defines authentication settings.
type AuthConfig struct {
	TokenTTLHours int `yaml:"token_ttl_hours"`
}

// CreditsConfig defines credit accounting settings.
type CreditsConfig struct {
	StartingBalance float64            `yaml:"starting_balance"`  // Granted on registration
	PricePerKToken  map[string]float64 `yaml:"price_per_k_token"` // Per-model overrides
	DefaultPrice    float64            `yaml:"default_price"`     // Per 1k tokens
}

// ModelsConfig defines provider settings.
type ModelsConfig struct {
	Default   string                    `yaml:"default"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// ProviderConfig defines server-level settings for an AI provider. A key set
// here acts as a fallback for users without their own stored key.
type ProviderConfig struct {
	APIKeyEncrypted string `yaml:"api_key_encrypted"` // age-encrypted API key
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "./frankend.db",
		},
		Crypto: CryptoConfig{
			IdentityPath: "./frankend.key",
		},
		Auth: AuthConfig{
			TokenTTLHours: 72,
		},
		Credits: CreditsConfig{
			StartingBalance: 100.0,
			DefaultPrice:    0.01,
			PricePerKToken: map[string]float64{
				"gpt-4o":                    0.02,
				"gpt-4o-mini":               0.002,
				"claude-sonnet-4-20250514":  0.018,
				"claude-3-5-haiku-20241022": 0.005,
				"gemini-2.0-flash":          0.002,
			},
		},
		Models: ModelsConfig{
			Default: "gpt-4o-mini",
		},
	}
}
