package config

import "github.com/spf13/viper"

// Default returns a starter configuration with one local backend,
// suitable for writing to disk as a first config file.
func Default() *Config {
	return &Config{
		Federation: FederationConfig{
			Policy: "parallel-merge",
			Backends: []BackendConfig{
				{Name: "local", Kind: KindSQLite, Path: "ontology.db", Watch: true},
			},
		},
		Server: ServerConfig{Addr: ":8877"},
		Log:    LogConfig{Verbosity: 0},
	}
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Federation defaults
	v.SetDefault("federation.policy", "parallel-merge")

	// Server defaults
	v.SetDefault("server.addr", ":8877")

	// Logging defaults
	v.SetDefault("log.verbosity", 0)
	v.SetDefault("log.json", false)
}
