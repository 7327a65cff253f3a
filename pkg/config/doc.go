// Package config loads configuration structs from environment variables
// using `env` struct tags, with optional .env file support for local
// development.
//
//	type EngineConfig struct {
//		RetryDelay time.Duration `env:"NOTIFY_RETRY_DELAY" envDefault:"1s"`
//	}
//
//	var cfg EngineConfig
//	config.MustLoad(&cfg)
package config
