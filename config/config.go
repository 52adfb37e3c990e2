/*
Package config loads process configuration.

PURPOSE:
  Viper-backed settings with environment-variable overrides. Game rules
  (wheels, bonuses, house edge) live in a separate JSON snapshot loaded by
  game.go - they are reference data injected into engine operations, not
  ambient process state.

ENVIRONMENT:
  WHEEL_HTTP_PORT        HTTP server port (default 8080)
  WHEEL_DB_PATH          SQLite database path; ":memory:" for in-memory
  WHEEL_JWT_SECRET       Admin JWT signing secret
  WHEEL_GAME_CONFIG      Path to a game-config JSON file (optional)
  WHEEL_RETRY_ATTEMPTS   Bounded retry budget for conflicted operations
*/
package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Port           int
	DBPath         string
	JWTSecret      string
	GameConfigPath string
	RetryAttempts  int
}

// Load reads configuration from the environment with sane defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.BindEnv("http.port", "WHEEL_HTTP_PORT")
	v.BindEnv("db.path", "WHEEL_DB_PATH")
	v.BindEnv("jwt.secret", "WHEEL_JWT_SECRET")
	v.BindEnv("game.config", "WHEEL_GAME_CONFIG")
	v.BindEnv("retry.attempts", "WHEEL_RETRY_ATTEMPTS")

	v.SetDefault("http.port", 8080)
	v.SetDefault("db.path", "wheel.db")
	v.SetDefault("jwt.secret", "dev-only-secret")
	v.SetDefault("retry.attempts", 3)

	return &Config{
		Port:           v.GetInt("http.port"),
		DBPath:         v.GetString("db.path"),
		JWTSecret:      v.GetString("jwt.secret"),
		GameConfigPath: v.GetString("game.config"),
		RetryAttempts:  v.GetInt("retry.attempts"),
	}, nil
}
