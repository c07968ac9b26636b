package config

import (
	"time"

	"github.com/spf13/viper"
)

// Load reads the .env file (if present) and binds the environment
// variables the server understands. Environment always wins over file
// values.
func Load() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.BindEnv("server.port", "PORT")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.access_secret", "JWT_ACCESS_SECRET")
	viper.BindEnv("jwt.refresh_secret", "JWT_REFRESH_SECRET")
	viper.BindEnv("jwt.access_ttl", "JWT_ACCESS_TTL")
	viper.BindEnv("jwt.refresh_ttl", "JWT_REFRESH_TTL")

	viper.BindEnv("bcrypt.cost", "BCRYPT_COST")

	SetDefaults()
}

// SetDefaults installs the fallback values used when neither the .env
// file nor the environment provides a key. Tests call this directly.
func SetDefaults() {
	viper.SetDefault("server.port", "8080")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.name", "minhas_financas")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("jwt.access_secret", "access-secret-change-me")
	viper.SetDefault("jwt.refresh_secret", "refresh-secret-change-me")
	viper.SetDefault("jwt.access_ttl", 5*time.Minute)
	viper.SetDefault("jwt.refresh_ttl", 168*time.Hour)

	viper.SetDefault("bcrypt.cost", 10)
}

// AccessTTL returns the access token lifetime.
func AccessTTL() time.Duration {
	return viper.GetDuration("jwt.access_ttl")
}

// RefreshTTL returns the refresh token lifetime.
func RefreshTTL() time.Duration {
	return viper.GetDuration("jwt.refresh_ttl")
}

// BcryptCost returns the password hashing cost factor.
func BcryptCost() int {
	return viper.GetInt("bcrypt.cost")
}
