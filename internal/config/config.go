package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server            ServerConfig
	ExchangeRateAPI   ProviderConfig
	OpenExchangeRates ProviderConfig
	Cache             CacheConfig
	History           HistoryConfig
	LogLevel          string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// CacheConfig.TTL of zero keeps aggregated rates for the process lifetime.
type CacheConfig struct {
	TTL time.Duration
}

type HistoryConfig struct {
	Retention time.Duration
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "5s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("EXCHANGERATE_API_BASE_URL", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("EXCHANGERATE_API_KEY", "")
	v.SetDefault("OPENEXCHANGE_BASE_URL", "https://openexchangerates.org/api")
	v.SetDefault("OPENEXCHANGE_APP_ID", "")
	v.SetDefault("PROVIDER_TIMEOUT", "10s")

	v.SetDefault("CACHE_TTL", "0s")
	v.SetDefault("HISTORY_RETENTION", "24h")
}

func fromViper(v *viper.Viper) (*Config, error) {
	port := v.GetInt("SERVER_PORT")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid SERVER_PORT %q", v.GetString("SERVER_PORT"))
	}

	providerTimeout := getDuration(v, "PROVIDER_TIMEOUT", 10*time.Second)

	cfg := &Config{
		Server: ServerConfig{
			Port:         port,
			ReadTimeout:  getDuration(v, "SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDuration(v, "SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration(v, "SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		ExchangeRateAPI: ProviderConfig{
			BaseURL: v.GetString("EXCHANGERATE_API_BASE_URL"),
			APIKey:  v.GetString("EXCHANGERATE_API_KEY"),
			Timeout: providerTimeout,
		},
		OpenExchangeRates: ProviderConfig{
			BaseURL: v.GetString("OPENEXCHANGE_BASE_URL"),
			APIKey:  v.GetString("OPENEXCHANGE_APP_ID"),
			Timeout: providerTimeout,
		},
		Cache: CacheConfig{
			TTL: getDuration(v, "CACHE_TTL", 0),
		},
		History: HistoryConfig{
			Retention: getDuration(v, "HISTORY_RETENTION", 24*time.Hour),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if cfg.History.Retention <= 0 {
		return nil, fmt.Errorf("HISTORY_RETENTION must be positive, got %s", cfg.History.Retention)
	}

	return cfg, nil
}

func getDuration(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	valueStr := v.GetString(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil || value < 0 {
		fmt.Printf("Warning: Invalid duration for %s, using default: %s\n", key, defaultValue)
		return defaultValue
	}

	return value
}
