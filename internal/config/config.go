package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string        `yaml:"env" env-default:"prod"`
	Backend BackendConfig `yaml:"backend"`
	Refresh RefreshConfig `yaml:"refresh"`
	Cache   CacheConfig   `yaml:"cache"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url" env:"BACKEND_URL" env-required:"true"`
	Site    string        `yaml:"site" env-default:"odcdh3"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type RefreshConfig struct {
	CapacityInterval time.Duration `yaml:"capacity_interval" env-default:"30m"`
	SeriesInterval   time.Duration `yaml:"series_interval" env-default:"60s"`
	ScanInterval     time.Duration `yaml:"scan_interval" env-default:"5m"`
	DefaultMonths    int           `yaml:"default_months" env-default:"3"`
}

type CacheConfig struct {
	Driver string        `yaml:"driver" env-default:"sqlite"`
	Path   string        `yaml:"path" env-default:"/var/lib/dcmon/cache.db"`
	MaxAge time.Duration `yaml:"max_age" env-default:"72h"`
	Redis  RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Address  string `yaml:"address" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type HTTPConfig struct {
	Address string `yaml:"address" env-default:":8080"`
}

type LogConfig struct {
	Level  string `yaml:"level" env-default:"info"`
	Format string `yaml:"format" env-default:"json"`
}

func MustLoad(configPath string) *Config {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}
