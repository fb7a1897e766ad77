package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Watch    WatchConfig    `yaml:"watch"`
	Log      LogConfig      `yaml:"log"`
}

// TelegramConfig holds bot API settings.
type TelegramConfig struct {
	Token string `yaml:"token" env:"TG_BOT_TOKEN" env-required:"true"`
}

// CatalogConfig holds course-explorer settings. BaseURL is a template
// with {year} and {semester} placeholders, expanded once at startup.
type CatalogConfig struct {
	BaseURL      string        `yaml:"base_url"      env:"CATALOG_BASE_URL"      env-default:"https://courses.illinois.edu/cisapp/explorer/schedule/{year}/{semester}"`
	Year         string        `yaml:"year"          env:"CATALOG_YEAR"          env-default:"2026"`
	Semester     string        `yaml:"semester"      env:"CATALOG_SEMESTER"      env-default:"fall"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"CATALOG_FETCH_TIMEOUT" env-default:"15s"`
}

// WatchConfig holds watch-list and polling settings.
type WatchConfig struct {
	DataPath      string        `yaml:"data_path"      env:"WATCH_DATA_PATH"      env-default:"data.json"`
	CourseLimit   int           `yaml:"course_limit"   env:"WATCH_COURSE_LIMIT"   env-default:"5"`
	PollInterval  time.Duration `yaml:"poll_interval"  env:"WATCH_POLL_INTERVAL"  env-default:"5m"`
	FetchDelay    time.Duration `yaml:"fetch_delay"    env:"WATCH_FETCH_DELAY"    env-default:"1s"`
	UrgentRepeats int           `yaml:"urgent_repeats" env:"WATCH_URGENT_REPEATS" env-default:"5"`
	UrgentDelay   time.Duration `yaml:"urgent_delay"   env:"WATCH_URGENT_DELAY"   env-default:"1s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from the given YAML file when it exists,
// falling back to environment variables only. An empty path skips the
// file entirely.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			return &cfg, nil
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	return &cfg, nil
}
