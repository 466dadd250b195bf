package server

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPConfig struct {
	Address string        `yaml:"address" env:"SKLADD_ADDRESS" env-default:":8000"`
	Timeout time.Duration `yaml:"timeout" env:"SKLADD_TIMEOUT" env-default:"5s"`
}

type Config struct {
	LogLevel string     `yaml:"log_level" env:"SKLADD_LOG_LEVEL" env-default:"INFO"`
	HTTP     HTTPConfig `yaml:"http"`
	DBPath   string     `yaml:"db_path" env:"SKLADD_DB_PATH" env-default:"sklad.db"`
	// ArchiveRetention is how long a finished task stays visible before
	// the sweep moves it to the archive.
	ArchiveRetention time.Duration `yaml:"archive_retention" env:"SKLADD_ARCHIVE_RETENTION" env-default:"168h"`
	Seed             bool          `yaml:"seed" env:"SKLADD_SEED" env-default:"false"`
}

func MustLoad(configPath string) Config {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read env: %s", err)
		}
		return cfg
	}

	// Missing file falls back to env so the binary runs without a config.
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				log.Fatalf("cannot read env: %s", err)
			}
			return cfg
		}
		log.Fatalf("cannot read config %q: %s", configPath, err)
	}

	return cfg
}
