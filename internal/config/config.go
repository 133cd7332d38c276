package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Database holds the connection settings for the target store.
type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the settings as a pgx connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Config is everything the loader reads from the environment or an optional
// config.yaml. Resource detection is not configuration: the selector's tier
// applies wherever an override is absent (zero).
type Config struct {
	Database Database
	// InputDir is where the download collaborator drops extracted files.
	InputDir string
	// BatchSize overrides the selected tier's batch size when positive.
	BatchSize int
	// Concurrency overrides the selected tier's file concurrency when
	// positive.
	Concurrency int
	// MaxMemoryPercent caps how much of the host's memory the strategy
	// selector may assume is usable.
	MaxMemoryPercent float64
}

// Load reads config.yaml from configPath if present, with environment
// overrides under the CNPJ prefix (CNPJ_DATABASE_HOST, CNPJ_INPUT_DIR, ...).
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("CNPJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("input_dir")
	v.BindEnv("batch_size")
	v.BindEnv("concurrency")
	v.BindEnv("max_memory_percent")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "cnpj")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("input_dir", "./data")
	v.SetDefault("max_memory_percent", 80)

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config.yaml found, using defaults and env vars")
	} else {
		log.Println("Loaded config.yaml")
	}

	cfg := Config{
		Database: Database{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		InputDir:         v.GetString("input_dir"),
		BatchSize:        v.GetInt("batch_size"),
		Concurrency:      v.GetInt("concurrency"),
		MaxMemoryPercent: v.GetFloat64("max_memory_percent"),
	}

	if cfg.MaxMemoryPercent <= 0 || cfg.MaxMemoryPercent > 100 {
		return Config{}, fmt.Errorf("max_memory_percent must be in (0, 100], got %v", cfg.MaxMemoryPercent)
	}
	return cfg, nil
}
