package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	DailyEpisodeLimit        int
	MaxPanelsPerEpisode      int
	MaxConsecutiveTurns      int
	MaxStoryPanels           int
	StoryTimeoutSeconds      int
	ImageTimeoutSeconds      int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	OpenAIAPIKey             string
	OpenAIBaseURL            string
	OpenAIModel              string
	ImageAPIBaseURL          string
	ImageAPIKey              string
	StorageEndpoint          string
	StorageAccessKey         string
	StorageSecretKey         string
	StorageBucket            string
	StoragePublicBaseURL     string
	StorageUseSSL            bool
	LogPretty                bool
}

func Default() Config {
	return Config{
		DailyEpisodeLimit:        10,
		MaxPanelsPerEpisode:      20,
		MaxConsecutiveTurns:      3,
		MaxStoryPanels:           6,
		StoryTimeoutSeconds:      30,
		ImageTimeoutSeconds:      60,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		OpenAIModel:              "gpt-4o-mini",
		StorageBucket:            "panels",
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("DAILY_EPISODE_LIMIT"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DailyEpisodeLimit = value
		}
	}
	if raw := os.Getenv("MAX_PANELS_PER_EPISODE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxPanelsPerEpisode = value
		}
	}
	if raw := os.Getenv("MAX_CONSECUTIVE_TURNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 1 {
			cfg.MaxConsecutiveTurns = value
		}
	}
	if raw := os.Getenv("STORY_TIMEOUT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.StoryTimeoutSeconds = value
		}
	}
	if raw := os.Getenv("IMAGE_TIMEOUT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ImageTimeoutSeconds = value
		}
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	if raw := os.Getenv("OPENAI_API_KEY"); raw != "" {
		cfg.OpenAIAPIKey = raw
	}
	if raw := os.Getenv("OPENAI_BASE_URL"); raw != "" {
		cfg.OpenAIBaseURL = raw
	}
	if raw := os.Getenv("OPENAI_MODEL"); raw != "" {
		cfg.OpenAIModel = raw
	}
	if raw := os.Getenv("IMAGE_API_BASE_URL"); raw != "" {
		cfg.ImageAPIBaseURL = raw
	}
	if raw := os.Getenv("IMAGE_API_KEY"); raw != "" {
		cfg.ImageAPIKey = raw
	}
	if raw := os.Getenv("STORAGE_ENDPOINT"); raw != "" {
		cfg.StorageEndpoint = raw
	}
	if raw := os.Getenv("STORAGE_ACCESS_KEY"); raw != "" {
		cfg.StorageAccessKey = raw
	}
	if raw := os.Getenv("STORAGE_SECRET_KEY"); raw != "" {
		cfg.StorageSecretKey = raw
	}
	if raw := os.Getenv("STORAGE_BUCKET"); raw != "" {
		cfg.StorageBucket = raw
	}
	if raw := os.Getenv("STORAGE_PUBLIC_BASE_URL"); raw != "" {
		cfg.StoragePublicBaseURL = raw
	}
	if raw := os.Getenv("STORAGE_USE_SSL"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.StorageUseSSL = value
		}
	}
	if raw := os.Getenv("LOG_PRETTY"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.LogPretty = value
		}
	}
	return cfg
}
