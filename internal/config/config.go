package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/godilite/milestone-server/internal/scoring"
	"github.com/godilite/milestone-server/internal/service"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string
	DBDriver              string
	DBPath                string
	RedisAddr             string
	CacheEnabled          bool
	FeedbackCacheTTL      time.Duration
	GRPCPort              int
	GRPCReflectionEnabled bool
	TestAccountSuffix     string
	StatsScheduleEnabled  bool
	StatsInterval         time.Duration
	Scoring               Scoring
}

// Scoring holds the policy knobs. They can also come from the YAML file
// named by CONFIG_FILE; environment variables win over the file.
type Scoring struct {
	MaxChildAgeMonths      int           `yaml:"max_child_age_months"`
	StatsGracePeriod       time.Duration `yaml:"stats_grace_period"`
	SessionLifetime        time.Duration `yaml:"session_lifetime"`
	SuspiciousRMSThreshold float64       `yaml:"suspicious_rms_threshold"`
	GroupFeedbackAgeWindow int           `yaml:"group_feedback_age_window"`
	AchievedMinSamples     int           `yaml:"achieved_min_samples"`
	AchievedFraction       float64       `yaml:"achieved_fraction"`
}

func defaultScoring() Scoring {
	p := service.DefaultPolicy()
	return Scoring{
		MaxChildAgeMonths:      p.MaxAgeMonths,
		StatsGracePeriod:       p.GracePeriod,
		SessionLifetime:        p.SessionLifetime,
		SuspiciousRMSThreshold: p.SuspiciousThreshold,
		GroupFeedbackAgeWindow: p.GroupAgeWindow,
		AchievedMinSamples:     p.Relevance.MinSamples,
		AchievedFraction:       p.Relevance.AchievedFraction,
	}
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	knobs := defaultScoring()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(path, &knobs); err != nil {
			return nil, err
		}
	}

	dbPath := getEnv("DB_PATH", "./data/milestones.db")
	if url := os.Getenv("DATABASE_URL"); url != "" {
		dbPath = url
	}

	cfg := &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		DBDriver:              getEnv("DB_DRIVER", "sqlite3"),
		DBPath:                dbPath,
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		CacheEnabled:          getBool("CACHE_ENABLED", true),
		FeedbackCacheTTL:      getDuration("FEEDBACK_CACHE_TTL", 10*time.Minute),
		GRPCPort:              getInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getBool("GRPC_REFLECTION_ENABLED", false),
		TestAccountSuffix:     getEnv("TEST_ACCOUNT_EMAIL_SUFFIX", "tester@testaccount.com"),
		StatsScheduleEnabled:  getBool("STATS_SCHEDULE_ENABLED", true),
		StatsInterval:         getDuration("STATS_INTERVAL", 7*24*time.Hour),
		Scoring: Scoring{
			MaxChildAgeMonths:      getInt("MAX_CHILD_AGE_MONTHS", knobs.MaxChildAgeMonths),
			StatsGracePeriod:       getDuration("STATS_GRACE_PERIOD", knobs.StatsGracePeriod),
			SessionLifetime:        getDuration("SESSION_LIFETIME", knobs.SessionLifetime),
			SuspiciousRMSThreshold: getFloat("SUSPICIOUS_RMS_THRESHOLD", knobs.SuspiciousRMSThreshold),
			GroupFeedbackAgeWindow: getInt("GROUP_FEEDBACK_AGE_WINDOW", knobs.GroupFeedbackAgeWindow),
			AchievedMinSamples:     getInt("ACHIEVED_MIN_SAMPLES", knobs.AchievedMinSamples),
			AchievedFraction:       getFloat("ACHIEVED_FRACTION", knobs.AchievedFraction),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlayFile(path string, s *Scoring) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file struct {
		Scoring Scoring `yaml:"scoring"`
	}
	file.Scoring = *s
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	*s = file.Scoring
	return nil
}

// Validate rejects settings the scoring engine cannot run with.
func (c *Config) Validate() error {
	s := c.Scoring
	switch {
	case c.GRPCPort < 1 || c.GRPCPort > 65535:
		return fmt.Errorf("GRPC_PORT %d out of range", c.GRPCPort)
	case s.MaxChildAgeMonths <= 0:
		return fmt.Errorf("MAX_CHILD_AGE_MONTHS must be positive, got %d", s.MaxChildAgeMonths)
	case s.StatsGracePeriod < 0:
		return fmt.Errorf("STATS_GRACE_PERIOD must not be negative")
	case s.SessionLifetime <= 0:
		return fmt.Errorf("SESSION_LIFETIME must be positive")
	case s.SuspiciousRMSThreshold <= 0:
		return fmt.Errorf("SUSPICIOUS_RMS_THRESHOLD must be positive")
	case s.GroupFeedbackAgeWindow < 0:
		return fmt.Errorf("GROUP_FEEDBACK_AGE_WINDOW must not be negative")
	case s.AchievedMinSamples < 1:
		return fmt.Errorf("ACHIEVED_MIN_SAMPLES must be at least 1")
	case s.AchievedFraction <= 0 || s.AchievedFraction > 1:
		return fmt.Errorf("ACHIEVED_FRACTION must be in (0, 1]")
	case c.StatsScheduleEnabled && c.StatsInterval <= 0:
		return fmt.Errorf("STATS_INTERVAL must be positive when scheduling is enabled")
	}
	return nil
}

// Policy converts the scoring knobs into the service policy.
func (c *Config) Policy() service.Policy {
	p := service.DefaultPolicy()
	p.MaxAgeMonths = c.Scoring.MaxChildAgeMonths
	p.GracePeriod = c.Scoring.StatsGracePeriod
	p.SessionLifetime = c.Scoring.SessionLifetime
	p.SuspiciousThreshold = c.Scoring.SuspiciousRMSThreshold
	p.GroupAgeWindow = c.Scoring.GroupFeedbackAgeWindow
	p.Relevance = scoring.RelevancePolicy{
		MaxAge:           c.Scoring.MaxChildAgeMonths,
		MinSamples:       c.Scoring.AchievedMinSamples,
		AchievedFraction: c.Scoring.AchievedFraction,
	}
	return p
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
