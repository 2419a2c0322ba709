package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	DashboardURL    string        `mapstructure:"DASHBOARD_URL"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB int64         `mapstructure:"MAX_UPLOAD_MB"`

	Restaurant string  `mapstructure:"RESTAURANT"`
	HourlyRate float64 `mapstructure:"HOURLY_RATE"`

	Categorizer CategorizerConfig `mapstructure:",squash"`
	Grading     GradingConfig     `mapstructure:",squash"`
	Learning    LearningConfig    `mapstructure:",squash"`
}

// CategorizerConfig holds the cascade thresholds. They are tunable per
// restaurant, never hard-coded in the cascade itself.
type CategorizerConfig struct {
	TableSourcesForLobby int     `mapstructure:"CAT_TABLE_SOURCES_FOR_LOBBY"`
	LobbyKitchenMins     float64 `mapstructure:"CAT_LOBBY_KITCHEN_MINS"`
	LobbyOrderMins       float64 `mapstructure:"CAT_LOBBY_ORDER_MINS"`
	DriveKitchenMaxMins  float64 `mapstructure:"CAT_DRIVE_KITCHEN_MAX_MINS"`
	DriveOrderMaxMins    float64 `mapstructure:"CAT_DRIVE_ORDER_MAX_MINS"`
}

type GradingConfig struct {
	LobbyStandardMins float64 `mapstructure:"GRADE_LOBBY_STANDARD_MINS"`
	DriveStandardMins float64 `mapstructure:"GRADE_DRIVE_STANDARD_MINS"`
	ToGoStandardMins  float64 `mapstructure:"GRADE_TOGO_STANDARD_MINS"`
	Tolerance         float64 `mapstructure:"GRADE_TOLERANCE"`
	PassRate          float64 `mapstructure:"GRADE_PASS_RATE"`
	WarningRate       float64 `mapstructure:"GRADE_WARNING_RATE"`
}

type LearningConfig struct {
	EarlyRate           float64 `mapstructure:"LEARN_EARLY_RATE"`
	MatureRate          float64 `mapstructure:"LEARN_MATURE_RATE"`
	EarlyThreshold      int     `mapstructure:"LEARN_EARLY_THRESHOLD"`
	TimeslotAlpha       float64 `mapstructure:"LEARN_TIMESLOT_ALPHA"`
	MaxConfidence       float64 `mapstructure:"LEARN_MAX_CONFIDENCE"`
	MinConfidence       float64 `mapstructure:"LEARN_MIN_CONFIDENCE"`
	MinObservations     int     `mapstructure:"LEARN_MIN_OBSERVATIONS"`
	TimeslotInitialConf float64 `mapstructure:"LEARN_TIMESLOT_INITIAL_CONF"`
	TimeslotConfGrowth  float64 `mapstructure:"LEARN_TIMESLOT_CONF_GROWTH"`
	PersistPatterns     bool    `mapstructure:"LEARN_PERSIST_PATTERNS"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("RESTAURANT", "default")
	v.SetDefault("HOURLY_RATE", 16.5)

	v.SetDefault("CAT_TABLE_SOURCES_FOR_LOBBY", 2)
	v.SetDefault("CAT_LOBBY_KITCHEN_MINS", 15.0)
	v.SetDefault("CAT_LOBBY_ORDER_MINS", 20.0)
	v.SetDefault("CAT_DRIVE_KITCHEN_MAX_MINS", 7.0)
	v.SetDefault("CAT_DRIVE_ORDER_MAX_MINS", 10.0)

	v.SetDefault("GRADE_LOBBY_STANDARD_MINS", 15.0)
	v.SetDefault("GRADE_DRIVE_STANDARD_MINS", 8.0)
	v.SetDefault("GRADE_TOGO_STANDARD_MINS", 10.0)
	v.SetDefault("GRADE_TOLERANCE", 1.15)
	v.SetDefault("GRADE_PASS_RATE", 85.0)
	v.SetDefault("GRADE_WARNING_RATE", 70.0)

	v.SetDefault("LEARN_EARLY_RATE", 0.3)
	v.SetDefault("LEARN_MATURE_RATE", 0.2)
	v.SetDefault("LEARN_EARLY_THRESHOLD", 5)
	v.SetDefault("LEARN_TIMESLOT_ALPHA", 0.2)
	v.SetDefault("LEARN_MAX_CONFIDENCE", 0.95)
	v.SetDefault("LEARN_MIN_CONFIDENCE", 0.6)
	v.SetDefault("LEARN_MIN_OBSERVATIONS", 4)
	v.SetDefault("LEARN_TIMESLOT_INITIAL_CONF", 0.2)
	v.SetDefault("LEARN_TIMESLOT_CONF_GROWTH", 0.01)
	v.SetDefault("LEARN_PERSIST_PATTERNS", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func DefaultCategorizer() CategorizerConfig {
	return CategorizerConfig{
		TableSourcesForLobby: 2,
		LobbyKitchenMins:     15,
		LobbyOrderMins:       20,
		DriveKitchenMaxMins:  7,
		DriveOrderMaxMins:    10,
	}
}

func DefaultGrading() GradingConfig {
	return GradingConfig{
		LobbyStandardMins: 15,
		DriveStandardMins: 8,
		ToGoStandardMins:  10,
		Tolerance:         1.15,
		PassRate:          85,
		WarningRate:       70,
	}
}

func DefaultLearning() LearningConfig {
	return LearningConfig{
		EarlyRate:           0.3,
		MatureRate:          0.2,
		EarlyThreshold:      5,
		TimeslotAlpha:       0.2,
		MaxConfidence:       0.95,
		MinConfidence:       0.6,
		MinObservations:     4,
		TimeslotInitialConf: 0.2,
		TimeslotConfGrowth:  0.01,
	}
}
