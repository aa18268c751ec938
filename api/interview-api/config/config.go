// Copyright (c) 2024-2026 IntervuAI
//
// Licensed under GPL-2.0 with Intervu Additional Terms.
// See LICENSE.md for commercial usage.

package config

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ProctorConfig carries the cadences and thresholds of the monitoring
// pipeline. Defaults match the tuned production values; they are
// configurable mostly for tests and lab runs.
type ProctorConfig struct {
	SnapshotInterval  time.Duration `mapstructure:"snapshot_interval"`
	LoudnessInterval  time.Duration `mapstructure:"loudness_interval"`
	AnalysisInterval  time.Duration `mapstructure:"analysis_interval"`
	AutosaveInterval  time.Duration `mapstructure:"autosave_interval"`
	LoudnessThreshold float64       `mapstructure:"loudness_threshold"`
}

// SpeechConfig selects and credentials the streaming transcription provider.
type SpeechConfig struct {
	Provider        string `mapstructure:"provider" validate:"required,oneof=google deepgram"`
	Language        string `mapstructure:"language"`
	GoogleProjectID string `mapstructure:"google_project_id"`
	GoogleAPIKey    string `mapstructure:"google_api_key"`
	DeepgramAPIKey  string `mapstructure:"deepgram_api_key"`
}

// AppConfig is the interview-api service configuration.
type AppConfig struct {
	Name         string        `mapstructure:"service_name" validate:"required"`
	Version      string        `mapstructure:"version" validate:"required"`
	LogLevel     string        `mapstructure:"log_level" validate:"required"`
	LogFile      string        `mapstructure:"log_file"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key" validate:"required"`
	GeminiModel  string        `mapstructure:"gemini_model" validate:"required"`
	DatabaseDSN  string        `mapstructure:"database_dsn" validate:"required"`
	Speech       SpeechConfig  `mapstructure:"speech"`
	Proctor      ProctorConfig `mapstructure:"proctor"`
}

// InitConfig reads the .env style configuration, honoring ENV_PATH overrides.
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env variables.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "interview-api")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_FILE", "")

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("DATABASE_DSN", "intervu.db")

	v.SetDefault("SPEECH__PROVIDER", "google")
	v.SetDefault("SPEECH__LANGUAGE", "en-US")
	v.SetDefault("SPEECH__GOOGLE_PROJECT_ID", "")
	v.SetDefault("SPEECH__GOOGLE_API_KEY", "")
	v.SetDefault("SPEECH__DEEPGRAM_API_KEY", "")

	v.SetDefault("PROCTOR__SNAPSHOT_INTERVAL", "5s")
	v.SetDefault("PROCTOR__LOUDNESS_INTERVAL", "2s")
	v.SetDefault("PROCTOR__ANALYSIS_INTERVAL", "4s")
	v.SetDefault("PROCTOR__AUTOSAVE_INTERVAL", "60s")
	v.SetDefault("PROCTOR__LOUDNESS_THRESHOLD", 85.0)
}

// GetApplicationConfig unmarshals and validates the viper tree.
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(&config); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
