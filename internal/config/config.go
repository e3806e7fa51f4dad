package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	OpenAIAPIKey       string
	OpenAIModel        string
	TranscriptionModel string
	SpeechModel        string
	SpeechVoice        string
	MediaDir           string

	EvaluationTimeout  time.Duration
	TranslationTTL     time.Duration
	AudioTTL           time.Duration
	ArtifactSweep      time.Duration
	SummaryCacheTTL    time.Duration
	AgreementTolerance float64
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EDUAI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "EduAI API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("media.dir", "media")
	v.SetDefault("evaluation.timeout", "30s")
	v.SetDefault("translation.ttl", "168h")
	v.SetDefault("audio.ttl", "72h")
	v.SetDefault("artifact.sweep_interval", "1h")
	v.SetDefault("summary.cache_ttl", "5m")
	v.SetDefault("agreement.tolerance", 5.0)

	durations := map[string]*time.Duration{
		"evaluation.timeout":      nil,
		"translation.ttl":         nil,
		"audio.ttl":               nil,
		"artifact.sweep_interval": nil,
		"summary.cache_ttl":       nil,
	}
	for key := range durations {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		parsed := d
		durations[key] = &parsed
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		JWTSecret:          v.GetString("jwt.secret"),
		OpenAIAPIKey:       v.GetString("openai_api_key"),
		OpenAIModel:        v.GetString("openai.model"),
		TranscriptionModel: v.GetString("openai.transcription_model"),
		SpeechModel:        v.GetString("openai.speech_model"),
		SpeechVoice:        v.GetString("openai.speech_voice"),
		MediaDir:           v.GetString("media.dir"),
		EvaluationTimeout:  *durations["evaluation.timeout"],
		TranslationTTL:     *durations["translation.ttl"],
		AudioTTL:           *durations["audio.ttl"],
		ArtifactSweep:      *durations["artifact.sweep_interval"],
		SummaryCacheTTL:    *durations["summary.cache_ttl"],
		AgreementTolerance: v.GetFloat64("agreement.tolerance"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.AgreementTolerance < 0 {
		cfg.AgreementTolerance = 0
	}

	return cfg, nil
}
