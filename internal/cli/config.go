package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/chative/appointment-assistant/internal/agent/model"
	"github.com/chative/appointment-assistant/internal/core"
	logx "github.com/chative/appointment-assistant/pkg/logger"
	pkgredis "github.com/chative/appointment-assistant/pkg/redis"
)

// AppConfig defines every configurable parameter, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	Intent   model.IntentModelConfig
	Draft    model.DraftModelConfig
	Clinic   model.ClinicConfig
	Pipeline model.PipelineConfig
	Guard    model.LLMGuardConfig
	Store    model.StoreConfig
	Trace    model.TraceConfig
	HTTP     model.HTTPConfig
}

// Env returns the parsed ENVIRONMENT. LoadConfig has already rejected
// unknown values, so a bad value here falls back to development.
func (c *AppConfig) Env() core.Environment {
	env, err := core.ParseEnvironment(c.Environment)
	if err != nil {
		return core.Development
	}
	return env
}

// LoadConfig reads envFile when present and binds the environment.
func LoadConfig(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logx.Warn().Err(err).Str("file", envFile).Msg("Could not load env file")
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if _, err := core.ParseEnvironment(c.Environment); err != nil {
		return err
	}

	switch c.Store.Backend {
	case model.BackendMemory, model.BackendSQLite:
	case model.BackendRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Trace.Sink {
	case model.SinkFile, model.SinkNone:
	case model.SinkRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("TRACE_SINK=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown TRACE_SINK %q", c.Trace.Sink)
	}

	switch c.Pipeline.ToolCallScope {
	case model.ScopeRequest, model.ScopeSession:
	default:
		return fmt.Errorf("unknown PIPELINE_TOOL_CALL_SCOPE %q", c.Pipeline.ToolCallScope)
	}
	return nil
}
