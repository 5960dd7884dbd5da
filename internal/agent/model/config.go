package model

import "time"

// ================ Config ================
type IntentModelConfig struct {
	Model       string  `envconfig:"INTENT_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"INTENT_MAX_TOKENS" default:"512"`
	Temperature float32 `envconfig:"INTENT_TEMPERATURE" default:"0"`
}

type DraftModelConfig struct {
	Model       string  `envconfig:"DRAFT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"DRAFT_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"DRAFT_TEMPERATURE" default:"0.3"`
}

// ClinicConfig names the office in prompts and in the sign-off.
type ClinicConfig struct {
	Name      string `envconfig:"CLINIC_NAME" default:"Mojisola Akinniyi Medical Office"`
	AgentName string `envconfig:"CLINIC_AGENT_NAME" default:"Michelle Mary"`
}

// SignOff is appended to every reply that leaves the office.
func (c ClinicConfig) SignOff() string {
	return "\n\nBest regards,\n" + c.AgentName + "\n" + c.Name
}

// Tool-call counter scopes.
const (
	ScopeRequest = "request"
	ScopeSession = "session"
)

type PipelineConfig struct {
	ToolMaxCalls  int    `envconfig:"PIPELINE_TOOL_MAX_CALLS" default:"5"`
	ToolCallScope string `envconfig:"PIPELINE_TOOL_CALL_SCOPE" default:"request"`
	SessionTTL    string `envconfig:"PIPELINE_SESSION_TTL" default:"30m"`
	ReviewTTL     string `envconfig:"PIPELINE_REVIEW_TTL" default:"24h"`
}

// SessionScoped reports whether tool calls are counted across requests.
func (c PipelineConfig) SessionScoped() bool {
	return c.ToolCallScope == ScopeSession
}

type LLMGuardConfig struct {
	MaxAttempts       int     `envconfig:"LLM_MAX_ATTEMPTS" default:"2"`
	RequestsPerSecond float64 `envconfig:"LLM_REQUESTS_PER_SECOND" default:"2"`
	Burst             int     `envconfig:"LLM_BURST" default:"4"`
	BreakerFailures   uint32  `envconfig:"LLM_BREAKER_FAILURES" default:"5"`
	BreakerTimeout    string  `envconfig:"LLM_BREAKER_TIMEOUT" default:"30s"`
}

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type StoreConfig struct {
	Backend    string `envconfig:"STORE_BACKEND" default:"memory"`
	SQLitePath string `envconfig:"STORE_SQLITE_PATH" default:"data/appointments.db"`
}

// Trace sinks.
const (
	SinkFile  = "file"
	SinkRedis = "redis"
	SinkNone  = "none"
)

type TraceConfig struct {
	Sink     string `envconfig:"TRACE_SINK" default:"file"`
	Dir      string `envconfig:"TRACE_DIR" default:"logs"`
	RedisMax int64  `envconfig:"TRACE_REDIS_MAX" default:"1000"`
}

type HTTPConfig struct {
	Addr           string `envconfig:"HTTP_ADDR" default:":8080"`
	RequestTimeout string `envconfig:"HTTP_REQUEST_TIMEOUT" default:"60s"`
}

// ParseDurationOr parses v and falls back to def on empty or invalid input.
func ParseDurationOr(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
