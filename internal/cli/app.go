package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/chative/appointment-assistant/internal/agent"
	"github.com/chative/appointment-assistant/internal/agent/graph"
	"github.com/chative/appointment-assistant/internal/agent/graph/llm"
	"github.com/chative/appointment-assistant/internal/agent/graph/tools"
	"github.com/chative/appointment-assistant/internal/agent/middleware"
	"github.com/chative/appointment-assistant/internal/agent/model"
	"github.com/chative/appointment-assistant/internal/agent/repo"
	"github.com/chative/appointment-assistant/internal/agent/trace"
	logx "github.com/chative/appointment-assistant/pkg/logger"
	"github.com/chative/appointment-assistant/pkg/metrics"
)

// App holds the wired dependencies shared by the commands.
type App struct {
	Config       *AppConfig
	Appointments model.AppointmentRepository
	Assistant    *agent.Assistant
	Registry     *prometheus.Registry
	Metrics      *metrics.PipelineMetrics

	rdb     *redis.Client
	db      *sql.DB
	closers []func() error
}

// MetricsHandler serves the app's registry.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logx.Warn().Err(err).Msg("failed to release resource")
		}
	}
}

// NewStoreApp wires only the appointment store, for read-only commands.
func NewStoreApp(ctx context.Context, cfg *AppConfig) (*App, error) {
	a := &App{Config: cfg}
	if err := a.connectRedis(); err != nil {
		return nil, err
	}
	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Appointments = store
	return a, nil
}

// NewApp wires the full assistant. reviewer may be nil for surfaces that
// resume reviews asynchronously.
func NewApp(ctx context.Context, cfg *AppConfig, reviewer model.Reviewer) (*App, error) {
	a, err := NewStoreApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := a.buildAssistant(ctx, reviewer); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connectRedis() error {
	if !a.Config.Redis.Enabled() {
		return nil
	}
	rdb, err := a.Config.Redis.New()
	if err != nil {
		return fmt.Errorf("failed to initialise Redis client: %w", err)
	}
	a.rdb = rdb
	a.closers = append(a.closers, rdb.Close)
	logx.Debug().Msg("Connected to Redis")
	return nil
}

func (a *App) openStore(ctx context.Context) (model.AppointmentRepository, error) {
	switch a.Config.Store.Backend {
	case model.BackendRedis:
		store := repo.NewRedisAppointmentRepository(a.rdb, "")
		if err := store.Seed(ctx, repo.SeedAppointments(), repo.SeedSlots()); err != nil {
			return nil, err
		}
		return store, nil

	case model.BackendSQLite:
		db, err := repo.OpenSQLite(ctx, a.Config.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
		store, err := repo.NewSQLiteAppointmentRepository(ctx, db)
		if err != nil {
			return nil, err
		}
		if err := store.Seed(ctx, repo.SeedAppointments(), repo.SeedSlots()); err != nil {
			return nil, err
		}
		return store, nil

	default:
		return repo.NewSeededMemoryAppointmentRepository(), nil
	}
}

func (a *App) buildAssistant(ctx context.Context, reviewer model.Reviewer) error {
	cfg := a.Config

	a.Registry = prometheus.NewRegistry()
	a.Metrics = metrics.NewPipelineMetrics(a.Registry)

	cms, err := llm.NewChatModels(ctx, llm.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		IntentModel: &cfg.Intent,
		DraftModel:  &cfg.Draft,
	})
	if err != nil {
		return err
	}
	guard := llm.GuardConfigFrom(cfg.Guard)
	guard.OnStateChange = a.Metrics.BreakerStateChanged
	cms = cms.Guard(guard)

	dispatcher, err := tools.NewDispatcher(ctx, a.Appointments)
	if err != nil {
		return err
	}

	runner, err := graph.NewRunner(ctx, &graph.Config{
		Chain:      middleware.NewChain(cfg.Pipeline.ToolMaxCalls),
		Classifier: llm.NewClassifier(cms.Intent, cms.IntentModelName, cfg.Clinic),
		Drafter:    llm.NewDrafter(cms.Draft, cms.DraftModelName, cfg.Clinic),
		Dispatcher: dispatcher,
		Clinic:     cfg.Clinic,
		Observer:   a.Metrics,
	})
	if err != nil {
		return err
	}

	opts := agent.Options{
		Pipeline: runner,
		Reviewer: reviewer,
		Trace:    a.traceWriter(),
		Metrics:  a.Metrics,
	}

	reviewTTL := model.ParseDurationOr(cfg.Pipeline.ReviewTTL, 24*time.Hour)
	sessionTTL := model.ParseDurationOr(cfg.Pipeline.SessionTTL, 30*time.Minute)
	if a.rdb != nil {
		opts.Reviews = repo.NewRedisReviewStore(a.rdb, reviewTTL)
	} else {
		opts.Reviews = repo.NewMemoryReviewStore(reviewTTL)
	}
	if cfg.Pipeline.SessionScoped() {
		if a.rdb != nil {
			opts.Counter = repo.NewRedisToolCallCounter(a.rdb, sessionTTL)
		} else {
			opts.Counter = repo.NewMemoryToolCallCounter()
		}
	}

	a.Assistant, err = agent.New(opts)
	if err != nil {
		return err
	}
	logx.Debug().
		Str("store", cfg.Store.Backend).
		Str("trace_sink", cfg.Trace.Sink).
		Str("tool_call_scope", cfg.Pipeline.ToolCallScope).
		Msg("Assistant ready")
	return nil
}

func (a *App) traceWriter() trace.Writer {
	switch a.Config.Trace.Sink {
	case model.SinkRedis:
		return trace.NewRedisWriter(a.rdb, "", a.Config.Trace.RedisMax)
	case model.SinkNone:
		return trace.Nop{}
	default:
		return trace.NewFileWriter(a.Config.Trace.Dir)
	}
}
