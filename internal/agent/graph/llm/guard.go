package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/chative/appointment-assistant/internal/agent/middleware"
	"github.com/chative/appointment-assistant/internal/agent/model"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// GuardConfig bounds calls to an external chat model.
type GuardConfig struct {
	Name              string
	MaxAttempts       int
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
	// OnStateChange observes breaker transitions, e.g. for metrics.
	OnStateChange func(name string, from, to gobreaker.State)
}

// GuardConfigFrom converts env config into a GuardConfig.
func GuardConfigFrom(c model.LLMGuardConfig) GuardConfig {
	return GuardConfig{
		MaxAttempts:       c.MaxAttempts,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
		BreakerFailures:   c.BreakerFailures,
		BreakerTimeout:    model.ParseDurationOr(c.BreakerTimeout, 30*time.Second),
	}
}

// GuardedChatModel throttles, retries and circuit-breaks an inner chat model.
type GuardedChatModel struct {
	inner       einomodel.BaseChatModel
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[*schema.Message]
	maxAttempts int
}

func NewGuardedChatModel(inner einomodel.BaseChatModel, cfg GuardConfig) *GuardedChatModel {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker[*schema.Message](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up is not a model failure
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logx.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("LLM circuit breaker state changed")
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	})

	return &GuardedChatModel{
		inner:       inner,
		limiter:     rate.NewLimiter(limit, burst),
		breaker:     breaker,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Generate waits for a limiter token, then retries the breaker-guarded call.
// While the breaker is open every attempt fails fast with ErrOpenState.
func (g *GuardedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	msg, _, err := middleware.Retry(ctx, g.maxAttempts, func(ctx context.Context) (*schema.Message, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return g.breaker.Execute(func() (*schema.Message, error) {
			return g.inner.Generate(ctx, input, opts...)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("chat model %s: %w", g.breaker.Name(), err)
	}
	return msg, nil
}

// Stream is throttled and breaker-gated but never retried; a partially
// consumed stream cannot be replayed.
func (g *GuardedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if g.breaker.State() == gobreaker.StateOpen {
		return nil, gobreaker.ErrOpenState
	}
	return g.inner.Stream(ctx, input, opts...)
}

// State reports the breaker state.
func (g *GuardedChatModel) State() gobreaker.State {
	return g.breaker.State()
}

var _ einomodel.BaseChatModel = (*GuardedChatModel)(nil)
