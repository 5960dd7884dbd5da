package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// NodeObserver is told when a pipeline node finishes.
type NodeObserver interface {
	NodeFinished(node string, elapsed time.Duration, err error)
}

type nodeStartKey struct{ node string }

func newNodeHandler(runID string, obs NodeObserver) einocb.Handler {
	finish := func(ctx context.Context, info *einocb.RunInfo, err error) {
		var elapsed time.Duration
		if start, ok := ctx.Value(nodeStartKey{info.Name}).(time.Time); ok {
			elapsed = time.Since(start)
		}
		if err != nil {
			logx.Error().Err(err).Str("run_id", runID).Str("node", info.Name).Dur("elapsed", elapsed).Msg("Node failed")
		} else {
			logx.Debug().Str("run_id", runID).Str("node", info.Name).Dur("elapsed", elapsed).Msg("Node finished")
		}
		if obs != nil {
			obs.NodeFinished(info.Name, elapsed, err)
		}
	}

	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			if !isNode(info) {
				return ctx
			}
			logx.Debug().Str("run_id", runID).Str("node", info.Name).Msg("Node started")
			return context.WithValue(ctx, nodeStartKey{info.Name}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			if isNode(info) {
				finish(ctx, info, nil)
			}
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			if isNode(info) {
				finish(ctx, info, err)
			}
			return ctx
		}).
		Build()
}

func isNode(info *einocb.RunInfo) bool {
	return info != nil && info.Component == compose.ComponentOfLambda && info.Name != ""
}
