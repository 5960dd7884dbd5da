package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/chative/appointment-assistant/pkg/logger"
)

func newToolHandler(runID string) *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			args := ""
			if input != nil {
				args = input.ArgumentsInJSON
			}
			logx.Debug().Str("run_id", runID).Str("tool", info.Name).Str("arguments", args).Msg("Tool started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			n := 0
			if output != nil {
				n = len(output.Response)
			}
			logx.Debug().Str("run_id", runID).Str("tool", info.Name).Int("response_len", n).Msg("Tool finished")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("run_id", runID).Str("tool", info.Name).Msg("Tool failed")
			return ctx
		},
	}
}
