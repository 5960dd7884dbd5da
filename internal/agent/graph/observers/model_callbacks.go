package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// newModelHandler logs chat model calls. Message content stays out of the log.
func newModelHandler(runID string) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			n := 0
			if input != nil {
				n = len(input.Messages)
			}
			logx.Debug().Str("run_id", runID).Str("model", info.Name).Str("type", info.Type).Int("messages", n).Msg("Model call started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := logx.Debug().Str("run_id", runID).Str("model", info.Name)
			if output != nil {
				if output.Message != nil {
					ev = ev.Int("content_len", len(output.Message.Content))
				}
				if output.TokenUsage != nil {
					ev = ev.Int("prompt_tokens", output.TokenUsage.PromptTokens).
						Int("completion_tokens", output.TokenUsage.CompletionTokens)
				}
			}
			ev.Msg("Model call finished")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("run_id", runID).Str("model", info.Name).Msg("Model call failed")
			return ctx
		},
	}
}
