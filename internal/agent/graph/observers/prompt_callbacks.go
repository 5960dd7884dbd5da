package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/chative/appointment-assistant/pkg/logger"
)

func newPromptHandler(runID string) *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			n := 0
			if output != nil {
				n = len(output.Result)
			}
			logx.Debug().Str("run_id", runID).Str("prompt", info.Name).Int("messages", n).Msg("Prompt rendered")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("run_id", runID).Str("prompt", info.Name).Msg("Prompt render failed")
			return ctx
		},
	}
}
