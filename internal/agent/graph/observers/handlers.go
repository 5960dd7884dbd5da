package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the observer handlers for one pipeline run: the
// component handlers (prompt, chat model, tool) plus the node lifecycle handler.
func NewAllCallbacks(runID string, obs NodeObserver) []einocb.Handler {
	components := callbackHelper.NewHandlerHelper().
		Tool(newToolHandler(runID)).
		ChatModel(newModelHandler(runID)).
		Prompt(newPromptHandler(runID)).
		Handler()

	return []einocb.Handler{components, newNodeHandler(runID, obs)}
}
