package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/chative/appointment-assistant/internal/agent/graph/parsers"
	"github.com/chative/appointment-assistant/internal/agent/graph/prompts"
	"github.com/chative/appointment-assistant/internal/agent/model"
)

// Classifier extracts intent and entities from masked patient text with a chat model.
type Classifier struct {
	chatModel einomodel.BaseChatModel
	modelName string
	clinic    model.ClinicConfig
}

func NewClassifier(chatModel einomodel.BaseChatModel, modelName string, clinic model.ClinicConfig) *Classifier {
	return &Classifier{chatModel: chatModel, modelName: modelName, clinic: clinic}
}

// Classify returns an error for model failures and unparseable replies. The
// result is still usable: it carries the unknown intent and any cost incurred.
func (c *Classifier) Classify(ctx context.Context, text string) (model.IntentResult, error) {
	pctx := callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      "intent_prompt",
		Type:      "GoTemplate",
		Component: components.ComponentOfPrompt,
	})
	msgs, err := prompts.RenderIntentMessages(pctx, c.clinic, text)
	if err != nil {
		return model.UnknownIntent(), err
	}

	mctx := callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      "intent_model",
		Type:      c.modelName,
		Component: components.ComponentOfChatModel,
	})
	out, err := c.chatModel.Generate(mctx, msgs)
	if err != nil {
		return model.UnknownIntent(), fmt.Errorf("intent classification: %w", err)
	}
	if out == nil {
		return model.UnknownIntent(), fmt.Errorf("intent classification: empty reply")
	}

	cost := model.UsageCost(c.modelName, usageOf(out))
	res, err := parsers.ParseIntentResponse(out.Content)
	res.CostUSD = cost
	if err != nil {
		return res, fmt.Errorf("intent classification: %w", err)
	}
	return res, nil
}

func usageOf(m *schema.Message) *schema.TokenUsage {
	if m == nil || m.ResponseMeta == nil {
		return nil
	}
	return m.ResponseMeta.Usage
}

var _ model.IntentClassifier = (*Classifier)(nil)
