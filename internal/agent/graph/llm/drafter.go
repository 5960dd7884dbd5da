package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/chative/appointment-assistant/internal/agent/graph/prompts"
	"github.com/chative/appointment-assistant/internal/agent/model"
)

// DefaultMaxSentences caps drafted replies.
const DefaultMaxSentences = 9

var ErrEmptyDraft = errors.New("drafter returned empty text")

// Drafter writes the patient reply for a successful action with a chat model.
type Drafter struct {
	chatModel    einomodel.BaseChatModel
	modelName    string
	clinic       model.ClinicConfig
	maxSentences int
}

func NewDrafter(chatModel einomodel.BaseChatModel, modelName string, clinic model.ClinicConfig) *Drafter {
	return &Drafter{
		chatModel:    chatModel,
		modelName:    modelName,
		clinic:       clinic,
		maxSentences: DefaultMaxSentences,
	}
}

func (d *Drafter) Draft(ctx context.Context, result model.ActionResult) (model.Draft, error) {
	pctx := callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      "draft_prompt",
		Type:      "GoTemplate",
		Component: components.ComponentOfPrompt,
	})
	msgs, err := prompts.RenderDraftMessages(pctx, d.clinic, result, d.maxSentences)
	if err != nil {
		return model.Draft{}, err
	}

	mctx := callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      "draft_model",
		Type:      d.modelName,
		Component: components.ComponentOfChatModel,
	})
	out, err := d.chatModel.Generate(mctx, msgs)
	if err != nil {
		return model.Draft{}, fmt.Errorf("draft response: %w", err)
	}
	if out == nil {
		return model.Draft{}, fmt.Errorf("draft response: %w", ErrEmptyDraft)
	}

	cost := model.UsageCost(d.modelName, usageOf(out))
	text := LimitSentences(strings.TrimSpace(out.Content), d.maxSentences)
	if text == "" {
		return model.Draft{CostUSD: cost}, fmt.Errorf("draft response: %w", ErrEmptyDraft)
	}
	return model.Draft{Text: text, CostUSD: cost}, nil
}

var _ model.ResponseDrafter = (*Drafter)(nil)
