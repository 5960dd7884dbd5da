package prompts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/chative/appointment-assistant/internal/agent/model"
)

//go:embed template/draft_prompt.txt
var draftPrompt string

// RenderDraftMessages renders the drafting instruction for a successful action.
func RenderDraftMessages(ctx context.Context, clinic model.ClinicConfig, result model.ActionResult, maxSentences int) ([]*schema.Message, error) {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("draft prompt: marshal result: %w", err)
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.UserMessage(draftPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"ClinicName":   clinic.Name,
		"Result":       string(b),
		"MaxSentences": maxSentences,
	})
	if err != nil {
		return nil, fmt.Errorf("draft prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("draft prompt render: empty result")
	}
	return msgs, nil
}
