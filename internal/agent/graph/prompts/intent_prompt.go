package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/chative/appointment-assistant/internal/agent/model"
)

//go:embed template/intent_prompt.txt
var intentSystemPrompt string

var classifiableIntents = []model.Intent{
	model.IntentReschedule,
	model.IntentCancel,
	model.IntentPrep,
	model.IntentBook,
	model.IntentViewAppointment,
	model.IntentViewSlots,
	model.IntentUnknown,
}

// RenderIntentMessages renders the classifier system prompt followed by the
// masked patient message.
func RenderIntentMessages(ctx context.Context, clinic model.ClinicConfig, maskedInput string) ([]*schema.Message, error) {
	names := make([]string, len(classifiableIntents))
	for i, in := range classifiableIntents {
		names[i] = string(in)
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(intentSystemPrompt),
		schema.UserMessage("{{.Input}}"),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"ClinicName": clinic.Name,
		"Intents":    strings.Join(names, ", "),
		"Input":      maskedInput,
	})
	if err != nil {
		return nil, fmt.Errorf("intent prompt render: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("intent prompt render: expected 2 messages, got %d", len(msgs))
	}
	return msgs, nil
}
