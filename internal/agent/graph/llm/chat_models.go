package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/chative/appointment-assistant/internal/agent/model"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey      string
	BaseURL     string
	IntentModel *model.IntentModelConfig
	DraftModel  *model.DraftModelConfig
}

// ChatModels holds the intent and draft chat models
type ChatModels struct {
	Intent          einomodel.BaseChatModel
	Draft           einomodel.BaseChatModel
	IntentModelName string
	DraftModelName  string
}

// NewChatModels creates the Gemini chat models backing the classifier and the drafter.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.IntentModel == nil || config.DraftModel == nil {
		return nil, fmt.Errorf("chat model config is incomplete")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Classification is a short structured answer; no thinking budget.
	intentModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.IntentModel.Model,
		Temperature: &config.IntentModel.Temperature,
		MaxTokens:   &config.IntentModel.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating intent model")
		return nil, fmt.Errorf("error creating intent model: %w", err)
	}

	draftModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.DraftModel.Model,
		Temperature: &config.DraftModel.Temperature,
		MaxTokens:   &config.DraftModel.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(512)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating draft model")
		return nil, fmt.Errorf("error creating draft model: %w", err)
	}

	return &ChatModels{
		Intent:          intentModel,
		Draft:           draftModel,
		IntentModelName: config.IntentModel.Model,
		DraftModelName:  config.DraftModel.Model,
	}, nil
}

// Guard wraps both models with the same guard configuration. Each model gets
// its own breaker and limiter.
func (cm *ChatModels) Guard(cfg GuardConfig) *ChatModels {
	intentCfg, draftCfg := cfg, cfg
	intentCfg.Name = "intent:" + cm.IntentModelName
	draftCfg.Name = "draft:" + cm.DraftModelName
	return &ChatModels{
		Intent:          NewGuardedChatModel(cm.Intent, intentCfg),
		Draft:           NewGuardedChatModel(cm.Draft, draftCfg),
		IntentModelName: cm.IntentModelName,
		DraftModelName:  cm.DraftModelName,
	}
}
