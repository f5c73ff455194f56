package routing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/go-city-routes/internal/types"
)

// AIGenerator is the narrow LLM surface the intent classifier needs.
type AIGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, out any) error
}

var _ IntentClassifier = (*LLMIntentClassifier)(nil)

// LLMIntentClassifier asks the model how the current message relates to the
// previous turn, with the same retry-once policy as the query classifier.
type LLMIntentClassifier struct {
	logger *slog.Logger
	ai     AIGenerator
}

func NewLLMIntentClassifier(ai AIGenerator, logger *slog.Logger) *LLMIntentClassifier {
	return &LLMIntentClassifier{
		logger: logger,
		ai:     ai,
	}
}

func (c *LLMIntentClassifier) ClassifyIntent(ctx context.Context, message string, previous *types.ConversationTurn) (*types.IntentAnalysis, error) {
	prompt := getIntentPrompt(message, previous)

	var intent types.IntentAnalysis
	err := c.ai.GenerateJSON(ctx, prompt, &intent)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WarnContext(ctx, "Intent call failed, retrying once", slog.Any("error", err))
		if err = c.ai.GenerateJSON(ctx, prompt, &intent); err != nil {
			c.logger.ErrorContext(ctx, "Intent call failed twice", slog.Any("error", err))
			return nil, fmt.Errorf("%w: %w", types.ErrClassificationUnavailable, err)
		}
	}
	return &intent, nil
}
