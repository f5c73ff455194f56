package suggestions

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/FACorreiaa/go-city-routes/internal/types"
)

// AIGenerator is the narrow LLM surface the generator needs.
type AIGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, out any) error
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service proposes named candidate places. An empty batch is a valid
// outcome; the resolver's retry loop decides what to do with a shortfall.
type Service interface {
	Suggest(ctx context.Context, classification *types.QueryClassification, operation types.OperationType, countNeeded int, excludedNames []string) (*types.SuggestionBatch, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	ai     AIGenerator
}

func NewService(ai AIGenerator, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		ai:     ai,
	}
}

// Suggest asks the model for countNeeded candidates matching the
// classification, never resuggesting a name from excludedNames. The model
// may return fewer; it is capped to countNeeded when it returns more.
func (s *ServiceImpl) Suggest(ctx context.Context, classification *types.QueryClassification, operation types.OperationType, countNeeded int, excludedNames []string) (*types.SuggestionBatch, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "Suggest")
	defer span.End()

	if countNeeded <= 0 {
		return &types.SuggestionBatch{}, nil
	}

	prompt := getSuggestionPrompt(classification, operation, countNeeded, excludedNames)

	var batch types.SuggestionBatch
	err := s.ai.GenerateJSON(ctx, prompt, &batch)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.WarnContext(ctx, "Suggestion call failed, retrying once", slog.Any("error", err))
		if err = s.ai.GenerateJSON(ctx, prompt, &batch); err != nil {
			s.logger.ErrorContext(ctx, "Suggestion call failed twice", slog.Any("error", err))
			return nil, fmt.Errorf("failed to generate place suggestions: %w", err)
		}
	}

	if len(batch.Places) > countNeeded {
		batch.Places = batch.Places[:countNeeded]
	}

	s.logger.InfoContext(ctx, "Places suggested",
		slog.Int("requested", countNeeded),
		slog.Int("suggested", len(batch.Places)),
		slog.String("location", classification.Location))

	return &batch, nil
}
