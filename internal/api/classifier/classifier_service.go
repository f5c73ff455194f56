package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/FACorreiaa/go-city-routes/internal/types"
)

const defaultCount = 5

// AIGenerator is the narrow LLM surface the classifier needs; the concrete
// Gemini client satisfies it and tests swap in a mock.
type AIGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, out any) error
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service extracts structured intent from a free-text message. A message
// that is not a place/route request comes back with IsRouteRequest=false,
// which is a valid outcome, not an error.
type Service interface {
	Classify(ctx context.Context, message string, previous *types.ConversationTurn) (*types.QueryClassification, error)
}

type ServiceImpl struct {
	logger            *slog.Logger
	ai                AIGenerator
	defaultTravelMode types.TravelMode
}

func NewService(ai AIGenerator, defaultTravelMode types.TravelMode, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:            logger,
		ai:                ai,
		defaultTravelMode: defaultTravelMode,
	}
}

// Classify runs the classification call with a retry-once policy. A second
// failure surfaces types.ErrClassificationUnavailable.
func (s *ServiceImpl) Classify(ctx context.Context, message string, previous *types.ConversationTurn) (*types.QueryClassification, error) {
	ctx, span := otel.Tracer("ClassifierService").Start(ctx, "Classify")
	defer span.End()

	prompt := getClassificationPrompt(message, previous)

	var classification types.QueryClassification
	err := s.ai.GenerateJSON(ctx, prompt, &classification)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.WarnContext(ctx, "Classification call failed, retrying once", slog.Any("error", err))
		if err = s.ai.GenerateJSON(ctx, prompt, &classification); err != nil {
			s.logger.ErrorContext(ctx, "Classification call failed twice", slog.Any("error", err))
			return nil, fmt.Errorf("%w: %w", types.ErrClassificationUnavailable, err)
		}
	}

	normalizeClassification(&classification, s.defaultTravelMode)

	s.logger.InfoContext(ctx, "Query classified",
		slog.Bool("is_route_request", classification.IsRouteRequest),
		slog.String("location", classification.Location),
		slog.String("place_type", classification.PlaceType),
		slog.Int("count", classification.Count))

	return &classification, nil
}

func normalizeClassification(c *types.QueryClassification, defaultTravelMode types.TravelMode) {
	if c.Count <= 0 {
		c.Count = defaultCount
	}
	switch c.TravelMode {
	case types.TravelModeWalking, types.TravelModeDriving, types.TravelModeTransit, types.TravelModeBicycling:
	default:
		c.TravelMode = defaultTravelMode
	}
}

// IsUnavailable reports whether err is the surfaced twice-failed outcome.
func IsUnavailable(err error) bool {
	return errors.Is(err, types.ErrClassificationUnavailable)
}
