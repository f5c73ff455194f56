package routing

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/FACorreiaa/go-city-routes/internal/api/city"
	"github.com/FACorreiaa/go-city-routes/internal/types"
)

// IntentClassifier is the swappable LLM-backed intent analysis step. The
// concrete call (prompt construction, schema parsing) lives behind it so the
// routing state machine stays testable without a model.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, message string, previous *types.ConversationTurn) (*types.IntentAnalysis, error)
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service decides how the current message relates to the previous turn.
type Service interface {
	Route(ctx context.Context, message string, previous *types.ConversationTurn) (*types.RoutingDecision, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	intent IntentClassifier
}

func NewService(intent IntentClassifier, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		intent: intent,
	}
}

// Route applies the routing state machine:
//   - no previous turn -> new request, no context
//   - both location and place type changed -> new request, regardless of
//     how the message is phrased
//   - otherwise the model's modification intent, with an ambiguity tie-break
//     that prefers keeping prior context over throwing it away
func (s *ServiceImpl) Route(ctx context.Context, message string, previous *types.ConversationTurn) (*types.RoutingDecision, error) {
	ctx, span := otel.Tracer("RoutingService").Start(ctx, "Route")
	defer span.End()

	if previous == nil || previous.Classification == nil {
		return &types.RoutingDecision{
			IsNewRequest:       true,
			OperationType:      types.OperationNew,
			UsePreviousContext: false,
			Reasoning:          "no previous turn, treating as a new request",
		}, nil
	}

	intent, err := s.intent.ClassifyIntent(ctx, message, previous)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze modification intent: %w", err)
	}

	decision := s.buildDecision(intent, previous.Classification)

	s.logger.InfoContext(ctx, "Routing decision",
		slog.Bool("is_new", decision.IsNewRequest),
		slog.String("operation", string(decision.OperationType)),
		slog.Bool("use_context", decision.UsePreviousContext),
		slog.Int("count_adjustment", decision.CountAdjustment),
		slog.String("reasoning", decision.Reasoning))

	return decision, nil
}

func (s *ServiceImpl) buildDecision(intent *types.IntentAnalysis, previous *types.QueryClassification) *types.RoutingDecision {
	op := parseOperation(intent)
	reasoning := intent.Reasoning

	// A full topic change overrides any modification phrasing.
	locationChanged := intent.DetectedLocation != "" && !city.SameCity(intent.DetectedLocation, previous.Location)
	placeTypeChanged := intent.DetectedPlaceType != "" && city.Normalize(intent.DetectedPlaceType) != city.Normalize(previous.PlaceType)
	if locationChanged && placeTypeChanged {
		op = types.OperationNew
		reasoning = fmt.Sprintf("location and place type both changed (%s/%s -> %s/%s)",
			previous.Location, previous.PlaceType, intent.DetectedLocation, intent.DetectedPlaceType)
	}

	// Ambiguity tie-break: "show me different ones" style phrasing only
	// discards the whole set when the message explicitly negates it.
	if op == types.OperationReplaceAll && !intent.RejectsAllPrevious {
		op = types.OperationAdd
		reasoning += "; ambiguous rejection, preferring add to preserve prior context"
	}

	adjustment := 0
	switch op {
	case types.OperationAdd:
		adjustment = intent.CountAdjustment
		if adjustment < 0 {
			adjustment = -adjustment
		}
		if adjustment == 0 {
			adjustment = 1
		}
	case types.OperationRemove:
		adjustment = intent.CountAdjustment
		if adjustment > 0 {
			adjustment = -adjustment
		}
		if adjustment == 0 {
			adjustment = -1
		}
	}

	if reasoning == "" {
		reasoning = fmt.Sprintf("model classified the message as %q", op)
	}

	return &types.RoutingDecision{
		IsNewRequest:       op == types.OperationNew,
		OperationType:      op,
		UsePreviousContext: op != types.OperationNew && op != types.OperationReplaceAll,
		CountAdjustment:    adjustment,
		Reasoning:          reasoning,
	}
}

func parseOperation(intent *types.IntentAnalysis) types.OperationType {
	if intent.IsNewRequest {
		return types.OperationNew
	}
	switch types.OperationType(intent.OperationType) {
	case types.OperationAdd:
		return types.OperationAdd
	case types.OperationRemove:
		return types.OperationRemove
	case types.OperationReplaceLast:
		return types.OperationReplaceLast
	case types.OperationReplaceAll:
		return types.OperationReplaceAll
	case types.OperationNew:
		return types.OperationNew
	default:
		// Unknown verdicts degrade to a refine, which reclassifies the
		// message instead of guessing a destructive operation.
		return types.OperationRefine
	}
}
