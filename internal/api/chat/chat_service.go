package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/go-city-routes/internal/api/classifier"
	"github.com/FACorreiaa/go-city-routes/internal/api/places"
	"github.com/FACorreiaa/go-city-routes/internal/api/route"
	"github.com/FACorreiaa/go-city-routes/internal/api/routing"
	"github.com/FACorreiaa/go-city-routes/internal/api/suggestions"
	"github.com/FACorreiaa/go-city-routes/internal/types"
)

// Resolver is the place-resolution stage as the pipeline sees it.
type Resolver interface {
	Resolve(ctx context.Context, carried []types.ResolvedPlace, suggested []types.PlaceSuggestion, classification *types.QueryClassification, operation types.OperationType, targetCount int) (*places.Resolution, error)
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service is the pipeline entry point: one call per inbound message.
type Service interface {
	ProcessMessage(ctx context.Context, message string, previous *types.ConversationTurn) (*types.AgentResponse, error)
}

// ServiceImpl orchestrates the agent pipeline: routing, classification,
// suggestion generation, place resolution with retries, route ordering, and
// response assembly. All state is request-scoped; the previous turn is a
// read-only snapshot owned by the caller.
type ServiceImpl struct {
	logger      *slog.Logger
	classifier  classifier.Service
	router      routing.Service
	suggestions suggestions.Service
	resolver    Resolver
	assembler   *route.Assembler
	maxPlaces   int
}

func NewService(
	classifierSvc classifier.Service,
	routerSvc routing.Service,
	suggestionSvc suggestions.Service,
	resolver Resolver,
	assembler *route.Assembler,
	maxPlaces int,
	logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		classifier:  classifierSvc,
		router:      routerSvc,
		suggestions: suggestionSvc,
		resolver:    resolver,
		assembler:   assembler,
		maxPlaces:   maxPlaces,
	}
}

// ProcessMessage runs the full pipeline for one message. It only returns an
// error on cancellation; every other failure degrades to a graceful
// response scoped to this request.
func (s *ServiceImpl) ProcessMessage(ctx context.Context, message string, previous *types.ConversationTurn) (*types.AgentResponse, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "ProcessMessage")
	defer span.End()

	l := s.logger.With(slog.String("run_id", uuid.New().String()))
	l.InfoContext(ctx, "Pipeline started", slog.String("message", TruncateString(message, 100)))

	// Step 1: decide how this turn relates to the previous one.
	decision, err := s.router.Route(ctx, message, previous)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.ErrorContext(ctx, "Routing failed", slog.Any("error", err))
		return tryAgainResponse(), nil
	}
	span.SetAttributes(attribute.String("routing.operation", string(decision.OperationType)))
	op := decision.OperationType

	// Step 2: classify, or derive the classification from the previous turn.
	classification, resp, err := s.classifyForOperation(ctx, l, message, previous, decision)
	if err != nil {
		return nil, err
	}
	if resp != nil {
		return resp, nil
	}

	if classification.Count > s.maxPlaces {
		l.WarnContext(ctx, "Requested count exceeds limit",
			slog.Int("requested", classification.Count), slog.Int("max_allowed", s.maxPlaces))
		return countCapResponse(classification, s.maxPlaces), nil
	}

	applyThemeOverride(message, op, classification)

	// Step 3: split the target between carried-over points and fresh ones.
	carried, needed := splitTarget(op, previous, classification.Count)

	batch := &types.SuggestionBatch{}
	if needed > 0 {
		excluded := excludedNamesFor(op, previous, carried)
		batch, err = s.suggestions.Suggest(ctx, classification, op, needed, excluded)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.ErrorContext(ctx, "Suggestion generation failed", slog.Any("error", err))
			if len(carried) == 0 {
				return tryAgainResponse(), nil
			}
			batch = &types.SuggestionBatch{}
		}
		if len(batch.Places) == 0 && len(carried) == 0 {
			l.WarnContext(ctx, "No suggestions generated")
			return noSuggestionsResponse(), nil
		}
	}

	// Step 4: verify against real-world data, backfilling rejections.
	resolution, err := s.resolver.Resolve(ctx, carried, batch.Places, classification, op, classification.Count)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.ErrorContext(ctx, "Resolution failed", slog.Any("error", err))
		return tryAgainResponse(), nil
	}
	if len(resolution.Places) == 0 {
		l.WarnContext(ctx, "No places resolved",
			slog.String("place_type", classification.PlaceType),
			slog.String("location", classification.Location))
		return noPlacesResponse(classification), nil
	}

	// Step 5: order the set. Operations that keep prior points in place
	// (remove, replace_last) skip reordering; the carried prefix was
	// already sequenced on the turn that produced it.
	ordered := resolution.Places
	switch op {
	case types.OperationNew, types.OperationReplaceAll:
		ordered = route.OptimizeOrder(resolution.Places, nil)
	case types.OperationAdd, types.OperationRefine:
		var anchor *types.ResolvedPlace
		if len(carried) > 0 {
			anchor = &carried[0]
		}
		ordered = route.OptimizeOrder(resolution.Places, anchor)
	}

	// Step 6: assemble the plan and the chat reply.
	description := batch.RouteDescription
	if description == "" {
		description = fmt.Sprintf("A route of %d %s in %s", len(ordered), classification.PlaceType, classification.Location)
	}
	duration := batch.EstimatedDuration
	if duration == "" {
		duration = "2-3 hours"
	}
	plan := s.assembler.BuildPlan(ordered, classification, description, duration, resolution.Shortfall)

	l.InfoContext(ctx, "Pipeline completed",
		slog.String("operation", string(op)),
		slog.Int("points", len(plan.Points)),
		slog.Int("shortfall", plan.Shortfall))

	return &types.AgentResponse{
		Response: formatPlanResponse(plan, classification),
		Workspace: types.Workspace{
			Type: types.WorkspaceTypeMap,
			Data: plan,
		},
	}, nil
}

// classifyForOperation returns the classification for this turn. New and
// refine turns reclassify the message; modification turns derive the
// classification from the previous one, adjusting only the count. A non-nil
// response short-circuits the pipeline (not a route request, or
// classification unavailable).
func (s *ServiceImpl) classifyForOperation(ctx context.Context, l *slog.Logger, message string, previous *types.ConversationTurn, decision *types.RoutingDecision) (*types.QueryClassification, *types.AgentResponse, error) {
	switch decision.OperationType {
	case types.OperationNew, types.OperationRefine:
		classification, err := s.classifier.Classify(ctx, message, previous)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			l.ErrorContext(ctx, "Classification failed", slog.Any("error", err))
			return nil, tryAgainResponse(), nil
		}
		if !classification.IsRouteRequest {
			l.InfoContext(ctx, "Not a route request")
			return nil, helpResponse(), nil
		}
		return classification, nil, nil
	default:
		derived := *previous.Classification
		prevCount := len(previous.Places)
		if prevCount == 0 {
			prevCount = derived.Count
		}
		switch decision.OperationType {
		case types.OperationAdd:
			derived.Count = prevCount + decision.CountAdjustment
		case types.OperationRemove:
			derived.Count = max(1, prevCount+decision.CountAdjustment)
		default: // replace_last, replace_all keep the target count
			derived.Count = prevCount
		}
		l.InfoContext(ctx, "Derived classification from previous turn",
			slog.String("operation", string(decision.OperationType)),
			slog.Int("previous_count", prevCount),
			slog.Int("target_count", derived.Count))
		return &derived, nil, nil
	}
}

// splitTarget decides which previous places are kept verbatim and how many
// fresh suggestions are needed to reach the target count.
func splitTarget(op types.OperationType, previous *types.ConversationTurn, targetCount int) (carried []types.ResolvedPlace, needed int) {
	var prevPlaces []types.ResolvedPlace
	if previous != nil {
		prevPlaces = previous.Places
	}

	switch op {
	case types.OperationNew, types.OperationReplaceAll:
		return nil, targetCount
	case types.OperationReplaceLast:
		if len(prevPlaces) > 0 {
			carried = prevPlaces[:len(prevPlaces)-1]
		}
	case types.OperationAdd, types.OperationRemove, types.OperationRefine:
		carried = prevPlaces
	}

	if len(carried) > targetCount {
		carried = carried[:targetCount]
	}
	return carried, targetCount - len(carried)
}

// excludedNamesFor builds the generator's exclusion set: the carried names,
// plus every previous name for replace_all and replace_last so the fresh
// suggestions do not reintroduce a rejected place.
func excludedNamesFor(op types.OperationType, previous *types.ConversationTurn, carried []types.ResolvedPlace) []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := seen[key]; dup || key == "" {
			return
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}

	for _, place := range carried {
		add(place.Name)
	}
	if previous != nil && (op == types.OperationReplaceAll || op == types.OperationReplaceLast) {
		for _, place := range previous.Places {
			add(place.Name)
		}
	}
	return names
}

// applyThemeOverride tightens the theme when a modification message asks
// for the city center.
func applyThemeOverride(message string, op types.OperationType, classification *types.QueryClassification) {
	lower := strings.ToLower(message)
	if !strings.Contains(lower, "center") && !strings.Contains(lower, "centre") {
		return
	}
	switch op {
	case types.OperationAdd, types.OperationReplaceLast, types.OperationReplaceAll:
		classification.Theme = "in the city center"
	}
}

func TruncateString(str string, num int) string {
	if len(str) > num {
		return str[0:num] + "..."
	}
	return str
}
