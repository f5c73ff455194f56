package places

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/FACorreiaa/go-city-routes/internal/api/city"
	"github.com/FACorreiaa/go-city-routes/internal/types"
)

// SuggestionSource is the resolver's feedback channel into the suggestion
// generator: each retry round asks it for replacement candidates.
type SuggestionSource interface {
	Suggest(ctx context.Context, classification *types.QueryClassification, operation types.OperationType, countNeeded int, excludedNames []string) (*types.SuggestionBatch, error)
}

// Resolution is the resolver's outcome for one pipeline run. Shortfall > 0
// means the retry budget ran out before the target count was reached.
type Resolution struct {
	Places    []types.ResolvedPlace
	Shortfall int
}

// Resolver converts suggestions into verified places through a bounded
// retry state machine: round counter, exclusion set, accumulator. Lookups
// within a round run concurrently under a semaphore; rounds are sequential
// because each depends on the previous round's exclusion set.
type Resolver struct {
	logger      *slog.Logger
	enricher    Service
	suggestions SuggestionSource
	maxRounds   int
	concurrency int64
}

func NewResolver(enricher Service, suggestions SuggestionSource, maxRounds, lookupConcurrency int, logger *slog.Logger) *Resolver {
	if maxRounds < 1 {
		maxRounds = 1
	}
	if lookupConcurrency < 1 {
		lookupConcurrency = 1
	}
	return &Resolver{
		logger:      logger,
		enricher:    enricher,
		suggestions: suggestions,
		maxRounds:   maxRounds,
		concurrency: int64(lookupConcurrency),
	}
}

// Resolve verifies the suggested candidates against the places service,
// backfilling rejections with fresh suggestions until targetCount is reached
// or the retry budget is exhausted. Carried places are prior-turn results
// kept verbatim; they seed the accumulator and the exclusion set. The
// returned list never holds two entries with the same place ID.
func (r *Resolver) Resolve(ctx context.Context, carried []types.ResolvedPlace, suggested []types.PlaceSuggestion, classification *types.QueryClassification, operation types.OperationType, targetCount int) (*Resolution, error) {
	ctx, span := otel.Tracer("PlaceResolver").Start(ctx, "Resolve")
	defer span.End()

	accepted := make([]types.ResolvedPlace, 0, targetCount)
	seenIDs := make(map[string]struct{})
	seenNames := make(map[string]struct{})
	var excludedNames []string

	for _, place := range carried {
		if _, dup := seenIDs[place.PlaceID]; dup {
			continue
		}
		seenIDs[place.PlaceID] = struct{}{}
		seenNames[city.Normalize(place.Name)] = struct{}{}
		excludedNames = append(excludedNames, place.Name)
		accepted = append(accepted, place)
	}

	batch := suggested
	for round := 0; ; round++ {
		resolved, err := r.resolveBatch(ctx, batch, classification.Location)
		if err != nil {
			return nil, err
		}

		for i, place := range resolved {
			// Every attempted name joins the exclusion set, accepted or not.
			key := city.Normalize(batch[i].Name)
			if _, tried := seenNames[key]; !tried {
				seenNames[key] = struct{}{}
				excludedNames = append(excludedNames, batch[i].Name)
			}
			if place == nil || len(accepted) >= targetCount {
				continue
			}
			if _, dup := seenIDs[place.PlaceID]; dup {
				r.logger.DebugContext(ctx, "Dropping duplicate place", slog.String("place_id", place.PlaceID))
				continue
			}
			seenIDs[place.PlaceID] = struct{}{}
			accepted = append(accepted, *place)
		}

		missing := targetCount - len(accepted)
		if missing <= 0 || round >= r.maxRounds {
			break
		}

		r.logger.InfoContext(ctx, "Resolver retry round",
			slog.Int("round", round+1),
			slog.Int("missing", missing),
			slog.Int("excluded", len(excludedNames)))

		next, err := r.suggestions.Suggest(ctx, classification, operation, missing, excludedNames)
		if err != nil {
			r.logger.ErrorContext(ctx, "Retry suggestion round failed", slog.Any("error", err))
			break
		}
		batch = freshOnly(next.Places, seenNames)
		if len(batch) == 0 {
			// The model has nothing new to offer; more rounds cannot help.
			break
		}
	}

	shortfall := targetCount - len(accepted)
	if shortfall < 0 {
		shortfall = 0
	}
	span.SetAttributes(
		attribute.Int("resolver.accepted", len(accepted)),
		attribute.Int("resolver.shortfall", shortfall),
	)
	r.logger.InfoContext(ctx, "Resolution complete",
		slog.Int("target", targetCount),
		slog.Int("resolved", len(accepted)),
		slog.Int("shortfall", shortfall))

	return &Resolution{Places: accepted, Shortfall: shortfall}, nil
}

// resolveBatch looks up one round of suggestions. Lookups are independent
// and run concurrently, bounded by the semaphore; a failed lookup counts as
// a rejection rather than aborting the round, so an outage degrades to
// partial results. Only cancellation stops the round early.
func (r *Resolver) resolveBatch(ctx context.Context, batch []types.PlaceSuggestion, targetCity string) ([]*types.ResolvedPlace, error) {
	results := make([]*types.ResolvedPlace, len(batch))
	sem := semaphore.NewWeighted(r.concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i, suggestion := range batch {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			place, err := r.enricher.EnrichPlace(gctx, suggestion, targetCity)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.WarnContext(gctx, "Place lookup failed, counting as rejection",
					slog.String("name", suggestion.Name), slog.Any("error", err))
				return nil
			}
			results[i] = place
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func freshOnly(suggestions []types.PlaceSuggestion, seenNames map[string]struct{}) []types.PlaceSuggestion {
	var fresh []types.PlaceSuggestion
	for _, s := range suggestions {
		if _, tried := seenNames[city.Normalize(s.Name)]; tried {
			continue
		}
		fresh = append(fresh, s)
	}
	return fresh
}
