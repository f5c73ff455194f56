package places

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-city-routes/internal/types"
)

// MockEnricher is a mock implementation of Service
type MockEnricher struct {
	mock.Mock
}

func (m *MockEnricher) EnrichPlace(ctx context.Context, suggestion types.PlaceSuggestion, targetCity string) (*types.ResolvedPlace, error) {
	args := m.Called(ctx, suggestion, targetCity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ResolvedPlace), args.Error(1)
}

// MockSuggestionSource is a mock implementation of SuggestionSource
type MockSuggestionSource struct {
	mock.Mock
}

func (m *MockSuggestionSource) Suggest(ctx context.Context, classification *types.QueryClassification, operation types.OperationType, countNeeded int, excludedNames []string) (*types.SuggestionBatch, error) {
	args := m.Called(ctx, classification, operation, countNeeded, excludedNames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SuggestionBatch), args.Error(1)
}

// Helper to setup resolver with mocks
func setupResolverTest(maxRounds int) (*Resolver, *MockEnricher, *MockSuggestionSource) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mockEnricher := new(MockEnricher)
	mockSuggestions := new(MockSuggestionSource)
	resolver := NewResolver(mockEnricher, mockSuggestions, maxRounds, 4, logger)
	return resolver, mockEnricher, mockSuggestions
}

func resolverClassification() *types.QueryClassification {
	return &types.QueryClassification{
		IsRouteRequest: true,
		Location:       "Munich",
		PlaceType:      "bars",
		Count:          5,
		TravelMode:     types.TravelModeWalking,
	}
}

func suggestion(name string) types.PlaceSuggestion {
	return types.PlaceSuggestion{Name: name, ShortDescription: name + " description"}
}

func resolvedPlace(name, id string) *types.ResolvedPlace {
	return &types.ResolvedPlace{
		Name:        name,
		Description: name + " description",
		Address:     name + " street, Munich, Germany",
		PlaceID:     id,
	}
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("all suggestions resolve on the first round", func(t *testing.T) {
		resolver, mockEnricher, mockSuggestions := setupResolverTest(3)
		names := []string{"A", "B", "C"}
		suggestions := make([]types.PlaceSuggestion, 0, len(names))
		for i, name := range names {
			s := suggestion(name)
			suggestions = append(suggestions, s)
			mockEnricher.On("EnrichPlace", mock.Anything, s, "Munich").
				Return(resolvedPlace(name, names[i]+"-id"), nil).Once()
		}

		resolution, err := resolver.Resolve(ctx, nil, suggestions, resolverClassification(), types.OperationNew, 3)
		require.NoError(t, err)
		assert.Len(t, resolution.Places, 3)
		assert.Zero(t, resolution.Shortfall)
		mockEnricher.AssertExpectations(t)
		mockSuggestions.AssertNotCalled(t, "Suggest")
	})

	t.Run("rejections are backfilled by a retry round", func(t *testing.T) {
		resolver, mockEnricher, mockSuggestions := setupResolverTest(3)

		// First round: 5 suggestions, 2 fail the locality check.
		firstRound := []types.PlaceSuggestion{
			suggestion("A"), suggestion("B"), suggestion("C"), suggestion("D"), suggestion("E"),
		}
		for _, name := range []string{"A", "B", "C"} {
			mockEnricher.On("EnrichPlace", mock.Anything, suggestion(name), "Munich").
				Return(resolvedPlace(name, name+"-id"), nil).Once()
		}
		for _, name := range []string{"D", "E"} {
			mockEnricher.On("EnrichPlace", mock.Anything, suggestion(name), "Munich").
				Return(nil, nil).Once()
		}

		// Retry round: asked for exactly the 2 missing, with every attempted
		// name excluded.
		mockSuggestions.On("Suggest", mock.Anything, mock.Anything, types.OperationNew, 2, mock.MatchedBy(func(excluded []string) bool {
			return len(excluded) == 5
		})).Return(&types.SuggestionBatch{
			Places: []types.PlaceSuggestion{suggestion("F"), suggestion("G")},
		}, nil).Once()
		for _, name := range []string{"F", "G"} {
			mockEnricher.On("EnrichPlace", mock.Anything, suggestion(name), "Munich").
				Return(resolvedPlace(name, name+"-id"), nil).Once()
		}

		resolution, err := resolver.Resolve(ctx, nil, firstRound, resolverClassification(), types.OperationNew, 5)
		require.NoError(t, err)
		assert.Len(t, resolution.Places, 5)
		assert.Zero(t, resolution.Shortfall)

		seen := make(map[string]bool)
		for _, place := range resolution.Places {
			assert.False(t, seen[place.PlaceID], "place %s appears twice", place.PlaceID)
			seen[place.PlaceID] = true
		}
		mockEnricher.AssertExpectations(t)
		mockSuggestions.AssertExpectations(t)
	})

	t.Run("duplicate place IDs are dropped", func(t *testing.T) {
		resolver, mockEnricher, mockSuggestions := setupResolverTest(1)

		// Two differently named suggestions resolve to the same place.
		mockEnricher.On("EnrichPlace", mock.Anything, suggestion("Hofbräuhaus"), "Munich").
			Return(resolvedPlace("Hofbräuhaus", "same-id"), nil).Once()
		mockEnricher.On("EnrichPlace", mock.Anything, suggestion("Hofbrauhaus Munich"), "Munich").
			Return(resolvedPlace("Hofbräuhaus", "same-id"), nil).Once()
		mockSuggestions.On("Suggest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&types.SuggestionBatch{}, nil).Maybe()

		resolution, err := resolver.Resolve(ctx, nil,
			[]types.PlaceSuggestion{suggestion("Hofbräuhaus"), suggestion("Hofbrauhaus Munich")},
			resolverClassification(), types.OperationNew, 2)
		require.NoError(t, err)
		assert.Len(t, resolution.Places, 1)
		assert.Equal(t, 1, resolution.Shortfall)
		mockEnricher.AssertExpectations(t)
	})

	t.Run("retry budget exhaustion yields a shortfall", func(t *testing.T) {
		resolver, mockEnricher, mockSuggestions := setupResolverTest(2)

		mockEnricher.On("EnrichPlace", mock.Anything, mock.Anything, "Munich").
			Return(nil, nil)
		mockSuggestions.On("Suggest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&types.SuggestionBatch{Places: []types.PlaceSuggestion{suggestion("X1")}}, nil).Once()
		mockSuggestions.On("Suggest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&types.SuggestionBatch{Places: []types.PlaceSuggestion{suggestion("X2")}}, nil).Once()

		resolution, err := resolver.Resolve(ctx, nil,
			[]types.PlaceSuggestion{suggestion("A"), suggestion("B")},
			resolverClassification(), types.OperationNew, 2)
		require.NoError(t, err)
		assert.Empty(t, resolution.Places)
		assert.Equal(t, 2, resolution.Shortfall)
		mockSuggestions.AssertExpectations(t)
	})

	t.Run("carried places seed the result and the exclusion set", func(t *testing.T) {
		resolver, mockEnricher, mockSuggestions := setupResolverTest(3)
		carried := []types.ResolvedPlace{
			*resolvedPlace("A", "a-id"),
			*resolvedPlace("B", "b-id"),
		}
		mockEnricher.On("EnrichPlace", mock.Anything, suggestion("C"), "Munich").
			Return(resolvedPlace("C", "c-id"), nil).Once()

		resolution, err := resolver.Resolve(ctx, carried,
			[]types.PlaceSuggestion{suggestion("C")},
			resolverClassification(), types.OperationAdd, 3)
		require.NoError(t, err)
		require.Len(t, resolution.Places, 3)
		assert.Equal(t, "a-id", resolution.Places[0].PlaceID)
		assert.Equal(t, "b-id", resolution.Places[1].PlaceID)
		assert.Equal(t, "c-id", resolution.Places[2].PlaceID)
		mockEnricher.AssertExpectations(t)
		mockSuggestions.AssertNotCalled(t, "Suggest")
	})

	t.Run("lookup error counts as a rejection", func(t *testing.T) {
		resolver, mockEnricher, mockSuggestions := setupResolverTest(1)

		mockEnricher.On("EnrichPlace", mock.Anything, suggestion("A"), "Munich").
			Return(resolvedPlace("A", "a-id"), nil).Once()
		mockEnricher.On("EnrichPlace", mock.Anything, suggestion("B"), "Munich").
			Return(nil, errors.New("api quota exceeded")).Once()
		mockSuggestions.On("Suggest", mock.Anything, mock.Anything, mock.Anything, 1, mock.Anything).
			Return(&types.SuggestionBatch{}, nil).Once()

		resolution, err := resolver.Resolve(ctx, nil,
			[]types.PlaceSuggestion{suggestion("A"), suggestion("B")},
			resolverClassification(), types.OperationNew, 2)
		require.NoError(t, err)
		assert.Len(t, resolution.Places, 1)
		assert.Equal(t, 1, resolution.Shortfall)
		mockEnricher.AssertExpectations(t)
	})

	t.Run("retry stops early when the model repeats itself", func(t *testing.T) {
		resolver, mockEnricher, mockSuggestions := setupResolverTest(5)

		mockEnricher.On("EnrichPlace", mock.Anything, suggestion("A"), "Munich").
			Return(nil, nil).Once()
		// The retry only re-suggests an already attempted name, so the loop
		// must stop instead of burning the remaining rounds.
		mockSuggestions.On("Suggest", mock.Anything, mock.Anything, mock.Anything, 1, mock.Anything).
			Return(&types.SuggestionBatch{Places: []types.PlaceSuggestion{suggestion("A")}}, nil).Once()

		resolution, err := resolver.Resolve(ctx, nil,
			[]types.PlaceSuggestion{suggestion("A")},
			resolverClassification(), types.OperationNew, 1)
		require.NoError(t, err)
		assert.Empty(t, resolution.Places)
		assert.Equal(t, 1, resolution.Shortfall)
		mockEnricher.AssertExpectations(t)
		mockSuggestions.AssertExpectations(t)
	})
}
