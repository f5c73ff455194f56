package routing

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

// MockIntentClassifier is a mock implementation of IntentClassifier
type MockIntentClassifier struct {
	mock.Mock
}

func (m *MockIntentClassifier) ClassifyIntent(ctx context.Context, message string, previous *types.ConversationTurn) (*types.IntentAnalysis, error) {
	args := m.Called(ctx, message, previous)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.IntentAnalysis), args.Error(1)
}

// Helper to setup service with mock intent classifier
func setupRoutingTest() (*ServiceImpl, *MockIntentClassifier) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mockIntent := new(MockIntentClassifier)
	service := NewService(mockIntent, logger)
	return service, mockIntent
}

func previousBarsTurn() *types.ConversationTurn {
	return &types.ConversationTurn{
		RequestText: "top 5 bars in Munich",
		Classification: &types.QueryClassification{
			IsRouteRequest: true,
			Location:       "Munich",
			PlaceType:      "bars",
			Count:          5,
			TravelMode:     types.TravelModeWalking,
		},
		Places: []types.ResolvedPlace{
			{Name: "Augustiner", PlaceID: "p1"},
			{Name: "Hofbräuhaus", PlaceID: "p2"},
		},
	}
}

func TestRoutingServiceImpl_Route(t *testing.T) {
	ctx := context.Background()

	t.Run("no previous turn is always a new request", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()

		decision, err := service.Route(ctx, "top 5 bars in Munich", nil)
		require.NoError(t, err)
		assert.True(t, decision.IsNewRequest)
		assert.Equal(t, types.OperationNew, decision.OperationType)
		assert.False(t, decision.UsePreviousContext)
		assert.NotEmpty(t, decision.Reasoning)
		mockIntent.AssertNotCalled(t, "ClassifyIntent")
	})

	t.Run("add with explicit count", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()
		mockIntent.On("ClassifyIntent", ctx, "add 2 more", mock.Anything).
			Return(&types.IntentAnalysis{
				OperationType:      "add",
				UsePreviousContext: true,
				CountAdjustment:    2,
				Reasoning:          "user wants two more of the same",
			}, nil).Once()

		decision, err := service.Route(ctx, "add 2 more", previousBarsTurn())
		require.NoError(t, err)
		assert.False(t, decision.IsNewRequest)
		assert.Equal(t, types.OperationAdd, decision.OperationType)
		assert.True(t, decision.UsePreviousContext)
		assert.Equal(t, 2, decision.CountAdjustment)
		mockIntent.AssertExpectations(t)
	})

	t.Run("add defaults to one when the model gives no count", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()
		mockIntent.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).
			Return(&types.IntentAnalysis{OperationType: "add"}, nil).Once()

		decision, err := service.Route(ctx, "one more please", previousBarsTurn())
		require.NoError(t, err)
		assert.Equal(t, types.OperationAdd, decision.OperationType)
		assert.Equal(t, 1, decision.CountAdjustment)
		mockIntent.AssertExpectations(t)
	})

	t.Run("remove normalizes the adjustment to negative", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()
		mockIntent.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).
			Return(&types.IntentAnalysis{OperationType: "remove", CountAdjustment: 2}, nil).Once()

		decision, err := service.Route(ctx, "drop two of those", previousBarsTurn())
		require.NoError(t, err)
		assert.Equal(t, types.OperationRemove, decision.OperationType)
		assert.Equal(t, -2, decision.CountAdjustment)
		assert.True(t, decision.UsePreviousContext)
		mockIntent.AssertExpectations(t)
	})

	t.Run("full topic change overrides modification phrasing", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()
		previous := &types.ConversationTurn{
			RequestText: "best parks in Paris",
			Classification: &types.QueryClassification{
				IsRouteRequest: true,
				Location:       "Paris",
				PlaceType:      "parks",
				Count:          3,
			},
		}
		mockIntent.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).
			Return(&types.IntentAnalysis{
				OperationType:     "add",
				DetectedLocation:  "Munich",
				DetectedPlaceType: "bars",
			}, nil).Once()

		decision, err := service.Route(ctx, "now show me bars in Munich", previous)
		require.NoError(t, err)
		assert.True(t, decision.IsNewRequest)
		assert.Equal(t, types.OperationNew, decision.OperationType)
		assert.False(t, decision.UsePreviousContext)
		mockIntent.AssertExpectations(t)
	})

	t.Run("same city different phrasing does not force a new request", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()
		mockIntent.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).
			Return(&types.IntentAnalysis{
				OperationType:     "add",
				DetectedLocation:  "münchen",
				DetectedPlaceType: "bars",
				CountAdjustment:   1,
			}, nil).Once()

		decision, err := service.Route(ctx, "add another bar", previousBarsTurn())
		require.NoError(t, err)
		assert.Equal(t, types.OperationAdd, decision.OperationType)
		mockIntent.AssertExpectations(t)
	})

	t.Run("ambiguous replace_all downgrades to add", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()
		mockIntent.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).
			Return(&types.IntentAnalysis{
				OperationType:      "replace_all",
				RejectsAllPrevious: false,
			}, nil).Once()

		decision, err := service.Route(ctx, "show me different ones", previousBarsTurn())
		require.NoError(t, err)
		assert.Equal(t, types.OperationAdd, decision.OperationType)
		assert.True(t, decision.UsePreviousContext)
		mockIntent.AssertExpectations(t)
	})

	t.Run("explicit rejection keeps replace_all", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()
		mockIntent.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).
			Return(&types.IntentAnalysis{
				OperationType:      "replace_all",
				RejectsAllPrevious: true,
				Reasoning:          "user said none of these work",
			}, nil).Once()

		decision, err := service.Route(ctx, "none of these work, give me a fresh list", previousBarsTurn())
		require.NoError(t, err)
		assert.Equal(t, types.OperationReplaceAll, decision.OperationType)
		assert.False(t, decision.UsePreviousContext)
		assert.False(t, decision.IsNewRequest)
		mockIntent.AssertExpectations(t)
	})

	t.Run("replace_last keeps the rest of the set", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()
		mockIntent.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).
			Return(&types.IntentAnalysis{OperationType: "replace_last"}, nil).Once()

		decision, err := service.Route(ctx, "the last one is too far, swap it", previousBarsTurn())
		require.NoError(t, err)
		assert.Equal(t, types.OperationReplaceLast, decision.OperationType)
		assert.True(t, decision.UsePreviousContext)
		mockIntent.AssertExpectations(t)
	})

	t.Run("unknown operation degrades to refine", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()
		mockIntent.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).
			Return(&types.IntentAnalysis{OperationType: "shuffle"}, nil).Once()

		decision, err := service.Route(ctx, "mix it up a bit", previousBarsTurn())
		require.NoError(t, err)
		assert.Equal(t, types.OperationRefine, decision.OperationType)
		mockIntent.AssertExpectations(t)
	})

	t.Run("intent classifier error is propagated", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()
		expectedErr := errors.New("model down")
		mockIntent.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).
			Return(nil, expectedErr).Once()

		decision, err := service.Route(ctx, "add 2 more", previousBarsTurn())
		require.Error(t, err)
		assert.Nil(t, decision)
		assert.ErrorIs(t, err, expectedErr)
		mockIntent.AssertExpectations(t)
	})

	t.Run("IsNewRequest holds exactly for new operations", func(t *testing.T) {
		service, mockIntent := setupRoutingTest()
		for _, op := range []string{"add", "remove", "replace_last", "replace_all"} {
			mockIntent.On("ClassifyIntent", ctx, mock.Anything, mock.Anything).
				Return(&types.IntentAnalysis{OperationType: op, RejectsAllPrevious: true}, nil).Once()

			decision, err := service.Route(ctx, "tweak the route", previousBarsTurn())
			require.NoError(t, err)
			assert.False(t, decision.IsNewRequest, "operation %s must not be a new request", op)
		}
		mockIntent.AssertExpectations(t)
	})
}
