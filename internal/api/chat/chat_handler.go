package chat

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-city-routes/app/observability/metrics"
	"github.com/FACorreiaa/go-city-routes/internal/api"
	"github.com/FACorreiaa/go-city-routes/internal/types"
)

// ChatMessageRequest is the inbound payload. The previous turn travels with
// the request because the server keeps no conversation state.
type ChatMessageRequest struct {
	Message                string                     `json:"message"`
	PreviousRequest        string                     `json:"previous_request,omitempty"`
	PreviousClassification *types.QueryClassification `json:"previous_classification,omitempty"`
	PreviousPlaces         []types.ResolvedPlace      `json:"previous_places,omitempty"`
}

type HandlerImpl struct {
	chatService Service
	logger      *slog.Logger
}

func NewHandler(chatService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		chatService: chatService,
		logger:      logger,
	}
}

// ProcessMessage handles POST /chat/message.
func (h *HandlerImpl) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "ProcessMessage")
	defer span.End()

	start := time.Now()
	defer func() {
		m := metrics.Get()
		m.ChatRequestsTotal.Add(ctx, 1)
		m.ChatDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	var req ChatMessageRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "Invalid chat request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "message must not be empty")
		return
	}
	span.SetAttributes(attribute.Int("chat.message_length", len(req.Message)))

	response, err := h.chatService.ProcessMessage(ctx, req.Message, previousTurn(&req))
	if err != nil {
		h.logger.ErrorContext(ctx, "Chat pipeline failed", slog.Any("error", err))
		span.SetStatus(codes.Error, "pipeline failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to process message")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, response)
}

// previousTurn reconstructs the previous conversation turn from the request,
// or nil when the client sent none.
func previousTurn(req *ChatMessageRequest) *types.ConversationTurn {
	if req.PreviousClassification == nil && len(req.PreviousPlaces) == 0 {
		return nil
	}
	return &types.ConversationTurn{
		RequestText:    req.PreviousRequest,
		Classification: req.PreviousClassification,
		Places:         req.PreviousPlaces,
	}
}
