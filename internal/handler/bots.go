package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"redcode-api/internal/middleware"
	"redcode-api/internal/model"
	"redcode-api/internal/service"
	"redcode-api/pkg/apierror"
	"redcode-api/pkg/response"
)

// BotHandler serves the owner-side bot endpoints.
type BotHandler struct {
	bots *service.BotService
}

// NewBotHandler creates a new bot handler.
func NewBotHandler(bots *service.BotService) *BotHandler {
	return &BotHandler{bots: bots}
}

// BotListResponse is the dashboard payload of GET /api/bots.
type BotListResponse struct {
	Bots    []model.Bot          `json:"bots"`
	Summary service.FleetSummary `json:"summary"`
}

// List handles GET /api/bots
func (h *BotHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if q := r.URL.Query().Get("userId"); q != "" && q != userID {
		response.Error(w, apierror.Forbidden("Cannot list another user's bots"))
		return
	}

	bots, summary, err := h.bots.ListBots(r.Context(), userID)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	response.OK(w, BotListResponse{Bots: bots, Summary: summary})
}

// CreateBotRequest is the body of POST /api/bots.
type CreateBotRequest struct {
	Name   string `json:"name"`
	Token  string `json:"token"`
	GameID string `json:"gameId"`
}

// Create handles POST /api/bots
func (h *BotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBotRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	bot, err := h.bots.AddBot(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Token, req.GameID)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	response.Created(w, map[string]interface{}{"bot": bot})
}

// Delete handles DELETE /api/bots/{id}
func (h *BotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "id")
	if botID == "" {
		response.Error(w, apierror.BadRequest("bot id is required"))
		return
	}

	if err := h.bots.DeleteBot(r.Context(), middleware.GetUserID(r.Context()), botID); err != nil {
		e := toAPIError(err)
		if e.StatusCode == http.StatusNotFound {
			e = apierror.NotFound("Bot not found").WithCause(err)
		}
		response.Error(w, e)
		return
	}

	response.OK(w, map[string]string{"status": "deleted", "id": botID})
}

// Stats handles GET /api/stats
func (h *BotHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.bots.Stats(r.Context())
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}
	response.OK(w, stats)
}
