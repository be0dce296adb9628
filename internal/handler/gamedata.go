package handler

import (
	"net/http"

	"redcode-api/internal/model"
	"redcode-api/internal/service"
	"redcode-api/pkg/response"
)

// GameDataHandler ingests bot reports.
type GameDataHandler struct {
	reconciler *service.Reconciler
}

// NewGameDataHandler creates a new report ingestion handler.
func NewGameDataHandler(reconciler *service.Reconciler) *GameDataHandler {
	return &GameDataHandler{reconciler: reconciler}
}

// BotSnapshot is the acknowledgement returned to the reporting client.
type BotSnapshot struct {
	Name            string          `json:"name"`
	Status          model.BotStatus `json:"status"`
	Coin            int64           `json:"coin"`
	FishCaught      int             `json:"fishCaught"`
	BackpackCurrent int             `json:"backpackCurrent"`
	RarestFish      string          `json:"rarestFish"`
	Rarity          model.Rarity    `json:"rarity"`
}

// Ingest handles POST /api/gamedata
func (h *GameDataHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var report model.Report
	if err := decodeJSON(r, &report); err != nil {
		response.Error(w, err)
		return
	}

	bots, err := h.reconciler.Reconcile(r.Context(), &report)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	first := bots[0]
	response.OK(w, map[string]interface{}{
		"message": "Game data updated",
		"updated": len(bots),
		"bot": BotSnapshot{
			Name:            first.Name,
			Status:          first.Status,
			Coin:            first.Coin,
			FishCaught:      first.FishCaught,
			BackpackCurrent: first.BackpackCurrent,
			RarestFish:      first.RarestFish,
			Rarity:          first.Rarity,
		},
	})
}
