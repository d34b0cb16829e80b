package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

type historyRowDTO struct {
	EventID                string         `json:"eventId"`
	CategoryID             string         `json:"categoryId,omitempty"`
	PartnerPlayerProfileID string         `json:"partnerPlayerProfileId,omitempty"`
	FinalPosition          int            `json:"finalPosition"`
	WonTitle               bool           `json:"wonTitle"`
	BracketSnapshot        map[string]any `json:"bracketSnapshot,omitempty"`
	ComputedAt             time.Time      `json:"computedAt"`
}

func historyRowsToDTO(rows []tournament.HistoryRow) []historyRowDTO {
	out := make([]historyRowDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, historyRowDTO{
			EventID:                row.EventID,
			CategoryID:             row.CategoryID,
			PartnerPlayerProfileID: row.PartnerPlayerProfileID,
			FinalPosition:          row.FinalPosition,
			WonTitle:               row.WonTitle,
			BracketSnapshot:        row.BracketSnapshot,
			ComputedAt:             row.ComputedAt,
		})
	}
	return out
}

// GetPlayerHistory lists the projected per-event history rows for one
// player profile.
func (h *Handler) GetPlayerHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerHistory")
	defer span.End()

	orgID, err := pathValue(r, "orgID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	playerID, err := pathValue(r, "playerID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var rows []tournament.HistoryRow
	err = h.runner.InTx(ctx, func(ctx context.Context, deps usecase.TxDeps) error {
		listed, listErr := deps.History.ListHistoryByPlayer(ctx, orgID, playerID)
		if listErr != nil {
			return listErr
		}
		rows = listed
		return nil
	})
	if err != nil {
		h.logger.WarnContext(ctx, "get player history failed", "organization_id", orgID, "player_profile_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, historyRowsToDTO(rows))
}
