package httpapi

import (
	"net/http"
)

func (h *Handler) GetEventLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetEventLeaderboard")
	defer span.End()

	orgID, err := pathValue(r, "orgID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	eventID, err := pathValue(r, "eventID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	rows, err := h.leaderboard.GetEventLeaderboard(ctx, orgID, eventID)
	if err != nil {
		h.logger.WarnContext(ctx, "get event leaderboard failed", "organization_id", orgID, "event_id", eventID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rows)
}
