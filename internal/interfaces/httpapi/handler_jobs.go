package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

type ratingJobsRequest struct {
	OrganizationID        string `json:"organizationId" validate:"required"`
	EventID               string `json:"eventId" validate:"omitempty"`
	Cursor                string `json:"cursor" validate:"omitempty"`
	Limit                 int    `json:"limit" validate:"omitempty,gte=0,lte=500"`
	CompletedOnly         *bool  `json:"completedOnly"`
	Apply                 bool   `json:"apply"`
	BackfillContext       bool   `json:"backfillContext"`
	RebuildMissingRatings bool   `json:"rebuildMissingRatings"`
	RebuildHistory        bool   `json:"rebuildHistory"`
	MaxWorkers            int    `json:"maxWorkers" validate:"omitempty,gte=0,lte=64"`
	ActorUserID           string `json:"actorUserId" validate:"omitempty"`
}

// RunRatingJobs runs one administrative batch over events: context
// backfill, missing-rating rebuilds, and history projection rebuilds.
func (h *Handler) RunRatingJobs(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRatingJobs")
	defer span.End()

	var req ratingJobsRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = h.batchDefaultLimit
	}
	maxWorkers := req.MaxWorkers
	if maxWorkers == 0 {
		maxWorkers = h.batchMaxWorkers
	}

	result, err := h.backfill.Run(ctx, usecase.BackfillInput{
		OrganizationID:        req.OrganizationID,
		EventID:               req.EventID,
		Cursor:                req.Cursor,
		Limit:                 limit,
		CompletedOnly:         req.CompletedOnly,
		Apply:                 req.Apply,
		BackfillContext:       req.BackfillContext,
		RebuildMissingRatings: req.RebuildMissingRatings,
		RebuildHistory:        req.RebuildHistory,
		MaxWorkers:            maxWorkers,
		ActorUserID:           req.ActorUserID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "rating jobs batch failed", "organization_id", req.OrganizationID, "error", err)
		writeError(ctx, w, err)
		return
	}

	if req.Apply && req.RebuildMissingRatings {
		for _, event := range result.Events {
			if event.RatingRebuilt {
				h.leaderboard.InvalidateEvent(ctx, req.OrganizationID, event.EventID)
			}
		}
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}
