package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpoint-labs/padelcore/internal/domain/rating"
	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

type rebuildRatingsResponse struct {
	EventID          string `json:"eventId"`
	ProcessedMatches int    `json:"processedMatches"`
	ProcessedPlayers int    `json:"processedPlayers"`
	RankingRows      int    `json:"rankingRows"`
}

// RebuildEventRatings replays one event's completed matches into the
// rating ledger and rewrites the ranking rows.
func (h *Handler) RebuildEventRatings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RebuildEventRatings")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

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

	var result usecase.RebuildResult
	err = h.runner.InTx(ctx, func(ctx context.Context, deps usecase.TxDeps) error {
		services := h.services(deps)
		rebuildResult, rebuildErr := services.Rating.Rebuild(ctx, orgID, eventID, principal.UserID)
		if rebuildErr != nil {
			return rebuildErr
		}
		result = rebuildResult
		return nil
	})
	if err != nil {
		h.logger.WarnContext(ctx, "rebuild event ratings failed", "organization_id", orgID, "event_id", eventID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.leaderboard.InvalidateEvent(ctx, orgID, eventID)

	writeSuccess(ctx, w, http.StatusOK, rebuildRatingsResponse{
		EventID:          eventID,
		ProcessedMatches: result.ProcessedMatches,
		ProcessedPlayers: result.ProcessedPlayers,
		RankingRows:      result.RankingRows,
	})
}

type applySanctionRequest struct {
	Type         string `json:"type" validate:"required,oneof=SUSPENSION BLOCK_NEW_MATCHES RESET_PARTIAL"`
	ReasonCode   string `json:"reasonCode" validate:"required,max=64"`
	Reason       string `json:"reason" validate:"omitempty,max=500"`
	DurationDays int    `json:"durationDays" validate:"omitempty,gte=1,lte=3650"`
}

type sanctionDTO struct {
	ID              string     `json:"id"`
	PlayerProfileID string     `json:"playerProfileId"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	ReasonCode      string     `json:"reasonCode"`
	Reason          string     `json:"reason,omitempty"`
	StartsAt        time.Time  `json:"startsAt"`
	EndsAt          *time.Time `json:"endsAt,omitempty"`
	CreatedByUserID string     `json:"createdByUserId,omitempty"`
}

func sanctionToDTO(sanction rating.Sanction) sanctionDTO {
	return sanctionDTO{
		ID:              sanction.ID,
		PlayerProfileID: sanction.PlayerProfileID,
		Type:            string(sanction.Type),
		Status:          string(sanction.Status),
		ReasonCode:      sanction.ReasonCode,
		Reason:          sanction.Reason,
		StartsAt:        sanction.StartsAt,
		EndsAt:          sanction.EndsAt,
		CreatedByUserID: sanction.CreatedByUserID,
	}
}

// ApplySanction records a manual sanction against a player profile.
func (h *Handler) ApplySanction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ApplySanction")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

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

	var req applySanctionRequest
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

	var sanction rating.Sanction
	err = h.runner.InTx(ctx, func(ctx context.Context, deps usecase.TxDeps) error {
		services := h.services(deps)
		applied, applyErr := services.Rating.ApplySanction(ctx, usecase.ApplySanctionInput{
			OrganizationID:  orgID,
			PlayerProfileID: playerID,
			Type:            rating.SanctionType(req.Type),
			ReasonCode:      req.ReasonCode,
			Reason:          req.Reason,
			ActorUserID:     principal.UserID,
			DurationDays:    req.DurationDays,
		})
		if applyErr != nil {
			return applyErr
		}
		sanction = applied
		return nil
	})
	if err != nil {
		h.logger.WarnContext(ctx, "apply sanction failed", "organization_id", orgID, "player_profile_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, sanctionToDTO(sanction))
}
