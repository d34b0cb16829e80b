package httpapi

import (
	"context"
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

type resolveCanonicalPlayerRequest struct {
	ClaimKey string `json:"claimKey" validate:"omitempty,email,max=254"`
}

type resolveCanonicalPlayerResponse struct {
	PlayerProfileID string `json:"playerProfileId"`
}

// ResolveCanonicalPlayer resolves the authenticated user to a canonical
// player profile, claiming or merging a provisional profile when one
// matches the claim key.
func (h *Handler) ResolveCanonicalPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResolveCanonicalPlayer")
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

	var req resolveCanonicalPlayerRequest
	if r.ContentLength != 0 {
		decoder := sonic.ConfigDefault.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
			return
		}
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	var playerProfileID string
	err = h.runner.InTx(ctx, func(ctx context.Context, deps usecase.TxDeps) error {
		services := h.services(deps)
		resolvedID, resolveErr := services.Identity.ResolveCanonicalPlayerProfile(ctx, usecase.ResolveCanonicalInput{
			OrganizationID:         orgID,
			UserID:                 principal.UserID,
			ClaimKey:               req.ClaimKey,
			RetroactiveClaimMonths: h.claimWindowMonths,
		})
		if resolveErr != nil {
			return resolveErr
		}
		playerProfileID = resolvedID
		return nil
	})
	if err != nil {
		h.logger.WarnContext(ctx, "resolve canonical player failed", "organization_id", orgID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, resolveCanonicalPlayerResponse{PlayerProfileID: playerProfileID})
}
