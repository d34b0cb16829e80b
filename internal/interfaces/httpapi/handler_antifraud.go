package httpapi

import (
	"context"
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

type reconcileDisputesRequest struct {
	UserID      string `json:"userId" validate:"required"`
	ActorUserID string `json:"actorUserId" validate:"omitempty"`
}

type reconcileActionDTO struct {
	Kind            string `json:"kind"`
	PlayerProfileID string `json:"playerProfileId"`
	SanctionType    string `json:"sanctionType,omitempty"`
	ReasonCode      string `json:"reasonCode,omitempty"`
	SanctionID      string `json:"sanctionId,omitempty"`
	ResolvedCount   int    `json:"resolvedCount,omitempty"`
}

type reconcileDisputesResponse struct {
	PlayerProfileID      string               `json:"playerProfileId"`
	OpenDisputesCount    int                  `json:"openDisputesCount"`
	InvalidDisputesCount int                  `json:"invalidDisputesCount"`
	Actions              []reconcileActionDTO `json:"actions"`
}

// ReconcileDisputeSignals re-evaluates a user's dispute counters and
// applies or resolves automatic sanctions accordingly.
func (h *Handler) ReconcileDisputeSignals(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReconcileDisputeSignals")
	defer span.End()

	orgID, err := pathValue(r, "orgID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req reconcileDisputesRequest
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

	var reconciliation usecase.Reconciliation
	err = h.runner.InTx(ctx, func(ctx context.Context, deps usecase.TxDeps) error {
		services := h.services(deps)
		result, reconcileErr := services.AntiFraud.ReconcileDisputeSignals(ctx, orgID, req.UserID, req.ActorUserID)
		if reconcileErr != nil {
			return reconcileErr
		}
		reconciliation = result
		return nil
	})
	if err != nil {
		h.logger.WarnContext(ctx, "reconcile dispute signals failed", "organization_id", orgID, "user_id", req.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	actions := make([]reconcileActionDTO, 0, len(reconciliation.Actions))
	for _, action := range reconciliation.Actions {
		actions = append(actions, reconcileActionDTO{
			Kind:            string(action.Kind),
			PlayerProfileID: action.PlayerProfileID,
			SanctionType:    string(action.SanctionType),
			ReasonCode:      action.ReasonCode,
			SanctionID:      action.SanctionID,
			ResolvedCount:   action.ResolvedCount,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, reconcileDisputesResponse{
		PlayerProfileID:      reconciliation.PlayerProfileID,
		OpenDisputesCount:    reconciliation.OpenDisputesCount,
		InvalidDisputesCount: reconciliation.InvalidDisputesCount,
		Actions:              actions,
	})
}
