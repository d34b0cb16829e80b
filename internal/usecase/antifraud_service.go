package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
	"github.com/matchpoint-labs/padelcore/internal/domain/match"
	"github.com/matchpoint-labs/padelcore/internal/domain/rating"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"
)

const (
	// ReasonAutoInvalidDisputes suspends a player whose disputes keep
	// getting resolved against them.
	ReasonAutoInvalidDisputes = "AUTO_INVALID_DISPUTES"
	// ReasonAutoOpenDisputes blocks new matches while a player floods
	// the system with unresolved disputes.
	ReasonAutoOpenDisputes = "AUTO_OPEN_DISPUTES"

	invalidDisputeThreshold = 3
	openDisputeThreshold    = 5
	autoSuspensionDays      = 15
)

type ReconcileActionKind string

const (
	ActionApplied  ReconcileActionKind = "APPLIED"
	ActionResolved ReconcileActionKind = "RESOLVED"
)

// ReconcileAction describes one sanction mutation the monitor took.
type ReconcileAction struct {
	Kind            ReconcileActionKind
	PlayerProfileID string
	SanctionType    rating.SanctionType
	ReasonCode      string
	SanctionID      string
	ResolvedCount   int
}

// Reconciliation reports the dispute counters together with whatever
// actions were taken, so callers can audit and notify without
// re-querying.
type Reconciliation struct {
	PlayerProfileID      string
	OpenDisputesCount    int
	InvalidDisputesCount int
	Actions              []ReconcileAction
}

// AntiFraudService reconciles dispute outcomes against a player and
// keeps automatic sanctions in sync with the current counters.
type AntiFraudService struct {
	profiles  identity.Repository
	matches   match.Repository
	sanctions rating.SanctionRepository
	ratings   *RatingService
	publisher EventPublisher
	logger    *logging.Logger
	now       func() time.Time
}

func NewAntiFraudService(
	deps TxDeps,
	ratings *RatingService,
	publisher EventPublisher,
	logger *logging.Logger,
) *AntiFraudService {
	if logger == nil {
		logger = logging.Default()
	}

	return &AntiFraudService{
		profiles:  deps.Profiles,
		matches:   deps.Matches,
		sanctions: deps.Sanctions,
		ratings:   ratings,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ReconcileDisputeSignals recounts the user's dispute outcomes and moves
// the sanction state machine accordingly. Exactly one branch runs per
// call: suspend on repeated invalid disputes, block on too many open
// disputes, or resolve stale automatic blocks once the counters drop.
//
// Idempotency relies on the pre-check for an existing ACTIVE sanction of
// the same type; two reconciliations racing on the same player can in
// principle both pass that check and double-apply. Known limitation.
func (s *AntiFraudService) ReconcileDisputeSignals(ctx context.Context, organizationID, userID, actorUserID string) (Reconciliation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AntiFraudService.ReconcileDisputeSignals")
	defer span.End()

	organizationID = strings.TrimSpace(organizationID)
	userID = strings.TrimSpace(userID)
	if organizationID == "" {
		return Reconciliation{}, fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	if userID == "" {
		return Reconciliation{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	profile, found, err := s.profiles.GetByUser(ctx, organizationID, userID)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("get player profile: %w", err)
	}
	if !found {
		return Reconciliation{}, nil
	}

	open, invalid, err := s.countDisputes(ctx, organizationID, userID)
	if err != nil {
		return Reconciliation{}, err
	}
	out := Reconciliation{
		PlayerProfileID:      profile.ID,
		OpenDisputesCount:    open,
		InvalidDisputesCount: invalid,
	}

	active, err := s.sanctions.ListActiveSanctions(ctx, organizationID, profile.ID)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("list active sanctions: %w", err)
	}
	now := s.now().UTC()
	var hasSuspension bool
	var activeBlocks []rating.Sanction
	var elapsedAutoBlocks []rating.Sanction
	for _, sanction := range active {
		if !sanction.InEffect(now) {
			// An elapsed automatic block stays ACTIVE until the monitor
			// closes it; it no longer restricts but still needs resolving.
			if sanction.Type == rating.SanctionBlockNewMatches && sanction.Automatic() {
				elapsedAutoBlocks = append(elapsedAutoBlocks, sanction)
			}
			continue
		}
		switch sanction.Type {
		case rating.SanctionSuspension:
			hasSuspension = true
		case rating.SanctionBlockNewMatches:
			activeBlocks = append(activeBlocks, sanction)
		}
	}

	switch {
	case invalid >= invalidDisputeThreshold && !hasSuspension:
		action, err := s.applyAutoSanction(ctx, organizationID, profile.ID, actorUserID, rating.SanctionSuspension, ReasonAutoInvalidDisputes, autoSuspensionDays, out)
		if err != nil {
			return Reconciliation{}, err
		}
		out.Actions = append(out.Actions, action)

	case open >= openDisputeThreshold:
		if len(activeBlocks) == 0 {
			action, err := s.applyAutoSanction(ctx, organizationID, profile.ID, actorUserID, rating.SanctionBlockNewMatches, ReasonAutoOpenDisputes, 0, out)
			if err != nil {
				return Reconciliation{}, err
			}
			out.Actions = append(out.Actions, action)
			break
		}
		if err := s.repairBlockedFlag(ctx, organizationID, profile.ID); err != nil {
			return Reconciliation{}, err
		}

	default:
		action, resolved, err := s.resolveAutoBlocks(ctx, organizationID, profile.ID, actorUserID, append(activeBlocks, elapsedAutoBlocks...), out)
		if err != nil {
			return Reconciliation{}, err
		}
		if resolved {
			out.Actions = append(out.Actions, action)
		}
	}

	return out, nil
}

func (s *AntiFraudService) countDisputes(ctx context.Context, organizationID, userID string) (open, invalid int, err error) {
	disputed, err := s.matches.ListByDisputant(ctx, organizationID, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("list disputed matches: %w", err)
	}
	for _, m := range disputed {
		dispute, ok := match.ParseDispute(m.Score)
		if !ok || dispute.DisputedBy != userID {
			continue
		}
		if dispute.Open() {
			open++
		} else if dispute.ResolvedAgainstDisputer() {
			invalid++
		}
	}
	return open, invalid, nil
}

func (s *AntiFraudService) applyAutoSanction(
	ctx context.Context,
	organizationID, playerProfileID, actorUserID string,
	sanctionType rating.SanctionType,
	reasonCode string,
	durationDays int,
	counters Reconciliation,
) (ReconcileAction, error) {
	sanction, err := s.ratings.applySanction(ctx, ApplySanctionInput{
		OrganizationID:  organizationID,
		PlayerProfileID: playerProfileID,
		Type:            sanctionType,
		ReasonCode:      reasonCode,
		Reason:          fmt.Sprintf("automatic: open=%d invalid=%d", counters.OpenDisputesCount, counters.InvalidDisputesCount),
		ActorUserID:     actorUserID,
		DurationDays:    durationDays,
	})
	if err != nil {
		return ReconcileAction{}, fmt.Errorf("apply automatic sanction: %w", err)
	}

	s.logger.WarnContext(ctx, "automatic sanction applied",
		"organization_id", organizationID,
		"player_profile_id", playerProfileID,
		"sanction_type", string(sanctionType),
		"reason_code", reasonCode,
		"open_disputes", counters.OpenDisputesCount,
		"invalid_disputes", counters.InvalidDisputesCount,
	)
	publishSafe(ctx, s.publisher, DomainEvent{
		OrganizationID: organizationID,
		Type:           "padel.sanction.auto_applied",
		IdempotencyKey: fmt.Sprintf("sanction-auto-applied:%s", sanction.ID),
		SourceType:     "rating_sanction",
		SourceID:       sanction.ID,
		ActorUserID:    actorUserID,
		Payload: map[string]any{
			"playerProfileId":      playerProfileID,
			"sanctionType":         string(sanctionType),
			"reasonCode":           reasonCode,
			"openDisputesCount":    counters.OpenDisputesCount,
			"invalidDisputesCount": counters.InvalidDisputesCount,
		},
	})

	return ReconcileAction{
		Kind:            ActionApplied,
		PlayerProfileID: playerProfileID,
		SanctionType:    sanctionType,
		ReasonCode:      reasonCode,
		SanctionID:      sanction.ID,
	}, nil
}

// repairBlockedFlag re-asserts blockedNewMatches when an active block
// exists but the profile flag drifted out of sync.
func (s *AntiFraudService) repairBlockedFlag(ctx context.Context, organizationID, playerProfileID string) error {
	profile, found, err := s.ratings.ratingProfiles.GetProfileByPlayer(ctx, organizationID, playerProfileID)
	if err != nil {
		return fmt.Errorf("get rating profile: %w", err)
	}
	if !found || profile.BlockedNewMatches {
		return nil
	}
	profile.BlockedNewMatches = true
	if err := s.ratings.ratingProfiles.UpdateProfile(ctx, profile); err != nil {
		return fmt.Errorf("repair blocked flag: %w", err)
	}
	s.logger.InfoContext(ctx, "blocked flag repaired",
		"organization_id", organizationID,
		"player_profile_id", playerProfileID,
	)
	return nil
}

// resolveAutoBlocks closes automatic block sanctions once the open
// dispute count drops below the threshold, clearing the profile flag
// when no manual block remains.
func (s *AntiFraudService) resolveAutoBlocks(
	ctx context.Context,
	organizationID, playerProfileID, actorUserID string,
	activeBlocks []rating.Sanction,
	counters Reconciliation,
) (ReconcileAction, bool, error) {
	now := s.now().UTC()
	resolvedCount := 0
	remainingBlocks := 0
	for _, block := range activeBlocks {
		if !block.Automatic() {
			remainingBlocks++
			continue
		}
		block.Status = rating.SanctionResolved
		block.ResolvedByUserID = actorUserID
		block.ResolvedAt = &now
		if err := s.sanctions.UpdateSanction(ctx, block); err != nil {
			return ReconcileAction{}, false, fmt.Errorf("resolve automatic block: %w", err)
		}
		resolvedCount++
	}
	if resolvedCount == 0 {
		return ReconcileAction{}, false, nil
	}

	if remainingBlocks == 0 {
		profile, found, err := s.ratings.ratingProfiles.GetProfileByPlayer(ctx, organizationID, playerProfileID)
		if err != nil {
			return ReconcileAction{}, false, fmt.Errorf("get rating profile: %w", err)
		}
		if found && profile.BlockedNewMatches {
			profile.BlockedNewMatches = false
			if err := s.ratings.ratingProfiles.UpdateProfile(ctx, profile); err != nil {
				return ReconcileAction{}, false, fmt.Errorf("clear blocked flag: %w", err)
			}
		}
	}

	s.logger.InfoContext(ctx, "automatic blocks resolved",
		"organization_id", organizationID,
		"player_profile_id", playerProfileID,
		"resolved_count", resolvedCount,
	)
	publishSafe(ctx, s.publisher, DomainEvent{
		OrganizationID: organizationID,
		Type:           "padel.sanction.auto_resolved",
		IdempotencyKey: fmt.Sprintf("sanction-auto-resolved:%s:%d", playerProfileID, now.UnixNano()),
		SourceType:     "player_profile",
		SourceID:       playerProfileID,
		ActorUserID:    actorUserID,
		Payload: map[string]any{
			"resolvedCount":        resolvedCount,
			"openDisputesCount":    counters.OpenDisputesCount,
			"invalidDisputesCount": counters.InvalidDisputesCount,
		},
	})

	return ReconcileAction{
		Kind:            ActionResolved,
		PlayerProfileID: playerProfileID,
		SanctionType:    rating.SanctionBlockNewMatches,
		ReasonCode:      ReasonAutoOpenDisputes,
		ResolvedCount:   resolvedCount,
	}, true, nil
}
