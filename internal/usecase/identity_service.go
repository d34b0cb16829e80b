package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
	"github.com/matchpoint-labs/padelcore/internal/domain/match"
	"github.com/matchpoint-labs/padelcore/internal/domain/rating"
	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
	idgen "github.com/matchpoint-labs/padelcore/internal/platform/id"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"
)

// ResolveCanonicalInput drives one identity claim. ClaimKey is the
// contact email the provisional profile was created with; when empty the
// account's own email is used.
type ResolveCanonicalInput struct {
	OrganizationID         string
	UserID                 string
	ClaimKey               string
	RetroactiveClaimMonths int
}

// IdentityService resolves provisional player profiles into canonical
// ones. Every method is a transaction participant: the repositories must
// share the caller's transaction, and any returned error is expected to
// roll back the whole enclosing unit.
type IdentityService struct {
	profiles       identity.Repository
	references     identity.ReferenceRepository
	ratingProfiles rating.ProfileRepository
	ratingEvents   rating.EventRepository
	sanctions      rating.SanctionRepository
	matches        match.Repository
	participants   tournament.ParticipantRepository
	rankings       tournament.RankingRepository
	accounts       identity.AccountDirectory
	publisher      EventPublisher
	idGen          idgen.Generator
	logger         *logging.Logger
	now            func() time.Time
}

func NewIdentityService(
	deps TxDeps,
	accounts identity.AccountDirectory,
	publisher EventPublisher,
	idGen idgen.Generator,
	logger *logging.Logger,
) *IdentityService {
	if logger == nil {
		logger = logging.Default()
	}

	return &IdentityService{
		profiles:       deps.Profiles,
		references:     deps.References,
		ratingProfiles: deps.RatingProfiles,
		ratingEvents:   deps.RatingEvents,
		sanctions:      deps.Sanctions,
		matches:        deps.Matches,
		participants:   deps.Participants,
		rankings:       deps.Rankings,
		accounts:       accounts,
		publisher:      publisher,
		idGen:          idGen,
		logger:         logger,
		now:            time.Now,
	}
}

// ResolveCanonicalPlayerProfile finds or builds the single profile that
// represents the authenticated user in the organization, merging in a
// provisional profile matched by contact email when one exists. Safe to
// call on every claim flow entry: once a merge has happened, later calls
// find no provisional side and return the canonical id unchanged.
func (s *IdentityService) ResolveCanonicalPlayerProfile(ctx context.Context, input ResolveCanonicalInput) (string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.ResolveCanonicalPlayerProfile")
	defer span.End()

	input.OrganizationID = strings.TrimSpace(input.OrganizationID)
	input.UserID = strings.TrimSpace(input.UserID)
	input.ClaimKey = strings.ToLower(strings.TrimSpace(input.ClaimKey))

	if input.OrganizationID == "" {
		return "", fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	if input.UserID == "" {
		return "", fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	account, accountFound, err := s.accounts.GetAccount(ctx, input.UserID)
	if err != nil {
		return "", fmt.Errorf("get account: %w", err)
	}
	claimKey := input.ClaimKey
	if claimKey == "" && accountFound {
		claimKey = strings.ToLower(strings.TrimSpace(account.Email))
	}

	canonical, canonicalFound, err := s.profiles.GetByUser(ctx, input.OrganizationID, input.UserID)
	if err != nil {
		return "", fmt.Errorf("get canonical profile: %w", err)
	}

	var provisional identity.PlayerProfile
	provisionalFound := false
	if claimKey != "" {
		provisional, provisionalFound, err = s.profiles.GetProvisionalByEmail(ctx, input.OrganizationID, claimKey, input.UserID)
		if err != nil {
			return "", fmt.Errorf("get provisional profile: %w", err)
		}
	}

	switch {
	case !canonicalFound && !provisionalFound:
		return s.createCanonicalProfile(ctx, input, account, claimKey)
	case canonicalFound && !provisionalFound:
		return canonical.ID, nil
	case !canonicalFound && provisionalFound:
		if err := s.checkClaimWindow(ctx, provisional, input.RetroactiveClaimMonths); err != nil {
			return "", err
		}
		return s.claimProvisionalProfile(ctx, input, provisional, account)
	default:
		if err := s.checkClaimWindow(ctx, provisional, input.RetroactiveClaimMonths); err != nil {
			return "", err
		}
		return s.mergeProfiles(ctx, input, canonical, provisional)
	}
}

func (s *IdentityService) createCanonicalProfile(ctx context.Context, input ResolveCanonicalInput, account identity.Account, claimKey string) (string, error) {
	profileID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate profile id: %w", err)
	}

	now := s.now().UTC()
	profile := identity.PlayerProfile{
		ID:             profileID,
		OrganizationID: input.OrganizationID,
		UserID:         input.UserID,
		FullName:       account.FullName,
		DisplayName:    account.FullName,
		Email:          claimKey,
		Phone:          account.Phone,
		Gender:         account.Gender,
		SkillLevel:     account.SkillLevel,
		PreferredSide:  account.PreferredSide,
		HomeClubID:     account.HomeClubID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if profile.Email == "" {
		profile.Email = strings.ToLower(strings.TrimSpace(account.Email))
	}
	if err := profile.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return "", fmt.Errorf("create player profile: %w", err)
	}

	s.logger.InfoContext(ctx, "player profile created",
		"organization_id", input.OrganizationID,
		"player_profile_id", profileID,
	)
	publishSafe(ctx, s.publisher, DomainEvent{
		OrganizationID: input.OrganizationID,
		Type:           "padel.player_profile.created",
		IdempotencyKey: fmt.Sprintf("player-profile-created:%s", profileID),
		SourceType:     "player_profile",
		SourceID:       profileID,
		ActorUserID:    input.UserID,
	})

	return profileID, nil
}

func (s *IdentityService) claimProvisionalProfile(ctx context.Context, input ResolveCanonicalInput, provisional identity.PlayerProfile, account identity.Account) (string, error) {
	provisional.UserID = input.UserID
	enrichProfile(&provisional, account)
	provisional.UpdatedAt = s.now().UTC()

	if err := s.profiles.Update(ctx, provisional); err != nil {
		return "", fmt.Errorf("attach user to provisional profile: %w", err)
	}

	s.logger.InfoContext(ctx, "provisional profile claimed",
		"organization_id", input.OrganizationID,
		"player_profile_id", provisional.ID,
	)
	publishSafe(ctx, s.publisher, DomainEvent{
		OrganizationID: input.OrganizationID,
		Type:           "padel.player_profile.claimed",
		IdempotencyKey: fmt.Sprintf("player-profile-claimed:%s:%s", provisional.ID, input.UserID),
		SourceType:     "player_profile",
		SourceID:       provisional.ID,
		ActorUserID:    input.UserID,
	})

	return provisional.ID, nil
}

func (s *IdentityService) mergeProfiles(ctx context.Context, input ResolveCanonicalInput, canonical, provisional identity.PlayerProfile) (string, error) {
	orgID := input.OrganizationID

	mergeProfileFields(&canonical, provisional)
	canonical.UpdatedAt = s.now().UTC()
	if err := s.profiles.Update(ctx, canonical); err != nil {
		return "", fmt.Errorf("update canonical profile: %w", err)
	}

	if err := s.mergeRatingProfiles(ctx, orgID, canonical.ID, provisional.ID); err != nil {
		return "", err
	}

	if err := s.references.RepointPairingSlots(ctx, orgID, provisional.ID, canonical.ID); err != nil {
		return "", fmt.Errorf("repoint pairing slots: %w", err)
	}
	if err := s.rankings.RepointRankingEntries(ctx, orgID, provisional.ID, canonical.ID); err != nil {
		return "", fmt.Errorf("repoint ranking entries: %w", err)
	}
	if err := s.ratingEvents.RepointEvents(ctx, orgID, provisional.ID, canonical.ID); err != nil {
		return "", fmt.Errorf("repoint rating events: %w", err)
	}
	if err := s.sanctions.RepointSanctions(ctx, orgID, provisional.ID, canonical.ID); err != nil {
		return "", fmt.Errorf("repoint sanctions: %w", err)
	}
	if err := s.matches.RepointParticipants(ctx, orgID, provisional.ID, canonical.ID); err != nil {
		return "", fmt.Errorf("repoint match participants: %w", err)
	}
	if err := s.references.RepointCalendarHolds(ctx, orgID, provisional.ID, canonical.ID); err != nil {
		return "", fmt.Errorf("repoint calendar holds: %w", err)
	}
	if err := s.references.RepointCRMLinks(ctx, orgID, provisional.ID, canonical.ID); err != nil {
		return "", fmt.Errorf("repoint crm links: %w", err)
	}

	if err := s.repointTournamentParticipants(ctx, orgID, provisional.ID, canonical.ID); err != nil {
		return "", err
	}

	if err := s.profiles.Delete(ctx, orgID, provisional.ID); err != nil {
		return "", fmt.Errorf("delete provisional profile: %w", err)
	}

	s.logger.InfoContext(ctx, "player profiles merged",
		"organization_id", orgID,
		"canonical_profile_id", canonical.ID,
		"provisional_profile_id", provisional.ID,
	)
	publishSafe(ctx, s.publisher, DomainEvent{
		OrganizationID: orgID,
		Type:           "padel.player_profile.merged",
		IdempotencyKey: fmt.Sprintf("player-profile-merged:%s:%s", canonical.ID, provisional.ID),
		SourceType:     "player_profile",
		SourceID:       canonical.ID,
		ActorUserID:    input.UserID,
		Payload: map[string]any{
			"mergedProfileId": provisional.ID,
		},
	})

	return canonical.ID, nil
}

// repointTournamentParticipants moves participation rows to the
// canonical profile, dropping any row whose (event, category) pair the
// canonical side already occupies so the uniqueness invariant holds.
func (s *IdentityService) repointTournamentParticipants(ctx context.Context, orgID, fromID, toID string) error {
	rows, err := s.participants.ListParticipantsByPlayer(ctx, orgID, fromID)
	if err != nil {
		return fmt.Errorf("list tournament participants: %w", err)
	}
	for _, row := range rows {
		exists, err := s.participants.ExistsParticipant(ctx, orgID, row.EventID, row.CategoryID, toID)
		if err != nil {
			return fmt.Errorf("check participant conflict: %w", err)
		}
		if exists {
			if err := s.participants.DeleteParticipant(ctx, row.ID); err != nil {
				return fmt.Errorf("drop conflicting participant: %w", err)
			}
			continue
		}
		if err := s.participants.UpdateParticipantPlayer(ctx, row.ID, toID); err != nil {
			return fmt.Errorf("repoint tournament participant: %w", err)
		}
	}
	return nil
}

func (s *IdentityService) mergeRatingProfiles(ctx context.Context, orgID, canonicalID, provisionalID string) error {
	provProfile, provFound, err := s.ratingProfiles.GetProfileByPlayer(ctx, orgID, provisionalID)
	if err != nil {
		return fmt.Errorf("get provisional rating profile: %w", err)
	}
	if !provFound {
		return nil
	}

	canonProfile, canonFound, err := s.ratingProfiles.GetProfileByPlayer(ctx, orgID, canonicalID)
	if err != nil {
		return fmt.Errorf("get canonical rating profile: %w", err)
	}
	if !canonFound {
		// Only the provisional side ever played; move its ledger state over.
		if err := s.ratingProfiles.RepointProfile(ctx, orgID, provisionalID, canonicalID); err != nil {
			return fmt.Errorf("move rating profile: %w", err)
		}
		return nil
	}

	canonProfile.MatchesPlayed += provProfile.MatchesPlayed
	canonProfile.LastMatchAt = laterTime(canonProfile.LastMatchAt, provProfile.LastMatchAt)
	canonProfile.LastActivityAt = laterTime(canonProfile.LastActivityAt, provProfile.LastActivityAt)
	canonProfile.LeaderboardEligible = canonProfile.LeaderboardEligible && provProfile.LeaderboardEligible
	canonProfile.BlockedNewMatches = canonProfile.BlockedNewMatches || provProfile.BlockedNewMatches
	canonProfile.SuspensionEndsAt = laterTime(canonProfile.SuspensionEndsAt, provProfile.SuspensionEndsAt)

	if err := s.ratingProfiles.UpdateProfile(ctx, canonProfile); err != nil {
		return fmt.Errorf("update merged rating profile: %w", err)
	}
	if err := s.ratingProfiles.DeleteProfile(ctx, orgID, provisionalID); err != nil {
		return fmt.Errorf("delete provisional rating profile: %w", err)
	}
	return nil
}

// checkClaimWindow fails with identity.ClaimWindowExpiredError when the
// provisional profile's most recent competitive activity predates the
// retroactive window. A profile with no recorded activity always passes;
// a window of zero or fewer months disables the check.
func (s *IdentityService) checkClaimWindow(ctx context.Context, provisional identity.PlayerProfile, months int) error {
	if months <= 0 {
		return nil
	}

	orgID := provisional.OrganizationID
	latest, err := s.ratingEvents.LatestEventTimeByPlayer(ctx, orgID, provisional.ID)
	if err != nil {
		return fmt.Errorf("latest rating event time: %w", err)
	}
	participationAt, err := s.participants.LatestParticipationTimeByPlayer(ctx, orgID, provisional.ID)
	if err != nil {
		return fmt.Errorf("latest participation time: %w", err)
	}
	latest = laterTime(latest, participationAt)
	rankingAt, err := s.rankings.LatestRankingTimeByPlayer(ctx, orgID, provisional.ID)
	if err != nil {
		return fmt.Errorf("latest ranking time: %w", err)
	}
	latest = laterTime(latest, rankingAt)

	if latest == nil {
		return nil
	}
	cutoff := s.now().UTC().AddDate(0, -months, 0)
	if latest.Before(cutoff) {
		return &identity.ClaimWindowExpiredError{
			PlayerProfileID: provisional.ID,
			LastActivityAt:  *latest,
			WindowMonths:    months,
		}
	}
	return nil
}

// mergeProfileFields fills canonical identity fields from the
// provisional side wherever the canonical value is unset.
func mergeProfileFields(canonical *identity.PlayerProfile, provisional identity.PlayerProfile) {
	canonical.FullName = firstNonEmpty(canonical.FullName, provisional.FullName)
	canonical.DisplayName = firstNonEmpty(canonical.DisplayName, provisional.DisplayName)
	canonical.Email = firstNonEmpty(canonical.Email, provisional.Email)
	canonical.Phone = firstNonEmpty(canonical.Phone, provisional.Phone)
	canonical.Gender = firstNonEmpty(canonical.Gender, provisional.Gender)
	canonical.SkillLevel = firstNonEmpty(canonical.SkillLevel, provisional.SkillLevel)
	canonical.PreferredSide = firstNonEmpty(canonical.PreferredSide, provisional.PreferredSide)
	canonical.HomeClubID = firstNonEmpty(canonical.HomeClubID, provisional.HomeClubID)
}

// enrichProfile fills unset profile fields from the account store.
func enrichProfile(profile *identity.PlayerProfile, account identity.Account) {
	profile.FullName = firstNonEmpty(profile.FullName, account.FullName)
	profile.DisplayName = firstNonEmpty(profile.DisplayName, account.FullName)
	profile.Email = firstNonEmpty(profile.Email, strings.ToLower(strings.TrimSpace(account.Email)))
	profile.Phone = firstNonEmpty(profile.Phone, account.Phone)
	profile.Gender = firstNonEmpty(profile.Gender, account.Gender)
	profile.SkillLevel = firstNonEmpty(profile.SkillLevel, account.SkillLevel)
	profile.PreferredSide = firstNonEmpty(profile.PreferredSide, account.PreferredSide)
	profile.HomeClubID = firstNonEmpty(profile.HomeClubID, account.HomeClubID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func laterTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.After(*a) {
		return b
	}
	return a
}
