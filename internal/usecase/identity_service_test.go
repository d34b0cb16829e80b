package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
	"github.com/matchpoint-labs/padelcore/internal/domain/rating"
	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
	"github.com/matchpoint-labs/padelcore/internal/infrastructure/repository/memory"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"

	. "github.com/matchpoint-labs/padelcore/internal/usecase"
)

type staticIDGenerator struct {
	id string
}

func (g staticIDGenerator) NewID() (string, error) {
	return g.id, nil
}

type seqIDGenerator struct {
	prefix string
	seq    int
}

func (g *seqIDGenerator) NewID() (string, error) {
	g.seq++
	return fmt.Sprintf("%s-%03d", g.prefix, g.seq), nil
}

const testOrgID = "org-1"

func newIdentityService(store *memory.Store, accounts *memory.AccountDirectory, publisher *memory.EventPublisher, idGen staticIDGenerator) *IdentityService {
	return NewIdentityService(store.Deps(), accounts, publisher, idGen, logging.NewNop())
}

func TestIdentityService_Resolve_CreatesCanonicalProfile(t *testing.T) {
	store := memory.NewStore()
	accounts := memory.NewAccountDirectory()
	publisher := memory.NewEventPublisher()
	accounts.Seed(identity.Account{
		UserID:   "user-1",
		Email:    "Ana@Example.com",
		FullName: "Ana Silva",
		Phone:    "+351911111111",
	})

	service := newIdentityService(store, accounts, publisher, staticIDGenerator{id: "profile-001"})
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	service.SetNowForTest(func() time.Time { return now })

	profileID, err := service.ResolveCanonicalPlayerProfile(t.Context(), ResolveCanonicalInput{
		OrganizationID:         testOrgID,
		UserID:                 "user-1",
		RetroactiveClaimMonths: 6,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if profileID != "profile-001" {
		t.Fatalf("expected profile-001, got %s", profileID)
	}

	profile, found, err := store.Profiles.GetByID(t.Context(), testOrgID, "profile-001")
	if err != nil || !found {
		t.Fatalf("expected stored profile, found=%v err=%v", found, err)
	}
	if profile.UserID != "user-1" {
		t.Fatalf("expected linked user-1, got %q", profile.UserID)
	}
	if profile.Email != "ana@example.com" {
		t.Fatalf("expected lowercased account email, got %q", profile.Email)
	}
	if profile.FullName != "Ana Silva" || profile.Phone != "+351911111111" {
		t.Fatalf("expected account fields carried over, got %+v", profile)
	}
	if !profile.CreatedAt.Equal(now) {
		t.Fatalf("expected created at %v, got %v", now, profile.CreatedAt)
	}

	created := publisher.ByType("padel.player_profile.created")
	if len(created) != 1 {
		t.Fatalf("expected one created event, got %d", len(created))
	}
	if created[0].IdempotencyKey != "player-profile-created:profile-001" {
		t.Fatalf("unexpected idempotency key %q", created[0].IdempotencyKey)
	}
}

func TestIdentityService_Resolve_ExistingCanonicalIsNoOp(t *testing.T) {
	store := memory.NewStore()
	accounts := memory.NewAccountDirectory()
	publisher := memory.NewEventPublisher()
	accounts.Seed(identity.Account{UserID: "user-1", Email: "ana@example.com"})

	if err := store.Profiles.Create(t.Context(), identity.PlayerProfile{
		ID:             "prof-canon",
		OrganizationID: testOrgID,
		UserID:         "user-1",
		FullName:       "Ana Silva",
		Email:          "ana@example.com",
	}); err != nil {
		t.Fatalf("seed canonical profile: %v", err)
	}

	service := newIdentityService(store, accounts, publisher, staticIDGenerator{id: "unused"})

	profileID, err := service.ResolveCanonicalPlayerProfile(t.Context(), ResolveCanonicalInput{
		OrganizationID:         testOrgID,
		UserID:                 "user-1",
		RetroactiveClaimMonths: 6,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if profileID != "prof-canon" {
		t.Fatalf("expected prof-canon, got %s", profileID)
	}
	if entries := publisher.Entries(); len(entries) != 0 {
		t.Fatalf("expected no events on no-op resolve, got %d", len(entries))
	}
}

func TestIdentityService_Resolve_ClaimsProvisionalProfile(t *testing.T) {
	store := memory.NewStore()
	accounts := memory.NewAccountDirectory()
	publisher := memory.NewEventPublisher()
	accounts.Seed(identity.Account{
		UserID:   "user-1",
		Email:    "ana@example.com",
		FullName: "Ana Silva",
		Phone:    "+351911111111",
	})

	if err := store.Profiles.Create(t.Context(), identity.PlayerProfile{
		ID:             "prof-prov",
		OrganizationID: testOrgID,
		DisplayName:    "Ana",
		Email:          "ana@example.com",
	}); err != nil {
		t.Fatalf("seed provisional profile: %v", err)
	}

	service := newIdentityService(store, accounts, publisher, staticIDGenerator{id: "unused"})
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	service.SetNowForTest(func() time.Time { return now })

	profileID, err := service.ResolveCanonicalPlayerProfile(t.Context(), ResolveCanonicalInput{
		OrganizationID:         testOrgID,
		UserID:                 "user-1",
		RetroactiveClaimMonths: 6,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if profileID != "prof-prov" {
		t.Fatalf("expected claimed provisional id prof-prov, got %s", profileID)
	}

	profile, found, _ := store.Profiles.GetByID(t.Context(), testOrgID, "prof-prov")
	if !found {
		t.Fatalf("expected claimed profile to remain")
	}
	if profile.UserID != "user-1" {
		t.Fatalf("expected user attached, got %q", profile.UserID)
	}
	if profile.DisplayName != "Ana" {
		t.Fatalf("expected existing display name kept, got %q", profile.DisplayName)
	}
	if profile.FullName != "Ana Silva" || profile.Phone != "+351911111111" {
		t.Fatalf("expected blanks enriched from account, got %+v", profile)
	}

	claimed := publisher.ByType("padel.player_profile.claimed")
	if len(claimed) != 1 {
		t.Fatalf("expected one claimed event, got %d", len(claimed))
	}
	if claimed[0].IdempotencyKey != "player-profile-claimed:prof-prov:user-1" {
		t.Fatalf("unexpected idempotency key %q", claimed[0].IdempotencyKey)
	}
}

func TestIdentityService_Resolve_MergesProvisionalIntoCanonical(t *testing.T) {
	store := memory.NewStore()
	accounts := memory.NewAccountDirectory()
	publisher := memory.NewEventPublisher()
	accounts.Seed(identity.Account{UserID: "user-1", Email: "ana@example.com", FullName: "Ana Silva"})

	ctx := t.Context()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := store.Profiles.Create(ctx, identity.PlayerProfile{
		ID:             "prof-canon",
		OrganizationID: testOrgID,
		UserID:         "user-1",
		FullName:       "Ana Silva",
	}); err != nil {
		t.Fatalf("seed canonical profile: %v", err)
	}
	if err := store.Profiles.Create(ctx, identity.PlayerProfile{
		ID:             "prof-prov",
		OrganizationID: testOrgID,
		Email:          "ana@example.com",
		Phone:          "+351922222222",
		SkillLevel:     "M4",
	}); err != nil {
		t.Fatalf("seed provisional profile: %v", err)
	}

	canonMatchAt := now.AddDate(0, -2, 0)
	provMatchAt := now.AddDate(0, -1, 0)
	canonRating, _ := store.RatingProfiles.EnsureProfile(ctx, testOrgID, "prof-canon")
	canonRating.MatchesPlayed = 3
	canonRating.LastMatchAt = &canonMatchAt
	if err := store.RatingProfiles.UpdateProfile(ctx, canonRating); err != nil {
		t.Fatalf("seed canonical rating profile: %v", err)
	}
	provRating, _ := store.RatingProfiles.EnsureProfile(ctx, testOrgID, "prof-prov")
	provRating.MatchesPlayed = 5
	provRating.LastMatchAt = &provMatchAt
	provRating.BlockedNewMatches = true
	if err := store.RatingProfiles.UpdateProfile(ctx, provRating); err != nil {
		t.Fatalf("seed provisional rating profile: %v", err)
	}

	store.References.SeedPairingSlot("slot-1", testOrgID, "prof-prov")
	store.References.SeedCalendarHold("hold-1", testOrgID, "prof-prov")
	store.References.SeedCRMLink("crm-1", testOrgID, "prof-prov")

	if err := store.RatingEvents.CreateEvent(ctx, rating.Event{
		ID:              "re-1",
		OrganizationID:  testOrgID,
		EventID:         "event-1",
		PlayerProfileID: "prof-prov",
		OccurredAt:      provMatchAt,
	}); err != nil {
		t.Fatalf("seed rating event: %v", err)
	}
	if err := store.Sanctions.CreateSanction(ctx, rating.Sanction{
		ID:              "sanction-1",
		OrganizationID:  testOrgID,
		PlayerProfileID: "prof-prov",
		Type:            rating.SanctionBlockNewMatches,
		Status:          rating.SanctionActive,
		ReasonCode:      "MANUAL_REVIEW",
	}); err != nil {
		t.Fatalf("seed sanction: %v", err)
	}

	// Canonical already occupies event-1/cat-a, so the provisional row
	// there must be dropped; the cat-b row must be repointed.
	store.Participants.Add(tournament.Participant{
		ID: "part-canon", OrganizationID: testOrgID, EventID: "event-1", CategoryID: "cat-a",
		PlayerProfileID: "prof-canon", CreatedAt: canonMatchAt,
	})
	store.Participants.Add(tournament.Participant{
		ID: "part-conflict", OrganizationID: testOrgID, EventID: "event-1", CategoryID: "cat-a",
		PlayerProfileID: "prof-prov", CreatedAt: provMatchAt,
	})
	store.Participants.Add(tournament.Participant{
		ID: "part-move", OrganizationID: testOrgID, EventID: "event-1", CategoryID: "cat-b",
		PlayerProfileID: "prof-prov", CreatedAt: provMatchAt,
	})

	service := newIdentityService(store, accounts, publisher, staticIDGenerator{id: "unused"})
	service.SetNowForTest(func() time.Time { return now })

	profileID, err := service.ResolveCanonicalPlayerProfile(ctx, ResolveCanonicalInput{
		OrganizationID:         testOrgID,
		UserID:                 "user-1",
		RetroactiveClaimMonths: 6,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if profileID != "prof-canon" {
		t.Fatalf("expected canonical id prof-canon, got %s", profileID)
	}

	canonical, found, _ := store.Profiles.GetByID(ctx, testOrgID, "prof-canon")
	if !found {
		t.Fatalf("expected canonical profile to remain")
	}
	if canonical.Email != "ana@example.com" || canonical.Phone != "+351922222222" || canonical.SkillLevel != "M4" {
		t.Fatalf("expected provisional fields folded into canonical blanks, got %+v", canonical)
	}
	if _, stillThere, _ := store.Profiles.GetByID(ctx, testOrgID, "prof-prov"); stillThere {
		t.Fatalf("expected provisional profile deleted after merge")
	}

	merged, found, _ := store.RatingProfiles.GetProfileByPlayer(ctx, testOrgID, "prof-canon")
	if !found {
		t.Fatalf("expected merged rating profile")
	}
	if merged.MatchesPlayed != 8 {
		t.Fatalf("expected 8 matches played after merge, got %d", merged.MatchesPlayed)
	}
	if merged.LastMatchAt == nil || !merged.LastMatchAt.Equal(provMatchAt) {
		t.Fatalf("expected later last match time kept, got %v", merged.LastMatchAt)
	}
	if !merged.BlockedNewMatches {
		t.Fatalf("expected blocked flag carried over")
	}
	if _, provLeft, _ := store.RatingProfiles.GetProfileByPlayer(ctx, testOrgID, "prof-prov"); provLeft {
		t.Fatalf("expected provisional rating profile deleted")
	}

	if n := store.References.PairingSlotsByPlayer(testOrgID, "prof-canon"); n != 1 {
		t.Fatalf("expected 1 pairing slot on canonical, got %d", n)
	}
	if n := store.References.CalendarHoldsByPlayer(testOrgID, "prof-canon"); n != 1 {
		t.Fatalf("expected 1 calendar hold on canonical, got %d", n)
	}
	if n := store.References.CRMLinksByPlayer(testOrgID, "prof-canon"); n != 1 {
		t.Fatalf("expected 1 crm link on canonical, got %d", n)
	}
	if n := store.References.PairingSlotsByPlayer(testOrgID, "prof-prov"); n != 0 {
		t.Fatalf("expected no pairing slots left on provisional, got %d", n)
	}

	if latest, _ := store.RatingEvents.LatestEventTimeByPlayer(ctx, testOrgID, "prof-prov"); latest != nil {
		t.Fatalf("expected rating events repointed off provisional")
	}
	if latest, _ := store.RatingEvents.LatestEventTimeByPlayer(ctx, testOrgID, "prof-canon"); latest == nil {
		t.Fatalf("expected rating events repointed to canonical")
	}

	sanctions, _ := store.Sanctions.ListActiveSanctions(ctx, testOrgID, "prof-canon")
	if len(sanctions) != 1 {
		t.Fatalf("expected sanction repointed to canonical, got %d", len(sanctions))
	}

	canonParts, _ := store.Participants.ListParticipantsByPlayer(ctx, testOrgID, "prof-canon")
	if len(canonParts) != 2 {
		t.Fatalf("expected 2 participant rows on canonical, got %d", len(canonParts))
	}
	provParts, _ := store.Participants.ListParticipantsByPlayer(ctx, testOrgID, "prof-prov")
	if len(provParts) != 0 {
		t.Fatalf("expected no participant rows left on provisional, got %d", len(provParts))
	}

	mergedEvents := publisher.ByType("padel.player_profile.merged")
	if len(mergedEvents) != 1 {
		t.Fatalf("expected one merged event, got %d", len(mergedEvents))
	}
	if mergedEvents[0].Payload["mergedProfileId"] != "prof-prov" {
		t.Fatalf("expected merged payload to carry provisional id, got %+v", mergedEvents[0].Payload)
	}

	// Once merged, a second resolve finds no provisional side.
	again, err := service.ResolveCanonicalPlayerProfile(ctx, ResolveCanonicalInput{
		OrganizationID:         testOrgID,
		UserID:                 "user-1",
		RetroactiveClaimMonths: 6,
	})
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if again != "prof-canon" {
		t.Fatalf("expected second resolve to return prof-canon, got %s", again)
	}
	if got := publisher.ByType("padel.player_profile.merged"); len(got) != 1 {
		t.Fatalf("expected no second merge event, got %d", len(got))
	}
}

func TestIdentityService_Resolve_MergeMovesProvisionalOnlyRatingProfile(t *testing.T) {
	store := memory.NewStore()
	accounts := memory.NewAccountDirectory()
	publisher := memory.NewEventPublisher()
	accounts.Seed(identity.Account{UserID: "user-1", Email: "ana@example.com", FullName: "Ana Silva"})

	ctx := t.Context()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := store.Profiles.Create(ctx, identity.PlayerProfile{
		ID:             "prof-canon",
		OrganizationID: testOrgID,
		UserID:         "user-1",
		FullName:       "Ana Silva",
	}); err != nil {
		t.Fatalf("seed canonical profile: %v", err)
	}
	if err := store.Profiles.Create(ctx, identity.PlayerProfile{
		ID:             "prof-prov",
		OrganizationID: testOrgID,
		Email:          "ana@example.com",
	}); err != nil {
		t.Fatalf("seed provisional profile: %v", err)
	}

	// Only the provisional side ever played: the canonical identity has
	// no rating profile at all.
	provMatchAt := now.AddDate(0, -1, 0)
	suspendedUntil := now.AddDate(0, 1, 0)
	provRating, _ := store.RatingProfiles.EnsureProfile(ctx, testOrgID, "prof-prov")
	provRating.MatchesPlayed = 7
	provRating.Rating = 1310
	provRating.LastMatchAt = &provMatchAt
	provRating.BlockedNewMatches = true
	provRating.SuspensionEndsAt = &suspendedUntil
	if err := store.RatingProfiles.UpdateProfile(ctx, provRating); err != nil {
		t.Fatalf("seed provisional rating profile: %v", err)
	}

	service := newIdentityService(store, accounts, publisher, staticIDGenerator{id: "unused"})
	service.SetNowForTest(func() time.Time { return now })

	profileID, err := service.ResolveCanonicalPlayerProfile(ctx, ResolveCanonicalInput{
		OrganizationID:         testOrgID,
		UserID:                 "user-1",
		RetroactiveClaimMonths: 6,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if profileID != "prof-canon" {
		t.Fatalf("expected canonical id prof-canon, got %s", profileID)
	}

	moved, found, _ := store.RatingProfiles.GetProfileByPlayer(ctx, testOrgID, "prof-canon")
	if !found {
		t.Fatalf("expected rating profile moved onto canonical identity")
	}
	if moved.PlayerProfileID != "prof-canon" {
		t.Fatalf("expected owning player rewritten, got %q", moved.PlayerProfileID)
	}
	if moved.MatchesPlayed != 7 || moved.Rating != 1310 {
		t.Fatalf("expected ledger state carried over, got %+v", moved)
	}
	if !moved.BlockedNewMatches {
		t.Fatalf("expected blocked flag carried over")
	}
	if moved.SuspensionEndsAt == nil || !moved.SuspensionEndsAt.Equal(suspendedUntil) {
		t.Fatalf("expected suspension end carried over, got %v", moved.SuspensionEndsAt)
	}
	if moved.LastMatchAt == nil || !moved.LastMatchAt.Equal(provMatchAt) {
		t.Fatalf("expected last match time carried over, got %v", moved.LastMatchAt)
	}

	// No rating profile may survive for the deleted provisional profile.
	if _, provLeft, _ := store.RatingProfiles.GetProfileByPlayer(ctx, testOrgID, "prof-prov"); provLeft {
		t.Fatalf("expected no rating profile left under provisional id")
	}
	if _, stillThere, _ := store.Profiles.GetByID(ctx, testOrgID, "prof-prov"); stillThere {
		t.Fatalf("expected provisional profile deleted after merge")
	}
}

func TestIdentityService_Resolve_ClaimWindowExpired(t *testing.T) {
	store := memory.NewStore()
	accounts := memory.NewAccountDirectory()
	publisher := memory.NewEventPublisher()
	accounts.Seed(identity.Account{UserID: "user-1", Email: "ana@example.com", FullName: "Ana Silva"})

	ctx := t.Context()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	staleAt := now.AddDate(0, -8, 0)

	if err := store.Profiles.Create(ctx, identity.PlayerProfile{
		ID:             "prof-prov",
		OrganizationID: testOrgID,
		Email:          "ana@example.com",
		DisplayName:    "Ana",
	}); err != nil {
		t.Fatalf("seed provisional profile: %v", err)
	}
	if err := store.RatingEvents.CreateEvent(ctx, rating.Event{
		ID:              "re-old",
		OrganizationID:  testOrgID,
		EventID:         "event-old",
		PlayerProfileID: "prof-prov",
		OccurredAt:      staleAt,
	}); err != nil {
		t.Fatalf("seed rating event: %v", err)
	}

	publisherBefore := len(publisher.Entries())
	err := store.InTx(ctx, func(ctx context.Context, deps TxDeps) error {
		service := NewIdentityService(deps, accounts, publisher, staticIDGenerator{id: "unused"}, logging.NewNop())
		service.SetNowForTest(func() time.Time { return now })
		_, err := service.ResolveCanonicalPlayerProfile(ctx, ResolveCanonicalInput{
			OrganizationID:         testOrgID,
			UserID:                 "user-1",
			RetroactiveClaimMonths: 6,
		})
		return err
	})
	if err == nil {
		t.Fatalf("expected claim window error")
	}

	var expired *identity.ClaimWindowExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("expected ClaimWindowExpiredError, got %v", err)
	}
	if expired.PlayerProfileID != "prof-prov" || expired.WindowMonths != 6 {
		t.Fatalf("unexpected error details: %+v", expired)
	}
	if !expired.LastActivityAt.Equal(staleAt) {
		t.Fatalf("expected last activity %v, got %v", staleAt, expired.LastActivityAt)
	}

	// The rollback leaves the provisional profile untouched.
	profile, found, _ := store.Profiles.GetByID(ctx, testOrgID, "prof-prov")
	if !found || profile.UserID != "" {
		t.Fatalf("expected provisional profile unchanged, found=%v profile=%+v", found, profile)
	}
	if len(publisher.Entries()) != publisherBefore {
		t.Fatalf("expected no events published on expired claim")
	}
}

func TestIdentityService_Resolve_ClaimWindowDisabled(t *testing.T) {
	store := memory.NewStore()
	accounts := memory.NewAccountDirectory()
	publisher := memory.NewEventPublisher()
	accounts.Seed(identity.Account{UserID: "user-1", Email: "ana@example.com", FullName: "Ana Silva"})

	ctx := t.Context()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := store.Profiles.Create(ctx, identity.PlayerProfile{
		ID:             "prof-prov",
		OrganizationID: testOrgID,
		Email:          "ana@example.com",
		DisplayName:    "Ana",
	}); err != nil {
		t.Fatalf("seed provisional profile: %v", err)
	}
	if err := store.RatingEvents.CreateEvent(ctx, rating.Event{
		ID:              "re-old",
		OrganizationID:  testOrgID,
		EventID:         "event-old",
		PlayerProfileID: "prof-prov",
		OccurredAt:      now.AddDate(-2, 0, 0),
	}); err != nil {
		t.Fatalf("seed rating event: %v", err)
	}

	service := newIdentityService(store, accounts, publisher, staticIDGenerator{id: "unused"})
	service.SetNowForTest(func() time.Time { return now })

	profileID, err := service.ResolveCanonicalPlayerProfile(ctx, ResolveCanonicalInput{
		OrganizationID:         testOrgID,
		UserID:                 "user-1",
		RetroactiveClaimMonths: 0,
	})
	if err != nil {
		t.Fatalf("expected claim to pass with disabled window: %v", err)
	}
	if profileID != "prof-prov" {
		t.Fatalf("expected prof-prov, got %s", profileID)
	}
}

func TestIdentityService_Resolve_InputValidation(t *testing.T) {
	store := memory.NewStore()
	service := newIdentityService(store, memory.NewAccountDirectory(), memory.NewEventPublisher(), staticIDGenerator{id: "unused"})

	if _, err := service.ResolveCanonicalPlayerProfile(t.Context(), ResolveCanonicalInput{UserID: "user-1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing organization, got %v", err)
	}
	if _, err := service.ResolveCanonicalPlayerProfile(t.Context(), ResolveCanonicalInput{OrganizationID: testOrgID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing user, got %v", err)
	}
}
