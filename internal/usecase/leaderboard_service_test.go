package usecase_test

import (
	"errors"
	"testing"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
	"github.com/matchpoint-labs/padelcore/internal/infrastructure/repository/memory"
	"github.com/matchpoint-labs/padelcore/internal/platform/cache"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"

	. "github.com/matchpoint-labs/padelcore/internal/usecase"
)

func TestLeaderboardService_GetEventLeaderboard(t *testing.T) {
	store := memory.NewStore()
	service := NewLeaderboardService(store, cache.NewStore(time.Minute), logging.NewNop())

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	service.SetNowForTest(func() time.Time { return now })

	ctx := t.Context()
	store.Events.Add(tournament.Event{
		ID:             "event-1",
		OrganizationID: testOrgID,
		TemplateType:   tournament.TemplatePadel,
		Status:         tournament.EventCompleted,
	})

	if err := store.Profiles.Create(ctx, identity.PlayerProfile{
		ID: "p1", OrganizationID: testOrgID, DisplayName: "Ana", FullName: "Ana Silva",
	}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if err := store.Profiles.Create(ctx, identity.PlayerProfile{
		ID: "p2", OrganizationID: testOrgID, FullName: "Bruno Costa",
	}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	entries := []tournament.RankingEntry{
		{OrganizationID: testOrgID, EventID: "event-1", PlayerProfileID: "p1", Points: 1280, Position: 1, Level: 1},
		{OrganizationID: testOrgID, EventID: "event-1", PlayerProfileID: "p2", Points: 1150, Position: 2, Level: 2.1},
		{OrganizationID: testOrgID, EventID: "event-1", PlayerProfileID: "p3", Points: 1100, Position: 3, Level: 2.4},
	}
	if err := store.Rankings.ReplaceRankingEntries(ctx, testOrgID, "event-1", entries); err != nil {
		t.Fatalf("seed ranking entries: %v", err)
	}

	suspendedUntil := now.Add(24 * time.Hour)
	p2Rating, _ := store.RatingProfiles.EnsureProfile(ctx, testOrgID, "p2")
	p2Rating.SuspensionEndsAt = &suspendedUntil
	p2Rating.BlockedNewMatches = true
	if err := store.RatingProfiles.UpdateProfile(ctx, p2Rating); err != nil {
		t.Fatalf("seed rating profile: %v", err)
	}
	p3Rating, _ := store.RatingProfiles.EnsureProfile(ctx, testOrgID, "p3")
	p3Rating.LeaderboardEligible = false
	if err := store.RatingProfiles.UpdateProfile(ctx, p3Rating); err != nil {
		t.Fatalf("seed rating profile: %v", err)
	}

	rows, err := service.GetEventLeaderboard(ctx, testOrgID, "event-1")
	if err != nil {
		t.Fatalf("get leaderboard failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected ineligible player hidden, got %d rows", len(rows))
	}
	if rows[0].PlayerProfileID != "p1" || rows[0].DisplayName != "Ana" || rows[0].Position != 1 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].DisplayName != "Bruno Costa" {
		t.Fatalf("expected full name fallback, got %q", rows[1].DisplayName)
	}
	if !rows[1].Suspended || !rows[1].Blocked {
		t.Fatalf("expected sanction flags on second row, got %+v", rows[1])
	}
}

func TestLeaderboardService_CachesUntilInvalidated(t *testing.T) {
	store := memory.NewStore()
	service := NewLeaderboardService(store, cache.NewStore(time.Minute), logging.NewNop())

	ctx := t.Context()
	store.Events.Add(tournament.Event{
		ID:             "event-1",
		OrganizationID: testOrgID,
		TemplateType:   tournament.TemplatePadel,
		Status:         tournament.EventCompleted,
	})
	seed := func(points int) {
		entries := []tournament.RankingEntry{
			{OrganizationID: testOrgID, EventID: "event-1", PlayerProfileID: "p1", Points: points, Position: 1, Level: 1},
		}
		if err := store.Rankings.ReplaceRankingEntries(ctx, testOrgID, "event-1", entries); err != nil {
			t.Fatalf("seed ranking entries: %v", err)
		}
	}
	seed(1200)

	first, err := service.GetEventLeaderboard(ctx, testOrgID, "event-1")
	if err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if first[0].Points != 1200 {
		t.Fatalf("expected 1200 points, got %d", first[0].Points)
	}

	seed(1300)
	cached, err := service.GetEventLeaderboard(ctx, testOrgID, "event-1")
	if err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if cached[0].Points != 1200 {
		t.Fatalf("expected cached value before invalidation, got %d", cached[0].Points)
	}

	service.InvalidateEvent(ctx, testOrgID, "event-1")
	fresh, err := service.GetEventLeaderboard(ctx, testOrgID, "event-1")
	if err != nil {
		t.Fatalf("fresh read failed: %v", err)
	}
	if fresh[0].Points != 1300 {
		t.Fatalf("expected fresh value after invalidation, got %d", fresh[0].Points)
	}
}

func TestLeaderboardService_UnknownEvent(t *testing.T) {
	store := memory.NewStore()
	service := NewLeaderboardService(store, cache.NewStore(time.Minute), logging.NewNop())

	if _, err := service.GetEventLeaderboard(t.Context(), testOrgID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
