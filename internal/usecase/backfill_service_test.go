package usecase_test

import (
	"errors"
	"testing"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/match"
	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
	"github.com/matchpoint-labs/padelcore/internal/infrastructure/repository/memory"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"

	. "github.com/matchpoint-labs/padelcore/internal/usecase"
)

func newBackfillFixture() (*memory.Store, *memory.EventPublisher, *BackfillService) {
	store := memory.NewStore()
	publisher := memory.NewEventPublisher()
	service := NewBackfillService(store, memory.NewAccountDirectory(), publisher, &seqIDGenerator{prefix: "bf"}, logging.NewNop())
	return store, publisher, service
}

func seedBackfillEvent(store *memory.Store, eventID string, withMatch bool) {
	store.Events.Add(tournament.Event{
		ID:             eventID,
		OrganizationID: testOrgID,
		TemplateType:   tournament.TemplatePadel,
		Status:         tournament.EventCompleted,
		Format:         "LEAGUE",
		Tier:           "GOLD",
		ClubID:         "club-1",
		City:           "Lisboa",
	})
	if withMatch {
		endedAt := time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC)
		store.Matches.Add(match.Match{
			ID:             "match-" + eventID,
			OrganizationID: testOrgID,
			EventID:        eventID,
			Status:         match.StatusDone,
			SideAPlayers:   []string{"p1", "p2"},
			SideBPlayers:   []string{"p3", "p4"},
			ScoreSets:      []match.SetScore{{TeamA: 6, TeamB: 3}, {TeamA: 6, TeamB: 4}},
			ActualEndAt:    &endedAt,
			UpdatedAt:      endedAt,
		})
	}
}

func TestBackfillService_DryRunRollsBack(t *testing.T) {
	store, _, service := newBackfillFixture()
	seedBackfillEvent(store, "event-1", true)

	result, err := service.Run(t.Context(), BackfillInput{
		OrganizationID:        testOrgID,
		Apply:                 false,
		RebuildMissingRatings: true,
	})
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !result.DryRun || result.EventCount != 1 || result.ErrorCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	row := result.Events[0]
	if !row.RatingRebuilt || row.ProcessedMatches != 1 || row.ProcessedPlayers != 4 {
		t.Fatalf("expected dry run to report real diagnostics, got %+v", row)
	}
	if result.TotalRatingRebuilds != 1 {
		t.Fatalf("expected one counted rebuild, got %d", result.TotalRatingRebuilds)
	}

	// Nothing may persist after the forced rollback.
	count, _ := store.RatingEvents.CountEventsByEvent(t.Context(), testOrgID, "event-1")
	if count != 0 {
		t.Fatalf("expected no persisted ledger rows after dry run, got %d", count)
	}
	entries, _ := store.Rankings.ListRankingEntries(t.Context(), testOrgID, "event-1")
	if len(entries) != 0 {
		t.Fatalf("expected no persisted ranking entries after dry run, got %d", len(entries))
	}
}

func TestBackfillService_ApplyPersistsAndSkipsRebuiltEvents(t *testing.T) {
	store, _, service := newBackfillFixture()
	seedBackfillEvent(store, "event-1", true)

	result, err := service.Run(t.Context(), BackfillInput{
		OrganizationID:        testOrgID,
		Apply:                 true,
		RebuildMissingRatings: true,
		RebuildHistory:        true,
	})
	if err != nil {
		t.Fatalf("apply run failed: %v", err)
	}
	if result.DryRun || result.ErrorCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !result.Events[0].RatingRebuilt {
		t.Fatalf("expected rating rebuild, got %+v", result.Events[0])
	}

	count, _ := store.RatingEvents.CountEventsByEvent(t.Context(), testOrgID, "event-1")
	if count != 4 {
		t.Fatalf("expected 4 persisted ledger rows, got %d", count)
	}

	// A second run finds the ledger populated and rebuilds nothing.
	again, err := service.Run(t.Context(), BackfillInput{
		OrganizationID:        testOrgID,
		Apply:                 true,
		RebuildMissingRatings: true,
	})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if again.TotalRatingRebuilds != 0 || again.Events[0].RatingRebuilt {
		t.Fatalf("expected no rebuild on populated event, got %+v", again)
	}
}

func TestBackfillService_RecordsPerEventErrors(t *testing.T) {
	store, _, service := newBackfillFixture()
	// Non-padel events fail the history rebuild while staying selectable
	// by explicit id.
	store.Events.Add(tournament.Event{
		ID:             "event-other",
		OrganizationID: testOrgID,
		TemplateType:   "FOOTBALL",
		Status:         tournament.EventCompleted,
	})

	result, err := service.Run(t.Context(), BackfillInput{
		OrganizationID: testOrgID,
		EventID:        "event-other",
		Apply:          true,
		RebuildHistory: true,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.ErrorCount != 1 {
		t.Fatalf("expected one errored event, got %d", result.ErrorCount)
	}
	if result.Events[0].Error == "" {
		t.Fatalf("expected error recorded on the event row")
	}
}

func TestBackfillService_PaginatesWithCursor(t *testing.T) {
	store, _, service := newBackfillFixture()
	seedBackfillEvent(store, "event-1", false)
	seedBackfillEvent(store, "event-2", false)
	seedBackfillEvent(store, "event-3", false)

	first, err := service.Run(t.Context(), BackfillInput{
		OrganizationID:  testOrgID,
		Limit:           2,
		Apply:           true,
		BackfillContext: true,
	})
	if err != nil {
		t.Fatalf("first page failed: %v", err)
	}
	if first.EventCount != 2 || first.NextCursor != "event-2" {
		t.Fatalf("unexpected first page: %+v", first)
	}

	second, err := service.Run(t.Context(), BackfillInput{
		OrganizationID:  testOrgID,
		Cursor:          first.NextCursor,
		Limit:           2,
		Apply:           true,
		BackfillContext: true,
	})
	if err != nil {
		t.Fatalf("second page failed: %v", err)
	}
	if second.EventCount != 1 || second.NextCursor != "" {
		t.Fatalf("unexpected second page: %+v", second)
	}
}

func TestBackfillService_Validation(t *testing.T) {
	_, _, service := newBackfillFixture()

	if _, err := service.Run(t.Context(), BackfillInput{BackfillContext: true}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing organization, got %v", err)
	}
	if _, err := service.Run(t.Context(), BackfillInput{OrganizationID: testOrgID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input when no operation selected, got %v", err)
	}

	if _, err := service.Run(t.Context(), BackfillInput{
		OrganizationID:  testOrgID,
		EventID:         "missing",
		BackfillContext: true,
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown event, got %v", err)
	}
}
