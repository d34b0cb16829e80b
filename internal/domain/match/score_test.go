package match

import (
	"testing"
	"time"
)

func TestComputeSetStats_ValidStraightSets(t *testing.T) {
	rules := DefaultRules()
	stats := ComputeSetStats([]SetScore{{TeamA: 6, TeamB: 3}, {TeamA: 6, TeamB: 4}}, &rules)
	if stats == nil {
		t.Fatalf("expected stats for a finished match")
	}
	if stats.Winner != "A" || stats.ASets != 2 || stats.BSets != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.AGames != 12 || stats.BGames != 7 {
		t.Fatalf("unexpected games tally: %+v", stats)
	}
	if stats.ResultType != ResultNormal {
		t.Fatalf("expected normal result, got %s", stats.ResultType)
	}
}

func TestComputeSetStats_RejectsInvalidScorelines(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		name string
		sets []SetScore
	}{
		{"six-five without tiebreak", []SetScore{{TeamA: 6, TeamB: 5}, {TeamA: 6, TeamB: 3}}},
		{"drawn set", []SetScore{{TeamA: 6, TeamB: 6}, {TeamA: 6, TeamB: 3}}},
		{"split sets without decider", []SetScore{{TeamA: 6, TeamB: 3}, {TeamA: 3, TeamB: 6}}},
		{"play after the match was decided", []SetScore{{TeamA: 6, TeamB: 3}, {TeamA: 6, TeamB: 3}, {TeamA: 6, TeamB: 3}}},
		{"empty", nil},
	}
	for _, tc := range cases {
		if stats := ComputeSetStats(tc.sets, &rules); stats != nil {
			t.Fatalf("%s: expected nil stats, got %+v", tc.name, stats)
		}
	}
}

func TestComputeSetStats_TieBreakAndSuperTieBreak(t *testing.T) {
	rules := DefaultRules()

	stats := ComputeSetStats([]SetScore{{TeamA: 7, TeamB: 6}, {TeamA: 6, TeamB: 4}}, &rules)
	if stats == nil || stats.Winner != "A" {
		t.Fatalf("expected tie-break set accepted, got %+v", stats)
	}

	// Split sets decided by a super tie break to 10.
	stats = ComputeSetStats([]SetScore{{TeamA: 6, TeamB: 3}, {TeamA: 4, TeamB: 6}, {TeamA: 10, TeamB: 7}}, &rules)
	if stats == nil || stats.Winner != "A" || stats.ASets != 2 {
		t.Fatalf("expected super tie break accepted, got %+v", stats)
	}

	// The same scoreline is invalid when it is not the deciding set.
	stats = ComputeSetStats([]SetScore{{TeamA: 10, TeamB: 7}, {TeamA: 6, TeamB: 3}}, &rules)
	if stats != nil {
		t.Fatalf("expected early super tie break rejected, got %+v", stats)
	}
}

func TestComputeSetStats_NoRulesSkipsSetValidation(t *testing.T) {
	stats := ComputeSetStats([]SetScore{{TeamA: 3, TeamB: 1}}, nil)
	if stats == nil || stats.Winner != "A" {
		t.Fatalf("expected permissive stats without rules, got %+v", stats)
	}
}

func TestResolveStats_TimedGames(t *testing.T) {
	score := map[string]any{
		"mode":    "TIMED_GAMES",
		"gamesA":  float64(7),
		"gamesB":  float64(5),
		"endedAt": "2026-03-10T09:00:00Z",
	}
	stats := ResolveStats(nil, score, nil)
	if stats == nil || stats.Mode != ModeTimedGames {
		t.Fatalf("expected timed stats, got %+v", stats)
	}
	if stats.Winner != "A" || stats.AGames != 7 || stats.BGames != 5 {
		t.Fatalf("unexpected timed stats: %+v", stats)
	}
	wantEnd := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if stats.EndedAt == nil || !stats.EndedAt.Equal(wantEnd) {
		t.Fatalf("expected ended at %v, got %v", wantEnd, stats.EndedAt)
	}

	drawn := ResolveStats(nil, map[string]any{
		"mode":   "TIMED_GAMES",
		"gamesA": float64(4),
		"gamesB": float64(4),
	}, nil)
	if drawn == nil || !drawn.IsDraw || drawn.Winner != "" {
		t.Fatalf("expected timed draw, got %+v", drawn)
	}

	noDraw := ResolveStats(nil, map[string]any{
		"mode":      "TIMED_GAMES",
		"gamesA":    float64(4),
		"gamesB":    float64(4),
		"allowDraw": false,
	}, nil)
	if noDraw != nil {
		t.Fatalf("expected nil when draws are disallowed, got %+v", noDraw)
	}
}

func TestResolveStats_WalkoverSynthesis(t *testing.T) {
	rules := DefaultRules()
	stats := ResolveStats(nil, map[string]any{
		"walkover":   true,
		"winnerSide": "B",
	}, &rules)
	if stats == nil {
		t.Fatalf("expected synthesized walkover stats")
	}
	if stats.Winner != "B" || stats.ResultType != ResultWalkover {
		t.Fatalf("unexpected walkover stats: %+v", stats)
	}
	if stats.BGames != 2*walkoverSetGames || stats.AGames != 0 {
		t.Fatalf("expected straight-sets shutout, got %+v", stats)
	}

	retired := ResolveStats(nil, map[string]any{
		"resultType": "RETIREMENT",
		"winnerSide": "A",
	}, &rules)
	if retired == nil || retired.ResultType != ResultRetirement || retired.Winner != "A" {
		t.Fatalf("unexpected retirement stats: %+v", retired)
	}

	if got := ResolveStats(nil, map[string]any{"walkover": true}, &rules); got != nil {
		t.Fatalf("expected nil walkover without a winner side, got %+v", got)
	}
}

func TestResolveStats_ByeNeutral(t *testing.T) {
	stats := ResolveStats(nil, map[string]any{"resultType": "BYE_NEUTRAL"}, nil)
	if stats == nil || stats.ResultType != ResultByeNeutral || !stats.IsDraw {
		t.Fatalf("expected neutral bye stats, got %+v", stats)
	}
}

func TestResolveStats_SetsFromPayload(t *testing.T) {
	score := map[string]any{
		"sets": []any{
			map[string]any{"teamA": float64(6), "teamB": float64(3)},
			map[string]any{"teamA": float64(6), "teamB": float64(4)},
		},
	}
	stats := ResolveStats(nil, score, nil)
	if stats == nil || stats.Winner != "A" || stats.AGames != 12 {
		t.Fatalf("expected sets parsed from the payload, got %+v", stats)
	}
}

func TestWinnerFromSets(t *testing.T) {
	if got := WinnerFromSets([]SetScore{{TeamA: 6, TeamB: 3}, {TeamA: 6, TeamB: 4}}); got != "A" {
		t.Fatalf("expected A, got %q", got)
	}
	if got := WinnerFromSets([]SetScore{{TeamA: 6, TeamB: 3}, {TeamA: 3, TeamB: 6}}); got != "" {
		t.Fatalf("expected no winner for split sets, got %q", got)
	}
	if got := WinnerFromSets(nil); got != "" {
		t.Fatalf("expected no winner without sets, got %q", got)
	}
}

func TestMatchCompletionTime(t *testing.T) {
	planned := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	actual := planned.Add(30 * time.Minute)
	updated := planned.Add(time.Hour)

	m := Match{PlannedEndAt: &planned, ActualEndAt: &actual, UpdatedAt: updated}
	if !m.CompletionTime().Equal(actual) {
		t.Fatalf("expected actual end preferred, got %v", m.CompletionTime())
	}
	m.ActualEndAt = nil
	if !m.CompletionTime().Equal(planned) {
		t.Fatalf("expected planned end fallback, got %v", m.CompletionTime())
	}
	m.PlannedEndAt = nil
	if !m.CompletionTime().Equal(updated) {
		t.Fatalf("expected updated-at fallback, got %v", m.CompletionTime())
	}
}
