package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/match"
	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
	idgen "github.com/matchpoint-labs/padelcore/internal/platform/id"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"
)

// Points awarded in group standings.
const (
	standingsWinPoints  = 3
	standingsDrawPoints = 1
)

// HistoryService rebuilds the per-player tournament history projection:
// final positions, titles, usual partner, and a bracket snapshot per
// participant.
type HistoryService struct {
	events       tournament.EventRepository
	participants tournament.ParticipantRepository
	history      tournament.HistoryRepository
	matches      match.Repository
	idGen        idgen.Generator
	logger       *logging.Logger
	now          func() time.Time
}

func NewHistoryService(deps TxDeps, idGen idgen.Generator, logger *logging.Logger) *HistoryService {
	if logger == nil {
		logger = logging.Default()
	}

	return &HistoryService{
		events:       deps.Events,
		participants: deps.Participants,
		history:      deps.History,
		matches:      deps.Matches,
		idGen:        idGen,
		logger:       logger,
		now:          time.Now,
	}
}

type categoryOutcome struct {
	finalPositionByPlayer map[string]int
	titleWinners          map[string]struct{}
	standingsRows         []map[string]any
}

// RebuildHistoryProjection recomputes and replaces every history row of
// the event. Knockout-format categories take positions from the bracket
// (champions 1, runners-up 2, everyone else who played knockout 3);
// other categories rank by group standings.
func (s *HistoryService) RebuildHistoryProjection(ctx context.Context, organizationID, eventID string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.HistoryService.RebuildHistoryProjection")
	defer span.End()

	organizationID = strings.TrimSpace(organizationID)
	eventID = strings.TrimSpace(eventID)
	if organizationID == "" {
		return 0, fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	if eventID == "" {
		return 0, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	event, found, err := s.events.GetEvent(ctx, organizationID, eventID)
	if err != nil {
		return 0, fmt.Errorf("get event: %w", err)
	}
	if !found || event.TemplateType != tournament.TemplatePadel {
		return 0, fmt.Errorf("%w: event=%s", ErrNotFound, eventID)
	}

	participants, err := s.participants.ListParticipantsByEvent(ctx, organizationID, eventID)
	if err != nil {
		return 0, fmt.Errorf("list participants: %w", err)
	}
	doneMatches, err := s.matches.ListCompletedByEvent(ctx, organizationID, eventID)
	if err != nil {
		return 0, fmt.Errorf("list completed matches: %w", err)
	}

	partnerIDs := mostFrequentPartners(doneMatches)

	byCategory := make(map[string][]match.Match)
	for _, m := range doneMatches {
		byCategory[m.CategoryID] = append(byCategory[m.CategoryID], m)
	}

	outcomes := make(map[string]categoryOutcome)
	for _, participant := range participants {
		key := participant.CategoryID
		if _, ok := outcomes[key]; ok {
			continue
		}
		categoryMatches := byCategory[key]
		if len(categoryMatches) == 0 {
			outcomes[key] = categoryOutcome{
				finalPositionByPlayer: map[string]int{},
				titleWinners:          map[string]struct{}{},
			}
			continue
		}

		hasKnockout := false
		for _, m := range categoryMatches {
			if m.RoundType == match.RoundKnockout {
				hasKnockout = true
				break
			}
		}
		_, knockoutFormat := tournament.KnockoutFormats[event.Format]
		if hasKnockout && knockoutFormat {
			outcomes[key] = resolveKnockoutPositions(categoryMatches)
		} else {
			outcomes[key] = resolveStandingsPositions(categoryMatches)
		}
	}

	now := s.now().UTC()
	rows := make([]tournament.HistoryRow, 0, len(participants))
	for _, participant := range participants {
		outcome := outcomes[participant.CategoryID]
		finalPosition := outcome.finalPositionByPlayer[participant.PlayerProfileID]
		_, wonTitle := outcome.titleWinners[participant.PlayerProfileID]

		playerMatches := make([]map[string]any, 0)
		for _, m := range byCategory[participant.CategoryID] {
			if !sideContains(m.SideAPlayers, participant.PlayerProfileID) &&
				!sideContains(m.SideBPlayers, participant.PlayerProfileID) {
				continue
			}
			playerMatches = append(playerMatches, map[string]any{
				"matchId":    m.ID,
				"roundType":  m.RoundType,
				"roundLabel": m.RoundLabel,
				"groupLabel": m.GroupLabel,
				"winnerSide": m.WinnerSide,
			})
		}

		rowID, err := s.idGen.NewID()
		if err != nil {
			return 0, fmt.Errorf("generate history row id: %w", err)
		}
		rows = append(rows, tournament.HistoryRow{
			ID:                     rowID,
			OrganizationID:         organizationID,
			EventID:                eventID,
			CategoryID:             participant.CategoryID,
			PlayerProfileID:        participant.PlayerProfileID,
			PartnerPlayerProfileID: partnerIDs[participant.PlayerProfileID],
			FinalPosition:          finalPosition,
			WonTitle:               wonTitle,
			BracketSnapshot: map[string]any{
				"computedAt": now.Format(time.RFC3339),
				"event": map[string]any{
					"id":    event.ID,
					"title": event.Title,
					"slug":  event.Slug,
				},
				"format":        event.Format,
				"standings":     outcome.standingsRows,
				"playerMatches": playerMatches,
			},
			ComputedAt: now,
		})
	}

	if err := s.history.ReplaceHistoryRows(ctx, organizationID, eventID, rows); err != nil {
		return 0, fmt.Errorf("replace history rows: %w", err)
	}

	s.logger.InfoContext(ctx, "player history projection rebuilt",
		"organization_id", organizationID,
		"event_id", eventID,
		"rows", len(rows),
	)
	return len(rows), nil
}

// mostFrequentPartners picks, per player, the teammate they shared a
// side with most often. Ties break on the smaller partner id.
func mostFrequentPartners(matches []match.Match) map[string]string {
	counts := make(map[string]map[string]int)
	for _, m := range matches {
		for _, side := range [][]string{m.SideAPlayers, m.SideBPlayers} {
			for _, playerID := range side {
				if counts[playerID] == nil {
					counts[playerID] = make(map[string]int)
				}
				for _, partnerID := range side {
					if partnerID == playerID {
						continue
					}
					counts[playerID][partnerID]++
				}
			}
		}
	}

	out := make(map[string]string, len(counts))
	for playerID, partners := range counts {
		best := ""
		bestCount := 0
		for partnerID, count := range partners {
			if count > bestCount || (count == bestCount && (best == "" || partnerID < best)) {
				best = partnerID
				bestCount = count
			}
		}
		if best != "" {
			out[playerID] = best
		}
	}
	return out
}

// resolveKnockoutPositions reads final positions off the bracket: the
// last decided knockout match is the final.
func resolveKnockoutPositions(matches []match.Match) categoryOutcome {
	outcome := categoryOutcome{
		finalPositionByPlayer: map[string]int{},
		titleWinners:          map[string]struct{}{},
	}

	var knockout []match.Match
	for _, m := range matches {
		if m.RoundType == match.RoundKnockout {
			knockout = append(knockout, m)
		}
	}

	var final *match.Match
	for i := len(knockout) - 1; i >= 0; i-- {
		m := knockout[i]
		if (m.WinnerSide == "A" || m.WinnerSide == "B") && m.Playable() {
			final = &knockout[i]
			break
		}
	}
	if final != nil {
		winners, losers := final.SideAPlayers, final.SideBPlayers
		if final.WinnerSide == "B" {
			winners, losers = losers, winners
		}
		for _, playerID := range winners {
			outcome.finalPositionByPlayer[playerID] = 1
			outcome.titleWinners[playerID] = struct{}{}
		}
		for _, playerID := range losers {
			outcome.finalPositionByPlayer[playerID] = 2
		}
	}

	for _, m := range knockout {
		for _, side := range [][]string{m.SideAPlayers, m.SideBPlayers} {
			for _, playerID := range side {
				if _, ok := outcome.finalPositionByPlayer[playerID]; !ok {
					outcome.finalPositionByPlayer[playerID] = 3
				}
			}
		}
	}
	return outcome
}

type standingsRow struct {
	playerID string
	points   int
	wins     int
	losses   int
	draws    int
	setDiff  int
	gameDiff int
}

// resolveStandingsPositions ranks players by accumulated group results:
// points, then set difference, then game difference, then wins.
func resolveStandingsPositions(matches []match.Match) categoryOutcome {
	rows := make(map[string]*standingsRow)
	track := func(playerID string, won, drew bool, setDiff, gameDiff int) {
		row, ok := rows[playerID]
		if !ok {
			row = &standingsRow{playerID: playerID}
			rows[playerID] = row
		}
		switch {
		case drew:
			row.draws++
			row.points += standingsDrawPoints
		case won:
			row.wins++
			row.points += standingsWinPoints
		default:
			row.losses++
		}
		row.setDiff += setDiff
		row.gameDiff += gameDiff
	}

	for _, m := range matches {
		stats := match.ResolveStats(m.ScoreSets, m.Score, nil)
		if stats == nil || !m.Playable() {
			continue
		}
		for _, playerID := range m.SideAPlayers {
			track(playerID, stats.Winner == "A", stats.IsDraw, stats.ASets-stats.BSets, stats.AGames-stats.BGames)
		}
		for _, playerID := range m.SideBPlayers {
			track(playerID, stats.Winner == "B", stats.IsDraw, stats.BSets-stats.ASets, stats.BGames-stats.AGames)
		}
	}

	sorted := make([]*standingsRow, 0, len(rows))
	for _, row := range rows {
		sorted = append(sorted, row)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.points != b.points {
			return a.points > b.points
		}
		if a.setDiff != b.setDiff {
			return a.setDiff > b.setDiff
		}
		if a.gameDiff != b.gameDiff {
			return a.gameDiff > b.gameDiff
		}
		if a.wins != b.wins {
			return a.wins > b.wins
		}
		return a.playerID < b.playerID
	})

	outcome := categoryOutcome{
		finalPositionByPlayer: map[string]int{},
		titleWinners:          map[string]struct{}{},
		standingsRows:         make([]map[string]any, 0, len(sorted)),
	}
	for idx, row := range sorted {
		outcome.finalPositionByPlayer[row.playerID] = idx + 1
		if idx == 0 {
			outcome.titleWinners[row.playerID] = struct{}{}
		}
		outcome.standingsRows = append(outcome.standingsRows, map[string]any{
			"playerProfileId": row.playerID,
			"points":          row.points,
			"wins":            row.wins,
			"losses":          row.losses,
			"draws":           row.draws,
			"setDiff":         row.setDiff,
			"gameDiff":        row.gameDiff,
		})
	}
	return outcome
}

func sideContains(side []string, playerID string) bool {
	for _, id := range side {
		if id == playerID {
			return true
		}
	}
	return false
}
