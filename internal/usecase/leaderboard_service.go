package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/platform/cache"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"
)

// LeaderboardRow is one display row of an event leaderboard. Suspended
// reflects an open suspension window at read time.
type LeaderboardRow struct {
	Position        int     `json:"position"`
	PlayerProfileID string  `json:"playerProfileId"`
	DisplayName     string  `json:"displayName"`
	Points          int     `json:"points"`
	Level           float64 `json:"level"`
	Suspended       bool    `json:"suspended"`
	Blocked         bool    `json:"blocked"`
}

// LeaderboardService serves read-only event leaderboards from the
// ranking rows the rebuild produced, cached per event.
type LeaderboardService struct {
	runner TxRunner
	store  *cache.Store
	logger *logging.Logger
	now    func() time.Time
}

func NewLeaderboardService(runner TxRunner, store *cache.Store, logger *logging.Logger) *LeaderboardService {
	if logger == nil {
		logger = logging.Default()
	}

	return &LeaderboardService{
		runner: runner,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// GetEventLeaderboard returns the event's leaderboard, hiding players
// whose rating profile is not leaderboard eligible.
func (s *LeaderboardService) GetEventLeaderboard(ctx context.Context, organizationID, eventID string) ([]LeaderboardRow, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.GetEventLeaderboard")
	defer span.End()

	organizationID = strings.TrimSpace(organizationID)
	eventID = strings.TrimSpace(eventID)
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	if eventID == "" {
		return nil, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	key := fmt.Sprintf("leaderboard:%s:%s", organizationID, eventID)
	value, err := s.store.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return s.loadLeaderboard(ctx, organizationID, eventID)
	})
	if err != nil {
		return nil, err
	}
	rows, ok := value.([]LeaderboardRow)
	if !ok {
		return s.loadLeaderboard(ctx, organizationID, eventID)
	}
	return rows, nil
}

// InvalidateEvent drops the cached leaderboard after a rebuild.
func (s *LeaderboardService) InvalidateEvent(ctx context.Context, organizationID, eventID string) {
	s.store.Delete(ctx, fmt.Sprintf("leaderboard:%s:%s", organizationID, eventID))
}

func (s *LeaderboardService) loadLeaderboard(ctx context.Context, organizationID, eventID string) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := s.runner.InTx(ctx, func(ctx context.Context, deps TxDeps) error {
		_, found, err := deps.Events.GetEvent(ctx, organizationID, eventID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if !found {
			return fmt.Errorf("%w: event=%s", ErrNotFound, eventID)
		}

		entries, err := deps.Rankings.ListRankingEntries(ctx, organizationID, eventID)
		if err != nil {
			return fmt.Errorf("list ranking entries: %w", err)
		}

		rows = make([]LeaderboardRow, 0, len(entries))
		for _, entry := range entries {
			profile, found, err := deps.RatingProfiles.GetProfileByPlayer(ctx, organizationID, entry.PlayerProfileID)
			if err != nil {
				return fmt.Errorf("get rating profile: %w", err)
			}
			if found && !profile.LeaderboardEligible {
				continue
			}

			displayName := ""
			player, playerFound, err := deps.Profiles.GetByID(ctx, organizationID, entry.PlayerProfileID)
			if err != nil {
				return fmt.Errorf("get player profile: %w", err)
			}
			if playerFound {
				displayName = player.DisplayName
				if displayName == "" {
					displayName = player.FullName
				}
			}

			row := LeaderboardRow{
				Position:        entry.Position,
				PlayerProfileID: entry.PlayerProfileID,
				DisplayName:     displayName,
				Points:          entry.Points,
				Level:           entry.Level,
			}
			if found {
				row.Blocked = profile.BlockedNewMatches
				row.Suspended = profile.Suspended(s.now().UTC())
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
