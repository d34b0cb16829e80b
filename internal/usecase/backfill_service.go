package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
	idgen "github.com/matchpoint-labs/padelcore/internal/platform/id"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"
)

const (
	backfillMinLimit     = 1
	backfillMaxLimit     = 200
	backfillDefaultLimit = 50

	backfillMaxWorkers = 8
)

// errDryRunRollback aborts an event's transaction after a dry run so the
// computed diagnostics come from real execution without persisting.
var errDryRunRollback = errors.New("dry run rollback")

// BackfillInput selects events and operations for one batch run. A nil
// CompletedOnly defaults to true. Apply false runs every selected
// operation inside a transaction that is always rolled back.
type BackfillInput struct {
	OrganizationID        string
	EventID               string
	Cursor                string
	Limit                 int
	CompletedOnly         *bool
	Apply                 bool
	BackfillContext       bool
	RebuildMissingRatings bool
	RebuildHistory        bool
	MaxWorkers            int
	ActorUserID           string
}

// BackfillEventResult is the per-event diagnostic row.
type BackfillEventResult struct {
	EventID          string `json:"eventId"`
	ContextPatched   int    `json:"contextPatched"`
	RatingRebuilt    bool   `json:"ratingRebuilt"`
	ProcessedMatches int    `json:"processedMatches"`
	ProcessedPlayers int    `json:"processedPlayers"`
	RankingRows      int    `json:"rankingRows"`
	HistoryRows      int    `json:"historyRows"`
	DurationMs       int64  `json:"durationMs"`
	Error            string `json:"error,omitempty"`
}

// BackfillResult aggregates a batch run.
type BackfillResult struct {
	DryRun              bool                  `json:"dryRun"`
	EventCount          int                   `json:"eventCount"`
	ErrorCount          int                   `json:"errorCount"`
	TotalContextPatched int                   `json:"totalContextPatched"`
	TotalRatingRebuilds int                   `json:"totalRatingRebuilds"`
	TotalHistoryRows    int                   `json:"totalHistoryRows"`
	NextCursor          string                `json:"nextCursor,omitempty"`
	Events              []BackfillEventResult `json:"events"`
}

// BackfillService drives administrative batch maintenance over events:
// ledger context backfill, missing-rating rebuilds, and history
// projection rebuilds. Each event runs in its own transaction; one
// event's failure is recorded in its row and never aborts the batch.
type BackfillService struct {
	runner    TxRunner
	accounts  identity.AccountDirectory
	publisher EventPublisher
	idGen     idgen.Generator
	logger    *logging.Logger
	now       func() time.Time
}

func NewBackfillService(
	runner TxRunner,
	accounts identity.AccountDirectory,
	publisher EventPublisher,
	idGen idgen.Generator,
	logger *logging.Logger,
) *BackfillService {
	if logger == nil {
		logger = logging.Default()
	}

	return &BackfillService{
		runner:    runner,
		accounts:  accounts,
		publisher: publisher,
		idGen:     idGen,
		logger:    logger,
		now:       time.Now,
	}
}

// Run selects the target events and processes them on a bounded worker
// pool.
func (s *BackfillService) Run(ctx context.Context, input BackfillInput) (BackfillResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BackfillService.Run")
	defer span.End()

	input.OrganizationID = strings.TrimSpace(input.OrganizationID)
	input.EventID = strings.TrimSpace(input.EventID)
	if input.OrganizationID == "" {
		return BackfillResult{}, fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	if !input.BackfillContext && !input.RebuildMissingRatings && !input.RebuildHistory {
		return BackfillResult{}, fmt.Errorf("%w: at least one operation must be selected", ErrInvalidInput)
	}

	limit := input.Limit
	if limit == 0 {
		limit = backfillDefaultLimit
	}
	if limit < backfillMinLimit {
		limit = backfillMinLimit
	}
	if limit > backfillMaxLimit {
		limit = backfillMaxLimit
	}

	completedOnly := true
	if input.CompletedOnly != nil {
		completedOnly = *input.CompletedOnly
	}

	events, err := s.selectEvents(ctx, input, limit, completedOnly)
	if err != nil {
		return BackfillResult{}, err
	}

	result := BackfillResult{
		DryRun:     !input.Apply,
		EventCount: len(events),
		Events:     make([]BackfillEventResult, len(events)),
	}
	if len(events) == 0 {
		return result, nil
	}
	if input.EventID == "" && len(events) == limit {
		result.NextCursor = events[len(events)-1].ID
	}

	workerCount := input.MaxWorkers
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > backfillMaxWorkers {
		workerCount = backfillMaxWorkers
	}
	if workerCount > len(events) {
		workerCount = len(events)
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var errorCount atomic.Int32
	var workers sync.WaitGroup
	for idx, event := range events {
		idx, event := idx, event
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := s.processEvent(ctx, input, event)
			row.DurationMs = time.Since(start).Milliseconds()
			if row.Error != "" {
				errorCount.Add(1)
			}
			result.Events[idx] = row
		}); err != nil {
			workers.Done()
			return BackfillResult{}, fmt.Errorf("submit event to worker pool: %w", err)
		}
	}
	workers.Wait()

	result.ErrorCount = int(errorCount.Load())
	for _, row := range result.Events {
		result.TotalContextPatched += row.ContextPatched
		if row.RatingRebuilt {
			result.TotalRatingRebuilds++
		}
		result.TotalHistoryRows += row.HistoryRows
	}

	s.logger.InfoContext(ctx, "backfill batch finished",
		"organization_id", input.OrganizationID,
		"events", result.EventCount,
		"errors", result.ErrorCount,
		"dry_run", result.DryRun,
	)
	return result, nil
}

func (s *BackfillService) selectEvents(ctx context.Context, input BackfillInput, limit int, completedOnly bool) ([]tournament.Event, error) {
	var events []tournament.Event
	err := s.runner.InTx(ctx, func(ctx context.Context, deps TxDeps) error {
		if input.EventID != "" {
			event, found, err := deps.Events.GetEvent(ctx, input.OrganizationID, input.EventID)
			if err != nil {
				return fmt.Errorf("get event: %w", err)
			}
			if !found {
				return fmt.Errorf("%w: event=%s", ErrNotFound, input.EventID)
			}
			events = []tournament.Event{event}
			return nil
		}

		listed, err := deps.Events.ListEvents(ctx, tournament.ListEventsFilter{
			OrganizationID: input.OrganizationID,
			TemplateType:   tournament.TemplatePadel,
			Cursor:         input.Cursor,
			Limit:          limit,
			CompletedOnly:  completedOnly,
		})
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		events = listed
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

// processEvent runs the selected operations for one event inside its own
// transaction. Dry runs execute the same code and then force a rollback,
// so the reported diagnostics match what an apply run would do.
func (s *BackfillService) processEvent(ctx context.Context, input BackfillInput, event tournament.Event) BackfillEventResult {
	row := BackfillEventResult{EventID: event.ID}

	err := s.runner.InTx(ctx, func(ctx context.Context, deps TxDeps) error {
		services := NewServices(deps, s.accounts, s.publisher, s.idGen, s.logger)

		if input.BackfillContext {
			patched, err := services.Rating.BackfillContext(ctx, input.OrganizationID, event.ID)
			if err != nil {
				return fmt.Errorf("backfill context: %w", err)
			}
			row.ContextPatched = patched
		}

		if input.RebuildMissingRatings {
			completed, err := deps.Matches.CountCompletedByEvent(ctx, input.OrganizationID, event.ID)
			if err != nil {
				return fmt.Errorf("count completed matches: %w", err)
			}
			existing, err := deps.RatingEvents.CountEventsByEvent(ctx, input.OrganizationID, event.ID)
			if err != nil {
				return fmt.Errorf("count rating events: %w", err)
			}
			if completed > 0 && existing == 0 {
				rebuild, err := services.Rating.Rebuild(ctx, input.OrganizationID, event.ID, input.ActorUserID)
				if err != nil {
					return fmt.Errorf("rebuild ratings: %w", err)
				}
				row.RatingRebuilt = true
				row.ProcessedMatches = rebuild.ProcessedMatches
				row.ProcessedPlayers = rebuild.ProcessedPlayers
				row.RankingRows = rebuild.RankingRows
			}
		}

		if input.RebuildHistory {
			historyRows, err := services.History.RebuildHistoryProjection(ctx, input.OrganizationID, event.ID)
			if err != nil {
				return fmt.Errorf("rebuild history projection: %w", err)
			}
			row.HistoryRows = historyRows
		}

		if !input.Apply {
			return errDryRunRollback
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRunRollback) {
		row.Error = err.Error()
		s.logger.WarnContext(ctx, "backfill event failed",
			"organization_id", input.OrganizationID,
			"event_id", event.ID,
			"error", err,
		)
	}
	return row
}
