package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/match"
	"github.com/matchpoint-labs/padelcore/internal/domain/rating"
	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
	idgen "github.com/matchpoint-labs/padelcore/internal/platform/id"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"
)

// RebuildResult reports what one deterministic replay touched.
type RebuildResult struct {
	ProcessedMatches int
	ProcessedPlayers int
	RankingRows      int
}

// ApplySanctionInput creates one manual sanction. Automatic reason codes
// are reserved for the anti-fraud monitor and rejected here.
type ApplySanctionInput struct {
	OrganizationID  string
	PlayerProfileID string
	Type            rating.SanctionType
	ReasonCode      string
	Reason          string
	ActorUserID     string
	DurationDays    int
}

// RatingService owns the rating ledger: deterministic event replays,
// context-tag backfills, and sanction application. All methods are
// transaction participants.
type RatingService struct {
	ratingProfiles rating.ProfileRepository
	ratingEvents   rating.EventRepository
	sanctions      rating.SanctionRepository
	matches        match.Repository
	events         tournament.EventRepository
	rankings       tournament.RankingRepository
	publisher      EventPublisher
	idGen          idgen.Generator
	logger         *logging.Logger
	now            func() time.Time
}

func NewRatingService(
	deps TxDeps,
	publisher EventPublisher,
	idGen idgen.Generator,
	logger *logging.Logger,
) *RatingService {
	if logger == nil {
		logger = logging.Default()
	}

	return &RatingService{
		ratingProfiles: deps.RatingProfiles,
		ratingEvents:   deps.RatingEvents,
		sanctions:      deps.Sanctions,
		matches:        deps.Matches,
		events:         deps.Events,
		rankings:       deps.Rankings,
		publisher:      publisher,
		idGen:          idGen,
		logger:         logger,
		now:            time.Now,
	}
}

// playerState tracks one player's in-flight numbers during a replay.
type playerState struct {
	profile rating.Profile
}

// Rebuild replays every completed match of an event through the rating
// engine in completion order and overwrites the derived state: ledger
// rows for the event, the touched rating profiles, and the event
// leaderboard. Re-running it recomputes from the match history instead
// of accumulating on top of the previous run.
func (s *RatingService) Rebuild(ctx context.Context, organizationID, eventID, actorUserID string) (RebuildResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RatingService.Rebuild")
	defer span.End()

	organizationID = strings.TrimSpace(organizationID)
	eventID = strings.TrimSpace(eventID)
	if organizationID == "" {
		return RebuildResult{}, fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	if eventID == "" {
		return RebuildResult{}, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	event, found, err := s.events.GetEvent(ctx, organizationID, eventID)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("get event: %w", err)
	}
	if !found {
		return RebuildResult{}, fmt.Errorf("%w: event=%s", ErrNotFound, eventID)
	}

	matches, err := s.matches.ListCompletedByEvent(ctx, organizationID, eventID)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("list completed matches: %w", err)
	}

	states := make(map[string]*playerState)
	if err := s.rewindPriorReplay(ctx, organizationID, eventID, states); err != nil {
		return RebuildResult{}, err
	}

	tierMultiplier := rating.ResolveTierMultiplier(event.Tier)
	processedPlayers := make(map[string]struct{})
	processedMatches := 0
	sequence := 0

	for _, m := range matches {
		stats := match.ResolveStats(m.ScoreSets, m.Score, nil)
		if stats == nil || !m.Playable() {
			continue
		}

		allPlayers := make([]string, 0, len(m.SideAPlayers)+len(m.SideBPlayers))
		allPlayers = append(allPlayers, m.SideAPlayers...)
		allPlayers = append(allPlayers, m.SideBPlayers...)
		for _, playerID := range allPlayers {
			if _, ok := states[playerID]; ok {
				continue
			}
			profile, err := s.ratingProfiles.EnsureProfile(ctx, organizationID, playerID)
			if err != nil {
				return RebuildResult{}, fmt.Errorf("ensure rating profile: %w", err)
			}
			states[playerID] = &playerState{profile: profile}
		}

		sideARating, sideARD := s.sideAverages(states, m.SideAPlayers)
		sideBRating, sideBRD := s.sideAverages(states, m.SideBPlayers)
		scoreA := rating.ScoreFromGames(stats.AGames, stats.BGames)
		scoreB := rating.ScoreFromGames(stats.BGames, stats.AGames)
		occurredAt := m.CompletionTime()

		err = s.applySide(ctx, applySideInput{
			organizationID: organizationID,
			event:          event,
			matchID:        m.ID,
			states:         states,
			sidePlayers:    m.SideAPlayers,
			opponentRating: sideBRating,
			opponentRD:     sideBRD,
			ownAvgRating:   sideARating,
			sideScore:      scoreA,
			gamesFor:       stats.AGames,
			gamesAgainst:   stats.BGames,
			tierMultiplier: tierMultiplier,
			occurredAt:     occurredAt,
			processed:      processedPlayers,
			sequence:       &sequence,
		})
		if err != nil {
			return RebuildResult{}, err
		}
		err = s.applySide(ctx, applySideInput{
			organizationID: organizationID,
			event:          event,
			matchID:        m.ID,
			states:         states,
			sidePlayers:    m.SideBPlayers,
			opponentRating: sideARating,
			opponentRD:     sideARD,
			ownAvgRating:   sideBRating,
			sideScore:      scoreB,
			gamesFor:       stats.BGames,
			gamesAgainst:   stats.AGames,
			tierMultiplier: tierMultiplier,
			occurredAt:     occurredAt,
			processed:      processedPlayers,
			sequence:       &sequence,
		})
		if err != nil {
			return RebuildResult{}, err
		}

		processedMatches++
	}

	if len(states) == 0 {
		return RebuildResult{}, nil
	}

	rankingRows, err := s.persistReplay(ctx, organizationID, eventID, states)
	if err != nil {
		return RebuildResult{}, err
	}

	result := RebuildResult{
		ProcessedMatches: processedMatches,
		ProcessedPlayers: len(processedPlayers),
		RankingRows:      rankingRows,
	}

	s.logger.InfoContext(ctx, "event ratings rebuilt",
		"organization_id", organizationID,
		"event_id", eventID,
		"processed_matches", result.ProcessedMatches,
		"processed_players", result.ProcessedPlayers,
		"ranking_rows", result.RankingRows,
	)
	publishSafe(ctx, s.publisher, DomainEvent{
		OrganizationID: organizationID,
		Type:           "padel.ratings.rebuilt",
		IdempotencyKey: fmt.Sprintf("ratings-rebuilt:%s:%d", eventID, s.now().UTC().UnixNano()),
		SourceType:     "event",
		SourceID:       eventID,
		ActorUserID:    actorUserID,
		Payload: map[string]any{
			"processedMatches": result.ProcessedMatches,
			"processedPlayers": result.ProcessedPlayers,
		},
	})

	return result, nil
}

// rewindPriorReplay deletes the event's existing ledger rows and resets
// each affected profile to the state it had before the first of those
// rows, so the replay starts from clean pre-event state instead of
// compounding on top of the previous run.
func (s *RatingService) rewindPriorReplay(ctx context.Context, organizationID, eventID string, states map[string]*playerState) error {
	existing, err := s.ratingEvents.ListEventsByEvent(ctx, organizationID, eventID)
	if err != nil {
		return fmt.Errorf("list existing rating events: %w", err)
	}
	if len(existing) == 0 {
		return nil
	}

	type prior struct {
		first rating.Event
		count int
	}
	priors := make(map[string]*prior)
	for _, row := range existing {
		p, ok := priors[row.PlayerProfileID]
		if !ok {
			priors[row.PlayerProfileID] = &prior{first: row, count: 1}
			continue
		}
		p.count++
		if row.OccurredAt.Before(p.first.OccurredAt) ||
			(row.OccurredAt.Equal(p.first.OccurredAt) && row.Sequence < p.first.Sequence) {
			p.first = row
		}
	}

	if err := s.ratingEvents.DeleteEventsByEvent(ctx, organizationID, eventID); err != nil {
		return fmt.Errorf("delete existing rating events: %w", err)
	}

	for playerID, p := range priors {
		profile, err := s.ratingProfiles.EnsureProfile(ctx, organizationID, playerID)
		if err != nil {
			return fmt.Errorf("ensure rating profile: %w", err)
		}
		profile.Rating = p.first.PreRating
		profile.RD = p.first.PreRD
		profile.Sigma = p.first.PreSigma
		profile.MatchesPlayed -= p.count
		if profile.MatchesPlayed < 0 {
			profile.MatchesPlayed = 0
		}
		states[playerID] = &playerState{profile: profile}
	}
	return nil
}

type applySideInput struct {
	organizationID string
	event          tournament.Event
	matchID        string
	states         map[string]*playerState
	sidePlayers    []string
	opponentRating float64
	opponentRD     float64
	ownAvgRating   float64
	sideScore      float64
	gamesFor       int
	gamesAgainst   int
	tierMultiplier float64
	occurredAt     time.Time
	processed      map[string]struct{}
	sequence       *int
}

func (s *RatingService) applySide(ctx context.Context, in applySideInput) error {
	for _, playerID := range in.sidePlayers {
		state := in.states[playerID]
		current := state.profile

		partnerAvg := in.ownAvgRating
		if len(in.sidePlayers) > 1 {
			sum := 0.0
			for _, partnerID := range in.sidePlayers {
				if partnerID == playerID {
					continue
				}
				if partner, ok := in.states[partnerID]; ok {
					sum += partner.profile.Rating
				} else {
					sum += in.ownAvgRating
				}
			}
			partnerAvg = sum / float64(len(in.sidePlayers)-1)
		}

		carryMultiplier := rating.ResolveCarryMultiplier(current.Rating, partnerAvg, in.sideScore)
		multiplier := in.tierMultiplier * carryMultiplier

		updated := rating.GlickoUpdate(rating.GlickoInput{
			Rating:         current.Rating,
			RD:             current.RD,
			Sigma:          current.Sigma,
			Tau:            current.Tau,
			OpponentRating: in.opponentRating,
			OpponentRD:     in.opponentRD,
			ActualScore:    in.sideScore,
			Multiplier:     multiplier,
		})

		eventRowID, err := s.idGen.NewID()
		if err != nil {
			return fmt.Errorf("generate rating event id: %w", err)
		}
		*in.sequence++
		err = s.ratingEvents.CreateEvent(ctx, rating.Event{
			ID:                eventRowID,
			OrganizationID:    in.organizationID,
			EventID:           in.event.ID,
			MatchID:           in.matchID,
			PlayerProfileID:   playerID,
			Sequence:          *in.sequence,
			OpponentAvgRating: in.opponentRating,
			PreRating:         current.Rating,
			PreRD:             current.RD,
			PreSigma:          current.Sigma,
			PostRating:        updated.Rating,
			PostRD:            updated.RD,
			PostSigma:         updated.Sigma,
			ExpectedScore:     updated.ExpectedScore,
			ActualScore:       in.sideScore,
			GamesFor:          in.gamesFor,
			GamesAgainst:      in.gamesAgainst,
			TierMultiplier:    in.tierMultiplier,
			CarryMultiplier:   carryMultiplier,
			Tier:              in.event.Tier,
			ClubID:            in.event.ClubID,
			City:              in.event.City,
			OccurredAt:        in.occurredAt,
		})
		if err != nil {
			return fmt.Errorf("create rating event: %w", err)
		}

		occurredAt := in.occurredAt
		state.profile.Rating = updated.Rating
		state.profile.RD = updated.RD
		state.profile.Sigma = updated.Sigma
		state.profile.MatchesPlayed++
		state.profile.LastMatchAt = &occurredAt
		state.profile.LastActivityAt = &occurredAt
		in.processed[playerID] = struct{}{}
	}
	return nil
}

func (s *RatingService) sideAverages(states map[string]*playerState, players []string) (float64, float64) {
	if len(players) == 0 {
		return rating.DefaultRating, rating.DefaultRD
	}
	var ratingSum, rdSum float64
	for _, playerID := range players {
		if state, ok := states[playerID]; ok {
			ratingSum += state.profile.Rating
			rdSum += state.profile.RD
		} else {
			ratingSum += rating.DefaultRating
			rdSum += rating.DefaultRD
		}
	}
	return ratingSum / float64(len(players)), rdSum / float64(len(players))
}

// persistReplay writes the final profile states and swaps the event
// leaderboard. Positions are dense on rounded points; everyone below
// the leader keeps a visual level strictly above 1.
func (s *RatingService) persistReplay(ctx context.Context, organizationID, eventID string, states map[string]*playerState) (int, error) {
	sorted := make([]*playerState, 0, len(states))
	for _, state := range states {
		sorted = append(sorted, state)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].profile.Rating != sorted[j].profile.Rating {
			return sorted[i].profile.Rating > sorted[j].profile.Rating
		}
		return sorted[i].profile.PlayerProfileID < sorted[j].profile.PlayerProfileID
	})
	leaderRating := sorted[0].profile.Rating

	now := s.now().UTC()
	for idx, state := range sorted {
		levelVisual := rating.ComputeVisualLevel(state.profile.Rating, leaderRating)
		if idx > 0 && levelVisual <= 1 {
			levelVisual = 1.01
		}
		state.profile.LevelVisual = levelVisual
		state.profile.LastRebuildAt = &now
		if err := s.ratingProfiles.UpdateProfile(ctx, state.profile); err != nil {
			return 0, fmt.Errorf("update rating profile: %w", err)
		}
	}

	entries := make([]tournament.RankingEntry, 0, len(sorted))
	lastPoints := 0
	lastPosition := 0
	for idx, state := range sorted {
		points := int(state.profile.Rating + 0.5)
		if idx == 0 || points != lastPoints {
			lastPoints = points
			lastPosition = idx + 1
		}
		level := rating.ApplyInactivityToVisual(
			rating.ComputeVisualLevel(state.profile.Rating, leaderRating),
			state.profile.LastActivityAt,
			now,
		)
		if idx > 0 && level <= 1 {
			level = 1.01
		}
		entryID, err := s.idGen.NewID()
		if err != nil {
			return 0, fmt.Errorf("generate ranking entry id: %w", err)
		}
		entries = append(entries, tournament.RankingEntry{
			ID:              entryID,
			OrganizationID:  organizationID,
			EventID:         eventID,
			PlayerProfileID: state.profile.PlayerProfileID,
			Points:          points,
			Position:        lastPosition,
			Level:           level,
			Season:          fmt.Sprintf("%d", now.Year()),
			Year:            now.Year(),
			CreatedAt:       now,
		})
	}

	if err := s.rankings.ReplaceRankingEntries(ctx, organizationID, eventID, entries); err != nil {
		return 0, fmt.Errorf("replace ranking entries: %w", err)
	}
	return len(entries), nil
}

// BackfillContext derives missing tier/club/city tags on the event's
// ledger rows from the event itself and patches only the unset fields.
// Returns the number of rows it changed; a second run changes none.
func (s *RatingService) BackfillContext(ctx context.Context, organizationID, eventID string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RatingService.BackfillContext")
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
	if !found {
		return 0, fmt.Errorf("%w: event=%s", ErrNotFound, eventID)
	}

	rows, err := s.ratingEvents.ListEventsByEvent(ctx, organizationID, eventID)
	if err != nil {
		return 0, fmt.Errorf("list rating events: %w", err)
	}

	patched := 0
	for _, row := range rows {
		if !row.MissingContext() {
			continue
		}
		tier, clubID, city := "", "", ""
		if row.Tier == "" && event.Tier != "" {
			tier = event.Tier
		}
		if row.ClubID == "" && event.ClubID != "" {
			clubID = event.ClubID
		}
		if row.City == "" && event.City != "" {
			city = event.City
		}
		if tier == "" && clubID == "" && city == "" {
			continue
		}
		if err := s.ratingEvents.PatchEventContext(ctx, row.ID, tier, clubID, city); err != nil {
			return 0, fmt.Errorf("patch rating event context: %w", err)
		}
		patched++
	}

	if patched > 0 {
		s.logger.InfoContext(ctx, "rating event context backfilled",
			"organization_id", organizationID,
			"event_id", eventID,
			"rows", patched,
		)
	}
	return patched, nil
}

// ApplySanction records one manual sanction and applies its side effect
// to the player's rating profile.
func (s *RatingService) ApplySanction(ctx context.Context, input ApplySanctionInput) (rating.Sanction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RatingService.ApplySanction")
	defer span.End()

	if strings.HasPrefix(strings.TrimSpace(input.ReasonCode), rating.AutoReasonPrefix) {
		return rating.Sanction{}, fmt.Errorf("%w: reason codes with prefix %q are reserved for automatic sanctions", ErrInvalidInput, rating.AutoReasonPrefix)
	}
	return s.applySanction(ctx, input)
}

func (s *RatingService) applySanction(ctx context.Context, input ApplySanctionInput) (rating.Sanction, error) {
	input.OrganizationID = strings.TrimSpace(input.OrganizationID)
	input.PlayerProfileID = strings.TrimSpace(input.PlayerProfileID)
	if input.OrganizationID == "" {
		return rating.Sanction{}, fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	if input.PlayerProfileID == "" {
		return rating.Sanction{}, fmt.Errorf("%w: player profile id is required", ErrInvalidInput)
	}
	if _, ok := rating.AllSanctionTypes[input.Type]; !ok {
		return rating.Sanction{}, fmt.Errorf("%w: invalid sanction type: %s", ErrInvalidInput, input.Type)
	}

	now := s.now().UTC()
	var endsAt *time.Time
	if input.DurationDays > 0 {
		t := now.Add(time.Duration(input.DurationDays) * 24 * time.Hour)
		endsAt = &t
	}

	sanctionID, err := s.idGen.NewID()
	if err != nil {
		return rating.Sanction{}, fmt.Errorf("generate sanction id: %w", err)
	}
	sanction := rating.Sanction{
		ID:              sanctionID,
		OrganizationID:  input.OrganizationID,
		PlayerProfileID: input.PlayerProfileID,
		Type:            input.Type,
		Status:          rating.SanctionActive,
		ReasonCode:      strings.TrimSpace(input.ReasonCode),
		Reason:          strings.TrimSpace(input.Reason),
		StartsAt:        now,
		EndsAt:          endsAt,
		CreatedByUserID: input.ActorUserID,
	}
	if err := sanction.Validate(); err != nil {
		return rating.Sanction{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.sanctions.CreateSanction(ctx, sanction); err != nil {
		return rating.Sanction{}, fmt.Errorf("create sanction: %w", err)
	}

	profile, err := s.ratingProfiles.EnsureProfile(ctx, input.OrganizationID, input.PlayerProfileID)
	if err != nil {
		return rating.Sanction{}, fmt.Errorf("ensure rating profile: %w", err)
	}
	switch input.Type {
	case rating.SanctionSuspension:
		profile.SuspensionEndsAt = endsAt
	case rating.SanctionBlockNewMatches:
		profile.BlockedNewMatches = true
	case rating.SanctionResetPartial:
		profile.Rating = profile.Rating - 250
		if profile.Rating < rating.MinRating {
			profile.Rating = rating.MinRating
		}
		profile.RD = profile.RD + 25
		if profile.RD > rating.MaxRD {
			profile.RD = rating.MaxRD
		}
		profile.LastActivityAt = &now
	}
	if err := s.ratingProfiles.UpdateProfile(ctx, profile); err != nil {
		return rating.Sanction{}, fmt.Errorf("update rating profile: %w", err)
	}

	s.logger.InfoContext(ctx, "rating sanction applied",
		"organization_id", input.OrganizationID,
		"player_profile_id", input.PlayerProfileID,
		"sanction_type", string(input.Type),
		"reason_code", sanction.ReasonCode,
	)
	publishSafe(ctx, s.publisher, DomainEvent{
		OrganizationID: input.OrganizationID,
		Type:           "padel.sanction.applied",
		IdempotencyKey: fmt.Sprintf("sanction-applied:%s", sanctionID),
		SourceType:     "rating_sanction",
		SourceID:       sanctionID,
		ActorUserID:    input.ActorUserID,
		Payload: map[string]any{
			"playerProfileId": input.PlayerProfileID,
			"sanctionType":    string(input.Type),
			"reasonCode":      sanction.ReasonCode,
		},
	})

	return sanction, nil
}
