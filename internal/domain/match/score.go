package match

import (
	"math"
	"time"
)

type ScoreMode string

const (
	ModeSets       ScoreMode = "SETS"
	ModeTimedGames ScoreMode = "TIMED_GAMES"
)

type ResultType string

const (
	ResultNormal     ResultType = "NORMAL"
	ResultWalkover   ResultType = "WALKOVER"
	ResultRetirement ResultType = "RETIREMENT"
	ResultInjury     ResultType = "INJURY"
	ResultByeNeutral ResultType = "BYE_NEUTRAL"
)

// SetScore is one set's games tally.
type SetScore struct {
	TeamA int `json:"teamA"`
	TeamB int `json:"teamB"`
}

// Stats is the interpreted outcome of a match. Winner is "A", "B", or
// empty for a draw.
type Stats struct {
	Mode          ScoreMode
	Sets          []SetScore
	ASets         int
	BSets         int
	AGames        int
	BGames        int
	Winner        string
	IsDraw        bool
	ResultType    ResultType
	EndedAt       *time.Time
	EndedByBuzzer bool
}

// Rules describes how a tournament scores its matches. TieBreakAt of -1
// means no tie break (sets are played out on games difference).
type Rules struct {
	ScoreMode              ScoreMode
	SetsToWin              int
	MaxSets                int
	GamesToWinSet          int
	TieBreakAt             int
	TieBreakTo             int
	AllowSuperTieBreak     bool
	SuperTieBreakTo        int
	SuperTieBreakWinBy     int
	SuperTieBreakOnlyFinal bool
	AllowExtendedGames     bool
	AllowTimedDraw         bool
}

const noTieBreak = -1

func DefaultRules() Rules {
	return Rules{
		ScoreMode:              ModeSets,
		SetsToWin:              2,
		MaxSets:                3,
		GamesToWinSet:          6,
		TieBreakAt:             6,
		TieBreakTo:             7,
		AllowSuperTieBreak:     true,
		SuperTieBreakTo:        10,
		SuperTieBreakWinBy:     2,
		SuperTieBreakOnlyFinal: true,
		AllowExtendedGames:     false,
		AllowTimedDraw:         true,
	}
}

const walkoverSetGames = 6

// BuildWalkoverSets synthesizes a straight-sets result for walkovers,
// retirements and injuries, so the rating engine sees a full scoreline.
func BuildWalkoverSets(winner string, rules Rules) []SetScore {
	count := rules.SetsToWin
	if count < 1 {
		count = 1
	}
	sets := make([]SetScore, count)
	for i := range sets {
		if winner == "A" {
			sets[i] = SetScore{TeamA: walkoverSetGames, TeamB: 0}
		} else {
			sets[i] = SetScore{TeamA: 0, TeamB: walkoverSetGames}
		}
	}
	return sets
}

func isValidRegularSet(set SetScore, rules Rules) bool {
	winnerGames := max(set.TeamA, set.TeamB)
	loserGames := min(set.TeamA, set.TeamB)
	diff := winnerGames - loserGames
	if winnerGames < rules.GamesToWinSet {
		return false
	}
	if winnerGames == rules.GamesToWinSet {
		return diff >= 2
	}
	if winnerGames == rules.GamesToWinSet+1 && diff >= 2 {
		return true
	}
	if rules.TieBreakAt != noTieBreak && winnerGames == rules.TieBreakTo && loserGames == rules.TieBreakAt {
		return true
	}
	if rules.AllowExtendedGames || rules.TieBreakAt == noTieBreak {
		return diff >= 2 && winnerGames >= rules.GamesToWinSet
	}
	return false
}

func isValidSuperTieBreakSet(set SetScore, rules Rules) bool {
	winnerGames := max(set.TeamA, set.TeamB)
	loserGames := min(set.TeamA, set.TeamB)
	if winnerGames < rules.SuperTieBreakTo {
		return false
	}
	return winnerGames-loserGames >= rules.SuperTieBreakWinBy
}

// ComputeSetStats validates a set-by-set scoreline against the rules and
// returns nil when it does not describe a finished match.
func ComputeSetStats(sets []SetScore, rules *Rules) *Stats {
	valid := make([]SetScore, 0, len(sets))
	for _, set := range sets {
		if set.TeamA < 0 || set.TeamB < 0 {
			continue
		}
		valid = append(valid, set)
	}
	if len(valid) == 0 {
		return nil
	}
	if rules != nil && len(valid) > rules.MaxSets {
		return nil
	}

	var aSets, bSets, aGames, bGames int
	for idx, set := range valid {
		if set.TeamA == set.TeamB {
			return nil
		}
		if rules != nil {
			isLast := idx == len(valid)-1
			canUseSuper := rules.AllowSuperTieBreak && isLast && (!rules.SuperTieBreakOnlyFinal || aSets == bSets)
			validSuper := canUseSuper && isValidSuperTieBreakSet(set, *rules)
			if !validSuper && !isValidRegularSet(set, *rules) {
				return nil
			}
		}
		aGames += set.TeamA
		bGames += set.TeamB
		if set.TeamA > set.TeamB {
			aSets++
		} else {
			bSets++
		}
		if rules != nil && (aSets == rules.SetsToWin || bSets == rules.SetsToWin) && idx < len(valid)-1 {
			return nil
		}
	}
	if aSets == bSets {
		return nil
	}
	if rules != nil && aSets != rules.SetsToWin && bSets != rules.SetsToWin {
		return nil
	}

	winner := "A"
	if bSets > aSets {
		winner = "B"
	}
	return &Stats{
		Mode:       ModeSets,
		Sets:       valid,
		ASets:      aSets,
		BSets:      bSets,
		AGames:     aGames,
		BGames:     bGames,
		Winner:     winner,
		ResultType: ResultNormal,
	}
}

func computeTimedGamesStats(score map[string]any, rules *Rules) *Stats {
	timed, _ := score["timedGames"].(map[string]any)

	gamesA, okA := payloadInt(score["gamesA"])
	if !okA && timed != nil {
		gamesA, okA = payloadInt(timed["gamesA"])
	}
	gamesB, okB := payloadInt(score["gamesB"])
	if !okB && timed != nil {
		gamesB, okB = payloadInt(timed["gamesB"])
	}
	if !okA || !okB || gamesA < 0 || gamesB < 0 {
		return nil
	}

	allowDraw := true
	if rules != nil {
		allowDraw = rules.AllowTimedDraw
	}
	if v, ok := score["allowDraw"].(bool); ok {
		allowDraw = v
	}
	endedByBuzzer := score["endedByBuzzer"] == true

	endedAt := payloadTime(score["endedAt"])
	if endedAt == nil && timed != nil {
		endedAt = payloadTime(timed["endedAt"])
	}

	if !allowDraw && gamesA == gamesB {
		return nil
	}
	winner := ""
	if gamesA > gamesB {
		winner = "A"
	} else if gamesB > gamesA {
		winner = "B"
	}

	return &Stats{
		Mode:          ModeTimedGames,
		Sets:          []SetScore{},
		AGames:        gamesA,
		BGames:        gamesB,
		Winner:        winner,
		IsDraw:        winner == "",
		ResultType:    ResultNormal,
		EndedAt:       endedAt,
		EndedByBuzzer: endedByBuzzer,
	}
}

// ResolveStats interprets a match result from the stored set list and the
// semi-structured score payload. The payload wins over the set list for
// timed matches, byes, and walkover synthesis; nil means the match has no
// usable outcome and is skipped by the rating engine.
func ResolveStats(scoreSets []SetScore, score map[string]any, rules *Rules) *Stats {
	if score != nil {
		if rt, _ := score["resultType"].(string); rt == string(ResultByeNeutral) {
			return &Stats{
				Mode:       ModeTimedGames,
				Sets:       []SetScore{},
				IsDraw:     true,
				ResultType: ResultByeNeutral,
				EndedAt:    payloadTime(score["endedAt"]),
			}
		}
	}

	mode := ModeSets
	if raw, _ := score["mode"].(string); normalizeMode(raw) == ModeTimedGames {
		mode = ModeTimedGames
	} else if rules != nil && rules.ScoreMode == ModeTimedGames {
		mode = ModeTimedGames
	}

	if mode == ModeTimedGames && score != nil {
		if timed := computeTimedGamesStats(score, rules); timed != nil {
			return timed
		}
	}

	sets := scoreSets
	if len(sets) == 0 && score != nil {
		sets = payloadSets(score["sets"])
	}
	if stats := ComputeSetStats(sets, rules); stats != nil {
		return stats
	}

	if score == nil {
		return nil
	}
	resultType, _ := score["resultType"].(string)
	isWalkover := score["walkover"] == true ||
		resultType == string(ResultWalkover) ||
		resultType == string(ResultRetirement) ||
		resultType == string(ResultInjury)
	if !isWalkover {
		return nil
	}
	winnerSide, _ := score["winnerSide"].(string)
	if winnerSide != "A" && winnerSide != "B" {
		return nil
	}
	effectiveRules := DefaultRules()
	if rules != nil {
		effectiveRules = *rules
	}
	stats := ComputeSetStats(BuildWalkoverSets(winnerSide, effectiveRules), rules)
	if stats == nil {
		return nil
	}
	switch resultType {
	case string(ResultRetirement):
		stats.ResultType = ResultRetirement
	case string(ResultInjury):
		stats.ResultType = ResultInjury
	default:
		stats.ResultType = ResultWalkover
	}
	return stats
}

// WinnerFromSets decides a winner from raw sets alone, for callers that
// do not track rules.
func WinnerFromSets(sets []SetScore) string {
	stats := ComputeSetStats(sets, nil)
	if stats == nil || stats.IsDraw {
		return ""
	}
	return stats.Winner
}

func normalizeMode(raw string) ScoreMode {
	if trimUpper(raw) == string(ModeTimedGames) {
		return ModeTimedGames
	}
	return ModeSets
}

func trimUpper(raw string) string {
	out := make([]rune, 0, len(raw))
	for _, r := range raw {
		if r == ' ' || r == '\t' {
			continue
		}
		if r >= 'a' && r <= 'z' {
			r = r - 'a' + 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

// payloadInt reads a JSON number or numeric string as a non-negative int.
func payloadInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		n := int(math.Floor(v))
		if n < 0 {
			return 0, false
		}
		return n, true
	case int:
		if v < 0 {
			return 0, false
		}
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return int(v), true
	case string:
		n := 0
		if v == "" {
			return 0, false
		}
		for _, r := range v {
			if r < '0' || r > '9' {
				return 0, false
			}
			n = n*10 + int(r-'0')
		}
		return n, true
	default:
		return 0, false
	}
}

func payloadTime(raw any) *time.Time {
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &parsed
}

func payloadSets(raw any) []SetScore {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]SetScore, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		teamA, okA := payloadInt(obj["teamA"])
		teamB, okB := payloadInt(obj["teamB"])
		if !okA || !okB {
			continue
		}
		out = append(out, SetScore{TeamA: teamA, TeamB: teamB})
	}
	return out
}
