package rating

import (
	"math"
	"time"
)

const (
	glickoScale = 173.7178

	DefaultRating = 1200.0
	DefaultRD     = 350.0
	DefaultSigma  = 0.06
	DefaultTau    = 0.5

	MinRating = 100.0
	MaxRating = 4000.0
	MinRD     = 30.0
	MaxRD     = 350.0
	MinSigma  = 0.01
	MaxSigma  = 1.0

	minMultiplier = 0.4
	maxMultiplier = 2.4
)

var glickoQ = math.Ln10 / 400

// Tier multipliers scale how strongly a match moves ratings. Keys cover
// both the Portuguese and English tier names that appear in event data.
var tierMultipliers = map[string]float64{
	"SOCIAL":   0.5,
	"AMIGAVEL": 1,
	"FRIENDLY": 1,
	"BRONZE":   1.3,
	"PRATA":    1.3,
	"SILVER":   1.3,
	"OURO":     2,
	"GOLD":     2,
	"MAJOR":    2,
}

const defaultTierMultiplier = 1.3

// ResolveTierMultiplier maps a raw tier label to its rating multiplier.
// Unknown and empty tiers use the mid-table default.
func ResolveTierMultiplier(rawTier string) float64 {
	key := normalizeTier(rawTier)
	if key == "" {
		return defaultTierMultiplier
	}
	if m, ok := tierMultipliers[key]; ok {
		return m
	}
	return defaultTierMultiplier
}

func normalizeTier(raw string) string {
	out := make([]rune, 0, len(raw))
	for _, r := range raw {
		switch {
		case r == ' ' || r == '\t':
			continue
		case r >= 'a' && r <= 'z':
			out = append(out, r-'a'+'A')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// ResolveCarryMultiplier dampens gains for a heavy favorite and amplifies
// them for an underdog, based on the gap to the partner's rating.
func ResolveCarryMultiplier(playerRating, partnerRating, actualScore float64) float64 {
	diff := playerRating - partnerRating
	if math.IsNaN(diff) || math.IsInf(diff, 0) {
		return 1
	}
	won := actualScore >= 0.5
	switch {
	case diff >= 400:
		if won {
			return 0.84
		}
		return 1.18
	case diff >= 200:
		if won {
			return 0.9
		}
		return 1.1
	case diff <= -400:
		if won {
			return 1.18
		}
		return 0.84
	case diff <= -200:
		if won {
			return 1.1
		}
		return 0.9
	}
	return 1
}

// ScoreFromGames turns a games tally into an actual-score fraction in
// [0, 1]. A match with no games counts as a draw.
func ScoreFromGames(gamesFor, gamesAgainst int) float64 {
	total := gamesFor + gamesAgainst
	if total <= 0 {
		return 0.5
	}
	return clamp(float64(gamesFor)/float64(total), 0, 1)
}

// ComputeVisualLevel projects a rating onto the 1..6 display scale used
// by club leaderboards, where the event leader sits at 1.
func ComputeVisualLevel(playerRating, leaderRating float64) float64 {
	if math.IsNaN(playerRating) || playerRating <= 0 {
		return 6
	}
	if math.IsNaN(leaderRating) || leaderRating <= 0 {
		return 5
	}
	if playerRating >= leaderRating {
		return 1
	}

	abs := 5 - math.Log(playerRating/DefaultRating)*2.2
	gap := math.Max(0, leaderRating-playerRating)
	pull := math.Log1p(gap/400) * 0.4
	return clamp(round2(abs+pull), 1, 6)
}

// ApplyInactivityToVisual drifts a visual level downward on the display
// scale by 0.02 per week of inactivity past a 30-day grace period.
func ApplyInactivityToVisual(level float64, lastActivityAt *time.Time, now time.Time) float64 {
	if lastActivityAt == nil {
		return level
	}
	elapsed := now.Sub(*lastActivityAt)
	grace := 30 * 24 * time.Hour
	if elapsed <= grace {
		return level
	}
	weeks := float64(elapsed-grace) / float64(7*24*time.Hour)
	drift := clamp(weeks*0.02, 0, 1)
	return clamp(round2(level+drift), 1, 6)
}

// GlickoInput feeds one player-versus-opponent update. Multiplier scales
// the rating delta only; deviation and volatility follow the plain
// Glicko-2 update.
type GlickoInput struct {
	Rating         float64
	RD             float64
	Sigma          float64
	Tau            float64
	OpponentRating float64
	OpponentRD     float64
	ActualScore    float64
	Multiplier     float64
}

type GlickoResult struct {
	ExpectedScore float64
	Rating        float64
	RD            float64
	Sigma         float64
}

// GlickoUpdate runs a single-opponent Glicko-2 rating period and applies
// the clamps the ledger stores.
func GlickoUpdate(in GlickoInput) GlickoResult {
	multiplier := in.Multiplier
	if multiplier == 0 {
		multiplier = 1
	}

	mu := (in.Rating - 1500) / glickoScale
	phi := in.RD / glickoScale
	muJ := (in.OpponentRating - 1500) / glickoScale
	phiJ := in.OpponentRD / glickoScale

	gPhi := g(phiJ)
	e := expectedScore(mu, muJ, phiJ)

	v := 1 / (glickoQ * glickoQ * gPhi * gPhi * e * (1 - e))
	delta := v * glickoQ * gPhi * (in.ActualScore - e)

	sigmaPrime := updateSigma(phi, in.Sigma, delta, v, in.Tau)
	phiStar := math.Sqrt(phi*phi + sigmaPrime*sigmaPrime)
	phiPrime := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muPrime := mu + phiPrime*phiPrime*glickoQ*gPhi*(in.ActualScore-e)

	ratingPrimeRaw := glickoScale*muPrime + 1500
	rdPrime := clamp(glickoScale*phiPrime, MinRD, MaxRD)

	scaled := in.Rating + (ratingPrimeRaw-in.Rating)*clamp(multiplier, minMultiplier, maxMultiplier)

	return GlickoResult{
		ExpectedScore: e,
		Rating:        clamp(scaled, MinRating, MaxRating),
		RD:            rdPrime,
		Sigma:         clamp(sigmaPrime, MinSigma, MaxSigma),
	}
}

func g(phi float64) float64 {
	return 1 / math.Sqrt(1+(3*glickoQ*glickoQ*phi*phi)/(math.Pi*math.Pi))
}

func expectedScore(mu, muJ, phiJ float64) float64 {
	return 1 / (1 + math.Exp(-g(phiJ)*(mu-muJ)))
}

// updateSigma solves for the new volatility with the Illinois variant of
// regula falsi, as in the Glicko-2 reference description.
func updateSigma(phi, sigma, delta, v, tau float64) float64 {
	a := math.Log(sigma * sigma)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (delta*delta - phi*phi - v - ex)
		den := 2 * math.Pow(phi*phi+v+ex, 2)
		return num/den - (x-a)/(tau*tau)
	}

	bigA := a
	var bigB float64
	if delta*delta > phi*phi+v {
		bigB = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 {
			k++
		}
		bigB = a - k*tau
	}

	fA := f(bigA)
	fB := f(bigB)

	for math.Abs(bigB-bigA) > 1e-6 {
		c := bigA + (bigA-bigB)*fA/(fB-fA)
		fC := f(c)
		if fC*fB < 0 {
			bigA = bigB
			fA = fB
		} else {
			fA /= 2
		}
		bigB = c
		fB = fC
	}

	return math.Exp(bigA / 2)
}

func clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
