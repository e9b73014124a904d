package profile

import (
	"math"
	"time"

	"github.com/khanglvm/persona-search/internal/config"
)

// Params holds the scoring knobs.
type Params struct {
	// SessionWindow is the largest gap between two events of one session.
	SessionWindow time.Duration

	// SessionDecay is how recent a session's latest event must be for SessionBoost.
	SessionDecay time.Duration

	SessionBoost     float64
	RecencyDecayDays float64

	QueryWeight float64
	ClickWeight float64

	// RankWeightFloor is the smallest click rank weight.
	RankWeightFloor float64
}

// DefaultParams returns the built-in scoring knobs.
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Profile)
}

// ParamsFromConfig converts the profile config section.
func ParamsFromConfig(c config.ProfileConfig) Params {
	return Params{
		SessionWindow:    minutes(c.SessionWindowMinutes),
		SessionDecay:     minutes(c.SessionDecayMinutes),
		SessionBoost:     c.SessionBoost,
		RecencyDecayDays: c.RecencyDecayDays,
		QueryWeight:      c.QueryWeight,
		ClickWeight:      c.ClickWeight,
		RankWeightFloor:  c.RankWeightFloor,
	}
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

// ageDays is now-t in days. Events stamped in the future count as age zero.
func ageDays(now, t time.Time) float64 {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return d.Hours() / 24
}

// recency is exp(-age/horizon).
func (p Params) recency(days float64) float64 {
	if p.RecencyDecayDays <= 0 {
		return 1
	}
	return math.Exp(-days / p.RecencyDecayDays)
}

// sessionBoost returns SessionBoost when latest is within SessionDecay of now.
func (p Params) sessionBoost(now, latest time.Time) float64 {
	if now.Sub(latest) <= p.SessionDecay {
		return p.SessionBoost
	}
	return 1
}

// repetitionBoost is 1 + 0.5*(count-1) for count > 1, else 1.
func repetitionBoost(count int) float64 {
	if count <= 1 {
		return 1
	}
	return 1 + 0.5*float64(count-1)
}

// RankWeight is max(floor, (11-rank)/10) with rank clamped to at least 1.
func RankWeight(rank int, floor float64) float64 {
	if rank < 1 {
		rank = 1
	}
	return math.Max(floor, float64(11-rank)/10)
}
