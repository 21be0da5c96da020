// Package scoring computes the trending score that orders the public listing.
package scoring

import (
	"math"
	"time"

	"github.com/affiliateboard/backend/internal/config"
)

// Weights are the tunable constants of the score. Negative values are treated as 0.
type Weights struct {
	View             float64
	Click            float64
	Boost            float64
	NewListingBoost  float64
	NewListingWindow time.Duration
}

// DefaultWeights values a click at five views and gives new listings a 25 point boost
// that decays over 14 days.
var DefaultWeights = Weights{
	View:             1,
	Click:            5,
	Boost:            1,
	NewListingBoost:  25,
	NewListingWindow: 14 * 24 * time.Hour,
}

// WeightsFromConfig reads the score weights from configuration.
func WeightsFromConfig(cfg config.ScoringConfig) Weights {
	return Weights{
		View:             cfg.ViewWeight,
		Click:            cfg.ClickWeight,
		Boost:            cfg.BoostWeight,
		NewListingBoost:  cfg.NewListingBoost,
		NewListingWindow: cfg.NewListingWindow,
	}.clamped()
}

func (w Weights) clamped() Weights {
	w.View = math.Max(0, w.View)
	w.Click = math.Max(0, w.Click)
	w.Boost = math.Max(0, w.Boost)
	w.NewListingBoost = math.Max(0, w.NewListingBoost)
	if w.NewListingWindow < 0 {
		w.NewListingWindow = 0
	}
	return w
}

// Input is everything the score depends on.
type Input struct {
	ManualBoost   float64
	RollingViews  int64
	RollingClicks int64
	CreatedAt     time.Time
	Now           time.Time
}

// Score returns the trending score for in. It is pure, never negative, and
// non-decreasing in views, clicks and manual boost.
func Score(in Input, w Weights) float64 {
	w = w.clamped()

	views := float64(max(in.RollingViews, 0))
	clicks := float64(max(in.RollingClicks, 0))

	base := w.View*views + w.Click*clicks + w.Boost*in.ManualBoost
	score := base + newness(in.CreatedAt, in.Now, w)
	if score < 0 || math.IsNaN(score) {
		return 0
	}
	return round4(score)
}

// newness is the new-listing bonus. It decays linearly by whole days of age, so every
// recompute on the same day yields the same value.
func newness(createdAt, now time.Time, w Weights) float64 {
	if w.NewListingWindow <= 0 || createdAt.IsZero() {
		return 0
	}
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	days := math.Floor(age.Hours() / 24)
	window := w.NewListingWindow.Hours() / 24
	if days >= window {
		return 0
	}
	return w.NewListingBoost * (1 - days/window)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
