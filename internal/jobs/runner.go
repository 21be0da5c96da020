// Package jobs holds the scheduled maintenance jobs: score recompute, tiebreaker
// rotation and log pruning. They run when the cron endpoints or the CLI call them.
package jobs

import (
	"math/rand/v2"
	"time"

	"github.com/affiliateboard/backend/internal/config"
	"github.com/affiliateboard/backend/internal/metrics"
	"github.com/affiliateboard/backend/internal/repository"
	"github.com/affiliateboard/backend/internal/scoring"
)

// Job names used in logs and metrics
const (
	JobRecompute = "recompute-scores"
	JobRotate    = "rotate-weights"
	JobPrune     = "cleanup"
)

// Runner executes the jobs against the repositories
type Runner struct {
	programs repository.ProgramRepository
	events   repository.EventRepository
	logs     repository.LogRepository
	metrics  *metrics.Metrics

	weights       scoring.Weights
	rollingWindow time.Duration
	cfg           config.JobsConfig

	now    func() time.Time
	random func() float64
}

// NewRunner creates a job runner. m may be nil.
func NewRunner(
	programs repository.ProgramRepository,
	events repository.EventRepository,
	logs repository.LogRepository,
	scoringCfg config.ScoringConfig,
	jobsCfg config.JobsConfig,
	m *metrics.Metrics,
) *Runner {
	if jobsCfg.ChunkSize <= 0 {
		jobsCfg.ChunkSize = 50
	}
	if jobsCfg.Parallelism <= 0 {
		jobsCfg.Parallelism = 10
	}
	if jobsCfg.TrafficLogRetention <= 0 {
		jobsCfg.TrafficLogRetention = 30 * 24 * time.Hour
	}
	if jobsCfg.ProgramEventRetention <= 0 {
		jobsCfg.ProgramEventRetention = 90 * 24 * time.Hour
	}
	if jobsCfg.SearchLogRetention <= 0 {
		jobsCfg.SearchLogRetention = 30 * 24 * time.Hour
	}
	window := scoringCfg.RollingWindow
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}

	return &Runner{
		programs:      programs,
		events:        events,
		logs:          logs,
		metrics:       m,
		weights:       scoring.WeightsFromConfig(scoringCfg),
		rollingWindow: window,
		cfg:           jobsCfg,
		now:           func() time.Time { return time.Now().UTC() },
		random:        rand.Float64,
	}
}
