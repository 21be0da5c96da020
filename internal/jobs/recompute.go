package jobs

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/scoring"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecomputeResult summarizes a recompute run
type RecomputeResult struct {
	Programs   int           `json:"programs"`
	Updated    int           `json:"updated"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// Recompute rewrites every program's trending score from the rolling event counts.
// Programs are walked by id in chunks; updates inside a chunk run concurrently up to
// the configured parallelism. A failed update is counted and left stale.
func (r *Runner) Recompute(ctx context.Context) (RecomputeResult, error) {
	start := time.Now()
	now := r.now()
	var result RecomputeResult

	err := r.recompute(ctx, now, &result)
	result.Duration = time.Since(start)
	result.DurationMS = result.Duration.Milliseconds()
	r.metrics.RecordJob(JobRecompute, err, result.Duration)
	r.metrics.RecordScored(result.Updated, result.Failed)

	fields := []zap.Field{
		logger.WithJob(JobRecompute),
		zap.Int("programs", result.Programs),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
		zap.Duration("took", result.Duration),
	}
	if err != nil {
		logger.Log.Error("Score recompute stopped", append(fields, zap.Error(err))...)
		return result, err
	}
	logger.Log.Info("Score recompute completed", fields...)
	return result, nil
}

func (r *Runner) recompute(ctx context.Context, now time.Time, result *RecomputeResult) error {
	since := windowStart(now, r.rollingWindow)
	counts, err := r.events.RollingCounts(ctx, since)
	if err != nil {
		return err
	}

	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, err := r.programs.ScoreBatch(ctx, after, r.cfg.ChunkSize)
		if err != nil {
			return fmt.Errorf("failed to load programs after %q: %w", after, err)
		}
		if len(rows) == 0 {
			return nil
		}

		var updated, failed atomic.Int64
		var g errgroup.Group
		g.SetLimit(r.cfg.Parallelism)
		for _, row := range rows {
			c := counts[row.ID]
			score := scoring.Score(scoring.Input{
				ManualBoost:   row.ManualScoreBoost,
				RollingViews:  c.Views,
				RollingClicks: c.Clicks,
				CreatedAt:     row.CreatedAt,
				Now:           now,
			}, r.weights)

			id := row.ID
			g.Go(func() error {
				if err := r.programs.UpdateScore(ctx, id, score); err != nil {
					failed.Add(1)
					logger.Log.Warn("Failed to update score", logger.WithProgramID(id), zap.Error(err))
					return nil
				}
				updated.Add(1)
				return nil
			})
		}
		_ = g.Wait()

		result.Programs += len(rows)
		result.Updated += int(updated.Load())
		result.Failed += int(failed.Load())
		after = rows[len(rows)-1].ID
	}
}

// windowStart is the first day bucket of the rolling window ending today. A window
// of N days covers today and the N-1 days before it.
func windowStart(now time.Time, window time.Duration) string {
	days := int(math.Ceil(window.Hours() / 24))
	if days < 1 {
		days = 1
	}
	return models.DateKey(now.UTC().AddDate(0, 0, -(days - 1)))
}
