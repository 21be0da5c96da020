package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/affiliateboard/backend/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RotateResult summarizes a tiebreaker rotation
type RotateResult struct {
	Programs int `json:"programs"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// Rotate assigns every program a new random tiebreaker weight in [0, 1)
func (r *Runner) Rotate(ctx context.Context) (RotateResult, error) {
	start := time.Now()
	var result RotateResult

	err := r.rotate(ctx, &result)
	r.metrics.RecordJob(JobRotate, err, time.Since(start))

	fields := []zap.Field{
		logger.WithJob(JobRotate),
		zap.Int("programs", result.Programs),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	}
	if err != nil {
		logger.Log.Error("Weight rotation stopped", append(fields, zap.Error(err))...)
		return result, err
	}
	logger.Log.Info("Weight rotation completed", fields...)
	return result, nil
}

func (r *Runner) rotate(ctx context.Context, result *RotateResult) error {
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, err := r.programs.IDBatch(ctx, after, r.cfg.ChunkSize)
		if err != nil {
			return fmt.Errorf("failed to load program ids after %q: %w", after, err)
		}
		if len(ids) == 0 {
			return nil
		}

		var updated, failed atomic.Int64
		var g errgroup.Group
		g.SetLimit(r.cfg.Parallelism)
		for _, id := range ids {
			weight := r.random()
			g.Go(func() error {
				if err := r.programs.UpdateRandomWeight(ctx, id, weight); err != nil {
					failed.Add(1)
					logger.Log.Warn("Failed to rotate weight", logger.WithProgramID(id), zap.Error(err))
					return nil
				}
				updated.Add(1)
				return nil
			})
		}
		_ = g.Wait()

		result.Programs += len(ids)
		result.Updated += int(updated.Load())
		result.Failed += int(failed.Load())
		after = ids[len(ids)-1]
	}
}
