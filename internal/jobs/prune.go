package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/affiliateboard/backend/internal/logger"
	"go.uber.org/zap"
)

// PruneResult counts the rows removed by the nightly cleanup
type PruneResult struct {
	TrafficLogs     int64 `json:"traffic_logs"`
	ProgramEvents   int64 `json:"program_events"`
	SearchLogs      int64 `json:"search_logs"`
	ExpiredFeatures int64 `json:"expired_features"`
}

// Prune deletes traffic logs, program events and search logs older than their
// retention windows, and clears lapsed feature flags. Counts reflect what was done
// before any error.
func (r *Runner) Prune(ctx context.Context) (PruneResult, error) {
	start := time.Now()
	now := r.now()
	var result PruneResult

	err := r.prune(ctx, now, &result)
	r.metrics.RecordJob(JobPrune, err, time.Since(start))
	r.metrics.RecordPruned("traffic_logs", result.TrafficLogs)
	r.metrics.RecordPruned("program_events", result.ProgramEvents)
	r.metrics.RecordPruned("search_logs", result.SearchLogs)

	fields := []zap.Field{
		logger.WithJob(JobPrune),
		zap.Int64("traffic_logs", result.TrafficLogs),
		zap.Int64("program_events", result.ProgramEvents),
		zap.Int64("search_logs", result.SearchLogs),
		zap.Int64("expired_features", result.ExpiredFeatures),
	}
	if err != nil {
		logger.Log.Error("Cleanup stopped", append(fields, zap.Error(err))...)
		return result, err
	}
	logger.Log.Info("Cleanup completed", fields...)
	return result, nil
}

func (r *Runner) prune(ctx context.Context, now time.Time, result *PruneResult) error {
	var err error

	result.TrafficLogs, err = r.logs.DeleteTrafficBefore(ctx, now.Add(-r.cfg.TrafficLogRetention))
	if err != nil {
		return fmt.Errorf("failed to prune traffic logs: %w", err)
	}
	result.ProgramEvents, err = r.events.DeleteBefore(ctx, now.Add(-r.cfg.ProgramEventRetention))
	if err != nil {
		return fmt.Errorf("failed to prune program events: %w", err)
	}
	result.SearchLogs, err = r.logs.DeleteSearchesBefore(ctx, now.Add(-r.cfg.SearchLogRetention))
	if err != nil {
		return fmt.Errorf("failed to prune search logs: %w", err)
	}
	result.ExpiredFeatures, err = r.programs.ClearExpiredFeatures(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to clear expired features: %w", err)
	}
	return nil
}
