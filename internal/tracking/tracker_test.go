package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/affiliateboard/backend/internal/database/dbtest"
	"github.com/affiliateboard/backend/internal/metrics"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/repository"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingLogs is a LogRepository whose writes always fail
type failingLogs struct {
	repository.LogRepository
	calls int
}

func (f *failingLogs) CreateTrafficLog(ctx context.Context, entry *models.TrafficLog) error {
	f.calls++
	return errors.New("traffic store down")
}

func (f *failingLogs) CreateSearchLog(ctx context.Context, entry *models.SearchLog) error {
	f.calls++
	return errors.New("search store down")
}

func setup(t *testing.T) (*Tracker, repository.ProgramRepository, *models.Program) {
	t.Helper()
	db := dbtest.New(t)
	programs := repository.NewProgramRepository(db)
	p := &models.Program{Name: "tracked", Category: "SaaS", WebsiteURL: "https://t.example.com", AffiliateURL: "https://t.example.com/a"}
	require.NoError(t, programs.Create(context.Background(), p))

	tracker := NewTracker(repository.NewEventRepository(db), repository.NewLogRepository(db), metrics.New())
	return tracker, programs, p
}

func TestRecordViewDedupesWithinDay(t *testing.T) {
	tracker, programs, p := setup(t)
	ctx := context.Background()
	visit := Visit{Path: "/p/tracked", VisitorID: "v1"}

	res, err := tracker.RecordView(ctx, p.ID, visit)
	require.NoError(t, err)
	assert.True(t, res.Recorded)

	res, err = tracker.RecordView(ctx, p.ID, visit)
	require.NoError(t, err)
	assert.False(t, res.Recorded)

	tracker.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	res, err = tracker.RecordView(ctx, p.ID, visit)
	require.NoError(t, err)
	assert.True(t, res.Recorded)

	fresh, err := programs.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.TotalViews)

	assert.Equal(t, 2.0, testutil.ToFloat64(tracker.metrics.EventsTotal.WithLabelValues(models.EventTypeView, "recorded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tracker.metrics.EventsTotal.WithLabelValues(models.EventTypeView, "duplicate")))
}

func TestTrafficLogFailureDoesNotBlockEvent(t *testing.T) {
	tracker, programs, p := setup(t)
	logs := &failingLogs{}
	tracker.logs = logs
	ctx := context.Background()

	res, err := tracker.RecordClick(ctx, p.ID, Visit{VisitorID: "v1"})
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.Equal(t, 1, logs.calls)

	fresh, err := programs.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.Clicks)
	assert.Equal(t, 1.0, testutil.ToFloat64(tracker.metrics.TrafficLogErrors))

	assert.NotPanics(t, func() {
		tracker.RecordPageview(ctx, Visit{Path: "/"})
		tracker.RecordSearch(ctx, "Email Tools", 3, "v1")
	})
	assert.Equal(t, 3, logs.calls)
}

func TestRecordUnknownProgram(t *testing.T) {
	tracker, _, _ := setup(t)
	_, err := tracker.RecordClick(context.Background(), "missing", Visit{VisitorID: "v1"})
	assert.ErrorIs(t, err, repository.ErrProgramNotFound)
}

func TestRecordSearchSkipsBlankQueries(t *testing.T) {
	tracker, _, _ := setup(t)
	logs := &failingLogs{}
	tracker.logs = logs

	tracker.RecordSearch(context.Background(), "   ", 0, "v1")
	assert.Zero(t, logs.calls)
}
