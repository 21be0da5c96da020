package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/affiliateboard/backend/internal/config"
	"github.com/affiliateboard/backend/internal/database/dbtest"
	"github.com/affiliateboard/backend/internal/metrics"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

var testScoring = config.ScoringConfig{
	ViewWeight:       1,
	ClickWeight:      5,
	BoostWeight:      1,
	NewListingBoost:  25,
	NewListingWindow: 14 * 24 * time.Hour,
	RollingWindow:    7 * 24 * time.Hour,
}

// JobsTestSuite runs the jobs against in-memory SQLite
type JobsTestSuite struct {
	suite.Suite
	db       *gorm.DB
	programs repository.ProgramRepository
	events   repository.EventRepository
	logs     repository.LogRepository
	runner   *Runner
	now      time.Time
	ctx      context.Context
}

func TestJobsSuite(t *testing.T) {
	suite.Run(t, new(JobsTestSuite))
}

func (s *JobsTestSuite) SetupTest() {
	s.db = dbtest.New(s.T())
	s.programs = repository.NewProgramRepository(s.db)
	s.events = repository.NewEventRepository(s.db)
	s.logs = repository.NewLogRepository(s.db)
	s.now = time.Now().UTC()
	s.ctx = context.Background()

	s.runner = NewRunner(s.programs, s.events, s.logs, testScoring, config.JobsConfig{ChunkSize: 2, Parallelism: 2}, metrics.New())
	s.runner.now = func() time.Time { return s.now }
}

func (s *JobsTestSuite) program(name string, boost float64, age time.Duration) *models.Program {
	p := &models.Program{
		Name:             name,
		Category:         "SaaS",
		WebsiteURL:       "https://" + name + ".example.com",
		AffiliateURL:     "https://" + name + ".example.com/a",
		ManualScoreBoost: boost,
		CreatedAt:        s.now.Add(-age),
	}
	s.Require().NoError(s.programs.Create(s.ctx, p))
	return p
}

func (s *JobsTestSuite) addEvents(programID, eventType string, n int, day time.Time) {
	rows := make([]models.ProgramEvent, n)
	for i := range rows {
		rows[i] = models.ProgramEvent{
			ProgramID: programID,
			Type:      eventType,
			VisitorID: fmt.Sprintf("%s-%s-%d", eventType, day.Format("20060102"), i),
			DateKey:   models.DateKey(day),
			CreatedAt: day,
		}
	}
	s.Require().NoError(s.db.Create(&rows).Error)
}

func (s *JobsTestSuite) score(id string) float64 {
	p, err := s.programs.GetByID(s.ctx, id)
	s.Require().NoError(err)
	return p.TrendingScore
}

func (s *JobsTestSuite) TestRecomputeClicksRaiseScore() {
	old := 60 * 24 * time.Hour
	p := s.program("steady", 0, old)
	s.addEvents(p.ID, models.EventTypeView, 100, s.now)
	s.addEvents(p.ID, models.EventTypeClick, 5, s.now)

	_, err := s.runner.Recompute(s.ctx)
	s.Require().NoError(err)
	s1 := s.score(p.ID)
	s.Equal(125.0, s1)

	s.addEvents(p.ID, models.EventTypeClick, 15, s.now.Add(-24*time.Hour))
	_, err = s.runner.Recompute(s.ctx)
	s.Require().NoError(err)
	s2 := s.score(p.ID)
	s.Equal(200.0, s2)
	s.Greater(s2, s1)
}

func (s *JobsTestSuite) TestRecomputeIsIdempotent() {
	a := s.program("a", 3, time.Hour)
	b := s.program("b", 0, 3*24*time.Hour)
	c := s.program("c", 10, 40*24*time.Hour)
	s.addEvents(a.ID, models.EventTypeView, 4, s.now)
	s.addEvents(b.ID, models.EventTypeClick, 2, s.now)

	first, err := s.runner.Recompute(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, first.Programs)
	s.Equal(3, first.Updated)
	s.Zero(first.Failed)
	scores := map[string]float64{a.ID: s.score(a.ID), b.ID: s.score(b.ID), c.ID: s.score(c.ID)}

	s.now = s.now.Add(time.Minute)
	_, err = s.runner.Recompute(s.ctx)
	s.Require().NoError(err)
	for id, want := range scores {
		s.Equal(want, s.score(id))
	}
	s.Equal(10.0, scores[c.ID])
}

func (s *JobsTestSuite) TestRecomputeIgnoresEventsOutsideWindow() {
	p := s.program("window", 0, 60*24*time.Hour)
	s.addEvents(p.ID, models.EventTypeClick, 3, s.now.Add(-10*24*time.Hour))

	_, err := s.runner.Recompute(s.ctx)
	s.Require().NoError(err)
	s.Equal(0.0, s.score(p.ID))
}

func (s *JobsTestSuite) TestRecomputeWindowIsSevenDayBuckets() {
	s.now = time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)
	p := s.program("buckets", 0, 60*24*time.Hour)
	for back := 0; back <= 8; back++ {
		s.addEvents(p.ID, models.EventTypeView, 1, s.now.AddDate(0, 0, -back))
	}

	_, err := s.runner.Recompute(s.ctx)
	s.Require().NoError(err)
	s.Equal(7.0, s.score(p.ID), "today and the six days before it")
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		window time.Duration
		want   string
	}{
		{7 * 24 * time.Hour, "2026-10-08"},
		{24 * time.Hour, "2026-10-14"},
		{36 * time.Hour, "2026-10-13"},
		{0, "2026-10-14"},
	} {
		assert.Equal(t, tc.want, windowStart(now, tc.window), tc.window.String())
	}
}

// failingScores fails every score write for one program
type failingScores struct {
	repository.ProgramRepository
	failID string
}

func (f *failingScores) UpdateScore(ctx context.Context, id string, score float64) error {
	if id == f.failID {
		return errors.New("write failed")
	}
	return f.ProgramRepository.UpdateScore(ctx, id, score)
}

func (s *JobsTestSuite) TestRecomputeCountsPartialFailures() {
	a := s.program("a", 5, 60*24*time.Hour)
	b := s.program("b", 7, 60*24*time.Hour)
	s.runner.programs = &failingScores{ProgramRepository: s.programs, failID: a.ID}

	res, err := s.runner.Recompute(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, res.Programs)
	s.Equal(1, res.Updated)
	s.Equal(1, res.Failed)
	s.Equal(0.0, s.score(a.ID))
	s.Equal(7.0, s.score(b.ID))
}

func (s *JobsTestSuite) TestRecomputeStopsOnCancel() {
	s.program("a", 1, time.Hour)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.runner.Recompute(ctx)
	s.ErrorIs(err, context.Canceled)
}

func (s *JobsTestSuite) TestRotateAssignsWeights() {
	ids := []string{s.program("a", 0, 0).ID, s.program("b", 0, 0).ID, s.program("c", 0, 0).ID}
	next := 0.0
	s.runner.random = func() float64 {
		next += 0.25
		return next
	}

	res, err := s.runner.Rotate(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, res.Programs)
	s.Equal(3, res.Updated)

	seen := map[float64]bool{}
	for _, id := range ids {
		p, err := s.programs.GetByID(s.ctx, id)
		s.Require().NoError(err)
		s.Greater(p.RandomWeight, 0.0)
		s.Less(p.RandomWeight, 1.0)
		seen[p.RandomWeight] = true
	}
	s.Len(seen, 3)
}

func (s *JobsTestSuite) TestPruneDeletesOnlyExpiredRows() {
	day := 24 * time.Hour
	traffic := []models.TrafficLog{
		{Path: "/old", CreatedAt: s.now.Add(-31 * day)},
		{Path: "/older", CreatedAt: s.now.Add(-45 * day)},
		{Path: "/new", CreatedAt: s.now.Add(-29 * day)},
	}
	s.Require().NoError(s.db.Create(&traffic).Error)

	searches := []models.SearchLog{
		{Query: "old", Normalized: "old", CreatedAt: s.now.Add(-31 * day)},
		{Query: "new", Normalized: "new", CreatedAt: s.now.Add(-day)},
	}
	s.Require().NoError(s.db.Create(&searches).Error)

	p := s.program("p", 0, 100*day)
	s.addEvents(p.ID, models.EventTypeView, 2, s.now.Add(-91*day))
	s.addEvents(p.ID, models.EventTypeView, 1, s.now.Add(-89*day))

	expired := s.now.Add(-time.Hour)
	_, err := s.programs.Feature(s.ctx, p.ID, expired)
	s.Require().NoError(err)

	res, err := s.runner.Prune(s.ctx)
	s.Require().NoError(err)
	s.Equal(PruneResult{TrafficLogs: 2, ProgramEvents: 2, SearchLogs: 1, ExpiredFeatures: 1}, res)

	var count int64
	s.db.Model(&models.TrafficLog{}).Count(&count)
	s.Equal(int64(1), count)
	s.db.Model(&models.ProgramEvent{}).Count(&count)
	s.Equal(int64(1), count)
	s.db.Model(&models.SearchLog{}).Count(&count)
	s.Equal(int64(1), count)

	again, err := s.runner.Prune(s.ctx)
	s.Require().NoError(err)
	s.Equal(PruneResult{}, again)
}
