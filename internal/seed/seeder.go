// Package seed fills a development database with plausible listings, events and
// logs so the ranking and analytics paths have something to work on.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/repository"
	"github.com/affiliateboard/backend/internal/util"
)

// SeedEmailDomain marks seeded programs so Clean can find them again
const SeedEmailDomain = "seed.invalid"

// Options sizes a seeding run
type Options struct {
	Programs int
	// Days of event history per program
	HistoryDays int
	// MaxDailyVisitors caps distinct viewers per program per day
	MaxDailyVisitors int
}

// DevOptions is the default development data set
func DevOptions() Options {
	return Options{Programs: 120, HistoryDays: 21, MaxDailyVisitors: 40}
}

// TestOptions is a minimal data set
func TestOptions() Options {
	return Options{Programs: 10, HistoryDays: 7, MaxDailyVisitors: 5}
}

// Seeder handles database seeding operations
type Seeder struct {
	db       *gorm.DB
	programs repository.ProgramRepository
	reports  repository.ReportRepository
	faker    *gofakeit.Faker
	now      func() time.Time
}

// NewSeeder creates a new seeder instance. A zero seed picks a random one.
func NewSeeder(db *gorm.DB, seed uint64) *Seeder {
	return &Seeder{
		db:       db,
		programs: repository.NewProgramRepository(db),
		reports:  repository.NewReportRepository(db),
		faker:    gofakeit.New(seed),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Summary counts what a run created
type Summary struct {
	Programs   int
	Events     int
	TrafficLog int
	SearchLogs int
	Reports    int
}

// Seed creates opts.Programs listings with event history, traffic and search logs
// and a few moderation tickets
func (s *Seeder) Seed(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	now := s.now()

	for i := 0; i < opts.Programs; i++ {
		program := s.fakeProgram(now)
		events := s.fakeEvents(opts, now)
		for _, e := range events {
			if e.Type == models.EventTypeView {
				program.TotalViews++
			} else {
				program.Clicks++
			}
		}
		// Lifetime counters include history older than the seeded window.
		program.TotalViews += int64(s.faker.IntRange(0, 500))
		program.Clicks += int64(s.faker.IntRange(0, 40))

		if err := s.programs.Create(ctx, program); err != nil {
			return sum, fmt.Errorf("failed to create program %q: %w", program.Name, err)
		}
		sum.Programs++

		for j := range events {
			events[j].ProgramID = program.ID
		}
		if len(events) > 0 {
			if err := s.db.WithContext(ctx).CreateInBatches(events, 200).Error; err != nil {
				return sum, fmt.Errorf("failed to create events for %s: %w", program.ID, err)
			}
		}
		sum.Events += len(events)

		traffic := s.fakeTraffic(program, now, s.faker.IntRange(0, 15))
		if len(traffic) > 0 {
			if err := s.db.WithContext(ctx).CreateInBatches(traffic, 200).Error; err != nil {
				return sum, fmt.Errorf("failed to create traffic logs: %w", err)
			}
		}
		sum.TrafficLog += len(traffic)

		if s.faker.IntRange(0, 9) == 0 {
			if err := s.reports.Create(ctx, s.fakeReport(program)); err != nil {
				return sum, fmt.Errorf("failed to create report: %w", err)
			}
			sum.Reports++
		}

		if (i+1)%25 == 0 {
			logger.Log.Info("Seeding progress", zap.Int("programs", i+1))
		}
	}

	searches := s.fakeSearches(now, opts.Programs*3)
	if len(searches) > 0 {
		if err := s.db.WithContext(ctx).CreateInBatches(searches, 200).Error; err != nil {
			return sum, fmt.Errorf("failed to create search logs: %w", err)
		}
	}
	sum.SearchLogs = len(searches)

	logger.Log.Info("Seeding completed",
		zap.Int("programs", sum.Programs),
		zap.Int("events", sum.Events),
		zap.Int("traffic_logs", sum.TrafficLog),
		zap.Int("search_logs", sum.SearchLogs),
		zap.Int("reports", sum.Reports),
	)
	return sum, nil
}

// Clean deletes every seeded program with its events and reports
func (s *Seeder) Clean(ctx context.Context) (int, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Program{}).
		Where("contact_email LIKE ?", "%@"+SeedEmailDomain).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find seeded programs: %w", err)
	}

	for i, id := range ids {
		if err := s.programs.Delete(ctx, id); err != nil {
			return i, fmt.Errorf("failed to delete program %s: %w", id, err)
		}
	}
	logger.Log.Info("Seed data removed", zap.Int("programs", len(ids)))
	return len(ids), nil
}

func (s *Seeder) fakeProgram(now time.Time) *models.Program {
	company := s.faker.Company()
	domain := strings.ToLower(strings.NewReplacer(" ", "", ",", "", ".", "", "&", "and", "'", "").Replace(company)) + ".com"
	createdAt := s.faker.DateRange(now.AddDate(0, -6, 0), now)

	program := &models.Program{
		Name:            company,
		Description:     s.faker.HipsterSentence() + " " + s.faker.HipsterSentence(),
		Category:        s.faker.RandomString(models.Categories),
		Tags:            models.StringArray{s.faker.Word(), s.faker.Word()},
		WebsiteURL:      "https://" + domain,
		AffiliateURL:    "https://" + domain + "/partners",
		ContactEmail:    fmt.Sprintf("partners-%s@%s", s.faker.LetterN(8), SeedEmailDomain),
		CommissionType:  s.faker.RandomString([]string{models.CommissionRecurring, models.CommissionOneTime, models.CommissionHybrid}),
		CommissionValue: fmt.Sprintf("%d%%", s.faker.IntRange(10, 50)),
		CookieDays:      s.faker.RandomInt([]int{30, 45, 60, 90, 120}),
		PayoutMinimum:   fmt.Sprintf("$%d", s.faker.RandomInt([]int{0, 25, 50, 100})),
		PayoutFrequency: s.faker.RandomString([]string{"weekly", "monthly", "net-30"}),
		RandomWeight:    s.faker.Float64Range(0, 1),
		Status:          s.faker.RandomString([]string{models.ProgramStatusApproved, models.ProgramStatusApproved, models.ProgramStatusPending}),
		CreatedAt:       createdAt,
	}
	if s.faker.IntRange(0, 9) == 0 {
		program.ManualScoreBoost = float64(s.faker.IntRange(5, 50))
	}

	// Some featured listings, a few of them already lapsed.
	switch s.faker.IntRange(0, 14) {
	case 0:
		until := now.Add(time.Duration(s.faker.IntRange(1, 29)) * 24 * time.Hour)
		program.IsFeatured = true
		program.FeaturedExpiresAt = &until
	case 1:
		until := now.Add(-time.Duration(s.faker.IntRange(1, 10)) * 24 * time.Hour)
		program.IsFeatured = true
		program.FeaturedExpiresAt = &until
	}
	return program
}

// fakeEvents builds deduplicated views and clicks over the history window.
// ProgramID is filled in by the caller.
func (s *Seeder) fakeEvents(opts Options, now time.Time) []models.ProgramEvent {
	var events []models.ProgramEvent
	popularity := s.faker.IntRange(0, opts.MaxDailyVisitors)

	for day := 0; day < opts.HistoryDays; day++ {
		at := now.AddDate(0, 0, -day)
		dateKey := models.DateKey(at)
		visitors := s.faker.IntRange(0, popularity)
		for v := 0; v < visitors; v++ {
			visitor := s.faker.UUID()
			events = append(events, models.ProgramEvent{
				Type:      models.EventTypeView,
				VisitorID: visitor,
				DateKey:   dateKey,
				CreatedAt: at,
			})
			if s.faker.IntRange(0, 5) == 0 {
				events = append(events, models.ProgramEvent{
					Type:      models.EventTypeClick,
					VisitorID: visitor,
					DateKey:   dateKey,
					CreatedAt: at,
				})
			}
		}
	}
	return events
}

func (s *Seeder) fakeTraffic(program *models.Program, now time.Time, n int) []models.TrafficLog {
	logs := make([]models.TrafficLog, 0, n)
	for i := 0; i < n; i++ {
		id := program.ID
		logs = append(logs, models.TrafficLog{
			Path:      "/programs/" + program.Slug,
			Referrer:  s.faker.RandomString([]string{"", "https://www.google.com/", "https://news.ycombinator.com/", "https://twitter.com/"}),
			UserAgent: s.faker.UserAgent(),
			Country:   s.faker.CountryAbr(),
			VisitorID: s.faker.UUID(),
			ProgramID: &id,
			CreatedAt: s.faker.DateRange(now.AddDate(0, 0, -14), now),
		})
	}
	return logs
}

func (s *Seeder) fakeSearches(now time.Time, n int) []models.SearchLog {
	logs := make([]models.SearchLog, 0, n)
	for i := 0; i < n; i++ {
		query := s.faker.RandomString([]string{"hosting", "ai writer", "email marketing", "crm", "vpn", "seo", s.faker.Word()})
		logs = append(logs, models.SearchLog{
			Query:       query,
			Normalized:  util.NormalizeQuery(query),
			ResultCount: s.faker.IntRange(0, 30),
			VisitorID:   s.faker.UUID(),
			CreatedAt:   s.faker.DateRange(now.AddDate(0, 0, -14), now),
		})
	}
	return logs
}

func (s *Seeder) fakeReport(program *models.Program) *models.ProgramReport {
	report := &models.ProgramReport{
		ProgramID:     program.ID,
		Type:          models.ReportTypeReport,
		Message:       s.faker.HipsterSentence(),
		ReporterEmail: s.faker.Email(),
	}
	if s.faker.Bool() {
		report.Type = models.ReportTypeEdit
		report.SuggestedChanges = fmt.Sprintf(`{"commission_value":"%d%%"}`, s.faker.IntRange(10, 60))
	}
	return report
}
