package repository

import (
	"context"
	"testing"
	"time"

	"github.com/affiliateboard/backend/internal/database/dbtest"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// ProgramRepositoryTestSuite runs program queries against in-memory SQLite
type ProgramRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo ProgramRepository
	ctx  context.Context
	now  time.Time
}

func TestProgramRepositorySuite(t *testing.T) {
	suite.Run(t, new(ProgramRepositoryTestSuite))
}

func (s *ProgramRepositoryTestSuite) SetupTest() {
	s.db = dbtest.New(s.T())
	s.repo = NewProgramRepository(s.db)
	s.ctx = context.Background()
	s.now = time.Now().UTC()
}

func (s *ProgramRepositoryTestSuite) create(name, category string, score float64, mutate ...func(*models.Program)) *models.Program {
	p := &models.Program{
		Name:          name,
		Category:      category,
		WebsiteURL:    "https://" + name + ".example.com",
		AffiliateURL:  "https://" + name + ".example.com/partners",
		TrendingScore: score,
	}
	for _, m := range mutate {
		m(p)
	}
	s.Require().NoError(s.repo.Create(s.ctx, p))
	return p
}

func featuredUntil(t time.Time) func(*models.Program) {
	return func(p *models.Program) {
		p.IsFeatured = true
		p.FeaturedExpiresAt = &t
	}
}

func (s *ProgramRepositoryTestSuite) TestCreateAssignsUniqueSlugs() {
	a := s.create("Acme Hosting", "Hosting", 0)
	b := s.create("acme hosting", "Hosting", 0)
	c := s.create("Acme  Hosting!", "Hosting", 0)

	s.Equal("acme-hosting", a.Slug)
	s.Equal("acme-hosting-2", b.Slug)
	s.Equal("acme-hosting-3", c.Slug)
	s.Equal(models.ProgramStatusPending, a.Status)
	s.NotEmpty(a.ID)
}

func (s *ProgramRepositoryTestSuite) TestGetByIDOrSlug() {
	p := s.create("Lookup", "SaaS", 0)

	byID, err := s.repo.GetByIDOrSlug(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, byID.ID)

	bySlug, err := s.repo.GetByIDOrSlug(s.ctx, "LOOKUP")
	s.Require().NoError(err)
	s.Equal(p.ID, bySlug.ID)

	_, err = s.repo.GetByIDOrSlug(s.ctx, "missing")
	s.ErrorIs(err, ErrProgramNotFound)
}

func (s *ProgramRepositoryTestSuite) TestListRankingOrder() {
	expired := s.create("expired", "SaaS", 90, featuredUntil(s.now.Add(-time.Hour)))
	featured := s.create("featured", "SaaS", 1, featuredUntil(s.now.Add(24*time.Hour)))
	high := s.create("high", "SaaS", 50)
	tieA := s.create("tie-a", "SaaS", 10, func(p *models.Program) { p.RandomWeight = 0.2 })
	tieB := s.create("tie-b", "SaaS", 10, func(p *models.Program) { p.RandomWeight = 0.9 })
	s.create("hidden", "SaaS", 500, func(p *models.Program) { p.Status = models.ProgramStatusRejected })

	programs, total, err := s.repo.List(s.ctx, ListOptions{Limit: 10, Now: s.now})
	s.Require().NoError(err)
	s.Equal(int64(5), total)

	ids := make([]string, len(programs))
	for i, p := range programs {
		ids[i] = p.ID
	}
	s.Equal([]string{featured.ID, expired.ID, high.ID, tieB.ID, tieA.ID}, ids)
}

func (s *ProgramRepositoryTestSuite) TestListFilters() {
	s.create("mailer", "Marketing", 5, func(p *models.Program) {
		p.Description = "Email campaigns for 100% of teams"
		p.Tags = models.NormalizeTags([]string{"email", "newsletters"})
	})
	s.create("host", "Hosting", 3, func(p *models.Program) { p.Tags = models.NormalizeTags([]string{"emailish"}) })

	programs, total, err := s.repo.List(s.ctx, ListOptions{Category: "Marketing", Limit: 10})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("mailer", programs[0].Name)

	programs, _, err = s.repo.List(s.ctx, ListOptions{Tag: "EMAIL", Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(programs, 1)
	s.Equal("mailer", programs[0].Name)

	programs, _, err = s.repo.List(s.ctx, ListOptions{Query: "100%", Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(programs, 1)

	programs, _, err = s.repo.List(s.ctx, ListOptions{Query: "email", Limit: 10, Sort: SortName})
	s.Require().NoError(err)
	s.Require().Len(programs, 2)
	s.Equal("host", programs[0].Name)

	_, total, err = s.repo.List(s.ctx, ListOptions{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
}

func (s *ProgramRepositoryTestSuite) TestFeaturedExcludesExpired() {
	s.create("expired", "SaaS", 0, featuredUntil(s.now.Add(-time.Minute)))
	active := s.create("active", "SaaS", 0, featuredUntil(s.now.Add(time.Hour)))
	s.create("flagless", "SaaS", 0, func(p *models.Program) { p.IsFeatured = true })

	programs, err := s.repo.Featured(s.ctx, s.now, 10)
	s.Require().NoError(err)
	s.Require().Len(programs, 1)
	s.Equal(active.ID, programs[0].ID)
}

func (s *ProgramRepositoryTestSuite) TestSimilarFillsFromTrending() {
	base := s.create("base", "AI", 0)
	same := s.create("same", "AI", 1)
	other := s.create("other", "Finance", 100)
	s.create("low", "Finance", 0)

	programs, err := s.repo.Similar(s.ctx, base, s.now, 2)
	s.Require().NoError(err)
	s.Require().Len(programs, 2)
	s.Equal(same.ID, programs[0].ID)
	s.Equal(other.ID, programs[1].ID)
}

func (s *ProgramRepositoryTestSuite) TestCategoriesIncludeZeroCounts() {
	s.create("a", "AI", 0)
	s.create("b", "AI", 0)
	s.create("c", "Finance", 0, func(p *models.Program) { p.Status = models.ProgramStatusRejected })

	cats, err := s.repo.Categories(s.ctx)
	s.Require().NoError(err)
	s.Len(cats, len(models.Categories))
	for _, c := range cats {
		switch c.Category {
		case "AI":
			s.Equal(int64(2), c.Count)
		default:
			s.Equal(int64(0), c.Count, c.Category)
		}
	}
}

func (s *ProgramRepositoryTestSuite) TestFindDuplicates() {
	p := s.create("Dupe Co", "SaaS", 0)

	found, err := s.repo.FindDuplicates(s.ctx, DuplicateQuery{Name: "dupe co", WebsiteURL: p.WebsiteURL, AffiliateURL: "https://unique.example.com"})
	s.Require().NoError(err)
	s.Equal(map[string]string{"name": p.ID, "website_url": p.ID}, found)

	found, err = s.repo.FindDuplicates(s.ctx, DuplicateQuery{Name: "Dupe Co", ExcludeID: p.ID})
	s.Require().NoError(err)
	s.Empty(found)
}

func (s *ProgramRepositoryTestSuite) TestUpdateAndStatus() {
	p := s.create("editable", "SaaS", 0)

	updated, err := s.repo.Update(s.ctx, p.ID, map[string]any{"description": "new", "slug": "Fresh Slug"})
	s.Require().NoError(err)
	s.Equal("new", updated.Description)
	s.Equal("fresh-slug", updated.Slug)

	other := s.create("other", "SaaS", 0)
	_, err = s.repo.Update(s.ctx, other.ID, map[string]any{"slug": "fresh-slug"})
	s.ErrorIs(err, ErrDuplicate)

	approved, err := s.repo.SetStatus(s.ctx, p.ID, models.ProgramStatusApproved, s.now)
	s.Require().NoError(err)
	s.Equal(models.ProgramStatusApproved, approved.Status)
	s.NotNil(approved.ReviewedAt)

	_, err = s.repo.Update(s.ctx, "missing", map[string]any{"description": "x"})
	s.ErrorIs(err, ErrProgramNotFound)
}

func (s *ProgramRepositoryTestSuite) TestFeatureAndUnfeature() {
	p := s.create("paid", "SaaS", 0)

	featured, err := s.repo.Feature(s.ctx, p.ID, s.now.Add(models.FeatureDuration))
	s.Require().NoError(err)
	s.True(featured.FeatureActive(s.now))
	s.Equal(models.ProgramStatusApproved, featured.Status)

	unfeatured, err := s.repo.Unfeature(s.ctx, p.ID)
	s.Require().NoError(err)
	s.False(unfeatured.IsFeatured)
	s.Nil(unfeatured.FeaturedExpiresAt)
}

func (s *ProgramRepositoryTestSuite) TestDeleteCascades() {
	p := s.create("doomed", "SaaS", 0)
	keep := s.create("keeper", "SaaS", 0)

	events := NewEventRepository(s.db)
	_, err := events.Record(s.ctx, &models.ProgramEvent{ProgramID: p.ID, Type: models.EventTypeView, VisitorID: "v1"})
	s.Require().NoError(err)
	_, err = events.Record(s.ctx, &models.ProgramEvent{ProgramID: keep.ID, Type: models.EventTypeView, VisitorID: "v1"})
	s.Require().NoError(err)

	reports := NewReportRepository(s.db)
	s.Require().NoError(reports.Create(s.ctx, &models.ProgramReport{ProgramID: p.ID, Type: models.ReportTypeReport, Message: "broken"}))

	programID := p.ID
	s.Require().NoError(NewLogRepository(s.db).CreateTrafficLog(s.ctx, &models.TrafficLog{Path: "/p/doomed", ProgramID: &programID}))

	s.Require().NoError(s.repo.Delete(s.ctx, p.ID))

	_, err = s.repo.GetByID(s.ctx, p.ID)
	s.ErrorIs(err, ErrProgramNotFound)

	var count int64
	s.db.Model(&models.ProgramEvent{}).Count(&count)
	s.Equal(int64(1), count)
	s.db.Model(&models.ProgramReport{}).Count(&count)
	s.Equal(int64(0), count)

	var log models.TrafficLog
	s.Require().NoError(s.db.First(&log).Error)
	s.Nil(log.ProgramID)

	s.ErrorIs(s.repo.Delete(s.ctx, p.ID), ErrProgramNotFound)
}

func (s *ProgramRepositoryTestSuite) TestBatchesAndColumnUpdates() {
	a := s.create("a", "SaaS", 0)
	b := s.create("b", "SaaS", 0)
	c := s.create("c", "SaaS", 0)

	all := []string{a.ID, b.ID, c.ID}
	var seen []string
	after := ""
	for {
		rows, err := s.repo.ScoreBatch(s.ctx, after, 2)
		s.Require().NoError(err)
		if len(rows) == 0 {
			break
		}
		for _, r := range rows {
			seen = append(seen, r.ID)
		}
		after = rows[len(rows)-1].ID
	}
	s.ElementsMatch(all, seen)

	before, err := s.repo.GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.repo.UpdateScore(s.ctx, a.ID, 42.5))
	s.Require().NoError(s.repo.UpdateRandomWeight(s.ctx, a.ID, 0.75))

	after2, err := s.repo.GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(42.5, after2.TrendingScore)
	s.Equal(0.75, after2.RandomWeight)
	s.True(before.UpdatedAt.Equal(after2.UpdatedAt))
}

func (s *ProgramRepositoryTestSuite) TestClearExpiredFeatures() {
	s.create("expired", "SaaS", 0, featuredUntil(s.now.Add(-time.Hour)))
	active := s.create("active", "SaaS", 0, featuredUntil(s.now.Add(time.Hour)))

	cleared, err := s.repo.ClearExpiredFeatures(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(int64(1), cleared)

	still, err := s.repo.GetByID(s.ctx, active.ID)
	s.Require().NoError(err)
	s.True(still.IsFeatured)
}
