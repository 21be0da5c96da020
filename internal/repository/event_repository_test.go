package repository

import (
	"context"
	"testing"
	"time"

	"github.com/affiliateboard/backend/internal/database/dbtest"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProgram(t *testing.T, repo ProgramRepository, name string) *models.Program {
	t.Helper()
	p := &models.Program{Name: name, Category: "SaaS", WebsiteURL: "https://" + name + ".example.com", AffiliateURL: "https://" + name + ".example.com/a"}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestEventRecordDedupesPerVisitorDay(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	programs := NewProgramRepository(db)
	events := NewEventRepository(db)
	p := seedProgram(t, programs, "tracked")

	today := models.DateKey(time.Now())
	yesterday := models.DateKey(time.Now().Add(-24 * time.Hour))

	recorded, err := events.Record(ctx, &models.ProgramEvent{ProgramID: p.ID, Type: models.EventTypeView, VisitorID: "v1", DateKey: today})
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = events.Record(ctx, &models.ProgramEvent{ProgramID: p.ID, Type: models.EventTypeView, VisitorID: "v1", DateKey: today})
	require.NoError(t, err)
	assert.False(t, recorded)

	recorded, err = events.Record(ctx, &models.ProgramEvent{ProgramID: p.ID, Type: models.EventTypeView, VisitorID: "v1", DateKey: yesterday})
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = events.Record(ctx, &models.ProgramEvent{ProgramID: p.ID, Type: models.EventTypeClick, VisitorID: "v1", DateKey: today})
	require.NoError(t, err)
	assert.True(t, recorded)

	fresh, err := programs.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.TotalViews)
	assert.Equal(t, int64(1), fresh.Clicks)
}

func TestEventRecordUnknownProgram(t *testing.T) {
	db := dbtest.New(t)
	events := NewEventRepository(db)

	_, err := events.Record(context.Background(), &models.ProgramEvent{ProgramID: "missing", Type: models.EventTypeClick, VisitorID: "v1"})
	assert.ErrorIs(t, err, ErrProgramNotFound)

	var count int64
	db.Model(&models.ProgramEvent{}).Count(&count)
	assert.Zero(t, count, "event insert must roll back with the counter")

	_, err = events.Record(context.Background(), &models.ProgramEvent{ProgramID: "missing", Type: "SHARE", VisitorID: "v1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRollingCountsAndTopPrograms(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	programs := NewProgramRepository(db)
	events := NewEventRepository(db)

	a := seedProgram(t, programs, "alpha")
	b := seedProgram(t, programs, "beta")
	today := models.DateKey(time.Now())
	old := models.DateKey(time.Now().Add(-10 * 24 * time.Hour))

	record := func(programID, typ, visitor, key string) {
		_, err := events.Record(ctx, &models.ProgramEvent{ProgramID: programID, Type: typ, VisitorID: visitor, DateKey: key})
		require.NoError(t, err)
	}
	record(a.ID, models.EventTypeView, "v1", today)
	record(a.ID, models.EventTypeView, "v2", today)
	record(a.ID, models.EventTypeClick, "v1", today)
	record(b.ID, models.EventTypeClick, "v1", today)
	record(b.ID, models.EventTypeClick, "v2", today)
	record(b.ID, models.EventTypeView, "v3", old)

	since := models.DateKey(time.Now().Add(-7 * 24 * time.Hour))
	counts, err := events.RollingCounts(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, Counts{Views: 2, Clicks: 1}, counts[a.ID])
	assert.Equal(t, Counts{Views: 0, Clicks: 2}, counts[b.ID])

	top, err := events.TopPrograms(ctx, since, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, b.ID, top[0].ID)
	assert.Equal(t, int64(2), top[0].Clicks)

	total, err := events.CountSince(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, Counts{Views: 2, Clicks: 3}, total)

	empty, err := events.CountSince(ctx, "2999-01-01")
	require.NoError(t, err)
	assert.Equal(t, Counts{}, empty)
}

func TestEventDeleteBefore(t *testing.T) {
	db := dbtest.New(t)
	events := NewEventRepository(db)
	now := time.Now().UTC()

	rows := []models.ProgramEvent{
		{ProgramID: "p", Type: models.EventTypeView, VisitorID: "old", DateKey: "2020-01-01", CreatedAt: now.Add(-91 * 24 * time.Hour)},
		{ProgramID: "p", Type: models.EventTypeView, VisitorID: "new", DateKey: "2020-01-02", CreatedAt: now.Add(-89 * 24 * time.Hour)},
	}
	require.NoError(t, db.Create(&rows).Error)

	deleted, err := events.DeleteBefore(context.Background(), now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
