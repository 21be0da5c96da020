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

func TestReportLifecycle(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	p := seedProgram(t, NewProgramRepository(db), "reported")
	reports := NewReportRepository(db)

	err := reports.Create(ctx, &models.ProgramReport{ProgramID: "missing", Type: models.ReportTypeReport, Message: "x"})
	assert.ErrorIs(t, err, ErrProgramNotFound)

	report := &models.ProgramReport{ProgramID: p.ID, Type: models.ReportTypeEdit, Message: "new rate", SuggestedChanges: `{"commission_value":"40%"}`}
	require.NoError(t, reports.Create(ctx, report))
	require.NoError(t, reports.Create(ctx, &models.ProgramReport{ProgramID: p.ID, Type: models.ReportTypeReport, Message: "dead link"}))

	pending, err := reports.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	list, total, err := reports.List(ctx, ReportFilter{Type: models.ReportTypeEdit, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Program)
	assert.Equal(t, "reported", list[0].Program.Name)

	now := time.Now().UTC()
	updated, err := reports.Update(ctx, report.ID, map[string]any{"status": models.ReportStatusResolved, "resolved_at": now, "admin_note": "applied"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, updated.Status)
	assert.NotNil(t, updated.ResolvedAt)

	_, err = reports.Update(ctx, "missing", map[string]any{"status": models.ReportStatusDismissed})
	assert.ErrorIs(t, err, ErrReportNotFound)

	require.NoError(t, reports.Delete(ctx, report.ID))
	_, err = reports.Get(ctx, report.ID)
	assert.ErrorIs(t, err, ErrReportNotFound)
	assert.ErrorIs(t, reports.Delete(ctx, report.ID), ErrReportNotFound)
}
