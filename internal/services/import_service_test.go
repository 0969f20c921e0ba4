package services

import (
	"context"
	"strings"
	"testing"

	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/redirex/shipglobal-backend/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopAuditor struct{}

func (noopAuditor) AppendAudit(context.Context, models.AuditLog) error { return nil }

func newImportService(t *testing.T) (*ImportService, memory.Repositories) {
	t.Helper()
	repos := memory.NewRepositories()
	return NewImportService(repos.Imports, noopAuditor{}), repos
}

func createImport(t *testing.T, svc *ImportService, owner string) models.Import {
	t.Helper()
	imp, err := svc.Create(context.Background(), CreateImportInput{
		OwnerID: owner, OwnerType: models.AccountUser,
		Title: "Electronics batch", Origin: "Shenzhen", Destination: "Sao Paulo",
	})
	require.NoError(t, err)
	return imp
}

func TestImportCreate(t *testing.T) {
	svc, _ := newImportService(t)

	imp := createImport(t, svc, "owner-1")
	assert.True(t, strings.HasPrefix(imp.ID, "IMP-"))
	assert.Equal(t, models.ImportDraft, imp.Status)
	assert.Equal(t, 0, imp.Progress)

	_, err := svc.Create(context.Background(), CreateImportInput{OwnerID: "owner-1", Title: " "})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestImportStatusTransitions(t *testing.T) {
	svc, _ := newImportService(t)
	ctx := context.Background()
	imp := createImport(t, svc, "owner-1")

	// draft -> completed skips the lifecycle
	_, err := svc.UpdateStatus(ctx, imp.ID, "owner-1", models.ImportCompleted, 100)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	for _, step := range []models.ImportStatus{models.ImportPending, models.ImportProcessing, models.ImportCompleted} {
		imp2, err := svc.UpdateStatus(ctx, imp.ID, "owner-1", step, 50)
		require.NoError(t, err)
		assert.Equal(t, step, imp2.Status)
	}

	// completed is terminal
	_, err = svc.UpdateStatus(ctx, imp.ID, "owner-1", models.ImportPending, 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, imp.ID, "owner-1", "shipped", 0)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestImportListPaginatesNewestFirst(t *testing.T) {
	svc, _ := newImportService(t)
	ctx := context.Background()

	first := createImport(t, svc, "owner-1")
	second := createImport(t, svc, "owner-1")
	third := createImport(t, svc, "owner-1")
	createImport(t, svc, "owner-2")

	page, err := svc.List(ctx, "owner-1", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, third.ID, page[0].ID)
	assert.Equal(t, second.ID, page[1].ID)

	page, err = svc.List(ctx, "owner-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	page, err = svc.List(ctx, "owner-1", 2, 5)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestImportOwnershipIsHidden(t *testing.T) {
	svc, _ := newImportService(t)
	imp := createImport(t, svc, "owner-1")

	_, err := svc.Get(context.Background(), imp.ID, "owner-2")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = svc.Delete(context.Background(), imp.ID, "owner-2")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestImportDelete(t *testing.T) {
	svc, repos := newImportService(t)
	ctx := context.Background()
	imp := createImport(t, svc, "owner-1")

	require.NoError(t, svc.Delete(ctx, imp.ID, "owner-1"))
	_, err := svc.Get(ctx, imp.ID, "owner-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// a tombstone is queued for the document copy
	entries, err := repos.Outbox.Unprocessed(ctx, 10)
	require.NoError(t, err)
	var deleted bool
	for _, e := range entries {
		if e.Aggregate == models.AggregateImport && e.Event == models.EventImportDeleted && e.Key == imp.ID {
			deleted = true
		}
	}
	assert.True(t, deleted)

	assert.ErrorIs(t, svc.Delete(ctx, "IMP-nope", "owner-1"), apperr.ErrNotFound)
}
