package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/ledger"
	"github.com/redirex/shipglobal-backend/internal/models"
	repo "github.com/redirex/shipglobal-backend/internal/repository"
)

type ImportService struct {
	imports repo.Imports
	audit   ledger.Auditor
}

func NewImportService(r repo.Imports, a ledger.Auditor) *ImportService {
	return &ImportService{imports: r, audit: a}
}

type CreateImportInput struct {
	OwnerID     string
	OwnerType   models.AccountType
	Title       string
	Origin      string
	Destination string
	ETA         *time.Time
}

func (s *ImportService) Create(ctx context.Context, in CreateImportInput) (models.Import, error) {
	if strings.TrimSpace(in.Title) == "" {
		return models.Import{}, apperr.Validationf("title required")
	}
	if strings.TrimSpace(in.Origin) == "" || strings.TrimSpace(in.Destination) == "" {
		return models.Import{}, apperr.Validationf("origin and destination required")
	}
	imp := models.Import{
		ID:          models.NewImportID(time.Now()),
		OwnerID:     in.OwnerID,
		OwnerType:   in.OwnerType,
		Title:       strings.TrimSpace(in.Title),
		Origin:      strings.TrimSpace(in.Origin),
		Destination: strings.TrimSpace(in.Destination),
		Status:      models.ImportDraft,
		ETA:         in.ETA,
	}
	created, err := s.imports.Create(ctx, imp)
	if err != nil {
		return models.Import{}, err
	}
	s.auditImport(ctx, created.ID, "created")
	return created, nil
}

func (s *ImportService) Get(ctx context.Context, id, ownerID string) (models.Import, error) {
	imp, err := s.imports.GetByID(ctx, id)
	if err != nil {
		return models.Import{}, err
	}
	if imp.OwnerID != ownerID {
		// hide other tenants' records
		return models.Import{}, apperr.ErrNotFound
	}
	return imp, nil
}

func (s *ImportService) List(ctx context.Context, ownerID string, limit, offset int) ([]models.Import, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.imports.ListByOwner(ctx, ownerID, limit, offset)
}

// UpdateStatus enforces the lifecycle
// draft -> pending -> processing -> completed|failed.
func (s *ImportService) UpdateStatus(ctx context.Context, id, ownerID string, status models.ImportStatus, progress int) (models.Import, error) {
	if !status.Valid() {
		return models.Import{}, apperr.Validationf("unknown status %q", status)
	}
	if progress < 0 || progress > 100 {
		return models.Import{}, apperr.Validationf("progress must be 0-100")
	}
	current, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return models.Import{}, err
	}
	if !current.Status.CanTransition(status) {
		return models.Import{}, apperr.ErrInvalidTransition
	}
	updated, err := s.imports.UpdateStatus(ctx, id, status, progress)
	if err != nil {
		return models.Import{}, err
	}
	s.auditImport(ctx, id, "status_"+string(status))
	return updated, nil
}

func (s *ImportService) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.imports.Delete(ctx, id); err != nil {
		return err
	}
	s.auditImport(ctx, id, "deleted")
	return nil
}

func (s *ImportService) auditImport(ctx context.Context, id, action string) {
	if err := s.audit.AppendAudit(ctx, models.AuditLog{
		EntityType: "import",
		EntityID:   &id,
		Action:     action,
	}); err != nil {
		slog.Warn("audit write failed", "import", id, "err", err)
	}
}
