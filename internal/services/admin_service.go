package services

import (
	"context"
	"fmt"

	customerrors "github.com/axellelanca/visittracker/internal/errors"
	"github.com/axellelanca/visittracker/internal/logging"
	"github.com/axellelanca/visittracker/internal/repository"
)

// AdminService runs the schema maintenance operations.
type AdminService struct {
	schema      repository.SchemaRepository
	resetEnable bool
}

// NewAdminService creates an AdminService. When resetEnabled is false,
// ResetSchema refuses to run.
func NewAdminService(schema repository.SchemaRepository, resetEnabled bool) *AdminService {
	return &AdminService{schema: schema, resetEnable: resetEnabled}
}

// ResetEnabled reports whether ResetSchema is allowed.
func (s *AdminService) ResetEnabled() bool {
	return s.resetEnable
}

// Migrate creates or updates the visits table.
func (s *AdminService) Migrate(ctx context.Context) error {
	return s.schema.Migrate(ctx)
}

// ResetSchema drops and recreates the visits table. Every stored visit is lost.
func (s *AdminService) ResetSchema(ctx context.Context) error {
	if !s.resetEnable {
		return customerrors.ErrResetDisabled
	}
	if err := s.schema.ResetSchema(ctx); err != nil {
		return fmt.Errorf("failed to reset schema: %w", err)
	}
	logging.Ctx(ctx).Warn().Msg("Visitor table dropped and recreated")
	return nil
}
