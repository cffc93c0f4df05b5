package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	customerrors "github.com/axellelanca/visittracker/internal/errors"
	"github.com/axellelanca/visittracker/internal/models"
	"gorm.io/gorm"
)

// VisitRepository est une interface qui définit les méthodes d'accès aux visites
type VisitRepository interface {
	CreateVisit(ctx context.Context, visit *models.Visit) error
	UpdateVisit(ctx context.Context, id uint, fields map[string]any) (int64, error)
	CloseVisit(ctx context.Context, id uint, leftAt time.Time) (*models.Visit, error)
	GetAllVisits(ctx context.Context) ([]models.Visit, error)
	GetVisitByID(ctx context.Context, id uint) (*models.Visit, error)
	DeleteVisit(ctx context.Context, id uint) (*models.Visit, error)
}

// SchemaRepository regroupe les opérations de maintenance du schéma.
type SchemaRepository interface {
	Migrate(ctx context.Context) error
	ResetSchema(ctx context.Context) error
}

// GormVisitRepository est l'implémentation de VisitRepository et SchemaRepository utilisant GORM.
type GormVisitRepository struct {
	db *gorm.DB
}

// NewVisitRepository crée et retourne une nouvelle instance de GormVisitRepository.
func NewVisitRepository(db *gorm.DB) *GormVisitRepository {
	return &GormVisitRepository{db: db}
}

// CreateVisit insère une nouvelle visite; l'ID est renseigné par la base.
func (r *GormVisitRepository) CreateVisit(ctx context.Context, visit *models.Visit) error {
	if err := r.db.WithContext(ctx).Create(visit).Error; err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

// UpdateVisit met à jour les colonnes données et retourne le nombre de lignes touchées.
// Un ID inconnu n'est pas une erreur: le résultat est simplement 0.
func (r *GormVisitRepository) UpdateVisit(ctx context.Context, id uint, fields map[string]any) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Visit{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update visit %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// CloseVisit enregistre la sortie: left_at et la durée en secondes entières
// depuis visited_at, lus et écrits dans la même transaction.
// Retourne nil, nil si l'ID est inconnu.
func (r *GormVisitRepository) CloseVisit(ctx context.Context, id uint, leftAt time.Time) (*models.Visit, error) {
	var closed *models.Visit
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var visit models.Visit
		if err := tx.First(&visit, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		duration := int(leftAt.Sub(visit.VisitedAt) / time.Second)
		if duration < 0 {
			duration = 0
		}

		if err := tx.Model(&visit).Updates(map[string]any{
			"left_at":          leftAt,
			"duration_seconds": duration,
		}).Error; err != nil {
			return err
		}

		visit.LeftAt = &leftAt
		visit.DurationSeconds = duration
		closed = &visit
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to close visit %d: %w", id, err)
	}
	return closed, nil
}

// GetAllVisits récupère toutes les visites, les plus récentes en premier.
func (r *GormVisitRepository) GetAllVisits(ctx context.Context) ([]models.Visit, error) {
	visits := []models.Visit{}
	if err := r.db.WithContext(ctx).Order("visited_at DESC").Order("id DESC").Find(&visits).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve all visits: %w", err)
	}
	return visits, nil
}

// GetVisitByID récupère une visite par son ID.
func (r *GormVisitRepository) GetVisitByID(ctx context.Context, id uint) (*models.Visit, error) {
	var visit models.Visit
	if err := r.db.WithContext(ctx).First(&visit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrVisitNotFound
		}
		return nil, fmt.Errorf("failed to get visit %d: %w", id, err)
	}
	return &visit, nil
}

// DeleteVisit supprime une visite et retourne l'enregistrement supprimé.
func (r *GormVisitRepository) DeleteVisit(ctx context.Context, id uint) (*models.Visit, error) {
	var deleted *models.Visit
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var visit models.Visit
		if err := tx.First(&visit, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&visit).Error; err != nil {
			return err
		}
		deleted = &visit
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, customerrors.ErrVisitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete visit %d: %w", id, err)
	}
	return deleted, nil
}

// Migrate crée ou met à jour la table des visites.
func (r *GormVisitRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&models.Visit{}); err != nil {
		return fmt.Errorf("failed to migrate visits: %w", err)
	}
	return nil
}

// ResetSchema supprime puis recrée la table: toutes les visites sont perdues.
func (r *GormVisitRepository) ResetSchema(ctx context.Context) error {
	migrator := r.db.WithContext(ctx).Migrator()
	if err := migrator.DropTable(&models.Visit{}); err != nil {
		return fmt.Errorf("failed to drop visits: %w", err)
	}
	if err := migrator.CreateTable(&models.Visit{}); err != nil {
		return fmt.Errorf("failed to recreate visits: %w", err)
	}
	return nil
}
