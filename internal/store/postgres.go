// internal/store/postgres.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/firstscanit/fsi-backend/internal/models"
)

// PostgresStore backs the Store interface with GORM/PostgreSQL.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) CreateBrand(ctx context.Context, brand *models.Brand) error {
	if err := p.db.WithContext(ctx).Create(brand).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create brand: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetBrand(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	var brand models.Brand
	if err := p.db.WithContext(ctx).First(&brand, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch brand: %w", err)
	}
	return &brand, nil
}

func (p *PostgresStore) GetBrandByName(ctx context.Context, name string) (*models.Brand, error) {
	var brand models.Brand
	if err := p.db.WithContext(ctx).First(&brand, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch brand: %w", err)
	}
	return &brand, nil
}

func (p *PostgresStore) GetBrandByEmail(ctx context.Context, email string) (*models.Brand, error) {
	var brand models.Brand
	if err := p.db.WithContext(ctx).First(&brand, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch brand: %w", err)
	}
	return &brand, nil
}

func (p *PostgresStore) CreateUnit(ctx context.Context, unit *models.UnitRecord) error {
	if err := p.db.WithContext(ctx).Create(unit).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create unit: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetUnit(ctx context.Context, unitID string) (*models.UnitRecord, error) {
	var unit models.UnitRecord
	if err := p.db.WithContext(ctx).First(&unit, "unit_id = ?", unitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch unit: %w", err)
	}
	return &unit, nil
}

func (p *PostgresStore) GetUnitByIdentifier(ctx context.Context, identifier string) (*models.UnitRecord, error) {
	var unit models.UnitRecord
	// Exact match only, never prefix.
	if err := p.db.WithContext(ctx).First(&unit, "identifier = ?", identifier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch unit by identifier: %w", err)
	}
	return &unit, nil
}

func (p *PostgresStore) ListUnits(ctx context.Context, batchID string) ([]models.UnitRecord, error) {
	var units []models.UnitRecord
	if err := p.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("unit_id ASC").
		Find(&units).Error; err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return units, nil
}

func (p *PostgresStore) ListUnitsByBrand(ctx context.Context, brandID uuid.UUID) ([]models.UnitRecord, error) {
	var units []models.UnitRecord
	if err := p.db.WithContext(ctx).
		Where("brand_id = ?", brandID).
		Order("unit_id ASC").
		Find(&units).Error; err != nil {
		return nil, fmt.Errorf("failed to list brand units: %w", err)
	}
	return units, nil
}

func (p *PostgresStore) AppendScan(ctx context.Context, event *models.ScanEvent) error {
	if err := p.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to append scan event: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListScansForUnit(ctx context.Context, unitID string, limit int) ([]models.ScanEvent, error) {
	query := p.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var events []models.ScanEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list scan events: %w", err)
	}
	return events, nil
}

func (p *PostgresStore) Stats(ctx context.Context) (*models.LedgerStats, error) {
	stats := &models.LedgerStats{}

	if err := p.db.WithContext(ctx).Model(&models.Brand{}).Count(&stats.TotalBrands).Error; err != nil {
		return nil, fmt.Errorf("failed to count brands: %w", err)
	}
	if err := p.db.WithContext(ctx).Model(&models.UnitRecord{}).Count(&stats.TotalUnits).Error; err != nil {
		return nil, fmt.Errorf("failed to count units: %w", err)
	}
	if err := p.db.WithContext(ctx).Model(&models.ScanEvent{}).Count(&stats.TotalScans).Error; err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	if err := p.db.WithContext(ctx).Model(&models.ScanEvent{}).
		Where("is_valid = ? AND suspicious = ?", true, false).
		Count(&stats.GenuineScans).Error; err != nil {
		return nil, fmt.Errorf("failed to count genuine scans: %w", err)
	}
	stats.CounterfeitScans = stats.TotalScans - stats.GenuineScans

	return stats, nil
}

// WithUnitScanLock takes a row lock on the unit inside a transaction so the
// read-history/append-scan sequence is linearizable per unit.
func (p *PostgresStore) WithUnitScanLock(ctx context.Context, unitID string, fn func(Store) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unit models.UnitRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&unit, "unit_id = ?", unitID).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to lock unit row: %w", err)
			}
			// Unknown unit: nothing to serialize against, fall through.
		}
		return fn(&PostgresStore{db: tx})
	})
}
