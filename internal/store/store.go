// internal/store/store.go
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/firstscanit/fsi-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store is the persistence boundary for brands, unit records and the scan
// ledger. All access is keyed by immutable identifiers; implementations must
// provide per-key read-your-writes consistency.
type Store interface {
	CreateBrand(ctx context.Context, brand *models.Brand) error
	GetBrand(ctx context.Context, id uuid.UUID) (*models.Brand, error)
	GetBrandByName(ctx context.Context, name string) (*models.Brand, error)
	GetBrandByEmail(ctx context.Context, email string) (*models.Brand, error)

	CreateUnit(ctx context.Context, unit *models.UnitRecord) error
	GetUnit(ctx context.Context, unitID string) (*models.UnitRecord, error)
	GetUnitByIdentifier(ctx context.Context, identifier string) (*models.UnitRecord, error)
	ListUnits(ctx context.Context, batchID string) ([]models.UnitRecord, error)
	ListUnitsByBrand(ctx context.Context, brandID uuid.UUID) ([]models.UnitRecord, error)

	// AppendScan records one verification attempt. The ledger is append-only:
	// no update or delete operations exist on scan events.
	AppendScan(ctx context.Context, event *models.ScanEvent) error
	// ListScansForUnit returns the most recent events first, at most limit.
	ListScansForUnit(ctx context.Context, unitID string, limit int) ([]models.ScanEvent, error)

	Stats(ctx context.Context) (*models.LedgerStats, error)

	// WithUnitScanLock serializes the read-history/append-scan sequence for
	// one unit. Two racing scans of the same unit must each observe the
	// other's appended event or run strictly before it.
	WithUnitScanLock(ctx context.Context, unitID string, fn func(Store) error) error
}
