// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/firstscanit/fsi-backend/internal/models"
)

// MemoryStore is the in-memory Store used by tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	brands      map[uuid.UUID]*models.Brand
	units       map[string]*models.UnitRecord
	byIdent     map[string]string // identifier -> unitID
	scans       []*models.ScanEvent
	unitLocksMu sync.Mutex
	unitLocks   map[string]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		brands:    make(map[uuid.UUID]*models.Brand),
		units:     make(map[string]*models.UnitRecord),
		byIdent:   make(map[string]string),
		unitLocks: make(map[string]*sync.Mutex),
	}
}

func (m *MemoryStore) CreateBrand(ctx context.Context, brand *models.Brand) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.brands {
		if b.Name == brand.Name || b.Email == brand.Email {
			return ErrDuplicate
		}
	}

	if brand.ID == uuid.Nil {
		brand.ID = uuid.New()
	}
	now := time.Now()
	brand.CreatedAt = now
	brand.UpdatedAt = now

	stored := *brand
	m.brands[brand.ID] = &stored
	return nil
}

func (m *MemoryStore) GetBrand(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	brand, ok := m.brands[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *brand
	return &copied, nil
}

func (m *MemoryStore) GetBrandByName(ctx context.Context, name string) (*models.Brand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, brand := range m.brands {
		if brand.Name == name {
			copied := *brand
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetBrandByEmail(ctx context.Context, email string) (*models.Brand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, brand := range m.brands {
		if brand.Email == email {
			copied := *brand
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateUnit(ctx context.Context, unit *models.UnitRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.units[unit.UnitID]; exists {
		return ErrDuplicate
	}
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = time.Now()
	}

	stored := *unit
	m.units[unit.UnitID] = &stored
	m.byIdent[unit.Identifier] = unit.UnitID
	return nil
}

// PutUnit overwrites an existing unit record, keeping the identifier index
// in sync. Models out-of-band edits; not part of the Store interface.
func (m *MemoryStore) PutUnit(ctx context.Context, unit *models.UnitRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *unit
	m.units[unit.UnitID] = &stored
	m.byIdent[unit.Identifier] = unit.UnitID
}

func (m *MemoryStore) GetUnit(ctx context.Context, unitID string) (*models.UnitRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	unit, ok := m.units[unitID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *unit
	return &copied, nil
}

func (m *MemoryStore) GetUnitByIdentifier(ctx context.Context, identifier string) (*models.UnitRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Exact match only. Prefix lookups would let a truncated identifier
	// resolve to the wrong unit.
	unitID, ok := m.byIdent[identifier]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *m.units[unitID]
	return &copied, nil
}

func (m *MemoryStore) ListUnits(ctx context.Context, batchID string) ([]models.UnitRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var units []models.UnitRecord
	for _, unit := range m.units {
		if unit.BatchID == batchID {
			units = append(units, *unit)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].UnitID < units[j].UnitID })
	return units, nil
}

func (m *MemoryStore) ListUnitsByBrand(ctx context.Context, brandID uuid.UUID) ([]models.UnitRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var units []models.UnitRecord
	for _, unit := range m.units {
		if unit.BrandID == brandID {
			units = append(units, *unit)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].UnitID < units[j].UnitID })
	return units, nil
}

func (m *MemoryStore) AppendScan(ctx context.Context, event *models.ScanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	stored := *event
	m.scans = append(m.scans, &stored)
	return nil
}

func (m *MemoryStore) ListScansForUnit(ctx context.Context, unitID string, limit int) ([]models.ScanEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []models.ScanEvent
	for _, scan := range m.scans {
		if scan.UnitID == unitID {
			events = append(events, *scan)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.After(events[j].Timestamp) })
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (m *MemoryStore) Stats(ctx context.Context) (*models.LedgerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.LedgerStats{
		TotalBrands: int64(len(m.brands)),
		TotalUnits:  int64(len(m.units)),
		TotalScans:  int64(len(m.scans)),
	}
	for _, scan := range m.scans {
		if scan.IsValid && !scan.Suspicious {
			stats.GenuineScans++
		} else {
			stats.CounterfeitScans++
		}
	}
	return stats, nil
}

func (m *MemoryStore) WithUnitScanLock(ctx context.Context, unitID string, fn func(Store) error) error {
	m.unitLocksMu.Lock()
	lock, ok := m.unitLocks[unitID]
	if !ok {
		lock = &sync.Mutex{}
		m.unitLocks[unitID] = lock
	}
	m.unitLocksMu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(m)
}
