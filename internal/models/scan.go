// internal/models/scan.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanEvent is one verification attempt. Append-only: events are never
// updated or deleted, and may reference a unit id that was never issued,
// which is itself forensic signal. Not a foreign key on purpose.
type ScanEvent struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UnitID     string     `json:"unit_id" gorm:"size:64;index"`
	BatchID    string     `json:"batch_id" gorm:"size:64;index"`
	IsValid    bool       `json:"is_valid"`
	Suspicious bool       `json:"suspicious"`
	Verdict    Verdict    `json:"verdict" gorm:"type:varchar(20)"`
	Reason     ScanReason `json:"reason" gorm:"type:varchar(32)"`
	// Nil when the scanner sent no location. Zero is a real coordinate;
	// the anti-cloning heuristic must not conflate the two.
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Metadata  JSONB     `json:"metadata,omitempty" gorm:"type:jsonb"`
	DeviceID  string    `json:"device_id" gorm:"size:128"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
}

// LedgerStats summarizes the scan ledger for the dashboard.
type LedgerStats struct {
	TotalBrands      int64 `json:"total_brands"`
	TotalUnits       int64 `json:"total_units"`
	TotalScans       int64 `json:"total_scans"`
	GenuineScans     int64 `json:"genuine_scans"`
	CounterfeitScans int64 `json:"counterfeit_scans"`
}
