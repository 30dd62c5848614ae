// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type BrandStatus string

const (
	BrandStatusActive    BrandStatus = "active"
	BrandStatusSuspended BrandStatus = "suspended"
)

// Verdict is the terminal state of a single verification attempt.
type Verdict string

const (
	VerdictGenuine    Verdict = "GENUINE"
	VerdictNotFound   Verdict = "NOT_FOUND"
	VerdictTampered   Verdict = "TAMPERED"
	VerdictSuspicious Verdict = "SUSPICIOUS"
)

// ScanReason is the machine-readable reason recorded with every scan event.
type ScanReason string

const (
	ScanReasonVerified          ScanReason = "VERIFIED"
	ScanReasonUnknownIdentifier ScanReason = "UNKNOWN_IDENTIFIER"
	ScanReasonInvalidSignature  ScanReason = "INVALID_SIGNATURE"
	ScanReasonDecryptionFailed  ScanReason = "DECRYPTION_FAILED"
	ScanReasonCloneSuspected    ScanReason = "CLONE_SUSPECTED"
	ScanReasonPUFMismatch       ScanReason = "PUF_MISMATCH"
)
