// internal/models/unit.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// UnitRecord is the atomic issuable entity: one physical unit in a batch.
// Created once at issuance and never mutated afterwards; verification only
// reads it and appends scan events.
type UnitRecord struct {
	UnitID             string    `json:"unit_id" gorm:"primaryKey;size:64"`
	BatchID            string    `json:"batch_id" gorm:"size:64;index;not null"`
	BrandID            uuid.UUID `json:"brand_id" gorm:"type:uuid;index"`
	ProductName        string    `json:"product_name" gorm:"size:255;not null"`
	BrandName          string    `json:"brand_name" gorm:"size:255;not null"`
	Facility           string    `json:"facility" gorm:"size:255"`
	ManufacturingDate  string    `json:"manufacturing_date" gorm:"size:10"`
	ExpiryDate         string    `json:"expiry_date" gorm:"size:10"`
	PUFMasterSignature string    `json:"puf_master_signature" gorm:"size:64;not null"`
	Signature          string    `json:"signature" gorm:"type:text;not null"`
	Identifier         string    `json:"identifier" gorm:"size:64;uniqueIndex;not null"`
	SealedPayload      string    `json:"-" gorm:"type:text"`
	CreatedAt          time.Time `json:"created_at"`
}

// Challenge is one probe configuration of the simulated optical PUF reader.
// The challenge set is fixed at initialization and never changes, otherwise
// previously issued master signatures stop reproducing.
type Challenge struct {
	ID          int    `json:"id"`
	Wavelength  int    `json:"wavelength"`
	Angle       int    `json:"angle"`
	Description string `json:"description"`
}

// ChallengeRef is the public projection of a challenge stored alongside a
// PUF signature: enough to replay the probe, nothing about the response.
type ChallengeRef struct {
	ID         int `json:"id"`
	Wavelength int `json:"wavelength"`
}

// PUFSignature binds a unit to the digest of its simulated physical
// responses. Raw responses are never stored, only hashes of hashes.
type PUFSignature struct {
	UnitID          string         `json:"unit_id"`
	MasterSignature string         `json:"master_puf_signature"`
	ChallengeSet    []ChallengeRef `json:"challenge_set"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ChallengeResponse is a single (challenge, response) pair as a reader app
// submits it during a second-factor scan.
type ChallengeResponse struct {
	ChallengeID int    `json:"challenge_id"`
	Response    string `json:"response"`
}
