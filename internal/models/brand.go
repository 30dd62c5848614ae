// internal/models/brand.go
package models

import (
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Brand is an issuing authority. It owns exactly one signing key pair,
// created at registration. The private key never leaves this record's
// signing boundary; production key custody (KMS, HSM) is a deployment
// concern, not handled here.
type Brand struct {
	BaseModel
	Name          string         `json:"name" gorm:"size:255;uniqueIndex;not null"`
	Email         string         `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash  string         `json:"-" gorm:"size:255;not null"`
	Facilities    pq.StringArray `json:"facilities" gorm:"type:text[]"`
	PublicKeyPEM  string         `json:"public_key" gorm:"type:text;not null"`
	PrivateKeyPEM string         `json:"-" gorm:"type:text;not null"`
	Status        BrandStatus    `json:"status" gorm:"type:varchar(20);default:'active';index"`
}

func (b *Brand) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	b.PasswordHash = string(hash)
	return nil
}

func (b *Brand) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(b.PasswordHash), []byte(password)) == nil
}
