// internal/services/signing_service.go
package services

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/firstscanit/fsi-backend/internal/models"
)

// SigningService issues and checks RSA-PSS signatures over the canonical
// encoding of a unit record. Verification failure is a normal outcome, so
// VerifyUnit returns a bool and never an error.
type SigningService struct{}

func NewSigningService() *SigningService {
	return &SigningService{}
}

type KeyPair struct {
	PublicKeyPEM  string `json:"public_key"`
	PrivateKeyPEM string `json:"-"`
}

const rsaKeyBits = 2048

// signedUnitFields is the exact canonical field set covered by a unit
// signature. Field order is the byte order on the wire: adding, removing or
// reordering fields here invalidates every previously issued signature,
// which is the point of the tamper check.
type signedUnitFields struct {
	UnitID             string `json:"unitId"`
	BatchID            string `json:"batchId"`
	ProductName        string `json:"productName"`
	BrandName          string `json:"brandName"`
	Facility           string `json:"facility"`
	ManufacturingDate  string `json:"manufacturingDate"`
	ExpiryDate         string `json:"expiryDate"`
	PUFMasterSignature string `json:"pufMasterSignature"`
}

func canonicalUnitPayload(record *models.UnitRecord) ([]byte, error) {
	return json.Marshal(signedUnitFields{
		UnitID:             record.UnitID,
		BatchID:            record.BatchID,
		ProductName:        record.ProductName,
		BrandName:          record.BrandName,
		Facility:           record.Facility,
		ManufacturingDate:  record.ManufacturingDate,
		ExpiryDate:         record.ExpiryDate,
		PUFMasterSignature: record.PUFMasterSignature,
	})
}

// GenerateKeyPair produces a fresh RSA-2048 key pair, private key as PKCS#8
// PEM and public key as PKIX PEM.
func (s *SigningService) GenerateKeyPair() (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to encode private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encode public key: %w", err)
	}

	return &KeyPair{
		PrivateKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		PublicKeyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
	}, nil
}

// SignUnit signs the canonical encoding of record with PSS padding. The salt
// makes signatures probabilistic: signing the same record twice yields
// different bytes, both of which verify.
func (s *SigningService) SignUnit(record *models.UnitRecord, privateKeyPEM string) (string, error) {
	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return "", err
	}

	payload, err := canonicalUnitPayload(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode unit record: %w", err)
	}

	digest := sha256.Sum256(payload)
	signature, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign unit record: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}

// VerifyUnit recomputes the canonical encoding and checks the signature.
// Any malformed key, signature or record yields false, not an error.
func (s *SigningService) VerifyUnit(record *models.UnitRecord, signatureB64, publicKeyPEM string) bool {
	pub, err := parsePublicKey(publicKeyPEM)
	if err != nil {
		return false
	}

	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}

	payload, err := canonicalUnitPayload(record)
	if err != nil {
		return false
	}

	digest := sha256.Sum256(payload)
	return rsa.VerifyPSS(pub, crypto.SHA256, digest[:], signature, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	}) == nil
}

func parsePrivateKey(privateKeyPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, errors.New("invalid private key: not PEM encoded")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("invalid private key: not an RSA key")
	}
	return key, nil
}

func parsePublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("invalid public key: not PEM encoded")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("invalid public key: not an RSA key")
	}
	return pub, nil
}
