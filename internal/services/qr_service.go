// internal/services/qr_service.go
package services

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firstscanit/fsi-backend/internal/config"
	"github.com/firstscanit/fsi-backend/internal/utils"
)

// QRService seals per-unit QR payloads. The QR code itself carries only the
// identifier hash and a verify URL; the sealed payload stays server-side, so
// a scanned code reveals nothing about the product to anyone but us.
type QRService struct {
	key           []byte
	iv            []byte
	verifyBaseURL string
}

// QRPayload is the plaintext sealed into a unit's QR artifact. The nonce
// makes every unit's ciphertext unique even within a batch.
type QRPayload struct {
	UnitID      string `json:"unitId"`
	BatchID     string `json:"batchId"`
	ProductName string `json:"productName"`
	BrandName   string `json:"brandName"`
	Timestamp   int64  `json:"timestamp"`
	Nonce       string `json:"nonce"`
}

// SealedQR is the issuance-side result: the sealed payload, the identifier
// stored and looked up at scan time, and the content a QR renderer encodes.
type SealedQR struct {
	UnitID        string `json:"unit_id"`
	SealedPayload string `json:"-"`
	Identifier    string `json:"identifier"`
	QRContent     string `json:"qr_content"`
}

var ErrSealedPayloadTampered = errors.New("sealed payload failed integrity check")

func NewQRService(cfg *config.Config) (*QRService, error) {
	key, err := keyMaterial(cfg.QR.EncryptionKeyHex, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid QR encryption key: %w", err)
	}
	iv, err := keyMaterial(cfg.QR.IVHex, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("invalid QR encryption IV: %w", err)
	}

	return &QRService{
		key:           key,
		iv:            iv,
		verifyBaseURL: cfg.QR.VerifyBaseURL,
	}, nil
}

// keyMaterial decodes configured hex or generates fresh bytes. Generated
// material means sealed payloads do not survive a restart; configure the key
// for anything beyond a demo deployment.
func keyMaterial(hexValue string, size int) ([]byte, error) {
	if hexValue != "" {
		material, err := hex.DecodeString(hexValue)
		if err != nil {
			return nil, err
		}
		if len(material) != size {
			return nil, fmt.Errorf("expected %d bytes, got %d", size, len(material))
		}
		return material, nil
	}

	material := make([]byte, size)
	if _, err := rand.Read(material); err != nil {
		return nil, err
	}
	return material, nil
}

// Seal encrypts the payload with AES-256-CBC, appends an HMAC-SHA256 tag,
// and derives the identifier as the digest of the sealed form.
func (s *QRService) Seal(unitID, batchID, productName, brandName string) (*SealedQR, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	plaintext, err := json.Marshal(QRPayload{
		UnitID:      unitID,
		BatchID:     batchID,
		ProductName: productName,
		BrandName:   brandName,
		Timestamp:   time.Now().UnixMilli(),
		Nonce:       hex.EncodeToString(nonce),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR payload: %w", err)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, s.iv).CryptBlocks(ciphertext, padded)

	encrypted := hex.EncodeToString(ciphertext)
	sealed := encrypted + "::" + s.tag(encrypted)

	identifierHex := utils.HashString(sealed)

	return &SealedQR{
		UnitID:        unitID,
		SealedPayload: sealed,
		Identifier:    identifierHex,
		QRContent:     fmt.Sprintf("%s?h=%s", s.verifyBaseURL, identifierHex),
	}, nil
}

// Open checks the HMAC tag before touching the ciphertext and returns the
// decrypted payload. A failed tag means the stored record was edited.
func (s *QRService) Open(sealedPayload string) (*QRPayload, error) {
	parts := strings.SplitN(sealedPayload, "::", 2)
	if len(parts) != 2 {
		return nil, ErrSealedPayloadTampered
	}
	encrypted, receivedTag := parts[0], parts[1]

	if !hmac.Equal([]byte(s.tag(encrypted)), []byte(receivedTag)) {
		return nil, ErrSealedPayloadTampered
	}

	ciphertext, err := hex.DecodeString(encrypted)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrSealedPayloadTampered
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, s.iv).CryptBlocks(plaintext, ciphertext)

	plaintext, err = pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, ErrSealedPayloadTampered
	}

	var payload QRPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, ErrSealedPayloadTampered
	}
	return &payload, nil
}

func (s *QRService) tag(encrypted string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(encrypted))
	return hex.EncodeToString(mac.Sum(nil))
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
