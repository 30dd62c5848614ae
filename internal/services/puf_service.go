// internal/services/puf_service.go
package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/firstscanit/fsi-backend/internal/models"
)

// PUFService simulates an optical physically-unclonable-function reader.
// A real reader measures how light reflects off microscopic material
// structure; here the "material" is a one-way digest of the unit and batch
// identity, so every response is reproducible from identifiers alone.
type PUFService struct {
	challenges []models.Challenge
}

// manufacturingSeed stands in for the uncontrollable physical variation a
// real PUF gets for free. Changing it orphans every issued master signature.
const manufacturingSeed = "manufacturing-random-seed-"

// The fixed challenge set: four near-infrared probe configurations.
var defaultChallenges = []models.Challenge{
	{ID: 1, Wavelength: 780, Angle: 0, Description: "Near-infrared horizontal"},
	{ID: 2, Wavelength: 850, Angle: 45, Description: "Near-infrared 45° angle"},
	{ID: 3, Wavelength: 940, Angle: 90, Description: "Near-infrared vertical"},
	{ID: 4, Wavelength: 1064, Angle: 135, Description: "Near-infrared 135° angle"},
}

func NewPUFService() *PUFService {
	return &PUFService{challenges: defaultChallenges}
}

// Challenges returns the fixed challenge set.
func (s *PUFService) Challenges() []models.Challenge {
	out := make([]models.Challenge, len(s.challenges))
	copy(out, s.challenges)
	return out
}

// challengeByID fails closed: unknown ids return false.
func (s *PUFService) challengeByID(id int) (models.Challenge, bool) {
	for _, c := range s.challenges {
		if c.ID == id {
			return c, true
		}
	}
	return models.Challenge{}, false
}

// DeriveMaterialSeed digests the unit identity with the manufacturing
// constant, standing in for the unit's unclonable micro-structure.
func (s *PUFService) DeriveMaterialSeed(unitID, batchID string, challenge models.Challenge) string {
	return hexDigest(fmt.Sprintf("%s%s%s%d", unitID, batchID, manufacturingSeed, challenge.Wavelength))
}

// Respond computes the response a reader would measure for one challenge.
// Deterministic: the same (unit, batch, challenge) always responds the same.
func (s *PUFService) Respond(unitID, batchID string, challenge models.Challenge) string {
	seed := s.DeriveMaterialSeed(unitID, batchID, challenge)
	encoded, _ := json.Marshal(challenge)
	return hexDigest(seed + string(encoded))
}

type challengeDigest struct {
	ChallengeID  int    `json:"challengeId"`
	ResponseHash string `json:"responseHash"`
}

// ChallengeSignature runs every challenge against the unit, hashes each
// response, and folds the ordered hash list into one master signature.
// Raw responses never leave this function; a holder of the signature cannot
// recover what a reader must measure.
func (s *PUFService) ChallengeSignature(unitID, batchID string) *models.PUFSignature {
	digests := make([]challengeDigest, 0, len(s.challenges))
	refs := make([]models.ChallengeRef, 0, len(s.challenges))

	for _, challenge := range s.challenges {
		response := s.Respond(unitID, batchID, challenge)
		digests = append(digests, challengeDigest{
			ChallengeID:  challenge.ID,
			ResponseHash: hexDigest(response),
		})
		refs = append(refs, models.ChallengeRef{ID: challenge.ID, Wavelength: challenge.Wavelength})
	}

	encoded, _ := json.Marshal(digests)

	return &models.PUFSignature{
		UnitID:          unitID,
		MasterSignature: hexDigest(string(encoded)),
		ChallengeSet:    refs,
		CreatedAt:       time.Now(),
	}
}

// VerifyResponse recomputes the expected response for the challenge and
// compares hash-of-expected against hash-of-submitted. Raw responses are
// never compared directly.
func (s *PUFService) VerifyResponse(unitID, batchID string, challengeID int, submittedResponse string) bool {
	challenge, ok := s.challengeByID(challengeID)
	if !ok {
		return false
	}

	expectedHash := hexDigest(s.Respond(unitID, batchID, challenge))
	submittedHash := hexDigest(submittedResponse)
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(submittedHash)) == 1
}

// ChallengeTable returns every (challenge, response) pair for a unit, used
// to provision a reader app at manufacturing time. Brand-scoped callers
// only; the responses are the second factor.
func (s *PUFService) ChallengeTable(unitID, batchID string) []models.ChallengeResponse {
	table := make([]models.ChallengeResponse, 0, len(s.challenges))
	for _, challenge := range s.challenges {
		table = append(table, models.ChallengeResponse{
			ChallengeID: challenge.ID,
			Response:    s.Respond(unitID, batchID, challenge),
		})
	}
	return table
}

func hexDigest(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
