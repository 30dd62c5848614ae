// internal/services/puf_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengesAreFixed(t *testing.T) {
	s := NewPUFService()

	challenges := s.Challenges()
	require.Len(t, challenges, 4)

	wavelengths := []int{780, 850, 940, 1064}
	angles := []int{0, 45, 90, 135}
	for i, c := range challenges {
		assert.Equal(t, i+1, c.ID)
		assert.Equal(t, wavelengths[i], c.Wavelength)
		assert.Equal(t, angles[i], c.Angle)
	}
}

func TestRespondIsDeterministic(t *testing.T) {
	s := NewPUFService()
	challenge := s.Challenges()[0]

	first := s.Respond("unit-1", "batch-1", challenge)
	second := s.Respond("unit-1", "batch-1", challenge)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // hex sha256
}

func TestRespondVariesAcrossUnitsAndChallenges(t *testing.T) {
	s := NewPUFService()
	challenges := s.Challenges()

	// Different units, same challenge
	assert.NotEqual(t,
		s.Respond("unit-1", "batch-1", challenges[0]),
		s.Respond("unit-2", "batch-1", challenges[0]))

	// Same unit, different challenges
	assert.NotEqual(t,
		s.Respond("unit-1", "batch-1", challenges[0]),
		s.Respond("unit-1", "batch-1", challenges[1]))

	// Same unit, different batch
	assert.NotEqual(t,
		s.Respond("unit-1", "batch-1", challenges[0]),
		s.Respond("unit-1", "batch-2", challenges[0]))
}

func TestChallengeSignatureIsStable(t *testing.T) {
	s := NewPUFService()

	first := s.ChallengeSignature("unit-1", "batch-1")
	second := s.ChallengeSignature("unit-1", "batch-1")

	assert.Equal(t, first.MasterSignature, second.MasterSignature)
	assert.Len(t, first.ChallengeSet, 4)
	assert.Equal(t, "unit-1", first.UnitID)

	other := s.ChallengeSignature("unit-2", "batch-1")
	assert.NotEqual(t, first.MasterSignature, other.MasterSignature)
}

func TestVerifyResponse(t *testing.T) {
	s := NewPUFService()
	challenge := s.Challenges()[2]

	response := s.Respond("unit-1", "batch-1", challenge)

	assert.True(t, s.VerifyResponse("unit-1", "batch-1", challenge.ID, response))
	assert.False(t, s.VerifyResponse("unit-1", "batch-1", challenge.ID, response+"x"))
	assert.False(t, s.VerifyResponse("unit-2", "batch-1", challenge.ID, response))
}

func TestVerifyResponseFailsClosedOnUnknownChallenge(t *testing.T) {
	s := NewPUFService()

	assert.False(t, s.VerifyResponse("unit-1", "batch-1", 99, "anything"))
	assert.False(t, s.VerifyResponse("unit-1", "batch-1", 0, ""))
}

func TestChallengeTableMatchesVerification(t *testing.T) {
	s := NewPUFService()

	table := s.ChallengeTable("unit-1", "batch-1")
	require.Len(t, table, 4)

	for _, pair := range table {
		assert.True(t, s.VerifyResponse("unit-1", "batch-1", pair.ChallengeID, pair.Response))
	}
}
