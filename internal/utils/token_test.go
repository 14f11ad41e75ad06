package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionToken_LengthAndCharset(t *testing.T) {
	token, err := NewSessionToken()
	require.NoError(t, err)
	assert.Len(t, token, SessionTokenLength)
	for _, r := range token {
		assert.Contains(t, "0123456789abcdefghijklmnopqrstuvwxyz", string(r))
	}
}

func TestNewSessionToken_NoCollisionsAcrossManyDraws(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	counts := make(map[rune]int, 36)
	for i := 0; i < 10000; i++ {
		token, err := NewSessionToken()
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup, "duplicate token %q after %d draws", token, i)
		seen[token] = struct{}{}
		for _, r := range token {
			counts[r]++
		}
	}

	// 160000 draws over 36 symbols puts each around 4444; a generator
	// biased toward a subset of the alphabet lands far outside this band.
	require.Len(t, counts, 36)
	for r, n := range counts {
		assert.Greater(t, n, 3500, "character %q underrepresented", r)
		assert.Less(t, n, 5500, "character %q overrepresented", r)
	}
}

func TestNewSessionToken_UsesMoreThanOneCharacterClass(t *testing.T) {
	// A token of 16 chars drawn from 36 symbols essentially never comes
	// out all-digits; a run of them would indicate a broken generator.
	allDigits := 0
	for i := 0; i < 50; i++ {
		token, err := NewSessionToken()
		require.NoError(t, err)
		if strings.IndexFunc(token, func(r rune) bool { return r >= 'a' && r <= 'z' }) == -1 {
			allDigits++
		}
	}
	assert.Less(t, allDigits, 50)
}

func TestPeerAddress_IsDeterministicPerRoleAndSession(t *testing.T) {
	assert.Equal(t, "doctor-abc123", PeerAddress("doctor", "abc123"))
	assert.Equal(t, "patient-abc123", PeerAddress("patient", "abc123"))
	assert.NotEqual(t, PeerAddress("doctor", "abc123"), PeerAddress("patient", "abc123"))
}
