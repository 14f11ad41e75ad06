package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorToken_RoundTrip(t *testing.T) {
	doctorID := uuid.New()
	token, err := IssueDoctorToken(doctorID, "Dr. Osei", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseDoctorToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, doctorID, claims.DoctorID)
	assert.Equal(t, "Dr. Osei", claims.Name)
}

func TestDoctorToken_WrongSecretIsRejected(t *testing.T) {
	token, err := IssueDoctorToken(uuid.New(), "Dr. Osei", "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseDoctorToken(token, "other")
	assert.Error(t, err)
}

func TestDoctorToken_ExpiredIsRejected(t *testing.T) {
	token, err := IssueDoctorToken(uuid.New(), "Dr. Osei", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseDoctorToken(token, "secret")
	assert.Error(t, err)
}

func TestDoctorToken_GarbageIsRejected(t *testing.T) {
	_, err := ParseDoctorToken("not-a-token", "secret")
	assert.Error(t, err)
}
