package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DoctorClaims is the JWT payload issued at doctor registration and
// required for claim, notes and history operations.
type DoctorClaims struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Name     string    `json:"name"`
	jwt.RegisteredClaims
}

// IssueDoctorToken signs a token for an active doctor.
func IssueDoctorToken(doctorID uuid.UUID, name, secret string, ttl time.Duration) (string, error) {
	claims := DoctorClaims{
		DoctorID: doctorID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseDoctorToken validates a doctor token and returns its claims.
func ParseDoctorToken(tokenString, secret string) (*DoctorClaims, error) {
	claims := &DoctorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
