package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rexdotsh/valeo/internal/utils"
)

const doctorIDKey = "doctor_id"

// DoctorChecker verifies that an identity is a registered, active doctor.
type DoctorChecker interface {
	IsDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error)
}

// DoctorAuthMiddleware validates the bearer token and checks the doctor
// registry. Inactive doctors still hold valid tokens but lose claim
// rights, so the registry is consulted on every request, not just at
// registration.
func DoctorAuthMiddleware(jwtSecret string, checker DoctorChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := utils.ParseDoctorToken(strings.TrimPrefix(header, "Bearer "), jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		active, err := checker.IsDoctor(c.Request.Context(), claims.DoctorID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authorization check failed"})
			return
		}
		if !active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			return
		}

		c.Set(doctorIDKey, claims.DoctorID)
		c.Next()
	}
}

// GetDoctorID retrieves the authenticated doctor identity set by
// DoctorAuthMiddleware.
func GetDoctorID(c *gin.Context) (uuid.UUID, error) {
	val, exists := c.Get(doctorIDKey)
	if !exists {
		return uuid.Nil, errors.New("doctor authentication context not found")
	}
	doctorID, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("invalid doctor authentication context type")
	}
	return doctorID, nil
}
