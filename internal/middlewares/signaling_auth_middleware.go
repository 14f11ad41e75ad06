package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rexdotsh/valeo/internal/models"
	"github.com/rexdotsh/valeo/internal/utils"
)

type signalingAuthCtxKey struct{}

// SignalingAuthContext holds the validated identity of one signaling
// party. Possession of the unguessable session token is the patient's
// credential; doctors additionally present a bearer token.
type SignalingAuthContext struct {
	SessionID string
	Role      models.SenderRole
	DoctorID  uuid.UUID
}

// PeerAddress returns this party's deterministic signaling address.
func (a *SignalingAuthContext) PeerAddress() string {
	return utils.PeerAddress(string(a.Role), a.SessionID)
}

// SessionLookup is the slice of the session service the signaling auth
// needs.
type SessionLookup interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	IsDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error)
}

// SignalingAuthMiddleware authenticates signaling joins before the
// WebSocket upgrade. It validates the session token against the store,
// rejects ended sessions (re-entry means starting a fresh session), and
// requires a doctor token for the doctor role.
func SignalingAuthMiddleware(jwtSecret string, lookup SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Query("session_id")
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "session_id required"})
			return
		}

		role := models.SenderRole(c.Query("role"))
		if !role.Valid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "role must be doctor or patient"})
			return
		}

		session, err := lookup.GetSession(c.Request.Context(), sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
			return
		}
		if session == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if session.Status == models.SessionStatusEnded {
			c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "session has ended"})
			return
		}

		auth := &SignalingAuthContext{SessionID: sessionID, Role: role}

		if role == models.SenderDoctor {
			claims, err := utils.ParseDoctorToken(c.Query("token"), jwtSecret)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
			active, err := lookup.IsDoctor(c.Request.Context(), claims.DoctorID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authorization check failed"})
				return
			}
			if !active {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized"})
				return
			}
			auth.DoctorID = claims.DoctorID
		}

		ctx := context.WithValue(c.Request.Context(), signalingAuthCtxKey{}, auth)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetSignalingAuth retrieves the authentication context set by
// SignalingAuthMiddleware.
func GetSignalingAuth(c *gin.Context) (*SignalingAuthContext, error) {
	val := c.Request.Context().Value(signalingAuthCtxKey{})
	if val == nil {
		return nil, errors.New("signaling authentication context not found")
	}
	auth, ok := val.(*SignalingAuthContext)
	if !ok {
		return nil, errors.New("invalid signaling authentication context type")
	}
	return auth, nil
}
