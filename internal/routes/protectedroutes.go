package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/rexdotsh/valeo/internal/handlers"
	"github.com/rexdotsh/valeo/internal/middlewares"
)

// RegisterProtectedEndpoints mounts the doctor-only routes: claiming,
// notes, history and the authorization probe.
func RegisterProtectedEndpoints(
	router *gin.Engine,
	sessionHandler *handlers.SessionHandler,
	jwtSecret string,
	checker middlewares.DoctorChecker,
) {
	protected := router.Group("/api")
	protected.Use(middlewares.DoctorAuthMiddleware(jwtSecret, checker))

	protected.POST("/claims", sessionHandler.Claim)
	protected.PUT("/sessions/:sessionId/notes", sessionHandler.UpsertNotes)
	protected.PUT("/sessions/:sessionId/summary", sessionHandler.UpsertSummary)
	protected.GET("/consultations", sessionHandler.ListPastConsultations)
	protected.GET("/doctors/me", sessionHandler.IsDoctor)
	protected.DELETE("/doctors/me", sessionHandler.DeactivateSelf)
}
