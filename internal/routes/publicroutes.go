package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/rexdotsh/valeo/internal/handlers"
)

// RegisterPublicEndpoints mounts the routes reachable without a doctor
// token. Possession of an unguessable session token is the patient-side
// credential, so session reads and message appends require nothing more.
func RegisterPublicEndpoints(
	router *gin.Engine,
	sessionHandler *handlers.SessionHandler,
	signalingHandler *handlers.SignalingHandler,
	signalingAuth gin.HandlerFunc,
) {
	api := router.Group("/api")

	api.POST("/sessions", sessionHandler.Enqueue)
	api.GET("/queue", sessionHandler.ListQueue)
	api.GET("/sessions/:sessionId", sessionHandler.GetSession)
	api.POST("/sessions/:sessionId/status", sessionHandler.SetStatus)
	api.POST("/sessions/:sessionId/messages", sessionHandler.SendMessage)
	api.GET("/sessions/:sessionId/messages", sessionHandler.ListMessages)
	api.GET("/sessions/:sessionId/notes", sessionHandler.GetNotes)

	api.POST("/doctors", sessionHandler.RegisterDoctor)

	// WebSocket signaling uses query-parameter auth, not the bearer
	// middleware: browsers cannot set headers on WebSocket dials.
	router.GET("/ws/signaling", signalingAuth, signalingHandler.HandleSignaling)
}
