package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rexdotsh/valeo/internal/dtos"
	"github.com/rexdotsh/valeo/internal/middlewares"
	"github.com/rexdotsh/valeo/internal/models"
	"github.com/rexdotsh/valeo/internal/repositories"
	"github.com/rexdotsh/valeo/internal/services"
	"github.com/rexdotsh/valeo/internal/utils"
)

type SessionHandler struct {
	service   *services.SessionService
	jwtSecret string
	tokenTTL  time.Duration
}

func NewSessionHandler(service *services.SessionService, jwtSecret string, tokenTTL time.Duration) *SessionHandler {
	return &SessionHandler{service: service, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Enqueue creates or returns a waiting session. Idempotent per session
// token.
func (h *SessionHandler) Enqueue(c *gin.Context) {
	var req dtos.EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.service.Enqueue(c.Request.Context(), req.SessionID, models.TriageSnapshot{
		Category: req.Triage.Category,
		Urgency:  models.Urgency(req.Triage.Urgency),
		Language: req.Triage.Language,
		Symptoms: req.Triage.Symptoms,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, dtos.EnqueueResponse{RecordID: session.ID.String()})
}

// ListQueue returns waiting sessions, emergency first.
func (h *SessionHandler) ListQueue(c *gin.Context) {
	urgency := models.Urgency(c.Query("urgency"))

	sessions, err := h.service.ListQueue(c.Request.Context(), urgency)
	if err != nil {
		h.renderError(c, err)
		return
	}

	entries := make([]dtos.QueueEntry, 0, len(sessions))
	for _, s := range sessions {
		resp := dtos.FromSession(s)
		entries = append(entries, dtos.QueueEntry{
			SessionID: resp.SessionID,
			Status:    resp.Status,
			Triage:    resp.Triage,
		})
	}
	c.JSON(http.StatusOK, entries)
}

// Claim takes ownership of a waiting session for the authenticated
// doctor.
func (h *SessionHandler) Claim(c *gin.Context) {
	doctorID, err := middlewares.GetDoctorID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var req dtos.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claimed, err := h.service.Claim(c.Request.Context(), req.SessionID, doctorID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.ClaimResponse{Claimed: claimed})
}

// SetStatus advances a session's lifecycle status.
func (h *SessionHandler) SetStatus(c *gin.Context) {
	var req dtos.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.SetStatus(c.Request.Context(), c.Param("sessionId"), models.SessionStatus(req.Status))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.SetStatusResponse{Updated: updated})
}

// GetSession returns one session or 404.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.service.GetSession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, dtos.FromSession(session))
}

// SendMessage appends a chat message to a session.
func (h *SessionHandler) SendMessage(c *gin.Context) {
	var req dtos.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	messageID, err := h.service.SendMessage(c.Request.Context(), c.Param("sessionId"), models.SenderRole(req.Sender), req.Text)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.SendMessageResponse{MessageID: messageID.String()})
}

// ListMessages returns a session's transcript in insertion order.
func (h *SessionHandler) ListMessages(c *gin.Context) {
	messages, err := h.service.ListMessages(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	entries := make([]dtos.MessageEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, dtos.MessageEntry{Sender: string(m.Sender), Text: m.Text})
	}
	c.JSON(http.StatusOK, entries)
}

// UpsertNotes writes doctor notes for a session.
func (h *SessionHandler) UpsertNotes(c *gin.Context) {
	doctorID, err := middlewares.GetDoctorID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var req dtos.UpsertNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.UpsertNotes(c.Request.Context(), c.Param("sessionId"), doctorID, req.Body); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpsertSummary writes the post-consultation summary shown in history.
func (h *SessionHandler) UpsertSummary(c *gin.Context) {
	doctorID, err := middlewares.GetDoctorID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var req dtos.UpsertNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.UpsertSummary(c.Request.Context(), c.Param("sessionId"), doctorID, req.Body); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetNotes returns doctor notes, or 404 when none exist.
func (h *SessionHandler) GetNotes(c *gin.Context) {
	note, err := h.service.GetNotes(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if note == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "notes not found"})
		return
	}
	c.JSON(http.StatusOK, dtos.NotesResponse{Body: note.Body})
}

// ListPastConsultations returns the doctor's ended sessions.
func (h *SessionHandler) ListPastConsultations(c *gin.Context) {
	doctorID, err := middlewares.GetDoctorID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	items, err := h.service.ListPastConsultations(c.Request.Context(), doctorID, limit)
	if err != nil {
		h.renderError(c, err)
		return
	}

	entries := make([]dtos.PastConsultationEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, dtos.PastConsultationEntry{
			SessionID: item.SessionID,
			Date:      item.Date.UTC().Format(time.RFC3339),
			Category:  item.Category,
			Urgency:   string(item.Urgency),
			Summary:   item.Summary,
		})
	}
	c.JSON(http.StatusOK, entries)
}

// RegisterDoctor creates an active doctor record and returns its bearer
// token.
func (h *SessionHandler) RegisterDoctor(c *gin.Context) {
	var req dtos.RegisterDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doctor, err := h.service.RegisterDoctor(c.Request.Context(), req.Name, req.Code, req.Languages)
	if err != nil {
		h.renderError(c, err)
		return
	}

	token, err := utils.IssueDoctorToken(doctor.ID, doctor.Name, h.jwtSecret, h.tokenTTL)
	if err != nil {
		log.Error().Err(err).Msg("issue doctor token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, dtos.RegisterDoctorResponse{DoctorID: doctor.ID.String(), Token: token})
}

// IsDoctor reports whether the bearer identity is an active doctor. The
// auth middleware already rejects inactive doctors, so reaching here
// means yes.
func (h *SessionHandler) IsDoctor(c *gin.Context) {
	c.JSON(http.StatusOK, dtos.IsDoctorResponse{Doctor: true})
}

// DeactivateSelf takes the authenticated doctor off the roster.
func (h *SessionHandler) DeactivateSelf(c *gin.Context) {
	doctorID, err := middlewares.GetDoctorID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if err := h.service.DeactivateDoctor(c.Request.Context(), doctorID); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent update, retry"})
	case errors.Is(err, repositories.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
