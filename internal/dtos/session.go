package dtos

import "github.com/rexdotsh/valeo/internal/models"

// TriagePayload is the intake snapshot submitted at enqueue.
type TriagePayload struct {
	Category string `json:"category" binding:"required"`
	Urgency  string `json:"urgency" binding:"required,oneof=routine urgent emergency"`
	Language string `json:"language" binding:"required"`
	Symptoms string `json:"symptoms" binding:"required"`
}

type EnqueueRequest struct {
	SessionID string        `json:"session_id" binding:"required,sessiontoken"`
	Triage    TriagePayload `json:"triage" binding:"required"`
}

type EnqueueResponse struct {
	RecordID string `json:"record_id"`
}

type QueueEntry struct {
	SessionID string        `json:"session_id"`
	Status    string        `json:"status"`
	Triage    TriagePayload `json:"triage"`
}

type ClaimRequest struct {
	SessionID string `json:"session_id" binding:"required,sessiontoken"`
}

type ClaimResponse struct {
	Claimed bool `json:"claimed"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=waiting claimed in_call ended"`
}

type SetStatusResponse struct {
	Updated bool `json:"updated"`
}

type SessionResponse struct {
	SessionID       string        `json:"session_id"`
	Status          string        `json:"status"`
	Triage          TriagePayload `json:"triage"`
	ClaimedByDoctor *string       `json:"claimed_by_doctor,omitempty"`
}

type SendMessageRequest struct {
	Sender string `json:"sender" binding:"required,oneof=doctor patient"`
	Text   string `json:"text" binding:"required"`
}

type SendMessageResponse struct {
	MessageID string `json:"message_id"`
}

type MessageEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type UpsertNotesRequest struct {
	Body string `json:"body" binding:"required"`
}

type NotesResponse struct {
	Body string `json:"body"`
}

type RegisterDoctorRequest struct {
	Name      string   `json:"name" binding:"required"`
	Code      string   `json:"code" binding:"required,min=4"`
	Languages []string `json:"languages"`
}

type RegisterDoctorResponse struct {
	DoctorID string `json:"doctor_id"`
	Token    string `json:"token"`
}

type IsDoctorResponse struct {
	Doctor bool `json:"doctor"`
}

type PastConsultationEntry struct {
	SessionID string  `json:"session_id"`
	Date      string  `json:"date"`
	Category  string  `json:"category"`
	Urgency   string  `json:"urgency"`
	Summary   *string `json:"summary,omitempty"`
}

// FromSession maps a session model to its wire form.
func FromSession(s *models.Session) SessionResponse {
	return SessionResponse{
		SessionID: s.SessionID,
		Status:    string(s.Status),
		Triage: TriagePayload{
			Category: s.Triage.Category,
			Urgency:  string(s.Triage.Urgency),
			Language: s.Triage.Language,
			Symptoms: s.Triage.Symptoms,
		},
		ClaimedByDoctor: s.ClaimedByDoctor,
	}
}
