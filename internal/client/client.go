package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rexdotsh/valeo/internal/dtos"
	"github.com/rexdotsh/valeo/internal/models"
)

// Client consumes the session repository contract over HTTP. The base
// URL is explicit configuration threaded in at construction; there is no
// ambient default.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	doctorToken string
}

// New creates a repository client for the given endpoint.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithDoctorToken returns a copy of the client that authenticates as a
// doctor.
func (c *Client) WithDoctorToken(token string) *Client {
	clone := *c
	clone.doctorToken = token
	return &clone
}

// Enqueue creates (or idempotently re-creates) a waiting session and
// returns the repository record id.
func (c *Client) Enqueue(ctx context.Context, sessionID string, triage models.TriageSnapshot) (string, error) {
	req := dtos.EnqueueRequest{
		SessionID: sessionID,
		Triage: dtos.TriagePayload{
			Category: triage.Category,
			Urgency:  string(triage.Urgency),
			Language: triage.Language,
			Symptoms: triage.Symptoms,
		},
	}
	var resp dtos.EnqueueResponse
	if _, err := c.do(ctx, "enqueue", http.MethodPost, "/api/sessions", req, &resp); err != nil {
		return "", err
	}
	return resp.RecordID, nil
}

// ListQueue returns the waiting sessions, emergency first.
func (c *Client) ListQueue(ctx context.Context, urgency models.Urgency) ([]dtos.QueueEntry, error) {
	path := "/api/queue"
	if urgency != "" {
		path += "?urgency=" + url.QueryEscape(string(urgency))
	}
	var entries []dtos.QueueEntry
	if _, err := c.do(ctx, "listQueue", http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Claim takes ownership of a waiting session. False means the session is
// unknown or someone else got it first.
func (c *Client) Claim(ctx context.Context, sessionID string) (bool, error) {
	var resp dtos.ClaimResponse
	if _, err := c.do(ctx, "claim", http.MethodPost, "/api/claims", dtos.ClaimRequest{SessionID: sessionID}, &resp); err != nil {
		return false, err
	}
	return resp.Claimed, nil
}

// SetStatus advances the session lifecycle status.
func (c *Client) SetStatus(ctx context.Context, sessionID string, status models.SessionStatus) (bool, error) {
	var resp dtos.SetStatusResponse
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/status"
	if _, err := c.do(ctx, "setStatus", http.MethodPost, path, dtos.SetStatusRequest{Status: string(status)}, &resp); err != nil {
		return false, err
	}
	return resp.Updated, nil
}

// GetSession fetches a session, or nil when the token is unknown.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*dtos.SessionResponse, error) {
	var resp dtos.SessionResponse
	status, err := c.do(ctx, "getSession", http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID), nil, &resp)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage appends a chat message and returns its id.
func (c *Client) SendMessage(ctx context.Context, sessionID string, sender models.SenderRole, text string) (string, error) {
	var resp dtos.SendMessageResponse
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/messages"
	if _, err := c.do(ctx, "sendMessage", http.MethodPost, path, dtos.SendMessageRequest{Sender: string(sender), Text: text}, &resp); err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

// ListMessages returns the transcript in insertion order.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]dtos.MessageEntry, error) {
	var entries []dtos.MessageEntry
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/messages"
	if _, err := c.do(ctx, "listMessages", http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpsertNotes writes doctor notes. Requires a doctor token.
func (c *Client) UpsertNotes(ctx context.Context, sessionID, body string) error {
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/notes"
	_, err := c.do(ctx, "upsertNotes", http.MethodPut, path, dtos.UpsertNotesRequest{Body: body}, nil)
	return err
}

// UpsertSummary writes the post-consultation summary. Requires a doctor
// token.
func (c *Client) UpsertSummary(ctx context.Context, sessionID, body string) error {
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/summary"
	_, err := c.do(ctx, "upsertSummary", http.MethodPut, path, dtos.UpsertNotesRequest{Body: body}, nil)
	return err
}

// GetNotes returns the notes body, or nil when none exist.
func (c *Client) GetNotes(ctx context.Context, sessionID string) (*dtos.NotesResponse, error) {
	var resp dtos.NotesResponse
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/notes"
	status, err := c.do(ctx, "getNotes", http.MethodGet, path, nil, &resp)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPastConsultations returns the doctor's ended sessions. Requires a
// doctor token.
func (c *Client) ListPastConsultations(ctx context.Context, limit int) ([]dtos.PastConsultationEntry, error) {
	var entries []dtos.PastConsultationEntry
	path := "/api/consultations?limit=" + strconv.Itoa(limit)
	if _, err := c.do(ctx, "listPastConsultations", http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// RegisterDoctor creates a doctor record and returns its id and bearer
// token.
func (c *Client) RegisterDoctor(ctx context.Context, name, code string, languages []string) (*dtos.RegisterDoctorResponse, error) {
	var resp dtos.RegisterDoctorResponse
	req := dtos.RegisterDoctorRequest{Name: name, Code: code, Languages: languages}
	if _, err := c.do(ctx, "registerDoctor", http.MethodPost, "/api/doctors", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsDoctor reports whether the configured token belongs to an active
// doctor.
func (c *Client) IsDoctor(ctx context.Context) (bool, error) {
	var resp dtos.IsDoctorResponse
	if _, err := c.do(ctx, "isDoctor", http.MethodGet, "/api/doctors/me", nil, &resp); err != nil {
		if IsAuthorization(err) {
			return false, nil
		}
		return false, err
	}
	return resp.Doctor, nil
}

// Deactivate takes the authenticated doctor off the on-call roster.
func (c *Client) Deactivate(ctx context.Context) error {
	_, err := c.do(ctx, "deactivate", http.MethodDelete, "/api/doctors/me", nil, nil)
	return err
}

// do performs one JSON round-trip. It returns the HTTP status so callers
// can special-case 404; any non-2xx is also folded into the error.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, &RepositoryError{Op: op, Err: err}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, &RepositoryError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.doctorToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.doctorToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &RepositoryError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return resp.StatusCode, &AuthorizationError{Op: op, Message: readErrorMessage(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &RepositoryError{
			Op:  op,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, readErrorMessage(resp.Body)),
		}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, &RepositoryError{Op: op, Err: err}
		}
	}
	return resp.StatusCode, nil
}

func readErrorMessage(r io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "unreadable error body"
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
