package call

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexdotsh/valeo/internal/models"
	"github.com/rexdotsh/valeo/internal/signaling"
)

type fakeDevice struct {
	mu         sync.Mutex
	videoErr   error
	audioOpens int
	videoOpens int
	closed     bool
}

func (d *fakeDevice) OpenAudio(CaptureProfile) (webrtc.TrackLocal, error) {
	d.mu.Lock()
	d.audioOpens++
	d.mu.Unlock()
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "mic",
	)
}

func (d *fakeDevice) OpenVideo(CaptureProfile) (webrtc.TrackLocal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.videoOpens++
	if d.videoErr != nil {
		return nil, d.videoErr
	}
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "cam",
	)
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []signaling.Envelope
}

func (t *fakeTransport) Send(env signaling.Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, env)
	return nil
}

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) byType(msgType string) []signaling.Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []signaling.Envelope
	for _, env := range t.sent {
		if env.Type == msgType {
			out = append(out, env)
		}
	}
	return out
}

func newTestEngine(t *testing.T, role models.SenderRole) (*Engine, *fakeTransport, *fakeDevice) {
	t.Helper()
	transport := &fakeTransport{}
	device := &fakeDevice{}
	engine := NewEngine(role, transport, device, Events{}, zerolog.Nop())
	t.Cleanup(func() { engine.Close() })
	return engine, transport, device
}

func TestStart_OpensAudioCapture(t *testing.T) {
	engine, _, device := newTestEngine(t, models.SenderPatient)
	require.NoError(t, engine.Start(context.Background(), false))
	assert.Equal(t, 1, device.audioOpens)
	assert.Equal(t, 0, device.videoOpens)
	assert.False(t, engine.VideoEnabled())
}

func TestStart_CameraFailureDegradesToAudioOnly(t *testing.T) {
	transport := &fakeTransport{}
	device := &fakeDevice{videoErr: NewMediaAccessError(MediaNoDevice, errors.New("no camera"))}
	var mu sync.Mutex
	var reported error
	engine := NewEngine(models.SenderPatient, transport, device, Events{
		OnError: func(err error) {
			mu.Lock()
			reported = err
			mu.Unlock()
		},
	}, zerolog.Nop())
	defer engine.Close()

	// The call still starts; the camera failure is reported, not fatal.
	require.NoError(t, engine.Start(context.Background(), true))
	assert.False(t, engine.VideoEnabled())

	mu.Lock()
	defer mu.Unlock()
	var mediaErr *MediaAccessError
	require.ErrorAs(t, reported, &mediaErr)
	assert.Equal(t, MediaNoDevice, mediaErr.Kind)
}

func TestStart_LastCallWins(t *testing.T) {
	engine, _, device := newTestEngine(t, models.SenderPatient)
	require.NoError(t, engine.Start(context.Background(), false))
	require.NoError(t, engine.Start(context.Background(), false))
	assert.Equal(t, 2, device.audioOpens)
}

func TestToggleVideo_BeforeStartFails(t *testing.T) {
	engine, _, _ := newTestEngine(t, models.SenderPatient)
	_, err := engine.ToggleVideo()
	assert.Error(t, err)
}

func TestToggleVideo_AddsThenRemovesCameraTrack(t *testing.T) {
	engine, _, device := newTestEngine(t, models.SenderPatient)
	require.NoError(t, engine.Start(context.Background(), false))

	on, err := engine.ToggleVideo()
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, engine.VideoEnabled())
	assert.Equal(t, 1, device.videoOpens)

	on, err = engine.ToggleVideo()
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, engine.VideoEnabled())
}

func TestToggleVideo_TriggersRenegotiationOffer(t *testing.T) {
	engine, transport, _ := newTestEngine(t, models.SenderDoctor)
	require.NoError(t, engine.Start(context.Background(), false))

	_, err := engine.ToggleVideo()
	require.NoError(t, err)
	offers := transport.byType(signaling.TypeOffer)
	require.NotEmpty(t, offers)

	var payload signaling.OfferPayload
	require.NoError(t, offers[len(offers)-1].Decode(&payload))
	assert.Contains(t, payload.SDP, "v=0")
}

func TestPeerJoined_OnlyImpoliteSideInitiates(t *testing.T) {
	joined, err := signaling.NewEnvelope(signaling.TypePeerJoined, signaling.PeerJoinedPayload{Role: "patient"})
	require.NoError(t, err)

	doctor, doctorTransport, _ := newTestEngine(t, models.SenderDoctor)
	require.NoError(t, doctor.Start(context.Background(), false))
	doctor.HandleEnvelope(joined)
	assert.NotEmpty(t, doctorTransport.byType(signaling.TypeOffer))

	patient, patientTransport, _ := newTestEngine(t, models.SenderPatient)
	require.NoError(t, patient.Start(context.Background(), false))
	patient.HandleEnvelope(joined)
	assert.Empty(t, patientTransport.byType(signaling.TypeOffer))
}

func TestOfferAnswerAcrossTwoEngines(t *testing.T) {
	doctor, doctorTransport, _ := newTestEngine(t, models.SenderDoctor)
	patient, patientTransport, _ := newTestEngine(t, models.SenderPatient)
	require.NoError(t, doctor.Start(context.Background(), false))
	require.NoError(t, patient.Start(context.Background(), false))

	joined, err := signaling.NewEnvelope(signaling.TypePeerJoined, signaling.PeerJoinedPayload{Role: "patient"})
	require.NoError(t, err)
	doctor.HandleEnvelope(joined)

	offers := doctorTransport.byType(signaling.TypeOffer)
	require.Len(t, offers, 1)
	patient.HandleEnvelope(offers[0])

	answers := patientTransport.byType(signaling.TypeAnswer)
	require.Len(t, answers, 1)
	doctor.HandleEnvelope(answers[0])
}

func TestOfferCollision_PolitePeerAnswersOnRebuiltConnection(t *testing.T) {
	doctor, doctorTransport, _ := newTestEngine(t, models.SenderDoctor)
	require.NoError(t, doctor.Start(context.Background(), false))

	transport := &fakeTransport{}
	device := &fakeDevice{}
	var mu sync.Mutex
	var reported []error
	patient := NewEngine(models.SenderPatient, transport, device, Events{
		OnError: func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
		},
	}, zerolog.Nop())
	defer patient.Close()
	require.NoError(t, patient.Start(context.Background(), false))
	require.NoError(t, patient.SetMuted(true))

	// Both sides offer at once: the patient renegotiates for video while
	// the doctor reacts to the join announcement.
	_, err := patient.ToggleVideo()
	require.NoError(t, err)
	require.NotEmpty(t, transport.byType(signaling.TypeOffer))

	joined, err := signaling.NewEnvelope(signaling.TypePeerJoined, signaling.PeerJoinedPayload{Role: "patient"})
	require.NoError(t, err)
	doctor.HandleEnvelope(joined)
	offers := doctorTransport.byType(signaling.TypeOffer)
	require.Len(t, offers, 1)

	patient.HandleEnvelope(offers[0])

	answers := transport.byType(signaling.TypeAnswer)
	require.Len(t, answers, 1, "polite peer must abandon its offer and answer")
	var payload signaling.AnswerPayload
	require.NoError(t, answers[0].Decode(&payload))
	assert.Contains(t, payload.SDP, "v=0")

	// Local state survives the swap.
	assert.True(t, patient.VideoEnabled())
	assert.True(t, patient.Muted())

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, reported)
}

func TestOfferCollision_ImpoliteSideLetsOwnOfferStand(t *testing.T) {
	patient, patientTransport, _ := newTestEngine(t, models.SenderPatient)
	require.NoError(t, patient.Start(context.Background(), false))
	_, err := patient.ToggleVideo()
	require.NoError(t, err)
	patientOffers := patientTransport.byType(signaling.TypeOffer)
	require.Len(t, patientOffers, 1)

	doctor, doctorTransport, _ := newTestEngine(t, models.SenderDoctor)
	require.NoError(t, doctor.Start(context.Background(), false))
	_, err = doctor.ToggleVideo()
	require.NoError(t, err)

	doctor.HandleEnvelope(patientOffers[0])

	assert.Empty(t, doctorTransport.byType(signaling.TypeAnswer))
	assert.Len(t, doctorTransport.byType(signaling.TypeOffer), 1)
}

func TestGetStats_NilBeforeStart(t *testing.T) {
	engine, _, _ := newTestEngine(t, models.SenderPatient)
	assert.Nil(t, engine.GetStats())

	require.NoError(t, engine.Start(context.Background(), false))
	assert.NotNil(t, engine.GetStats())
}

func TestSetMuted_PausesAndResumes(t *testing.T) {
	engine, _, _ := newTestEngine(t, models.SenderPatient)
	require.NoError(t, engine.Start(context.Background(), false))

	require.NoError(t, engine.SetMuted(true))
	assert.True(t, engine.Muted())
	// Muting twice is a no-op, not an error.
	require.NoError(t, engine.SetMuted(true))

	require.NoError(t, engine.SetMuted(false))
	assert.False(t, engine.Muted())
}

func TestSetMuted_BeforeStartFails(t *testing.T) {
	engine, _, _ := newTestEngine(t, models.SenderPatient)
	assert.Error(t, engine.SetMuted(true))
}

func TestClose_IsIdempotentAndReleasesDevice(t *testing.T) {
	transport := &fakeTransport{}
	device := &fakeDevice{}
	engine := NewEngine(models.SenderPatient, transport, device, Events{}, zerolog.Nop())
	require.NoError(t, engine.Start(context.Background(), false))

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())
	assert.True(t, device.closed)
	assert.NotEmpty(t, transport.byType(signaling.TypeLeave))

	assert.Error(t, engine.Send([]byte("late")))
	require.Error(t, engine.Start(context.Background(), false))
}

func TestHandleEnvelope_LateEventsAfterCloseAreDropped(t *testing.T) {
	engine, transport, _ := newTestEngine(t, models.SenderDoctor)
	require.NoError(t, engine.Start(context.Background(), false))
	require.NoError(t, engine.Close())

	joined, err := signaling.NewEnvelope(signaling.TypePeerJoined, signaling.PeerJoinedPayload{Role: "patient"})
	require.NoError(t, err)
	engine.HandleEnvelope(joined)
	assert.Empty(t, transport.byType(signaling.TypeOffer))
}
