package call

import "github.com/pion/webrtc/v3"

// Capture profiles. Audio is mono with echo cancellation, video is kept
// small and slow to stay usable on constrained uplinks.
const (
	AudioChannels         = 1
	AudioEchoCancellation = true

	VideoWidth     = 426
	VideoHeight    = 240
	VideoMaxFPS    = 15
	VideoFrameRate = float64(VideoMaxFPS)
)

// CaptureProfile describes the requested local capture configuration.
type CaptureProfile struct {
	AudioChannels    int
	EchoCancellation bool
	VideoWidth       int
	VideoHeight      int
	VideoMaxFPS      int
}

// DefaultCaptureProfile is what consultations request from the device
// layer.
func DefaultCaptureProfile() CaptureProfile {
	return CaptureProfile{
		AudioChannels:    AudioChannels,
		EchoCancellation: AudioEchoCancellation,
		VideoWidth:       VideoWidth,
		VideoHeight:      VideoHeight,
		VideoMaxFPS:      VideoMaxFPS,
	}
}

// CaptureDevice produces local media tracks. Implementations wrap real
// hardware; tests substitute fakes. Failures must be reported as
// MediaAccessError so the caller can degrade instead of aborting.
type CaptureDevice interface {
	// OpenAudio returns a mono microphone track.
	OpenAudio(profile CaptureProfile) (webrtc.TrackLocal, error)
	// OpenVideo returns a camera track at the profile's resolution, or a
	// MediaAccessError when no camera can serve it.
	OpenVideo(profile CaptureProfile) (webrtc.TrackLocal, error)
	// Close releases any open hardware handles.
	Close() error
}
