package call

import (
	"errors"
	"fmt"
)

var (
	errNotStarted       = errors.New("call not started")
	errConnectionFailed = errors.New("peer connection failed")
)

// MediaErrorKind classifies why local capture could not start.
type MediaErrorKind string

const (
	MediaPermissionDenied MediaErrorKind = "permission_denied"
	MediaNoDevice         MediaErrorKind = "no_device"
	MediaOverconstrained  MediaErrorKind = "overconstrained"
	MediaInsecureContext  MediaErrorKind = "insecure_context"
	MediaUnavailable      MediaErrorKind = "unavailable"
)

// MediaAccessError wraps a capture failure with a user-actionable
// message. The session survives these: the caller falls back to audio
// only or to text chat.
type MediaAccessError struct {
	Kind MediaErrorKind
	Err  error
}

func (e *MediaAccessError) Error() string {
	return fmt.Sprintf("media access (%s): %s", e.Kind, e.Message())
}

func (e *MediaAccessError) Unwrap() error { return e.Err }

// Message is the guidance shown to the user.
func (e *MediaAccessError) Message() string {
	switch e.Kind {
	case MediaPermissionDenied:
		return "camera or microphone access was denied, grant permission and retry"
	case MediaNoDevice:
		return "no camera or microphone was found, connect a device and retry"
	case MediaOverconstrained:
		return "the device does not support the requested capture settings"
	case MediaInsecureContext:
		return "media capture requires a secure connection"
	default:
		return "the camera or microphone is unavailable, it may be in use by another application"
	}
}

// NewMediaAccessError classifies a raw capture error by its kind.
func NewMediaAccessError(kind MediaErrorKind, err error) *MediaAccessError {
	return &MediaAccessError{Kind: kind, Err: err}
}

// SignalingError wraps a failure of the signaling channel. Transient
// ones warrant a reconnect, fatal ones end the call attempt.
type SignalingError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *SignalingError) Error() string {
	return fmt.Sprintf("signaling %s: %v", e.Op, e.Err)
}

func (e *SignalingError) Unwrap() error { return e.Err }
