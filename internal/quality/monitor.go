package quality

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog"
)

const (
	// DefaultSampleInterval is how often stats are read from the peer
	// connection.
	DefaultSampleInterval = 4 * time.Second

	// rttDegradedMs and lossDegradedPct are exclusive thresholds: a
	// sample is degraded only when it is strictly above one of them.
	rttDegradedMs   = 350.0
	lossDegradedPct = 5.0
)

// Verdict summarizes one stats sample.
type Verdict string

const (
	VerdictGood     Verdict = "good"
	VerdictDegraded Verdict = "degraded"
	VerdictUnknown  Verdict = "unknown"
)

// Sample is one connection quality observation. RTTMillis and
// LossPercent are nil when the underlying stats did not expose them.
type Sample struct {
	Verdict     Verdict
	RTTMillis   *float64
	LossPercent *float64
	TakenAt     time.Time
}

// StatsSource yields a current stats report, typically a
// webrtc.PeerConnection.
type StatsSource interface {
	GetStats() webrtc.StatsReport
}

// Monitor samples connection statistics on a fixed interval and reports a
// degraded verdict when round-trip time or packet loss crosses its
// threshold. When a call degrades the caller can offer the audio-only and
// text fallbacks.
type Monitor struct {
	source   StatsSource
	interval time.Duration
	onSample func(Sample)
	log      zerolog.Logger

	mu       sync.Mutex
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
}

// NewMonitor creates a quality monitor. A non-positive interval falls
// back to the default four seconds.
func NewMonitor(source StatsSource, interval time.Duration, log zerolog.Logger, onSample func(Sample)) *Monitor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Monitor{
		source:   source,
		interval: interval,
		onSample: onSample,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start begins sampling until Stop is called or the context is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		cancel()
		m.doneOnce.Do(func() { close(m.done) })
		return
	}
	m.cancel = cancel
	m.mu.Unlock()

	go func() {
		defer m.doneOnce.Do(func() { close(m.done) })
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.tick()
			}
		}
	}()
}

// Stop halts sampling. Safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	already := m.stopped
	m.stopped = true
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	} else if !already {
		m.doneOnce.Do(func() { close(m.done) })
	}
}

// Done is closed once the sampling goroutine has exited.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) tick() {
	sample := Assess(m.source.GetStats())
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if stopped {
		return
	}
	if sample.Verdict == VerdictDegraded {
		m.log.Warn().
			Interface("rtt_ms", sample.RTTMillis).
			Interface("loss_pct", sample.LossPercent).
			Msg("connection degraded")
	}
	m.onSample(sample)
}

// Assess extracts round-trip time and packet loss from a stats report and
// classifies the sample. RTT comes from the active candidate pair, loss
// from inbound RTP counters accumulated across streams. Missing metrics
// never count as degraded; when both are missing the verdict is unknown.
func Assess(report webrtc.StatsReport) Sample {
	sample := Sample{Verdict: VerdictUnknown, TakenAt: time.Now()}

	var lost, received int64
	sawInbound := false
	for _, stat := range report {
		switch s := stat.(type) {
		case webrtc.ICECandidatePairStats:
			if s.State != webrtc.StatsICECandidatePairStateSucceeded {
				continue
			}
			if s.CurrentRoundTripTime > 0 {
				ms := s.CurrentRoundTripTime * 1000
				sample.RTTMillis = &ms
			}
		case webrtc.InboundRTPStreamStats:
			sawInbound = true
			lost += int64(s.PacketsLost)
			received += int64(s.PacketsReceived)
		}
	}

	if sawInbound && lost+received > 0 {
		pct := float64(lost) / float64(lost+received) * 100
		sample.LossPercent = &pct
	}

	if sample.RTTMillis == nil && sample.LossPercent == nil {
		return sample
	}
	sample.Verdict = VerdictGood
	if sample.RTTMillis != nil && *sample.RTTMillis > rttDegradedMs {
		sample.Verdict = VerdictDegraded
	}
	if sample.LossPercent != nil && *sample.LossPercent > lossDegradedPct {
		sample.Verdict = VerdictDegraded
	}
	return sample
}

// TextFallbackCommand is the terminal command a degraded user can run to
// continue the consultation over text only.
func TextFallbackCommand(host, sessionID string) string {
	return fmt.Sprintf("ssh %s -t %s", host, sessionID)
}
