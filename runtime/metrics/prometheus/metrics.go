// Package prometheus provides Prometheus metrics for the kiosk's audio path,
// sessions and conversations.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "promptkiosk"

// Status label values.
const (
	statusSuccess = "success"
	statusError   = "error"

	frameCaptured = "captured"
	frameDropped  = "dropped"
)

var (
	// audioFramesTotal counts microphone frames by what happened to them.
	audioFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_total",
			Help:      "Total number of microphone frames captured or dropped",
		},
		[]string{"status"}, // status: captured, dropped
	)

	// audioSendsTotal counts outbound audio chunks.
	audioSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_sends_total",
			Help:      "Total number of audio chunks sent to the live session",
		},
		[]string{"status"}, // status: success, error
	)

	// playbackChunkDuration is a histogram of scheduled chunk lengths.
	playbackChunkDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "playback_chunk_duration_seconds",
			Help:      "Duration of scheduled playback chunks in seconds",
			Buckets:   []float64{.02, .05, .1, .2, .5, 1, 2, 5},
		},
	)

	// playbackLeadTime is how far ahead of the playback clock chunks start.
	playbackLeadTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "playback_lead_seconds",
			Help:      "Queued audio ahead of the playback clock when a chunk is scheduled",
			Buckets:   []float64{0, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// playbackInterruptionsTotal counts barge-ins.
	playbackInterruptionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_interruptions_total",
			Help:      "Total number of playback interruptions",
		},
	)

	// playbackVoicesStoppedTotal counts voices cut short by interruptions.
	playbackVoicesStoppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_voices_stopped_total",
			Help:      "Total number of playing chunks stopped by interruptions",
		},
	)

	// decodeErrorsTotal counts dropped inbound payloads.
	decodeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total number of inbound payloads dropped as malformed",
		},
	)

	// sessionsTotal counts live sessions by outcome.
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of live sessions by outcome",
		},
		[]string{"status"}, // status: connected, connect_error, transport_error
	)

	// conversationsActive is a gauge of open conversations.
	conversationsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversations_active",
			Help:      "Number of currently active conversations",
		},
	)

	// conversationDuration is a histogram of conversation length.
	conversationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversation_duration_seconds",
			Help:      "Histogram of conversation duration in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"status"}, // status: success, error
	)

	// turnsTotal counts completed turns.
	turnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_turns_total",
			Help:      "Total number of completed conversation turns",
		},
	)

	// transcriptsSavedTotal counts persisted transcripts.
	transcriptsSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_saved_total",
			Help:      "Total number of transcripts persisted",
		},
	)

	// faceScansTotal counts scanner runs by result.
	faceScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "face_scans_total",
			Help:      "Total number of face scans by result",
		},
		[]string{"result"}, // result: detected, cancelled, error
	)

	// faceScanDuration is the time from scan start to result.
	faceScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "face_scan_duration_seconds",
			Help:      "Time from scan start to result in seconds",
			Buckets:   []float64{.5, 1, 2, 5, 10, 30, 60, 300},
		},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		audioFramesTotal,
		audioSendsTotal,
		playbackChunkDuration,
		playbackLeadTime,
		playbackInterruptionsTotal,
		playbackVoicesStoppedTotal,
		decodeErrorsTotal,
		sessionsTotal,
		conversationsActive,
		conversationDuration,
		turnsTotal,
		transcriptsSavedTotal,
		faceScansTotal,
		faceScanDuration,
	}
)

// RecordFrame records a captured or dropped microphone frame.
func RecordFrame(dropped bool) {
	if dropped {
		audioFramesTotal.WithLabelValues(frameDropped).Inc()
		return
	}
	audioFramesTotal.WithLabelValues(frameCaptured).Inc()
}

// RecordSend records an outbound chunk.
func RecordSend(err error) {
	if err != nil {
		audioSendsTotal.WithLabelValues(statusError).Inc()
		return
	}
	audioSendsTotal.WithLabelValues(statusSuccess).Inc()
}

// RecordChunkScheduled records a scheduled playback chunk. lead is how far
// in the future the chunk starts.
func RecordChunkScheduled(lead, durationSeconds float64) {
	if lead < 0 {
		lead = 0
	}
	playbackLeadTime.Observe(lead)
	playbackChunkDuration.Observe(durationSeconds)
}

// RecordInterruption records a barge-in that stopped the given number of voices.
func RecordInterruption(stopped int) {
	playbackInterruptionsTotal.Inc()
	if stopped > 0 {
		playbackVoicesStoppedTotal.Add(float64(stopped))
	}
}

// RecordDecodeError records a dropped inbound payload.
func RecordDecodeError() {
	decodeErrorsTotal.Inc()
}

// RecordSession records a session outcome.
func RecordSession(status string) {
	sessionsTotal.WithLabelValues(status).Inc()
}

// RecordConversationStart records a conversation start.
func RecordConversationStart() {
	conversationsActive.Inc()
}

// RecordConversationEnd records a conversation end.
func RecordConversationEnd(status string, durationSeconds float64) {
	conversationsActive.Dec()
	conversationDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordTurn records a completed turn.
func RecordTurn() {
	turnsTotal.Inc()
}

// RecordTranscriptSaved records a persisted transcript.
func RecordTranscriptSaved() {
	transcriptsSavedTotal.Inc()
}

// RecordFaceScan records the result of a scan.
func RecordFaceScan(result string, durationSeconds float64) {
	faceScansTotal.WithLabelValues(result).Inc()
	faceScanDuration.Observe(durationSeconds)
}
