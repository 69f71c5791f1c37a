package prometheus

import "time"

// Observer records kiosk notifications as Prometheus metrics. It satisfies
// live.Observer for the audio path and the conversation hooks used by the
// kiosk package.
type Observer struct{}

// NewObserver creates a new Observer.
func NewObserver() *Observer {
	return &Observer{}
}

// FrameCaptured implements audio.CaptureObserver.
func (*Observer) FrameCaptured() { RecordFrame(false) }

// FrameDropped implements audio.CaptureObserver.
func (*Observer) FrameDropped() { RecordFrame(true) }

// FrameSent implements audio.CaptureObserver.
func (*Observer) FrameSent(err error) { RecordSend(err) }

// ChunkScheduled implements audio.PlayerObserver.
func (*Observer) ChunkScheduled(_, lead, duration float64) {
	RecordChunkScheduled(lead, duration)
}

// Interrupted implements audio.PlayerObserver.
func (*Observer) Interrupted(stopped int) { RecordInterruption(stopped) }

// DecodeError implements live.Observer.
func (*Observer) DecodeError() { RecordDecodeError() }

// SessionOutcome records how a session attempt ended.
func (*Observer) SessionOutcome(status string) { RecordSession(status) }

// ConversationStarted records a new conversation.
func (*Observer) ConversationStarted() { RecordConversationStart() }

// ConversationEnded records the end of a conversation.
func (*Observer) ConversationEnded(failed bool, d time.Duration) {
	status := statusSuccess
	if failed {
		status = statusError
	}
	RecordConversationEnd(status, d.Seconds())
}

// TurnCompleted records a completed turn.
func (*Observer) TurnCompleted() { RecordTurn() }

// TranscriptSaved records a persisted transcript.
func (*Observer) TranscriptSaved() { RecordTranscriptSaved() }

// FaceScan records a scan result.
func (*Observer) FaceScan(result string, d time.Duration) {
	RecordFaceScan(result, d.Seconds())
}
