package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
)

// AudioChunk is one base64 PCM chunk of synthesized speech.
type AudioChunk struct {
	MimeType string
	Data     string
}

// ServerEvent is a server frame reduced to the signals the kiosk acts on.
// A single frame may set several fields; zero fields mean nothing to do.
type ServerEvent struct {
	// SetupComplete is set on the acknowledgement of the setup message.
	SetupComplete bool

	// ModelTurn is set when the frame carries model output. The model is speaking.
	ModelTurn bool

	// Audio holds the audio parts of the model turn, in order.
	Audio []AudioChunk

	// Text is any text part of the model turn.
	Text string

	// InputTranscript is a fragment of the user's transcribed speech.
	InputTranscript string

	// OutputTranscript is a fragment of the model's transcribed speech.
	OutputTranscript string

	// TurnComplete marks the end of the model's turn.
	TurnComplete bool

	// Interrupted means the user barged in and queued playback must stop.
	Interrupted bool

	// GoAway is set when the server announces an imminent disconnect.
	GoAway *GoAway
}

// IsEmpty reports whether the event carries no signal.
func (e *ServerEvent) IsEmpty() bool {
	return !e.SetupComplete && !e.ModelTurn && len(e.Audio) == 0 && e.Text == "" &&
		e.InputTranscript == "" && e.OutputTranscript == "" &&
		!e.TurnComplete && !e.Interrupted && e.GoAway == nil
}

// ParseServerEvent decodes one raw server frame. Malformed JSON yields an
// error of kind ErrDecode.
func ParseServerEvent(raw []byte) (ServerEvent, error) {
	var msg ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ServerEvent{}, pkgerrors.Wrap(pkgerrors.ErrDecode, component, "ParseServerEvent",
			fmt.Errorf("%w (frame: %s)", err, truncate(raw, maxLoggedFrame)))
	}
	return eventFromMessage(&msg), nil
}

func eventFromMessage(msg *ServerMessage) ServerEvent {
	ev := ServerEvent{
		SetupComplete: msg.SetupComplete != nil,
		GoAway:        msg.GoAway,
	}

	sc := msg.ServerContent
	if sc == nil {
		return ev
	}

	ev.TurnComplete = sc.TurnComplete
	ev.Interrupted = sc.Interrupted
	if sc.InputTranscription != nil {
		ev.InputTranscript = sc.InputTranscription.Text
	}
	if sc.OutputTranscription != nil {
		ev.OutputTranscript = sc.OutputTranscription.Text
	}

	if sc.ModelTurn != nil {
		ev.ModelTurn = true
		var text strings.Builder
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" &&
				(p.InlineData.MimeType == "" || strings.HasPrefix(p.InlineData.MimeType, "audio/")) {
				ev.Audio = append(ev.Audio, AudioChunk{MimeType: p.InlineData.MimeType, Data: p.InlineData.Data})
			}
			text.WriteString(p.Text)
		}
		ev.Text = text.String()
	}

	return ev
}

const maxLoggedFrame = 256

// truncate shortens a frame for error messages; inline audio is large.
func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + fmt.Sprintf("...(%d bytes)", len(raw))
}
