package gemini

// Wire types of the BidiGenerateContent protocol. Field names are camelCase
// on the wire.

// SetupMessage is the first client message of a session.
type SetupMessage struct {
	Setup Setup `json:"setup"`
}

// Setup configures model, output modality, voice and transcription.
type Setup struct {
	Model                    string                    `json:"model"`
	GenerationConfig         GenerationConfig          `json:"generationConfig"`
	SystemInstruction        *Content                  `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *AudioTranscriptionConfig `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *AudioTranscriptionConfig `json:"outputAudioTranscription,omitempty"`
}

// GenerationConfig selects the response modality and voice.
type GenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

// SpeechConfig selects the synthesized voice.
type SpeechConfig struct {
	VoiceConfig VoiceConfig `json:"voiceConfig"`
}

// VoiceConfig wraps the prebuilt voice selection.
type VoiceConfig struct {
	PrebuiltVoiceConfig PrebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

// PrebuiltVoiceConfig names a prebuilt voice such as "Zephyr".
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// AudioTranscriptionConfig enables transcription. It has no fields; its
// presence as {} turns the feature on.
type AudioTranscriptionConfig struct{}

// Content is a role-less list of parts, used for the system instruction.
type Content struct {
	Parts []Part `json:"parts"`
}

// RealtimeInputMessage carries streamed media to the server.
type RealtimeInputMessage struct {
	RealtimeInput RealtimeInput `json:"realtimeInput"`
}

// RealtimeInput holds media chunks.
type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks"`
}

// Blob is base64 media with its MIME type, e.g. "audio/pcm;rate=16000".
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ServerMessage is one frame from the server (BidiGenerateContentServerMessage).
type ServerMessage struct {
	SetupComplete *SetupComplete `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	GoAway        *GoAway        `json:"goAway,omitempty"`
}

// SetupComplete acknowledges the setup message (empty object).
type SetupComplete struct{}

// GoAway warns that the server will disconnect soon.
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

// ServerContent is model output and turn signalling.
type ServerContent struct {
	ModelTurn           *ModelTurn     `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *Transcription `json:"inputTranscription,omitempty"`  // user speech
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"` // model speech
}

// Transcription is a fragment of recognized text.
type Transcription struct {
	Text string `json:"text,omitempty"`
}

// ModelTurn is a piece of the model's response.
type ModelTurn struct {
	Parts []Part `json:"parts,omitempty"`
}

// Part is text or inline media.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData is base64 media.
type InlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}
