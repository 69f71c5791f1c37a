package live

import (
	"errors"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/audio"
	"github.com/AltairaLabs/PromptKiosk/runtime/providers/gemini"
)

// AudioPlayer plays the speech carried by one inbound event.
//
// It captures the playback generation when the event arrives, so an
// AudioPlayer created before an interrupt never schedules audio after it.
type AudioPlayer struct {
	s          *Session
	generation uint64
	chunks     []gemini.AudioChunk
}

// HasAudio reports whether the event carried speech.
func (p *AudioPlayer) HasAudio() bool {
	return p != nil && len(p.chunks) > 0
}

// Play decodes each chunk and schedules it. Undecodable chunks are logged
// and skipped.
func (p *AudioPlayer) Play() {
	if p == nil {
		return
	}
	for _, chunk := range p.chunks {
		buf, err := p.s.decode(chunk)
		if err != nil {
			p.s.log.Warn("dropping undecodable audio chunk", "error", err)
			if p.s.obs != nil {
				p.s.obs.DecodeError()
			}
			continue
		}
		if err := p.s.player.ScheduleGeneration(p.generation, buf); err != nil {
			if errors.Is(err, audio.ErrStaleGeneration) {
				p.s.log.Debug("dropping audio superseded by interrupt")
				return
			}
			p.s.log.Warn("scheduling audio chunk", "error", err)
		}
	}
}

func (s *Session) decode(chunk gemini.AudioChunk) (*audio.Buffer, error) {
	data, err := audio.DecodeBase64(chunk.Data)
	if err != nil {
		return nil, err
	}
	rate := s.cfg.OutputSampleRate
	if src := audio.ParseMIMERate(chunk.MimeType, rate); src != rate {
		if data, err = audio.ResamplePCM16(data, src, rate); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrDecode, component, "Resample", err)
		}
	}
	return audio.DecodeAudioData(data, rate, 1)
}
