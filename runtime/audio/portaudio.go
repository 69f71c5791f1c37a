package audio

import (
	"github.com/gordonklaus/portaudio"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
)

// Stream is an opened device stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// InputDevice opens mono capture streams that deliver fixed-size frames.
type InputDevice interface {
	OpenInput(sampleRate, frameSize int, onFrame func([]float32)) (Stream, error)
}

// OutputDevice opens mono playback streams that pull samples from render.
type OutputDevice interface {
	OpenOutput(sampleRate int, render func([]float32)) (Stream, error)
}

// PortAudio opens the host's default input and output devices.
// portaudio.Initialize must have been called by the process.
type PortAudio struct{}

// OpenInput opens the default microphone. Failure is an ErrDeviceAccess error.
func (PortAudio) OpenInput(sampleRate, frameSize int, onFrame func([]float32)) (Stream, error) {
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frameSize, func(in []float32) {
		onFrame(in)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrDeviceAccess, component, "OpenInput", err)
	}
	return stream, nil
}

// OpenOutput opens the default speaker. Failure is an ErrDeviceAccess error.
func (PortAudio) OpenOutput(sampleRate int, render func([]float32)) (Stream, error) {
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), 0, func(out []float32) {
		render(out)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrDeviceAccess, component, "OpenOutput", err)
	}
	return stream, nil
}

var (
	_ InputDevice  = PortAudio{}
	_ OutputDevice = PortAudio{}
)
