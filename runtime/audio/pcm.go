package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
)

// Sample rates of the two directions of a live session.
const (
	SampleRate16kHz = 16000 // microphone capture rate
	SampleRate24kHz = 24000 // synthesized speech rate

	// DefaultFrameSize is the number of mono samples per capture frame.
	DefaultFrameSize = 4096

	// CaptureMIMEType labels outbound capture chunks.
	CaptureMIMEType = "audio/pcm;rate=16000"

	bytesPerSample = 2

	// pcmScale is shared by quantization and dequantization so the two are inverse.
	pcmScale = 32768.0
)

const component = "audio"

// EncodeBase64 encodes raw bytes with the standard base64 alphabet and padding.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes a standard base64 string. Malformed input yields an
// error of kind ErrDecode.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrDecode, component, "DecodeBase64", err)
	}
	return data, nil
}

// QuantizeSample converts a float sample in [-1, 1] to int16, rounding to
// nearest and clamping out-of-range input.
func QuantizeSample(s float32) int16 {
	v := math.Round(float64(s) * pcmScale)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// DequantizeSample converts an int16 sample to float32 in [-1, 1).
func DequantizeSample(v int16) float32 {
	return float32(float64(v) / pcmScale)
}

// EncodePCM16 quantizes float samples into little-endian 16-bit PCM bytes.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		//nolint:gosec // int16 to uint16 keeps the two's complement bit pattern
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(QuantizeSample(s)))
	}
	return out
}

// pcm16Samples reinterprets little-endian bytes as int16 samples.
func pcm16Samples(data []byte) ([]int16, error) {
	if len(data)%bytesPerSample != 0 {
		return nil, fmt.Errorf("length %d is not a multiple of %d bytes per sample", len(data), bytesPerSample)
	}
	samples := make([]int16, len(data)/bytesPerSample)
	for i := range samples {
		//nolint:gosec // uint16 to int16 keeps the two's complement bit pattern
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*bytesPerSample:]))
	}
	return samples, nil
}

// pcm16Bytes is the inverse of pcm16Samples.
func pcm16Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		//nolint:gosec // int16 to uint16 keeps the two's complement bit pattern
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(s))
	}
	return out
}

// DecodeAudioData converts interleaved little-endian int16 PCM into a planar
// float Buffer. The byte length must be a whole number of frames.
func DecodeAudioData(data []byte, sampleRate, channels int) (*Buffer, error) {
	if channels < 1 {
		return nil, pkgerrors.Wrap(pkgerrors.ErrDecode, component, "DecodeAudioData",
			fmt.Errorf("invalid channel count %d", channels))
	}
	if sampleRate <= 0 {
		return nil, pkgerrors.Wrap(pkgerrors.ErrDecode, component, "DecodeAudioData",
			fmt.Errorf("invalid sample rate %d", sampleRate))
	}
	samples, err := pcm16Samples(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrDecode, component, "DecodeAudioData", err)
	}
	if len(samples)%channels != 0 {
		return nil, pkgerrors.Wrap(pkgerrors.ErrDecode, component, "DecodeAudioData",
			fmt.Errorf("%d samples do not divide into %d channels", len(samples), channels))
	}

	frames := len(samples) / channels
	buf := NewBuffer(sampleRate, channels, frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			buf.Channels[c][i] = DequantizeSample(samples[i*channels+c])
		}
	}
	return buf, nil
}

// ParseMIMERate extracts the rate parameter from a MIME type such as
// "audio/pcm;rate=24000". It returns fallback when the parameter is absent
// or unparseable.
func ParseMIMERate(mimeType string, fallback int) int {
	for _, part := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || !strings.EqualFold(k, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
			return rate
		}
	}
	return fallback
}
