package audio

import (
	"fmt"
)

// ResamplePCM16 resamples little-endian 16-bit mono PCM from one rate to
// another using linear interpolation. Inbound speech is normally delivered at
// the playback rate; this covers chunks that declare a different rate.
func ResamplePCM16(input []byte, fromRate, toRate int) ([]byte, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: from=%d, to=%d", fromRate, toRate)
	}

	in, err := pcm16Samples(input)
	if err != nil {
		return nil, err
	}
	if fromRate == toRate {
		return pcm16Bytes(in), nil
	}
	if len(in) == 0 {
		return []byte{}, nil
	}

	n := int(float64(len(in)) * float64(toRate) / float64(fromRate))
	out := make([]int16, n)
	ratio := float64(fromRate) / float64(toRate)
	last := len(in) - 1

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = in[last]
			continue
		}
		frac := pos - float64(idx)
		s0, s1 := float64(in[idx]), float64(in[idx+1])
		out[i] = int16(s0 + frac*(s1-s0))
	}

	return pcm16Bytes(out), nil
}
