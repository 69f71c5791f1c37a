// Package audio implements the kiosk's realtime audio path.
//
// Outbound, a CapturePipeline receives fixed-size float32 frames from the
// microphone device callback, quantizes them to 16-bit PCM, base64-encodes
// them and hands them to a send function. Inbound, encoded PCM chunks are
// decoded into Buffers and queued on a Player, which schedules them
// back-to-back on an Output clock so consecutive chunks play without gaps.
//
// # Architecture
//
//	microphone callback -> CapturePipeline -> send(ctx, base64, mime)
//	base64 chunk -> DecodeBase64 -> DecodeAudioData -> Player.Schedule -> Mixer -> speaker callback
//
// The Mixer is the concrete Output: it keeps a sample-accurate clock advanced
// by the speaker callback and mixes every scheduled voice into each callback
// buffer. PortAudio devices are provided in portaudio.go; tests drive the
// Mixer and CapturePipeline directly.
package audio
