// Package facedetect decides when a visitor is standing in front of the
// kiosk. A Scanner polls a Camera and a Detector on a fixed interval,
// reports status changes, and returns once a face has been seen and a short
// grace period has passed.
package facedetect

import (
	"context"
	"time"
)

const component = "facedetect"

// Status is the scanner state shown to the visitor.
type Status int

// Scanner states.
const (
	StatusIdle Status = iota
	StatusScanning
	StatusWaiting
	StatusDetected
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusScanning:
		return "SCANNING"
	case StatusWaiting:
		return "WAITING"
	case StatusDetected:
		return "DETECTED"
	default:
		return "UNKNOWN"
	}
}

// Message is the visitor-facing text for the status.
func (s Status) Message() string {
	switch s {
	case StatusScanning:
		return "Scanning for face..."
	case StatusWaiting:
		return "Ready when you are. Please step in front of the camera."
	case StatusDetected:
		return "Face Detected! Welcome."
	default:
		return "Please look at the camera."
	}
}

// Frame is one captured image.
type Frame struct {
	ContentType string
	Data        []byte
	CapturedAt  time.Time
}

// Camera yields frames while started.
type Camera interface {
	Start(ctx context.Context) error
	Frame(ctx context.Context) (Frame, error)
	Stop() error
}

// Detector counts faces in a frame. Load must succeed before DetectFaces is used.
type Detector interface {
	Load(ctx context.Context) error
	DetectFaces(ctx context.Context, f Frame) (int, error)
}
