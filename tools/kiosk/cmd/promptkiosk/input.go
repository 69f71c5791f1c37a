package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/AltairaLabs/PromptKiosk/runtime/kiosk"
)

// dispatcher is the part of kiosk.App the keyboard drives.
type dispatcher interface {
	Screen() kiosk.Screen
	Dispatch(cmd kiosk.Command)
}

// keyboard turns input lines into app commands. On the face detection screen
// an empty line is forwarded to presses, which feeds the manual detector.
type keyboard struct {
	app     dispatcher
	presses io.Writer
}

// commandFor maps a trimmed, lower-cased line to a command for screen.
func commandFor(screen kiosk.Screen, line string) (kiosk.Command, bool) {
	if line == "q" || line == "quit" {
		return kiosk.CmdQuit, true
	}
	switch screen {
	case kiosk.ScreenWelcome:
		switch line {
		case "", "s", "start":
			return kiosk.CmdStart, true
		case "h", "history":
			return kiosk.CmdViewHistory, true
		}
	case kiosk.ScreenDetectingFace:
		if line == "b" || line == "back" {
			return kiosk.CmdBack, true
		}
	case kiosk.ScreenConversing:
		switch line {
		case "", "e", "end":
			return kiosk.CmdEnd, true
		}
	case kiosk.ScreenViewingHistory:
		switch line {
		case "c", "clear":
			return kiosk.CmdClearHistory, true
		case "", "b", "back":
			return kiosk.CmdBack, true
		}
	}
	return 0, false
}

// run reads in until EOF, then quits the app.
func (k *keyboard) run(in io.Reader) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		screen := k.app.Screen()
		if cmd, ok := commandFor(screen, line); ok {
			k.app.Dispatch(cmd)
			continue
		}
		if screen == kiosk.ScreenDetectingFace && line == "" && k.presses != nil {
			_, _ = io.WriteString(k.presses, "\n")
		}
	}
	k.app.Dispatch(kiosk.CmdQuit)
}
