package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/AltairaLabs/PromptKiosk/runtime/facedetect"
	"github.com/AltairaLabs/PromptKiosk/runtime/kiosk"
	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

const historyDateLayout = "Mon 2 Jan 2006 15:04"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Border(lipgloss.RoundedBorder()).Padding(0, 2)
	hintStyle    = lipgloss.NewStyle().Faint(true)
	statusStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	aiStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	pendingStyle = lipgloss.NewStyle().Italic(true).Faint(true)
	dateStyle    = lipgloss.NewStyle().Underline(true)
)

// terminalView renders kiosk screens as a scrolling log of styled lines.
// Conversation updates print only what changed since the previous update.
type terminalView struct {
	out     io.Writer
	aiName  string
	manual  bool
	mu      sync.Mutex
	printed int
	status  string
	errMsg  string
	pending string
}

func newTerminalView(out io.Writer, aiName string, manualDetector bool) *terminalView {
	if aiName == "" {
		aiName = "AI"
	}
	return &terminalView{out: out, aiName: aiName, manual: manualDetector}
}

func (v *terminalView) println(s string) {
	fmt.Fprintln(v.out, s)
}

func (v *terminalView) ShowWelcome() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println("")
	v.println(titleStyle.Render("AI Receptionist"))
	v.println("Welcome! Start a conversation with " + v.aiName + ".")
	v.println(hintStyle.Render("[Enter] start   [h] history   [q] quit"))
}

func (v *terminalView) ShowLoading(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(statusStyle.Render(msg))
}

func (v *terminalView) ShowFaceStatus(status facedetect.Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	style := statusStyle
	if status == facedetect.StatusDetected {
		style = successStyle
	}
	v.println(style.Render(status.Message()))
	if status == facedetect.StatusScanning || status == facedetect.StatusWaiting {
		if v.manual {
			v.println(hintStyle.Render("[Enter] I'm here   [b] back"))
		} else {
			v.println(hintStyle.Render("[b] back"))
		}
	}
}

func (v *terminalView) ShowError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(errorStyle.Render(msg))
	v.println(hintStyle.Render("[b] back"))
}

func (v *terminalView) ShowConversation(state kiosk.State) {
	v.mu.Lock()
	defer v.mu.Unlock()

	// A new conversation starts with no messages.
	if len(state.Messages) < v.printed {
		v.printed = 0
	}
	if len(state.Messages) == 0 && state.Connecting {
		v.printed = 0
		v.status = ""
		v.errMsg = ""
		v.pending = ""
		v.println(hintStyle.Render("[Enter] end conversation"))
	}

	for _, m := range state.Messages[v.printed:] {
		v.println(v.formatMessage(m))
	}
	v.printed = len(state.Messages)

	if state.Error != "" && state.Error != v.errMsg {
		v.println(errorStyle.Render(state.Error))
	}
	v.errMsg = state.Error

	status := conversationStatus(state)
	if status != v.status {
		v.println(statusStyle.Render("● " + status))
		v.status = status
	}
	pending := strings.TrimSpace(state.PendingUser + " " + state.PendingAI)
	if pending != "" && pending != v.pending {
		v.println(pendingStyle.Render(pending))
	}
	v.pending = pending
}

// conversationStatus is the status line; speech takes precedence.
func conversationStatus(state kiosk.State) string {
	if state.Speaking {
		return "AI Speaking..."
	}
	return state.Status()
}

func (v *terminalView) formatMessage(m transcript.Message) string {
	if m.Sender == transcript.SenderUser {
		return userStyle.Render("You:") + " " + m.Text
	}
	return aiStyle.Render(v.aiName+":") + " " + m.Text
}

func (v *terminalView) ShowHistory(list []transcript.StoredTranscript) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println("")
	v.println(titleStyle.Render("Conversation History"))
	v.println(renderHistory(list, v.aiName))
	v.println(hintStyle.Render("[c] clear history   [b] back"))
}

// renderHistory lists transcripts newest first, as stored.
func renderHistory(list []transcript.StoredTranscript, aiName string) string {
	if len(list) == 0 {
		return hintStyle.Render("No past conversations.")
	}
	v := &terminalView{aiName: aiName}
	var sb strings.Builder
	for i, t := range list {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(dateStyle.Render(t.Date.Local().Format(historyDateLayout)))
		sb.WriteString("\n")
		for _, m := range t.Messages {
			sb.WriteString("  ")
			sb.WriteString(v.formatMessage(m))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

var _ kiosk.View = (*terminalView)(nil)
