package gui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const maxLogMessages = 500

// LogWriter turns written lines into log messages. It is used as the
// output of the structured logger while the window is open.
type LogWriter struct {
	add func(message string)
}

// Write implements io.Writer
func (w *LogWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" && w.add != nil {
			w.add(line)
		}
	}
	return len(p), nil
}

// LogViewer is a widget that displays activity, newest first
type LogViewer struct {
	widget.BaseWidget

	container  *fyne.Container
	logEntry   *widget.Entry
	scrollView *container.Scroll

	mu       sync.Mutex
	messages []string
	now      func() time.Time
}

// NewLogViewer creates a new log viewer widget
func NewLogViewer() *LogViewer {
	v := &LogViewer{now: time.Now}

	v.logEntry = widget.NewMultiLineEntry()
	v.logEntry.Disable()
	v.logEntry.Wrapping = fyne.TextWrapWord

	v.scrollView = container.NewScroll(v.logEntry)
	v.scrollView.SetMinSize(fyne.NewSize(0, 100))

	v.container = container.NewBorder(
		widget.NewLabel("Activity:"),
		nil, nil, nil,
		v.scrollView,
	)

	v.ExtendBaseWidget(v)
	return v
}

// CreateRenderer implements fyne.Widget
func (v *LogViewer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.container)
}

// Writer returns an io.Writer feeding this viewer
func (v *LogViewer) Writer() *LogWriter {
	return &LogWriter{add: v.AddMessage}
}

// AddMessage adds a timestamped message. It may be called from any goroutine.
func (v *LogViewer) AddMessage(message string) {
	v.mu.Lock()
	full := fmt.Sprintf("[%s] %s", v.now().Format("15:04:05"), message)
	v.messages = prependMessage(v.messages, full, maxLogMessages)
	text := strings.Join(v.messages, "\n")
	v.mu.Unlock()

	fyne.Do(func() {
		v.logEntry.SetText(text)
		v.scrollView.Offset = fyne.NewPos(0, 0)
		v.scrollView.Refresh()
	})
}

// Log adds a formatted message
func (v *LogViewer) Log(format string, args ...interface{}) {
	v.AddMessage(fmt.Sprintf(format, args...))
}

// prependMessage puts msg first and drops the oldest beyond max
func prependMessage(messages []string, msg string, max int) []string {
	out := append([]string{msg}, messages...)
	if len(out) > max {
		out = out[:max]
	}
	return out
}
