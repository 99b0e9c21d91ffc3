package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/AnishMulay/sandfile/internal/log_service"
	"github.com/charmbracelet/lipgloss"
)

var (
	styleDebug = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0C674"))
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8B545"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD93D"))
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("#E05A3A"))
	styleFaint = lipgloss.NewStyle().Faint(true)
)

// ConsoleLogService writes one line per event to a terminal, colouring the level label.
type ConsoleLogService struct {
	mu       sync.Mutex
	out      io.Writer
	nodeID   string
	minLevel int
	colored  bool
}

func NewConsoleLogService(nodeID string, minLogLevel string, colored bool) *ConsoleLogService {
	return NewConsoleLogServiceWithWriter(os.Stderr, nodeID, minLogLevel, colored)
}

func NewConsoleLogServiceWithWriter(out io.Writer, nodeID string, minLogLevel string, colored bool) *ConsoleLogService {
	return &ConsoleLogService{
		out:      out,
		nodeID:   nodeID,
		minLevel: log_service.GetLevelValue(minLogLevel),
		colored:  colored,
	}
}

func styleFor(level string) lipgloss.Style {
	switch level {
	case log_service.DebugLevel:
		return styleDebug
	case log_service.WarnLevel:
		return styleWarn
	case log_service.ErrorLevel:
		return styleError
	default:
		return styleInfo
	}
}

func (cs *ConsoleLogService) log(level string, event log_service.LogEvent) {
	if log_service.GetLevelValue(level) < cs.minLevel {
		return
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	meta := log_service.FormatMetadata(event.Metadata)

	cs.mu.Lock()
	defer cs.mu.Unlock()

	stamp := ts.Format("15:04:05")
	if cs.colored {
		fmt.Fprintf(cs.out, "%s %s %s %s %s\n",
			styleFaint.Render(stamp), styleFor(level).Render("["+level+"]"),
			styleFaint.Render("["+cs.nodeID+"]"), event.Message, styleFaint.Render(meta))
		return
	}
	fmt.Fprintf(cs.out, "%s [%s] [%s] %s %s\n", stamp, level, cs.nodeID, event.Message, meta)
}

func (cs *ConsoleLogService) Debug(event log_service.LogEvent) {
	cs.log(log_service.DebugLevel, event)
}

func (cs *ConsoleLogService) Info(event log_service.LogEvent) {
	cs.log(log_service.InfoLevel, event)
}

func (cs *ConsoleLogService) Warn(event log_service.LogEvent) {
	cs.log(log_service.WarnLevel, event)
}

func (cs *ConsoleLogService) Error(event log_service.LogEvent) {
	cs.log(log_service.ErrorLevel, event)
}

var _ log_service.LogService = (*ConsoleLogService)(nil)
