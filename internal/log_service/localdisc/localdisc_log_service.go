package localdisc

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AnishMulay/sandfile/internal/log_service"
)

// LocalDiscLogService appends one line per event to <logDir>/<nodeID>.log.
// Events logged after Close are dropped.
type LocalDiscLogService struct {
	path   string
	nodeID string

	mu       sync.Mutex
	file     *os.File
	logger   *log.Logger
	minLevel int
}

func NewLocalDiscLogService(logDir string, nodeID string, minLogLevel ...string) (*LocalDiscLogService, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(logDir, nodeID+".log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	ls := &LocalDiscLogService{
		path:     path,
		nodeID:   nodeID,
		file:     file,
		logger:   log.New(file, "", 0),
		minLevel: log_service.DebugLevelValue,
	}
	if len(minLogLevel) > 0 && minLogLevel[0] != "" {
		ls.minLevel = log_service.GetLevelValue(minLogLevel[0])
	}
	return ls, nil
}

// Path returns the file the service appends to.
func (ls *LocalDiscLogService) Path() string {
	return ls.path
}

// Close is idempotent.
func (ls *LocalDiscLogService) Close() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.file == nil {
		return nil
	}
	err := ls.file.Close()
	ls.file = nil
	return err
}

func formatLine(level, nodeID string, event log_service.LogEvent) string {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	line := fmt.Sprintf("%s [%s] %s: %s", ts.Format(time.RFC3339), nodeID, level, event.Message)
	if meta := log_service.FormatMetadata(event.Metadata); meta != "" {
		line += " " + meta
	}
	return line
}

func (ls *LocalDiscLogService) log(level string, event log_service.LogEvent) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.file == nil {
		return
	}
	if log_service.GetLevelValue(level) < ls.minLevel {
		return
	}
	ls.logger.Println(formatLine(level, ls.nodeID, event))
}

func (ls *LocalDiscLogService) Debug(event log_service.LogEvent) {
	ls.log(log_service.DebugLevel, event)
}

func (ls *LocalDiscLogService) Info(event log_service.LogEvent) {
	ls.log(log_service.InfoLevel, event)
}

func (ls *LocalDiscLogService) Warn(event log_service.LogEvent) {
	ls.log(log_service.WarnLevel, event)
}

func (ls *LocalDiscLogService) Error(event log_service.LogEvent) {
	ls.log(log_service.ErrorLevel, event)
}

var _ log_service.LogService = (*LocalDiscLogService)(nil)
